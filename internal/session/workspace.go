// Package session keeps the per-browser research workspace: selected country
// and language, and for each search tab the in-flight request, simulated
// progress, outcome and per-card translations.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/research"
)

// Errors returned by workspace operations.
var (
	ErrBusy        = errors.New("a request is already in progress")
	ErrNoSuchCard  = errors.New("no such result card")
	ErrUnknownKind = errors.New("unknown tab")
)

// Researcher is the subset of research.Service a workspace needs.
type Researcher interface {
	Search(ctx context.Context, q models.Query) (*models.Result, error)
	TranslateRegulation(ctx context.Context, reg models.Regulation, language string) (*models.RegulationTranslation, error)
	TranslatePolicy(ctx context.Context, pol models.Policy, language string) (*models.PolicyTranslation, error)
}

// Options tune timing; zero values use the defaults.
type Options struct {
	Simulator   Simulator
	SettleDelay time.Duration
}

type tab struct {
	kind     models.Kind
	query    string
	loading  bool
	progress float64
	err      string

	regFilters models.RegulationFilters
	polFilters models.PolicyFilters

	regulations []models.Regulation
	policies    []models.Policy
	sources     []models.Source
	raw         string
	cards       []CardState
	resultID    string

	// generation bumps on every search so late callbacks can tell they are stale
	generation uint64
}

// Workspace is one user's research state. All methods are safe for
// concurrent use.
type Workspace struct {
	id         string
	catalog    *catalog.Catalog
	researcher Researcher
	notify     func(Event)
	sim        Simulator
	settle     time.Duration

	mu       sync.Mutex
	country  string
	language string
	active   models.Kind
	tabs     map[models.Kind]*tab
	touched  time.Time
}

// NewWorkspace starts on the catalog's default country and its first language.
func NewWorkspace(id string, cat *catalog.Catalog, r Researcher, notify func(Event), opts Options) *Workspace {
	if notify == nil {
		notify = func(Event) {}
	}
	if opts.Simulator.Interval <= 0 || opts.Simulator.Rand == nil {
		opts.Simulator = DefaultSimulator()
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = SettleDelay
	}

	return &Workspace{
		id:         id,
		catalog:    cat,
		researcher: r,
		notify:     notify,
		sim:        opts.Simulator,
		settle:     opts.SettleDelay,
		country:    cat.DefaultCountry,
		language:   cat.DefaultLanguage(cat.DefaultCountry),
		active:     models.KindLaw,
		tabs: map[models.Kind]*tab{
			models.KindLaw:    {kind: models.KindLaw, cards: []CardState{}},
			models.KindPolicy: {kind: models.KindPolicy, cards: []CardState{}},
		},
		touched: time.Now(),
	}
}

// ID returns the workspace id.
func (w *Workspace) ID() string { return w.id }

// LastTouched returns when the workspace was last used.
func (w *Workspace) LastTouched() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touched
}

// SetCountry switches country and resets the response language to the
// first language listed for it, or "" if it lists none.
func (w *Workspace) SetCountry(country string) error {
	if !w.catalog.Has(country) {
		return fmt.Errorf("%w: %q", research.ErrUnknownCountry, country)
	}

	w.mu.Lock()
	w.touch()
	w.country = country
	w.language = w.catalog.DefaultLanguage(country)
	w.mu.Unlock()

	w.emitSettings()
	return nil
}

// SetLanguage selects a response language offered for the current country.
func (w *Workspace) SetLanguage(language string) error {
	w.mu.Lock()
	if !w.catalog.SupportsLanguage(w.country, language) {
		w.mu.Unlock()
		return fmt.Errorf("%w: %q", research.ErrUnknownLanguage, language)
	}
	w.touch()
	w.language = language
	w.mu.Unlock()

	w.emitSettings()
	return nil
}

// SetActive switches the visible tab.
func (w *Workspace) SetActive(kind models.Kind) error {
	if !kind.IsValid() {
		return ErrUnknownKind
	}
	w.mu.Lock()
	w.touch()
	w.active = kind
	w.mu.Unlock()
	return nil
}

// SearchInput is what the user typed into a tab.
type SearchInput struct {
	Query             string
	RegulationFilters models.RegulationFilters
	PolicyFilters     models.PolicyFilters
}

// Search runs a search on the given tab and blocks until the outcome is
// applied. The loading flag clears SettleDelay later. A blank query only
// sets the tab error. Only one search per tab may be in flight.
func (w *Workspace) Search(ctx context.Context, kind models.Kind, in SearchInput) error {
	if !kind.IsValid() {
		return ErrUnknownKind
	}

	w.mu.Lock()
	t := w.tabs[kind]
	if t.loading {
		w.mu.Unlock()
		return ErrBusy
	}
	w.touch()
	t.query = in.Query
	t.regFilters = in.RegulationFilters
	t.polFilters = in.PolicyFilters

	if strings.TrimSpace(in.Query) == "" {
		t.err = research.ErrEmptyQuery.Error()
		snap := t.snapshot()
		w.mu.Unlock()
		w.notify(Event{Type: EventTab, Kind: kind, Tab: &snap})
		return nil
	}

	t.generation++
	gen := t.generation
	t.loading = true
	t.progress = 0
	t.err = ""
	t.regulations, t.policies, t.sources, t.raw = nil, nil, nil, ""
	t.cards = []CardState{}
	t.resultID = ""

	q := models.Query{Kind: kind, Text: in.Query, Country: w.country, Language: w.language}
	if kind == models.KindLaw {
		f := in.RegulationFilters
		q.RegulationFilters = &f
	} else {
		f := in.PolicyFilters
		q.PolicyFilters = &f
	}
	snap := t.snapshot()
	w.mu.Unlock()
	w.notify(Event{Type: EventTab, Kind: kind, Tab: &snap})

	simCtx, stopSim := context.WithCancel(context.Background())
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		w.sim.Run(simCtx, func(p float64) { w.tick(kind, gen, p) })
	}()

	res, err := w.researcher.Search(ctx, q)

	stopSim()
	<-simDone

	w.mu.Lock()
	t.progress = 100
	w.apply(t, res, err)
	snap = t.snapshot()
	w.mu.Unlock()
	w.notify(Event{Type: EventTab, Kind: kind, Tab: &snap})

	time.AfterFunc(w.settle, func() { w.settleLoading(kind, gen) })
	return nil
}

func (w *Workspace) tick(kind models.Kind, gen uint64, p float64) {
	w.mu.Lock()
	t := w.tabs[kind]
	if t.generation != gen || !t.loading {
		w.mu.Unlock()
		return
	}
	t.progress = p
	pct := int(math.Round(p))
	w.mu.Unlock()
	w.notify(Event{Type: EventProgress, Kind: kind, Progress: pct})
}

func (w *Workspace) settleLoading(kind models.Kind, gen uint64) {
	w.mu.Lock()
	t := w.tabs[kind]
	if t.generation != gen {
		w.mu.Unlock()
		return
	}
	t.loading = false
	snap := t.snapshot()
	w.mu.Unlock()
	w.notify(Event{Type: EventTab, Kind: kind, Tab: &snap})
}

// apply maps a search outcome onto the tab. Called with w.mu held.
func (w *Workspace) apply(t *tab, res *models.Result, err error) {
	if err != nil {
		t.err = userMessage(err)
		return
	}
	t.resultID = res.ID.String()
	switch res.Outcome {
	case models.OutcomeSuccess:
		t.regulations = res.Regulations
		t.policies = res.Policies
		t.sources = res.Sources
		t.cards = make([]CardState, res.Count())
	case models.OutcomeRaw:
		t.raw = res.RawText
		t.err = res.Message
	default:
		t.err = res.Message
	}
}

// userMessage hides provider details behind the sentinel's text.
func userMessage(err error) string {
	for _, sentinel := range []error{research.ErrProvider, research.ErrTranslation, research.ErrMissingAPIKey} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// TranslateCard translates the card at index into language. Translating to
// the language the card already shows is a no-op. A new translation clears
// the previous one and its error first. Failures end up in the card state
// and are not returned.
func (w *Workspace) TranslateCard(ctx context.Context, kind models.Kind, index int, language string) error {
	if !kind.IsValid() {
		return ErrUnknownKind
	}

	w.mu.Lock()
	t := w.tabs[kind]
	if index < 0 || index >= len(t.cards) {
		w.mu.Unlock()
		return ErrNoSuchCard
	}
	card := &t.cards[index]
	if card.Translating {
		w.mu.Unlock()
		return ErrBusy
	}
	if card.Translated() && card.Language == language {
		w.mu.Unlock()
		return nil
	}
	w.touch()
	*card = CardState{Translating: true, Language: language}
	gen := t.generation
	var (
		reg models.Regulation
		pol models.Policy
	)
	if kind == models.KindLaw {
		reg = t.regulations[index]
	} else {
		pol = t.policies[index]
	}
	snap := t.snapshot()
	w.mu.Unlock()
	w.notify(Event{Type: EventTab, Kind: kind, Tab: &snap})

	var (
		regOut *models.RegulationTranslation
		polOut *models.PolicyTranslation
		err    error
	)
	if kind == models.KindLaw {
		regOut, err = w.researcher.TranslateRegulation(ctx, reg, language)
	} else {
		polOut, err = w.researcher.TranslatePolicy(ctx, pol, language)
	}

	w.mu.Lock()
	if t.generation != gen || index >= len(t.cards) {
		// a newer search replaced the cards
		w.mu.Unlock()
		return nil
	}
	card = &t.cards[index]
	card.Translating = false
	if err != nil {
		card.Language = ""
		card.Error = userMessage(err)
	} else {
		card.Regulation, card.Policy = regOut, polOut
	}
	snap = t.snapshot()
	w.mu.Unlock()
	w.notify(Event{Type: EventTab, Kind: kind, Tab: &snap})
	return nil
}

// State returns a snapshot of the workspace.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Workspace) stateLocked() State {
	return State{
		ID:        w.id,
		Country:   w.country,
		Language:  w.language,
		Languages: append([]string(nil), w.catalog.Languages(w.country)...),
		Active:    w.active,
		Law:       w.tabs[models.KindLaw].snapshot(),
		Policy:    w.tabs[models.KindPolicy].snapshot(),
	}
}

func (w *Workspace) emitSettings() {
	st := w.State()
	w.notify(Event{Type: EventSettings, State: &st})
}

func (w *Workspace) touch() {
	w.touched = time.Now()
}

func (t *tab) snapshot() TabState {
	s := TabState{
		Kind:              t.kind,
		Query:             t.query,
		Loading:           t.loading,
		Progress:          int(math.Round(t.progress)),
		Error:             t.err,
		RegulationFilters: t.regFilters,
		PolicyFilters:     t.polFilters,
		Regulations:       append([]models.Regulation(nil), t.regulations...),
		Policies:          append([]models.Policy(nil), t.policies...),
		Sources:           append([]models.Source(nil), t.sources...),
		RawText:           t.raw,
		Cards:             make([]CardState, len(t.cards)),
		ResultID:          t.resultID,
	}
	copy(s.Cards, t.cards)
	return s
}
