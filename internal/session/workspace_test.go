package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/research"
)

type fakeResearcher struct {
	mu      sync.Mutex
	queries []models.Query
	result  *models.Result
	err     error
	gate    chan struct{} // when set, Search blocks until it is closed

	translateErr error
	translations int
}

func (f *fakeResearcher) Search(ctx context.Context, q models.Query) (*models.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate, res, err := f.gate, f.result, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if res != nil {
		res.Query = q
	}
	return res, err
}

func (f *fakeResearcher) TranslateRegulation(_ context.Context, reg models.Regulation, lang string) (*models.RegulationTranslation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translations++
	if f.translateErr != nil {
		return nil, f.translateErr
	}
	return &models.RegulationTranslation{Language: lang, Content: lang + ":" + reg.Content, Penalty: lang + ":" + reg.Penalty}, nil
}

func (f *fakeResearcher) TranslatePolicy(_ context.Context, pol models.Policy, lang string) (*models.PolicyTranslation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translations++
	if f.translateErr != nil {
		return nil, f.translateErr
	}
	return &models.PolicyTranslation{Language: lang, Summary: lang + ":" + pol.Summary, KeyPoints: pol.KeyPoints}, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(typ string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func successResult() *models.Result {
	return &models.Result{
		ID:      uuid.New(),
		Outcome: models.OutcomeSuccess,
		Regulations: []models.Regulation{
			{RegulationName: "勞動基準法", Content: "加班費", Penalty: "罰鍰"},
			{RegulationName: "職業安全衛生法", Content: "安全", Penalty: "無"},
		},
		Sources: []models.Source{{URI: "https://law.moj.gov.tw/"}},
	}
}

func fastOptions() Options {
	return Options{
		Simulator:   Simulator{Interval: time.Millisecond, Rand: func() float64 { return 1 }},
		SettleDelay: 5 * time.Millisecond,
	}
}

func newTestWorkspace(r Researcher, log *eventLog) *Workspace {
	var notify func(Event)
	if log != nil {
		notify = log.add
	}
	return NewWorkspace("ws-1", catalog.Default(), r, notify, fastOptions())
}

func waitSettled(t *testing.T, w *Workspace, kind models.Kind) TabState {
	t.Helper()
	require.Eventually(t, func() bool { return !w.State().Tab(kind).Loading }, time.Second, time.Millisecond)
	return w.State().Tab(kind)
}

func TestNewWorkspace_Defaults(t *testing.T) {
	w := newTestWorkspace(&fakeResearcher{}, nil)
	st := w.State()

	assert.Equal(t, "Taiwan", st.Country)
	assert.Equal(t, "正體中文", st.Language)
	assert.Equal(t, []string{"正體中文", "English"}, st.Languages)
	assert.Equal(t, models.KindLaw, st.Active)
	assert.False(t, st.Law.Loading)
	assert.Empty(t, st.Law.Cards)
}

func TestSetCountry_ResetsLanguage(t *testing.T) {
	log := &eventLog{}
	w := newTestWorkspace(&fakeResearcher{}, log)

	require.NoError(t, w.SetLanguage("English"))
	require.NoError(t, w.SetCountry("European Union"))

	st := w.State()
	assert.Equal(t, "European Union", st.Country)
	assert.Equal(t, "English", st.Language)

	require.NoError(t, w.SetCountry("Malaysia"))
	assert.Equal(t, "Bahasa Melayu", w.State().Language)

	assert.ErrorIs(t, w.SetCountry("Atlantis"), research.ErrUnknownCountry)
	assert.ErrorIs(t, w.SetLanguage("Deutsch"), research.ErrUnknownLanguage)
	assert.Equal(t, 3, log.count(EventSettings))
}

func TestSearch_Success(t *testing.T) {
	r := &fakeResearcher{result: successResult()}
	opts := fastOptions()
	opts.SettleDelay = 200 * time.Millisecond
	w := NewWorkspace("ws-1", catalog.Default(), r, nil, opts)

	err := w.Search(context.Background(), models.KindLaw, SearchInput{
		Query:             "加班費",
		RegulationFilters: models.RegulationFilters{CompetentAuthority: "勞動部"},
	})
	require.NoError(t, err)

	tab := w.State().Law
	assert.Equal(t, 100, tab.Progress)
	assert.True(t, tab.Loading, "loading clears only after the settle delay")
	assert.Len(t, tab.Regulations, 2)
	assert.Len(t, tab.Cards, 2)
	assert.Empty(t, tab.Error)
	assert.NotEmpty(t, tab.ResultID)

	tab = waitSettled(t, w, models.KindLaw)
	assert.Equal(t, 100, tab.Progress)
	assert.Len(t, tab.Sources, 1)

	require.Len(t, r.queries, 1)
	q := r.queries[0]
	assert.Equal(t, "Taiwan", q.Country)
	assert.Equal(t, "正體中文", q.Language)
	require.NotNil(t, q.RegulationFilters)
	assert.Equal(t, "勞動部", q.RegulationFilters.CompetentAuthority)
	assert.Nil(t, q.PolicyFilters)

	assert.Empty(t, w.State().Policy.Regulations, "other tab untouched")
}

func TestSearch_BlankQuery(t *testing.T) {
	r := &fakeResearcher{result: successResult()}
	w := newTestWorkspace(r, nil)

	require.NoError(t, w.Search(context.Background(), models.KindLaw, SearchInput{Query: "x"}))
	waitSettled(t, w, models.KindLaw)

	require.NoError(t, w.Search(context.Background(), models.KindLaw, SearchInput{Query: "   "}))

	tab := w.State().Law
	assert.Equal(t, research.ErrEmptyQuery.Error(), tab.Error)
	assert.False(t, tab.Loading)
	assert.Len(t, tab.Regulations, 2, "previous results stay")
	assert.Len(t, r.queries, 1)
}

func TestSearch_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		result    *models.Result
		err       error
		wantError string
		wantRaw   string
	}{
		{
			name:      "raw",
			result:    &models.Result{ID: uuid.New(), Outcome: models.OutcomeRaw, RawText: "no json here", Message: research.MsgUnparsed},
			wantError: research.MsgUnparsed,
			wantRaw:   "no json here",
		},
		{
			name:      "empty",
			result:    &models.Result{ID: uuid.New(), Outcome: models.OutcomeEmpty, Message: research.MsgNoResults},
			wantError: research.MsgNoResults,
		},
		{
			name:      "provider error",
			err:       fmt.Errorf("%w: %v", research.ErrProvider, errors.New("dial tcp: refused")),
			wantError: research.ErrProvider.Error(),
		},
		{
			name:      "missing key",
			err:       research.ErrMissingAPIKey,
			wantError: research.ErrMissingAPIKey.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorkspace(&fakeResearcher{result: tt.result, err: tt.err}, nil)

			require.NoError(t, w.Search(context.Background(), models.KindPolicy, SearchInput{Query: "q"}))
			tab := waitSettled(t, w, models.KindPolicy)

			assert.Equal(t, tt.wantError, tab.Error)
			assert.Equal(t, tt.wantRaw, tab.RawText)
			assert.Empty(t, tab.Policies)
			assert.Empty(t, tab.Sources)
			assert.Empty(t, tab.Cards)
		})
	}
}

func TestSearch_ClearsPreviousState(t *testing.T) {
	r := &fakeResearcher{result: successResult()}
	w := newTestWorkspace(r, nil)

	require.NoError(t, w.Search(context.Background(), models.KindLaw, SearchInput{Query: "first"}))
	waitSettled(t, w, models.KindLaw)

	r.mu.Lock()
	r.gate = make(chan struct{})
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- w.Search(context.Background(), models.KindLaw, SearchInput{Query: "second"}) }()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.queries) == 2
	}, time.Second, time.Millisecond)

	tab := w.State().Law
	assert.True(t, tab.Loading)
	assert.Empty(t, tab.Regulations)
	assert.Empty(t, tab.Sources)
	assert.Empty(t, tab.Error)
	assert.Empty(t, tab.Cards)
	assert.Equal(t, "second", tab.Query)

	assert.ErrorIs(t, w.Search(context.Background(), models.KindLaw, SearchInput{Query: "third"}), ErrBusy)

	close(r.gate)
	require.NoError(t, <-done)
	waitSettled(t, w, models.KindLaw)
}

func TestSearch_EmitsProgress(t *testing.T) {
	r := &fakeResearcher{result: successResult(), gate: make(chan struct{})}
	log := &eventLog{}
	w := newTestWorkspace(r, log)

	done := make(chan error, 1)
	go func() { done <- w.Search(context.Background(), models.KindLaw, SearchInput{Query: "q"}) }()

	require.Eventually(t, func() bool { return w.State().Law.Progress >= 95 }, time.Second, time.Millisecond)
	assert.Equal(t, 95, w.State().Law.Progress)
	assert.GreaterOrEqual(t, log.count(EventProgress), 1)

	close(r.gate)
	require.NoError(t, <-done)
	waitSettled(t, w, models.KindLaw)
}

func TestSearch_UnknownKind(t *testing.T) {
	w := newTestWorkspace(&fakeResearcher{}, nil)
	assert.ErrorIs(t, w.Search(context.Background(), "gossip", SearchInput{Query: "q"}), ErrUnknownKind)
}

func TestTranslateCard(t *testing.T) {
	r := &fakeResearcher{result: successResult()}
	w := newTestWorkspace(r, nil)
	require.NoError(t, w.Search(context.Background(), models.KindLaw, SearchInput{Query: "q"}))
	waitSettled(t, w, models.KindLaw)

	require.NoError(t, w.TranslateCard(context.Background(), models.KindLaw, 1, "English"))

	card := w.State().Law.Cards[1]
	assert.False(t, card.Translating)
	assert.Equal(t, "English", card.Language)
	require.NotNil(t, card.Regulation)
	assert.Equal(t, "English:安全", card.Regulation.Content)
	assert.False(t, w.State().Law.Cards[0].Translated())

	// same language again: nothing happens
	require.NoError(t, w.TranslateCard(context.Background(), models.KindLaw, 1, "English"))
	assert.Equal(t, 1, r.translations)

	// a different language replaces the translation
	require.NoError(t, w.TranslateCard(context.Background(), models.KindLaw, 1, "日本語"))
	card = w.State().Law.Cards[1]
	assert.Equal(t, "日本語", card.Language)
	assert.Equal(t, "日本語:安全", card.Regulation.Content)
	assert.Equal(t, 2, r.translations)
}

func TestTranslateCard_Failure(t *testing.T) {
	r := &fakeResearcher{result: successResult()}
	w := newTestWorkspace(r, nil)
	require.NoError(t, w.Search(context.Background(), models.KindLaw, SearchInput{Query: "q"}))
	waitSettled(t, w, models.KindLaw)

	require.NoError(t, w.TranslateCard(context.Background(), models.KindLaw, 0, "English"))

	r.mu.Lock()
	r.translateErr = fmt.Errorf("%w: %v", research.ErrTranslation, errors.New("quota"))
	r.mu.Unlock()

	require.NoError(t, w.TranslateCard(context.Background(), models.KindLaw, 0, "Deutsch"))

	card := w.State().Law.Cards[0]
	assert.Equal(t, research.ErrTranslation.Error(), card.Error)
	assert.Nil(t, card.Regulation, "previous translation is cleared")
	assert.False(t, card.Translated())

	// the failed language can be retried
	r.mu.Lock()
	r.translateErr = nil
	r.mu.Unlock()
	require.NoError(t, w.TranslateCard(context.Background(), models.KindLaw, 0, "Deutsch"))
	card = w.State().Law.Cards[0]
	assert.Empty(t, card.Error)
	assert.Equal(t, "Deutsch", card.Language)
}

func TestTranslateCard_Policy(t *testing.T) {
	r := &fakeResearcher{result: &models.Result{
		ID:       uuid.New(),
		Outcome:  models.OutcomeSuccess,
		Policies: []models.Policy{{PolicyName: "淨零", Summary: "摘要", KeyPoints: []string{"a"}}},
		Sources:  []models.Source{{URI: "https://www.ndc.gov.tw/"}},
	}}
	w := newTestWorkspace(r, nil)
	require.NoError(t, w.Search(context.Background(), models.KindPolicy, SearchInput{Query: "q"}))
	waitSettled(t, w, models.KindPolicy)

	require.NoError(t, w.TranslateCard(context.Background(), models.KindPolicy, 0, "English"))

	card := w.State().Policy.Cards[0]
	require.NotNil(t, card.Policy)
	assert.Equal(t, "English:摘要", card.Policy.Summary)
}

func TestTranslateCard_NoSuchCard(t *testing.T) {
	w := newTestWorkspace(&fakeResearcher{}, nil)

	assert.ErrorIs(t, w.TranslateCard(context.Background(), models.KindLaw, 0, "English"), ErrNoSuchCard)
	assert.ErrorIs(t, w.TranslateCard(context.Background(), models.KindLaw, -1, "English"), ErrNoSuchCard)
	assert.ErrorIs(t, w.TranslateCard(context.Background(), "gossip", 0, "English"), ErrUnknownKind)
}
