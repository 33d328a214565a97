// Package research runs searches and translations against the language model
// and turns responses into classified results.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/llm"
	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/parser"
	"github.com/blockedby/lexscout/internal/prompt"
)

// HistoryStore persists finished searches.
type HistoryStore interface {
	Save(ctx context.Context, res *models.Result, providerErr string) error
}

// EventPublisher announces finished searches and translations.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, event models.ResearchCompletedEvent) error
	PublishTranslated(ctx context.Context, event models.ResearchTranslatedEvent) error
}

// Dependencies wires the service. Provider may be nil when no API key is
// configured; every call then fails with ErrMissingAPIKey. History and
// Events are optional.
type Dependencies struct {
	Provider llm.Provider
	Catalog  *catalog.Catalog
	History  HistoryStore
	Events   EventPublisher
}

// Service runs research requests.
type Service struct {
	provider llm.Provider
	prompts  *prompt.Builder
	catalog  *catalog.Catalog
	history  HistoryStore
	events   EventPublisher
	log      *zerolog.Logger
	now      func() time.Time
}

// NewService builds the prompt builder matching the provider's style.
func NewService(deps Dependencies) (*Service, error) {
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	style := prompt.StyleGrounded
	if deps.Provider != nil && !deps.Provider.Grounded() {
		style = prompt.StyleInline
	}
	prompts, err := prompt.NewBuilder(style, cat)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	return &Service{
		provider: deps.Provider,
		prompts:  prompts,
		catalog:  cat,
		history:  deps.History,
		events:   deps.Events,
		log:      logger.Get().Component("research"),
		now:      time.Now,
	}, nil
}

// Catalog returns the catalog the service validates against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// SearchRegulations searches laws and regulations of country.
func (s *Service) SearchRegulations(ctx context.Context, query, country, language string, f *models.RegulationFilters) (*models.Result, error) {
	return s.Search(ctx, models.Query{
		Kind:              models.KindLaw,
		Text:              query,
		Country:           country,
		Language:          language,
		RegulationFilters: f,
	})
}

// SearchPolicies searches government policies of country.
func (s *Service) SearchPolicies(ctx context.Context, query, country, language string, f *models.PolicyFilters) (*models.Result, error) {
	return s.Search(ctx, models.Query{
		Kind:          models.KindPolicy,
		Text:          query,
		Country:       country,
		Language:      language,
		PolicyFilters: f,
	})
}

// Validate normalizes q in place and reports the first problem.
// An empty language becomes the country's first language. Countries without
// listed languages accept any language.
func (s *Service) Validate(q *models.Query) error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return ErrEmptyQuery
	}
	if !q.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, q.Kind)
	}
	if !s.catalog.Has(q.Country) {
		return fmt.Errorf("%w: %q", ErrUnknownCountry, q.Country)
	}
	if q.Language == "" {
		q.Language = s.catalog.DefaultLanguage(q.Country)
	}
	if len(s.catalog.Languages(q.Country)) > 0 && !s.catalog.SupportsLanguage(q.Country, q.Language) {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, q.Language)
	}
	return nil
}

// Search runs one search. Validation and provider failures are returned as
// errors; unusable responses are not errors but raw or empty outcomes.
func (s *Service) Search(ctx context.Context, q models.Query) (*models.Result, error) {
	if err := s.Validate(&q); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ErrMissingAPIKey
	}

	var p prompt.Prompt
	if q.Kind == models.KindLaw {
		p = s.prompts.Regulations(q.Text, q.Country, q.Language, q.RegulationFilters)
	} else {
		p = s.prompts.Policies(q.Text, q.Country, q.Language, q.PolicyFilters)
	}

	start := s.now()
	res := &models.Result{
		ID:        uuid.New(),
		Query:     q,
		Sources:   []models.Source{},
		CreatedAt: start,
	}

	log := s.log.With().Str("id", res.ID.String()).Str("kind", string(q.Kind)).Str("country", q.Country).Logger()
	log.Info().Str("language", q.Language).Msg("search started")

	resp, err := s.provider.Generate(ctx, &llm.Request{System: p.System, User: p.User, Search: true})
	res.Duration = s.now().Sub(start)
	if err != nil {
		res.Outcome = models.OutcomeError
		res.Message = ErrProvider.Error()
		log.Error().Err(err).Dur("duration", res.Duration).Msg("search failed")
		s.record(ctx, res, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	res.Model = resp.Model

	s.classify(res, resp)

	log.Info().
		Str("outcome", string(res.Outcome)).
		Int("records", res.Count()).
		Int("sources", len(res.Sources)).
		Dur("duration", res.Duration).
		Msg("search finished")

	s.record(ctx, res, "")
	return res, nil
}

func (s *Service) classify(res *models.Result, resp *llm.Response) {
	var (
		count  int
		raw    string
		inline []models.Source
		regs   []models.Regulation
		pols   []models.Policy
	)
	if res.Query.Kind == models.KindLaw {
		parsed := parser.Regulations(resp.Text)
		regs, inline, raw, count = parsed.Records, parsed.Sources, parsed.Raw, len(parsed.Records)
	} else {
		parsed := parser.Policies(resp.Text)
		pols, inline, raw, count = parsed.Records, parsed.Sources, parsed.Raw, len(parsed.Records)
	}

	sources := models.CleanSources(append(append([]models.Source{}, resp.Sources...), inline...))
	res.Outcome = parser.Classify(count, len(sources), raw)

	switch res.Outcome {
	case models.OutcomeSuccess:
		res.Regulations, res.Policies, res.Sources = regs, pols, sources
	case models.OutcomeRaw:
		res.RawText = raw
		res.Message = MsgUnparsed
	default:
		res.Message = MsgNoResults
	}
}

// record publishes the completion event and stores history. Failures are
// logged and never reach the caller.
func (s *Service) record(ctx context.Context, res *models.Result, providerErr string) {
	if s.events != nil {
		if err := s.events.PublishCompleted(ctx, models.ResearchCompletedEvent{Result: res, Error: providerErr}); err != nil {
			s.log.Warn().Err(err).Str("id", res.ID.String()).Msg("publish research.completed")
		}
	}
	if s.history != nil {
		if err := s.history.Save(ctx, res, providerErr); err != nil {
			s.log.Warn().Err(err).Str("id", res.ID.String()).Msg("save history")
		}
	}
}

// Translate translates text into language. Blank text returns "" without
// calling the provider.
func (s *Service) Translate(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if strings.TrimSpace(language) == "" {
		return "", ErrNoTargetLang
	}
	if s.provider == nil {
		return "", ErrMissingAPIKey
	}

	p := s.prompts.Translation(text, language)
	resp, err := s.provider.Generate(ctx, &llm.Request{System: p.System, User: p.User})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// TranslateRegulation translates the content and penalty of a regulation
// concurrently. Either both succeed or nothing is returned.
func (s *Service) TranslateRegulation(ctx context.Context, reg models.Regulation, language string) (*models.RegulationTranslation, error) {
	out := &models.RegulationTranslation{Language: language}
	fields := []translateField{
		{text: reg.Content, dst: &out.Content},
		{text: reg.Penalty, dst: &out.Penalty},
	}
	if err := s.translateAll(ctx, models.KindLaw, language, fields); err != nil {
		return nil, err
	}
	return out, nil
}

// TranslatePolicy translates the summary and every key point of a policy
// concurrently. Either all succeed or nothing is returned.
func (s *Service) TranslatePolicy(ctx context.Context, pol models.Policy, language string) (*models.PolicyTranslation, error) {
	out := &models.PolicyTranslation{
		Language:  language,
		KeyPoints: make([]string, len(pol.KeyPoints)),
	}
	fields := []translateField{{text: pol.Summary, dst: &out.Summary}}
	for i, kp := range pol.KeyPoints {
		fields = append(fields, translateField{text: kp, dst: &out.KeyPoints[i]})
	}
	if err := s.translateAll(ctx, models.KindPolicy, language, fields); err != nil {
		return nil, err
	}
	return out, nil
}

type translateField struct {
	text string
	dst  *string
}

func (s *Service) translateAll(ctx context.Context, kind models.Kind, language string, fields []translateField) error {
	if strings.TrimSpace(language) == "" {
		return ErrNoTargetLang
	}
	if s.provider == nil {
		return ErrMissingAPIKey
	}

	start := s.now()
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fields {
		g.Go(func() error {
			translated, err := s.Translate(gctx, f.text, language)
			if err != nil {
				return err
			}
			*f.dst = translated
			return nil
		})
	}
	err := g.Wait()

	if s.events != nil {
		evt := models.ResearchTranslatedEvent{
			Kind:     kind,
			Language: language,
			Fields:   len(fields),
			Failed:   err != nil,
			Duration: s.now().Sub(start),
			At:       start,
		}
		if perr := s.events.PublishTranslated(ctx, evt); perr != nil {
			s.log.Warn().Err(perr).Msg("publish research.translated")
		}
	}

	if err != nil {
		s.log.Error().Err(err).Str("language", language).Msg("translation failed")
		return err
	}
	return nil
}
