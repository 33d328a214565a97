// Package repository persists research history.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// SearchRecord is one stored search.
type SearchRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Kind     string    `gorm:"size:16;index;not null" json:"kind"`
	Query    string    `gorm:"not null" json:"query"`
	Country  string    `gorm:"size:64;index" json:"country"`
	Language string    `gorm:"size:64" json:"language"`

	RegulationFilters *models.RegulationFilters `gorm:"serializer:json;type:text" json:"regulationFilters,omitempty"`
	PolicyFilters     *models.PolicyFilters     `gorm:"serializer:json;type:text" json:"policyFilters,omitempty"`

	Outcome     string              `gorm:"size:16;index;not null" json:"outcome"`
	ResultCount int                 `json:"resultCount"`
	Regulations []models.Regulation `gorm:"serializer:json;type:text" json:"regulations,omitempty"`
	Policies    []models.Policy     `gorm:"serializer:json;type:text" json:"policies,omitempty"`
	Sources     []models.Source     `gorm:"serializer:json;type:text" json:"sources"`
	RawText     string              `json:"rawText,omitempty"`
	Message     string              `json:"message,omitempty"`
	Error       string              `json:"error,omitempty"`
	Model       string              `gorm:"size:128" json:"model,omitempty"`
	DurationMS  int64               `json:"durationMs"`
	CreatedAt   time.Time           `gorm:"index" json:"createdAt"`
}

// TableName implements gorm.Tabler.
func (SearchRecord) TableName() string {
	return "search_records"
}

// RecordFromResult flattens a result into a record.
func RecordFromResult(res *models.Result, providerErr string) *SearchRecord {
	return &SearchRecord{
		ID:                res.ID,
		Kind:              string(res.Query.Kind),
		Query:             res.Query.Text,
		Country:           res.Query.Country,
		Language:          res.Query.Language,
		RegulationFilters: res.Query.RegulationFilters,
		PolicyFilters:     res.Query.PolicyFilters,
		Outcome:           string(res.Outcome),
		ResultCount:       res.Count(),
		Regulations:       res.Regulations,
		Policies:          res.Policies,
		Sources:           res.Sources,
		RawText:           res.RawText,
		Message:           res.Message,
		Error:             providerErr,
		Model:             res.Model,
		DurationMS:        res.Duration.Milliseconds(),
		CreatedAt:         res.CreatedAt,
	}
}

// Result rebuilds the domain result.
func (r *SearchRecord) Result() *models.Result {
	return &models.Result{
		ID: r.ID,
		Query: models.Query{
			Kind:              models.Kind(r.Kind),
			Text:              r.Query,
			Country:           r.Country,
			Language:          r.Language,
			RegulationFilters: r.RegulationFilters,
			PolicyFilters:     r.PolicyFilters,
		},
		Outcome:     models.Outcome(r.Outcome),
		Regulations: r.Regulations,
		Policies:    r.Policies,
		Sources:     r.Sources,
		RawText:     r.RawText,
		Message:     r.Message,
		Model:       r.Model,
		Duration:    time.Duration(r.DurationMS) * time.Millisecond,
		CreatedAt:   r.CreatedAt,
	}
}

// HistoryFilter narrows List.
type HistoryFilter struct {
	Kind    string
	Country string
	Outcome string
	Query   string // substring, case-insensitive
	Page    int
	Limit   int
}

// HistoryStats summarizes stored searches.
type HistoryStats struct {
	Total            int64   `json:"total"`
	Success          int64   `json:"success"`
	Raw              int64   `json:"raw"`
	Empty            int64   `json:"empty"`
	Errors           int64   `json:"errors"`
	Law              int64   `json:"law"`
	Policy           int64   `json:"policy"`
	Today            int64   `json:"today"`
	MedianDurationMS float64 `json:"medianDurationMs"`
	P95DurationMS    float64 `json:"p95DurationMs"`
}

// durationSample caps how many recent searches feed the latency figures.
const durationSample = 500

// HistoryRepository stores SearchRecords with GORM.
type HistoryRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewHistoryRepository creates a repository. The schema comes from Models via database.New.
func NewHistoryRepository(db *gorm.DB, log *logger.Logger) *HistoryRepository {
	if log == nil {
		log = logger.Get()
	}
	return &HistoryRepository{db: db, log: log}
}

// Models lists the tables this package owns, for database.New.
func Models() []any {
	return []any{&SearchRecord{}}
}

// Save implements research.HistoryStore.
func (r *HistoryRepository) Save(ctx context.Context, res *models.Result, providerErr string) error {
	return r.Create(ctx, RecordFromResult(res, providerErr))
}

// Create inserts a record. Saving the same id twice is a no-op, so
// redelivered events do not duplicate history.
func (r *HistoryRepository) Create(ctx context.Context, rec *SearchRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if tx.Error != nil {
		return fmt.Errorf("create record: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		r.log.Debug().Str("id", rec.ID.String()).Msg("record already stored")
		return nil
	}

	r.log.Info().
		Str("id", rec.ID.String()).
		Str("kind", rec.Kind).
		Str("outcome", rec.Outcome).
		Msg("stored search")
	return nil
}

// GetByID returns one record or ErrNotFound.
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*SearchRecord, error) {
	var rec SearchRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

// List returns records newest first, plus the total matching count.
func (r *HistoryRepository) List(ctx context.Context, f HistoryFilter) ([]SearchRecord, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page < 1 {
		f.Page = 1
	}

	q := r.db.WithContext(ctx).Model(&SearchRecord{})
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Country != "" {
		q = q.Where("country = ?", f.Country)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where("LOWER(query) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	var recs []SearchRecord
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return recs, total, nil
}

// Stats aggregates counts and latency over stored searches.
func (r *HistoryRepository) Stats(ctx context.Context) (*HistoryStats, error) {
	s := &HistoryStats{}
	db := r.db.WithContext(ctx)

	type bucket struct {
		Name  string
		Total int64
	}

	var byOutcome []bucket
	if err := db.Model(&SearchRecord{}).Select("outcome AS name, COUNT(*) AS total").Group("outcome").Scan(&byOutcome).Error; err != nil {
		return nil, fmt.Errorf("count by outcome: %w", err)
	}
	for _, b := range byOutcome {
		s.Total += b.Total
		switch models.Outcome(b.Name) {
		case models.OutcomeSuccess:
			s.Success = b.Total
		case models.OutcomeRaw:
			s.Raw = b.Total
		case models.OutcomeEmpty:
			s.Empty = b.Total
		case models.OutcomeError:
			s.Errors = b.Total
		}
	}

	var byKind []bucket
	if err := db.Model(&SearchRecord{}).Select("kind AS name, COUNT(*) AS total").Group("kind").Scan(&byKind).Error; err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	for _, b := range byKind {
		switch models.Kind(b.Name) {
		case models.KindLaw:
			s.Law = b.Total
		case models.KindPolicy:
			s.Policy = b.Total
		}
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&SearchRecord{}).Where("created_at >= ?", midnight).Count(&s.Today).Error; err != nil {
		return nil, fmt.Errorf("count today: %w", err)
	}

	var durations []int64
	err := db.Model(&SearchRecord{}).
		Where("outcome <> ?", string(models.OutcomeError)).
		Order("created_at DESC").
		Limit(durationSample).
		Pluck("duration_ms", &durations).Error
	if err != nil {
		return nil, fmt.Errorf("load durations: %w", err)
	}
	if len(durations) > 0 {
		data := make(stats.Float64Data, len(durations))
		for i, d := range durations {
			data[i] = float64(d)
		}
		if s.MedianDurationMS, err = stats.Median(data); err != nil {
			return nil, fmt.Errorf("median duration: %w", err)
		}
		if s.P95DurationMS, err = stats.PercentileNearestRank(data, 95); err != nil {
			return nil, fmt.Errorf("p95 duration: %w", err)
		}
	}

	return s, nil
}
