package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/repository"
)

// ResearchService runs searches and translations.
type ResearchService interface {
	Catalog() *catalog.Catalog
	Search(ctx context.Context, q models.Query) (*models.Result, error)
	Translate(ctx context.Context, text, language string) (string, error)
	TranslateRegulation(ctx context.Context, reg models.Regulation, language string) (*models.RegulationTranslation, error)
	TranslatePolicy(ctx context.Context, pol models.Policy, language string) (*models.PolicyTranslation, error)
}

// HistoryRepository reads stored searches.
type HistoryRepository interface {
	List(ctx context.Context, f repository.HistoryFilter) ([]repository.SearchRecord, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.SearchRecord, error)
	Stats(ctx context.Context) (*repository.HistoryStats, error)
}

// ReportRenderer produces the printable report of a search.
type ReportRenderer interface {
	RenderPDF(ctx context.Context, res *models.Result) ([]byte, error)
}

// Pinger checks that the history database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
