package costcenter

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CostCenterRepository defines the interface for cost center registry reads
type CostCenterRepository interface {
	List(ctx context.Context) ([]models.CostCenter, error)
}

// Repository implements CostCenterRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new cost center repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "cost_centers"

// List returns the full registry, ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.CostCenter, error) {
	ctx, span := tracing.StartSpan(ctx, "CostCenterRepository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "name", "code")
	sb.From(tableName)
	sb.OrderBy("name")

	query, args := sb.Build()

	var costCenters []models.CostCenter
	err := r.db.SelectContext(ctx, &costCenters, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list cost centers")
		return nil, fmt.Errorf("failed to list cost centers: %w", err)
	}

	return costCenters, nil
}
