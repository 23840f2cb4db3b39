package counterparty

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CounterpartyRepository defines the interface for counterparty registry reads
type CounterpartyRepository interface {
	List(ctx context.Context) ([]models.Counterparty, error)
}

// Repository implements CounterpartyRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new counterparty repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "counterparties"

// List returns the full registry, ordered by display name so resolver
// snapshots are identical between runs.
func (r *Repository) List(ctx context.Context) ([]models.Counterparty, error) {
	ctx, span := tracing.StartSpan(ctx, "CounterpartyRepository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "display_name")
	sb.From(tableName)
	sb.OrderBy("display_name")

	query, args := sb.Build()

	var counterparties []models.Counterparty
	err := r.db.SelectContext(ctx, &counterparties, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list counterparties")
		return nil, fmt.Errorf("failed to list counterparties: %w", err)
	}

	return counterparties, nil
}
