package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

type predictionRepository struct {
	db *DB
}

func NewPredictionRepository(db *DB) *predictionRepository {
	return &predictionRepository{db: db}
}

func (r *predictionRepository) ListBySKU(ctx context.Context, tenantID, skuNumber int64) ([]domain.Prediction, error) {
	query := `
		SELECT id, tenant_id, sku_number, model_name, week_number, year_of_the_week,
		       predicted_value, mae, mape, updated_at
		FROM sku_order_quantity_prediction
		WHERE tenant_id = $1 AND sku_number = $2
		ORDER BY year_of_the_week, week_number, id
	`

	var predictions []domain.Prediction
	if err := sqlx.SelectContext(ctx, r.db, &predictions, query, tenantID, skuNumber); err != nil {
		return nil, fmt.Errorf("error listing predictions: %w", err)
	}

	return predictions, nil
}

func (r *predictionRepository) Create(ctx context.Context, p *domain.Prediction) error {
	query := `
		INSERT INTO sku_order_quantity_prediction
			(tenant_id, sku_number, model_name, week_number, year_of_the_week, predicted_value, mae, mape, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		p.TenantID, p.SKUNumber, p.ModelName, p.WeekNumber, p.YearOfWeek, p.PredictedValue, p.MAE, p.MAPE,
	).Scan(&p.ID, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating prediction: %w", err)
	}

	return nil
}
