package placement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/models"
)

// PostgresRepository persists placed locations.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a location repository backed by Postgres.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateLocation(ctx context.Context, loc *models.PlacedLocation) error {
	labels, err := marshalLabels(loc.Labels)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO placed_locations
		 (id, owner_id, game_id, lat, lng, name, location_type, placed_at_ms, labels, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		loc.ID, loc.OwnerID, loc.GameID, loc.Lat, loc.Lng, loc.Name,
		string(loc.LocationType), loc.PlacedAtMs, labels, loc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListLocations(ctx context.Context, gameID uuid.UUID) ([]models.PlacedLocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, game_id, lat, lng, name, location_type, placed_at_ms, labels, created_at
		 FROM placed_locations WHERE game_id = $1 ORDER BY created_at`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []models.PlacedLocation
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

func (r *PostgresRepository) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM placed_locations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateLocationLabels(ctx context.Context, id uuid.UUID, labels models.GeoLabels) error {
	data, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE placed_locations SET labels = $2 WHERE id = $1`, id, data); err != nil {
		return fmt.Errorf("failed to update location labels: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListUnlabeledLocations(ctx context.Context, limit int) ([]models.PlacedLocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, game_id, lat, lng, name, location_type, placed_at_ms, labels, created_at
		 FROM placed_locations WHERE labels IS NULL ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlabeled locations: %w", err)
	}
	defer rows.Close()

	var locations []models.PlacedLocation
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list unlabeled locations: %w", err)
	}
	return locations, nil
}

func scanLocation(rows *sql.Rows) (*models.PlacedLocation, error) {
	var loc models.PlacedLocation
	var locationType string
	var labels []byte

	if err := rows.Scan(&loc.ID, &loc.OwnerID, &loc.GameID, &loc.Lat, &loc.Lng, &loc.Name,
		&locationType, &loc.PlacedAtMs, &labels, &loc.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan location: %w", err)
	}
	loc.LocationType = models.LocationType(locationType)

	if len(labels) > 0 {
		var parsed models.GeoLabels
		if err := json.Unmarshal(labels, &parsed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
		loc.Labels = &parsed
	}
	return &loc, nil
}

func marshalLabels(labels *models.GeoLabels) ([]byte, error) {
	if labels == nil {
		return nil, nil
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal labels: %w", err)
	}
	return data, nil
}
