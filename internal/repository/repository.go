package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

const maxLimit = 1000

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) InsertSample(ctx context.Context, s *domain.OverviewSample) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO overview_samples
		(seq, recorded_at, source, active_intersections, total_vehicles, emergency_vehicles, system_health_pct)
		VALUES (:seq, :recorded_at, :source, :active_intersections, :total_vehicles, :emergency_vehicles, :system_health_pct)`, s)
	return err
}

func (r *Repos) InsertModeChange(ctx context.Context, m *domain.ModeChange) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO mode_changes (seq, changed_at, mode) VALUES (:seq, :changed_at, :mode)`, m)
	return err
}

// ListSamples returns samples recorded after since, newest first.
func (r *Repos) ListSamples(ctx context.Context, since time.Time, limit int) ([]domain.OverviewSample, error) {
	var out []domain.OverviewSample
	err := r.db.SelectContext(ctx, &out, `SELECT id, seq, recorded_at, source, active_intersections,
		total_vehicles, emergency_vehicles, system_health_pct
		FROM overview_samples WHERE recorded_at > $1 ORDER BY recorded_at DESC LIMIT $2`, since, clamp(limit))
	return out, err
}

func (r *Repos) ListModeChanges(ctx context.Context, limit int) ([]domain.ModeChange, error) {
	var out []domain.ModeChange
	err := r.db.SelectContext(ctx, &out, `SELECT id, seq, changed_at, mode FROM mode_changes ORDER BY changed_at DESC LIMIT $1`, clamp(limit))
	return out, err
}

func clamp(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return maxLimit
	}
	return limit
}
