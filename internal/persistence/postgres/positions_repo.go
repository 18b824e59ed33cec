package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/oddslab/edgegate/internal/persistence"
)

// Schema for the positions table. Applied by EnsureSchema; safe to re-run.
const positionsSchema = `
CREATE TABLE IF NOT EXISTS positions (
	position_id    TEXT PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL,
	market         TEXT NOT NULL,
	side           TEXT NOT NULL,
	thesis         TEXT NOT NULL DEFAULT '',
	edge_pct       DOUBLE PRECISION NOT NULL,
	signal_score   INTEGER NOT NULL,
	risk_pct       DOUBLE PRECISION NOT NULL,
	risk_usd       DOUBLE PRECISION NOT NULL,
	rr_min         DOUBLE PRECISION NOT NULL,
	odds_at_signal DOUBLE PRECISION,
	current_odds   DOUBLE PRECISION,
	slippage_pct   DOUBLE PRECISION,
	artifact_dir   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_positions_created_at ON positions (created_at DESC);
`

// positionsRepo implements persistence.PositionRepo for PostgreSQL.
type positionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPositionsRepo creates a PostgreSQL position repository.
func NewPositionsRepo(db *sqlx.DB, timeout time.Duration) persistence.PositionRepo {
	return &positionsRepo{db: db, timeout: timeout}
}

// Connect opens a Postgres pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the positions table if it does not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, positionsSchema); err != nil {
		return fmt.Errorf("failed to apply positions schema: %w", err)
	}
	return nil
}

func (r *positionsRepo) Insert(ctx context.Context, rec persistence.PositionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO positions
		(position_id, created_at, market, side, thesis, edge_pct, signal_score,
		 risk_pct, risk_usd, rr_min, odds_at_signal, current_odds, slippage_pct, artifact_dir)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (position_id) DO UPDATE SET
			created_at   = EXCLUDED.created_at,
			market       = EXCLUDED.market,
			side         = EXCLUDED.side,
			thesis       = EXCLUDED.thesis,
			edge_pct     = EXCLUDED.edge_pct,
			signal_score = EXCLUDED.signal_score,
			risk_pct     = EXCLUDED.risk_pct,
			risk_usd     = EXCLUDED.risk_usd,
			rr_min       = EXCLUDED.rr_min,
			odds_at_signal = EXCLUDED.odds_at_signal,
			current_odds = EXCLUDED.current_odds,
			slippage_pct = EXCLUDED.slippage_pct,
			artifact_dir = EXCLUDED.artifact_dir`

	_, err := r.db.ExecContext(ctx, query,
		rec.PositionID, rec.CreatedAt, rec.Market, rec.Side, rec.Thesis,
		rec.EdgePct, rec.SignalScore, rec.RiskPct, rec.RiskUsd, rec.RRMin,
		rec.OddsAtSignal, rec.CurrentOdds, rec.SlippagePct, rec.ArtifactDir)
	if err != nil {
		return fmt.Errorf("failed to insert position %s: %w", rec.PositionID, err)
	}
	return nil
}

func (r *positionsRepo) GetByID(ctx context.Context, positionID string) (*persistence.PositionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rec persistence.PositionRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM positions WHERE position_id = $1`, positionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", positionID, err)
	}
	return &rec, nil
}

func (r *positionsRepo) List(ctx context.Context, limit int) ([]persistence.PositionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	var recs []persistence.PositionRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT * FROM positions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return recs, nil
}
