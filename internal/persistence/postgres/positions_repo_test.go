package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddslab/edgegate/internal/persistence"
)

func newMockRepo(t *testing.T) (persistence.PositionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPositionsRepo(sqlxDB, 2*time.Second), mock
}

func sampleRecord() persistence.PositionRecord {
	drift := 0.5
	sig := 2.0
	cur := 2.01
	return persistence.PositionRecord{
		PositionID:   "pos-abc",
		CreatedAt:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Market:       "Will X win?",
		Side:         "YES",
		Thesis:       "stable lead",
		EdgePct:      10,
		SignalScore:  66,
		RiskPct:      0.22,
		RiskUsd:      22,
		RRMin:        1.4,
		OddsAtSignal: &sig,
		CurrentOdds:  &cur,
		SlippagePct:  &drift,
		ArtifactDir:  "data/positions/2026/pos-abc",
	}
}

func TestPositionsRepo_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()

	mock.ExpectExec(`INSERT INTO positions`).
		WithArgs(rec.PositionID, rec.CreatedAt, rec.Market, rec.Side, rec.Thesis,
			rec.EdgePct, rec.SignalScore, rec.RiskPct, rec.RiskUsd, rec.RRMin,
			rec.OddsAtSignal, rec.CurrentOdds, rec.SlippagePct, rec.ArtifactDir).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), rec)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionsRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM positions WHERE position_id`).
		WithArgs("pos-missing").
		WillReturnRows(sqlmock.NewRows([]string{"position_id"}))

	got, err := repo.GetByID(context.Background(), "pos-missing")
	require.NoError(t, err)
	assert.Nil(t, got, "missing position is nil, not an error")
}

func TestPositionsRepo_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()

	rows := sqlmock.NewRows([]string{
		"position_id", "created_at", "market", "side", "thesis", "edge_pct",
		"signal_score", "risk_pct", "risk_usd", "rr_min", "odds_at_signal",
		"current_odds", "slippage_pct", "artifact_dir",
	}).AddRow(rec.PositionID, rec.CreatedAt, rec.Market, rec.Side, rec.Thesis,
		rec.EdgePct, rec.SignalScore, rec.RiskPct, rec.RiskUsd, rec.RRMin,
		*rec.OddsAtSignal, *rec.CurrentOdds, *rec.SlippagePct, rec.ArtifactDir)

	mock.ExpectQuery(`SELECT \* FROM positions WHERE position_id`).
		WithArgs("pos-abc").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "pos-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestPositionsRepo_List_DefaultLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM positions ORDER BY created_at DESC LIMIT`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"position_id"}))

	_, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
