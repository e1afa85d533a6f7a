package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "embed"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver

	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/model"
)

//go:embed schema.sql
var schemaScript string

// Fixed width so started_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by Get for an unknown run ID
var ErrRunNotFound = errors.New("audit run not found")

// SQLiteStore writes runs to a sqlite database
type SQLiteStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type runRow struct {
	ID                 string          `db:"id"`
	StartedAt          string          `db:"started_at"`
	FinishedAt         string          `db:"finished_at"`
	Name               string          `db:"name"`
	Address            string          `db:"address"`
	SubjectJSON        string          `db:"subject_json"`
	ReconciliationJSON string          `db:"reconciliation_json"`
	MarketJSON         string          `db:"market_json"`
	VerdictJSON        sql.NullString  `db:"verdict_json"`
	ScamLikelihood     sql.NullFloat64 `db:"scam_likelihood"`
	Error              string          `db:"error"`
}

type claimRow struct {
	RunID     string `db:"run_id"`
	Seq       int    `db:"seq"`
	Link      string `db:"link"`
	Title     string `db:"title"`
	Dimension string `db:"dimension"`
	Polarity  string `db:"polarity"`
	Note      string `db:"note"`
}

// Open connects to the database at dsn and initializes the schema.
// The dsn ":memory:" opens a private in-memory database.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*SQLiteStore, error) {
	url := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", dsn)
	if dsn == ":memory:" {
		url = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", NewRunID())
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", url)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, schemaScript); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize audit schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.OrNop(log)}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record writes the run and its claims in one transaction
func (s *SQLiteStore) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}

	row, err := toRow(run)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRun = `INSERT INTO runs
		(id, started_at, finished_at, name, address, subject_json, reconciliation_json, market_json, verdict_json, scam_likelihood, error)
		VALUES (:id, :started_at, :finished_at, :name, :address, :subject_json, :reconciliation_json, :market_json, :verdict_json, :scam_likelihood, :error)`
	if _, err := tx.NamedExecContext(ctx, insertRun, row); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Claims) > 0 {
		claims := make([]claimRow, len(run.Claims))
		for i, c := range run.Claims {
			claims[i] = claimRow{
				RunID:     run.ID,
				Seq:       i,
				Link:      c.Source.Link,
				Title:     c.Source.Title,
				Dimension: string(c.Dimension),
				Polarity:  string(c.Polarity),
				Note:      c.Note,
			}
		}
		const insertClaims = `INSERT INTO claims (run_id, seq, link, title, dimension, polarity, note)
			VALUES (:run_id, :seq, :link, :title, :dimension, :polarity, :note)`
		if _, err := tx.NamedExecContext(ctx, insertClaims, claims); err != nil {
			return fmt.Errorf("insert claims: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit transaction: %w", err)
	}

	s.logger.Debug("audit run recorded", zap.String("run_id", run.ID), zap.Int("claims", len(run.Claims)))
	return nil
}

// Get reads one run back
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	var row runRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}

	var claims []claimRow
	if err := s.db.SelectContext(ctx, &claims, `SELECT * FROM claims WHERE run_id = ? ORDER BY seq`, id); err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return fromRows(row, claims)
}

// Recent lists the IDs of the latest runs, newest first
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return ids, nil
}

func toRow(run Run) (runRow, error) {
	subject, err := json.Marshal(run.Subject)
	if err != nil {
		return runRow{}, fmt.Errorf("encode subject: %w", err)
	}
	rec, err := json.Marshal(run.Reconciliation)
	if err != nil {
		return runRow{}, fmt.Errorf("encode reconciliation: %w", err)
	}
	market, err := json.Marshal(run.Market)
	if err != nil {
		return runRow{}, fmt.Errorf("encode market: %w", err)
	}

	row := runRow{
		ID:                 run.ID,
		StartedAt:          run.StartedAt.UTC().Format(timeLayout),
		FinishedAt:         run.FinishedAt.UTC().Format(timeLayout),
		Name:               run.Subject.Name,
		Address:            run.Subject.Address,
		SubjectJSON:        string(subject),
		ReconciliationJSON: string(rec),
		MarketJSON:         string(market),
		Error:              run.Err,
	}
	if run.Verdict != nil {
		verdict, err := json.Marshal(run.Verdict)
		if err != nil {
			return runRow{}, fmt.Errorf("encode verdict: %w", err)
		}
		row.VerdictJSON = sql.NullString{String: string(verdict), Valid: true}
		row.ScamLikelihood = sql.NullFloat64{Float64: run.Verdict.ScamLikelihood, Valid: true}
	}
	return row, nil
}

func fromRows(row runRow, claims []claimRow) (*Run, error) {
	run := &Run{ID: row.ID, Err: row.Error}

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, row.StartedAt); err != nil {
		return nil, fmt.Errorf("decode started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, row.FinishedAt); err != nil {
		return nil, fmt.Errorf("decode finished_at: %w", err)
	}
	if err := json.Unmarshal([]byte(row.SubjectJSON), &run.Subject); err != nil {
		return nil, fmt.Errorf("decode subject: %w", err)
	}
	if err := json.Unmarshal([]byte(row.ReconciliationJSON), &run.Reconciliation); err != nil {
		return nil, fmt.Errorf("decode reconciliation: %w", err)
	}
	if err := json.Unmarshal([]byte(row.MarketJSON), &run.Market); err != nil {
		return nil, fmt.Errorf("decode market: %w", err)
	}
	if row.VerdictJSON.Valid {
		run.Verdict = &model.Verdict{}
		if err := json.Unmarshal([]byte(row.VerdictJSON.String), run.Verdict); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}
	}

	for _, c := range claims {
		run.Claims = append(run.Claims, model.Claim{
			Dimension: model.Dimension(c.Dimension),
			Polarity:  model.Polarity(c.Polarity),
			Source:    model.SearchHit{Title: c.Title, Link: c.Link},
			Note:      c.Note,
		})
	}
	return run, nil
}
