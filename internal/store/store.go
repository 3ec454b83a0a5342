// Package store persists simulation runs in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
)

var ErrRunNotFound = errors.New("store: run not found")

// Run is the header of a stored simulation run.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartYear int       `json:"start_year"`
	EndYear   int       `json:"end_year"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and migrates it.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			name       TEXT    NOT NULL,
			start_year INTEGER NOT NULL,
			end_year   INTEGER NOT NULL,
			created_at TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ledger (
			run_id           TEXT    NOT NULL,
			year             INTEGER NOT NULL,
			asset_id         TEXT    NOT NULL,
			name             TEXT    NOT NULL,
			location         TEXT    NOT NULL,
			technology       TEXT    NOT NULL,
			product          TEXT    NOT NULL,
			status           TEXT    NOT NULL,
			capacity         REAL    NOT NULL,
			production       REAL    NOT NULL,
			unit_total_cost  REAL    NOT NULL,
			price            REAL    NOT NULL,
			balance          REAL    NOT NULL,
			historic_balance REAL    NOT NULL,
			emissions        REAL    NOT NULL,
			command          TEXT    NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS prices (
			run_id         TEXT    NOT NULL,
			year           INTEGER NOT NULL,
			product        TEXT    NOT NULL,
			demand         REAL    NOT NULL,
			supply         REAL    NOT NULL,
			price          REAL    NOT NULL,
			forecast_price REAL    NOT NULL,
			scarce         INTEGER NOT NULL,
			PRIMARY KEY (run_id, year, product),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS commands (
			id             TEXT PRIMARY KEY,
			run_id         TEXT    NOT NULL,
			year           INTEGER NOT NULL,
			kind           TEXT    NOT NULL,
			asset_id       TEXT    NOT NULL,
			technology     TEXT    NOT NULL,
			from_status    TEXT    NOT NULL,
			to_status      TEXT    NOT NULL,
			npv            REAL    NOT NULL,
			cost           REAL    NOT NULL,
			reason         TEXT    NOT NULL,
			effective_year INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_ledger_run ON ledger(run_id, year);
		CREATE INDEX IF NOT EXISTS idx_commands_run ON commands(run_id, year);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun writes a run's ledger, prices and commands in one transaction.
func (s *Store) SaveRun(ctx context.Context, id uuid.UUID, name string, res *simulation.Result) error {
	if res == nil {
		return errors.New("store: result is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, start_year, end_year, created_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), name, res.StartYear, res.EndYear, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	ledger, err := tx.PrepareContext(ctx, `INSERT INTO ledger
		(run_id, year, asset_id, name, location, technology, product, status, capacity, production,
		 unit_total_cost, price, balance, historic_balance, emissions, command)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare ledger: %w", err)
	}
	defer ledger.Close()
	for _, r := range res.Ledger {
		if _, err := ledger.ExecContext(ctx, id.String(), r.Year, r.AssetID.String(), r.Name, r.Location,
			string(r.Technology), string(r.Product), string(r.Status), r.Capacity, r.Production,
			r.UnitTotalCost, r.Price, r.Balance, r.HistoricBalance, r.Emissions, string(r.Command),
		); err != nil {
			return fmt.Errorf("store: insert ledger row: %w", err)
		}
	}

	prices, err := tx.PrepareContext(ctx, `INSERT INTO prices
		(run_id, year, product, demand, supply, price, forecast_price, scarce)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare prices: %w", err)
	}
	defer prices.Close()
	for _, p := range res.Prices {
		if _, err := prices.ExecContext(ctx, id.String(), p.Year, string(p.Product), p.Demand, p.Supply,
			p.Price, p.ForecastPrice, p.Scarce,
		); err != nil {
			return fmt.Errorf("store: insert price: %w", err)
		}
	}

	cmds, err := tx.PrepareContext(ctx, `INSERT INTO commands
		(id, run_id, year, kind, asset_id, technology, from_status, to_status, npv, cost, reason, effective_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare commands: %w", err)
	}
	defer cmds.Close()
	for _, c := range res.Commands {
		if _, err := cmds.ExecContext(ctx, c.ID.String(), id.String(), c.Year, string(c.Kind), c.AssetID.String(),
			string(c.Technology), string(c.FromStatus), string(c.ToStatus), c.NPV, c.Cost, c.Reason, c.EffectiveYear,
		); err != nil {
			return fmt.Errorf("store: insert command: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// GetRun returns the header of a stored run.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var (
		r       Run
		rawID   string
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, start_year, end_year, created_at FROM runs WHERE id = ?`, id.String(),
	).Scan(&rawID, &r.Name, &r.StartYear, &r.EndYear, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: get run: %w", err)
	}
	if r.ID, err = uuid.Parse(rawID); err != nil {
		return Run{}, fmt.Errorf("store: run id: %w", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return Run{}, fmt.Errorf("store: run created_at: %w", err)
	}
	return r, nil
}

// LoadPrices returns a run's price points ordered by year and product.
func (s *Store) LoadPrices(ctx context.Context, id uuid.UUID) ([]market.PricePoint, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT year, product, demand, supply, price, forecast_price, scarce
		FROM prices WHERE run_id = ? ORDER BY year, product`, id.String())
	if err != nil {
		return nil, fmt.Errorf("store: load prices: %w", err)
	}
	defer rows.Close()

	var out []market.PricePoint
	for rows.Next() {
		var (
			p       market.PricePoint
			product string
		)
		if err := rows.Scan(&p.Year, &product, &p.Demand, &p.Supply, &p.Price, &p.ForecastPrice, &p.Scarce); err != nil {
			return nil, fmt.Errorf("store: scan price: %w", err)
		}
		p.Product = model.Product(product)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadCommands returns a run's commands of the given kinds (all kinds if
// none are given), ordered by year.
func (s *Store) LoadCommands(ctx context.Context, id uuid.UUID, kinds ...model.CommandKind) ([]model.Command, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, year, kind, asset_id, technology, from_status, to_status,
		npv, cost, reason, effective_year FROM commands WHERE run_id = ? ORDER BY year, rowid`, id.String())
	if err != nil {
		return nil, fmt.Errorf("store: load commands: %w", err)
	}
	defer rows.Close()

	want := map[model.CommandKind]bool{}
	for _, k := range kinds {
		want[k] = true
	}
	var out []model.Command
	for rows.Next() {
		var (
			c                    model.Command
			cid, aid             string
			kind, tech, from, to string
		)
		if err := rows.Scan(&cid, &c.Year, &kind, &aid, &tech, &from, &to, &c.NPV, &c.Cost, &c.Reason, &c.EffectiveYear); err != nil {
			return nil, fmt.Errorf("store: scan command: %w", err)
		}
		c.Kind = model.CommandKind(kind)
		if len(want) > 0 && !want[c.Kind] {
			continue
		}
		if c.ID, err = uuid.Parse(cid); err != nil {
			return nil, fmt.Errorf("store: command id: %w", err)
		}
		if c.AssetID, err = uuid.Parse(aid); err != nil {
			return nil, fmt.Errorf("store: command asset id: %w", err)
		}
		c.Technology = model.Technology(tech)
		c.FromStatus = model.Status(from)
		c.ToStatus = model.Status(to)
		out = append(out, c)
	}
	return out, rows.Err()
}

// LedgerRows counts the ledger rows stored for a run.
func (s *Store) LedgerRows(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger WHERE run_id = ?`, id.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count ledger: %w", err)
	}
	return n, nil
}
