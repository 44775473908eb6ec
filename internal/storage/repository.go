// Package storage persists the data model to SQLite. The model is small and
// always written as a whole: SaveModel replaces every table inside one
// transaction, so the database is a consistent snapshot of the last
// successful mutation.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"budgetboard/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath and brings
// the schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// runMigrations brings the schema up to date from the embedded migration
// files. It opens its own connection so the repository's pool is not
// disturbed.
func runMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveModel writes the full model in one transaction, replacing the previous
// snapshot. Implements state.Persister.
func (r *SQLiteRepository) SaveModel(ctx context.Context, m *core.DataModel) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"expenses", "debts", "savings_deposits", "wealth_history", "goals", "profiles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, p := range m.Profiles {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (id, name, monthly_income_cents, balance_cents, position) VALUES (?, ?, ?, ?, ?)`,
			string(p.ID), p.Name, p.MonthlyIncome.Cents, p.Balance.Cents, i)
		if err != nil {
			return fmt.Errorf("insert profile %s: %w", p.ID, err)
		}
	}
	for _, e := range m.Expenses {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (id, category, amount_cents, profile_id, fixed, active) VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.Category, e.Amount.Cents, string(e.Profile), e.Fixed, e.Active)
		if err != nil {
			return fmt.Errorf("insert expense %d: %w", e.ID, err)
		}
	}
	for _, d := range m.Debts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO debts (id, name, profile_id, interest_rate) VALUES (?, ?, ?, ?)`,
			d.ID, d.Name, string(d.Profile), d.InterestRate)
		if err != nil {
			return fmt.Errorf("insert debt %d: %w", d.ID, err)
		}
	}
	for _, d := range m.Deposits {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO savings_deposits (id, amount_cents, year) VALUES (?, ?, ?)`,
			d.ID, d.Amount.Cents, d.Year)
		if err != nil {
			return fmt.Errorf("insert deposit %d: %w", d.ID, err)
		}
	}
	for i, s := range m.WealthHistory {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO wealth_history (profile_id, month, balance_cents, position) VALUES (?, ?, ?, ?)`,
			string(s.Profile), s.Month, s.Balance.Cents, i)
		if err != nil {
			return fmt.Errorf("insert wealth sample %s/%s: %w", s.Profile, s.Month, err)
		}
	}
	for _, g := range m.Goals {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO goals (id, name, target_cents, current_cents, description, icon, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.Name, g.Target.Cents, g.Current.Cents, g.Description, g.Icon, g.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert goal %s: %w", g.ID, err)
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO settings (id, dark_mode, current_profile) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET dark_mode = excluded.dark_mode, current_profile = excluded.current_profile`,
		m.Settings.DarkMode, string(m.CurrentProfile))
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Model saved",
		"profiles", len(m.Profiles),
		"expenses", len(m.Expenses),
		"goals", len(m.Goals))
	return nil
}

// LoadModel reads the stored snapshot. A fresh database with no settings row
// yields a newly seeded model.
func (r *SQLiteRepository) LoadModel(ctx context.Context) (*core.DataModel, error) {
	m := &core.DataModel{}

	var darkMode bool
	var current string
	err := r.db.QueryRowContext(ctx, `SELECT dark_mode, current_profile FROM settings WHERE id = 1`).
		Scan(&darkMode, &current)
	switch {
	case err == sql.ErrNoRows:
		slog.InfoContext(ctx, "No stored model found, starting fresh")
		return core.NewModel(), nil
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	}
	m.Settings.DarkMode = darkMode
	m.CurrentProfile = core.ProfileID(current)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, monthly_income_cents, balance_cents FROM profiles ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p core.Profile
		var id string
		if err := rows.Scan(&id, &p.Name, &p.MonthlyIncome.Cents, &p.Balance.Cents); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.ID = core.ProfileID(id)
		m.Profiles = append(m.Profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	if err := r.loadExpenses(ctx, m); err != nil {
		return nil, err
	}
	if err := r.loadDebts(ctx, m); err != nil {
		return nil, err
	}
	if err := r.loadDeposits(ctx, m); err != nil {
		return nil, err
	}
	if err := r.loadWealthHistory(ctx, m); err != nil {
		return nil, err
	}
	if err := r.loadGoals(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *SQLiteRepository) loadExpenses(ctx context.Context, m *core.DataModel) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount_cents, profile_id, fixed, active FROM expenses ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e core.Expense
		var profile string
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount.Cents, &profile, &e.Fixed, &e.Active); err != nil {
			return fmt.Errorf("scan expense: %w", err)
		}
		e.Profile = core.ProfileID(profile)
		m.Expenses = append(m.Expenses, e)
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadDebts(ctx context.Context, m *core.DataModel) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, profile_id, interest_rate FROM debts ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load debts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d core.Debt
		var profile string
		if err := rows.Scan(&d.ID, &d.Name, &profile, &d.InterestRate); err != nil {
			return fmt.Errorf("scan debt: %w", err)
		}
		d.Profile = core.ProfileID(profile)
		m.Debts = append(m.Debts, d)
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadDeposits(ctx context.Context, m *core.DataModel) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, year FROM savings_deposits ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load deposits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d core.SavingsDeposit
		if err := rows.Scan(&d.ID, &d.Amount.Cents, &d.Year); err != nil {
			return fmt.Errorf("scan deposit: %w", err)
		}
		m.Deposits = append(m.Deposits, d)
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadWealthHistory(ctx context.Context, m *core.DataModel) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT profile_id, month, balance_cents FROM wealth_history ORDER BY position`)
	if err != nil {
		return fmt.Errorf("load wealth history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s core.WealthSample
		var profile string
		if err := rows.Scan(&profile, &s.Month, &s.Balance.Cents); err != nil {
			return fmt.Errorf("scan wealth sample: %w", err)
		}
		s.Profile = core.ProfileID(profile)
		m.WealthHistory = append(m.WealthHistory, s)
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadGoals(ctx context.Context, m *core.DataModel) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_cents, current_cents, description, icon, created_at FROM goals ORDER BY created_at, id`)
	if err != nil {
		return fmt.Errorf("load goals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g core.Goal
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Current.Cents, &g.Description, &g.Icon, &createdAt); err != nil {
			return fmt.Errorf("scan goal: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			g.CreatedAt = t
		}
		m.Goals = append(m.Goals, g)
	}
	return rows.Err()
}
