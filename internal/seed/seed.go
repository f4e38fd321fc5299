package seed

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/costeo3d/internal/costing"
)

const (
	defaultMachineID      = "fdm-generica"
	defaultMachineName    = "Impresora FDM (Genérica)"
	defaultConsumableName = "Empaque estándar"
	defaultCurrency       = "COP"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	steps := []func(context.Context, *sql.Tx, *Stats) error{
		func(ctx context.Context, tx *sql.Tx, stats *Stats) error {
			return seedAdmin(ctx, tx, cfg.AdminEmail, cfg.AdminPassword, stats)
		},
		ensureShopSettings,
		ensureMachine,
		ensureConsumable,
	}

	for _, step := range steps {
		if err := step(ctx, tx, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// HashPassword returns the bcrypt hash stored for user passwords.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("generate bcrypt hash: %w", err)
	}
	return string(hash), nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hash); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureShopSettings(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO shop_settings (id, currency)
		VALUES (1, ?)
		ON CONFLICT(id) DO NOTHING
	`, defaultCurrency)
	if err != nil {
		return fmt.Errorf("insert shop settings singleton: %w", err)
	}
	return countInsert(result, stats)
}

func ensureMachine(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM machines LIMIT 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check machine catalog: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO machines (id, name, type, hourly_rate, active)
		VALUES (?, ?, ?, ?, ?)
	`, defaultMachineID, defaultMachineName, string(costing.MachineFDM), 0, true); err != nil {
		return fmt.Errorf("insert default machine: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureConsumable(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM consumables WHERE name = ? LIMIT 1)`, defaultConsumableName).Scan(&exists); err != nil {
		return fmt.Errorf("check default consumable existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO consumables (name, flat_cost, notes, active)
		VALUES (?, ?, ?, ?)
	`, defaultConsumableName, 0, "", true); err != nil {
		return fmt.Errorf("insert default consumable: %w", err)
	}
	stats.Inserts++
	return nil
}

func countInsert(result sql.Result, stats *Stats) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	stats.Inserts += int(affected)
	return nil
}
