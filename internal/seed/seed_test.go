package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/costeo3d/internal/db"
	"github.com/Simplici0/costeo3d/internal/migrations"
	"github.com/Simplici0/costeo3d/internal/settings"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := Config{
		AdminEmail:    "admin@costeo3d.co",
		AdminPassword: "12345",
	}

	for i := 0; i < 5; i++ {
		stats, err := Run(ctx, database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 4 {
				t.Fatalf("expected 4 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM users WHERE email = ?`, "admin@costeo3d.co", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM shop_settings WHERE id = 1`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM machines WHERE id = ?`, defaultMachineID, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM consumables WHERE name = ?`, "Empaque estándar", 1)

	var hash string
	if err := database.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, "admin@costeo3d.co").Scan(&hash); err != nil {
		t.Fatalf("query admin hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("12345")); err != nil {
		t.Fatalf("expected admin hash to match password: %v", err)
	}

	loaded, err := settings.NewStore(database).Load(ctx)
	if err != nil {
		t.Fatalf("load seeded settings: %v", err)
	}
	if len(loaded.Machines) != 1 || loaded.Machines[0].ID != defaultMachineID {
		t.Fatalf("unexpected seeded catalog: %+v", loaded.Machines)
	}
}

func TestRunSkipsAdminWithoutCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-noadmin.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()
	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	stats, err := Run(ctx, database, Config{})
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if stats.Inserts != 3 {
		t.Fatalf("expected 3 inserts without admin, got %d", stats.Inserts)
	}
	assertCount(t, database, `SELECT COUNT(*) FROM users`, nil, 0)
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
