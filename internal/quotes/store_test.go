package quotes

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/costeo3d/internal/costing"
	"github.com/Simplici0/costeo3d/internal/db"
	"github.com/Simplici0/costeo3d/internal/migrations"
)

func newQuotesTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.Up(database))
	return database
}

func seedQuote(t *testing.T, database *sql.DB, createdAt, title, notes, totalsJSON string) {
	t.Helper()

	_, err := database.Exec(`
		INSERT INTO quotes (public_id, created_at, title, notes, margin_percent, input_json, breakdown_json, totals_json)
		VALUES (?, ?, ?, ?, 40, '{}', '{}', ?)
	`, uuid.NewString(), createdAt, title, notes, totalsJSON)
	require.NoError(t, err)
}

func TestListOrdersByDateDescAndReadsTotal(t *testing.T) {
	database := newQuotesTestDB(t)
	store := NewStore(database)

	seedQuote(t, database, "2024-01-01 10:00:00", "Primera", "nota uno", `{"total": 100.50}`)
	seedQuote(t, database, "2024-01-03 12:00:00", "Tercera", "nota tres", `{"total": 300.00}`)
	seedQuote(t, database, "2024-01-02 11:00:00", "Segunda", "nota dos", `{"grand_total": 200.25}`)

	items, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, []string{"Tercera", "Segunda", "Primera"}, []string{items[0].Title, items[1].Title, items[2].Title})
	assert.Equal(t, []float64{300.00, 200.25, 100.50}, []float64{items[0].Total, items[1].Total, items[2].Total})
}

func TestListFiltersByTitleAndNotes(t *testing.T) {
	database := newQuotesTestDB(t)
	store := NewStore(database)

	seedQuote(t, database, "2024-01-01 10:00:00", "Casa", "impresión roja", `{"total": 80}`)
	seedQuote(t, database, "2024-01-02 10:00:00", "Llaveros", "cliente vip", `{"total": 120}`)
	seedQuote(t, database, "2024-01-03 10:00:00", "Prototipo", "urgente para casa", `{"total": 160}`)

	byTitle, err := store.List(context.Background(), "Llave")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Llaveros", byTitle[0].Title)

	byNotes, err := store.List(context.Background(), "casa")
	require.NoError(t, err)
	assert.Len(t, byNotes, 2)
}

func TestListMatchesWildcardsLiterally(t *testing.T) {
	database := newQuotesTestDB(t)
	store := NewStore(database)

	seedQuote(t, database, "2024-01-01 10:00:00", "50% descuento", "", `{"total": 50}`)
	seedQuote(t, database, "2024-01-02 10:00:00", "500 piezas", "", `{"total": 500}`)
	seedQuote(t, database, "2024-01-03 10:00:00", "pieza_a", "", `{"total": 10}`)
	seedQuote(t, database, "2024-01-04 10:00:00", "piezaxa", "", `{"total": 20}`)

	byPercent, err := store.List(context.Background(), "50%")
	require.NoError(t, err)
	require.Len(t, byPercent, 1)
	assert.Equal(t, "50% descuento", byPercent[0].Title)

	byUnderscore, err := store.List(context.Background(), "pieza_")
	require.NoError(t, err)
	require.Len(t, byUnderscore, 1)
	assert.Equal(t, "pieza_a", byUnderscore[0].Title)

	assert.Equal(t, `a\\b\%c\_`, escapeLike(`a\b%c_`))
}

func TestCreateThenGetReturnsSnapshot(t *testing.T) {
	database := newQuotesTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	rate := 2.5
	created, err := store.Create(ctx, Quote{
		Title:         "  Soporte de cámara ",
		Notes:         "Entregar en 48h",
		Currency:      "COP",
		MarginPercent: 35,
		Input: costing.Input{
			HumanMinutes: 20,
			Quantity:     3,
			MachineDetails: []costing.MachineJob{
				{MachineID: "fdm-1", Type: costing.MachineFDM, DurationMinutes: 90, WeightGrams: 150, HourlyRate: &rate},
			},
		},
		Breakdown: costing.Breakdown{Material: 123.45, TotalDirect: 400, LaborValue: 50, Quantity: 3, UnitTotalCost: 150},
		Totals:    Totals{Total: 999.99, RecommendedPrice: 692.31, AppliedRules: []string{"minimo"}},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEmpty(t, created.CreatedAt)
	_, err = uuid.Parse(created.PublicID)
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soporte de cámara", got.Title)
	assert.Equal(t, 123.45, got.Breakdown.Material)
	assert.Equal(t, 999.99, got.Totals.Total)
	assert.Equal(t, []string{"minimo"}, got.Totals.AppliedRules)
	require.Len(t, got.Input.MachineDetails, 1)
	require.NotNil(t, got.Input.MachineDetails[0].HourlyRate)
	assert.Equal(t, 2.5, *got.Input.MachineDetails[0].HourlyRate)
	assert.Equal(t, created.PublicID, got.PublicID)
}

func TestGetMissingQuote(t *testing.T) {
	store := NewStore(newQuotesTestDB(t))

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTextRendersSummary(t *testing.T) {
	q := Quote{
		ID:            7,
		PublicID:      "2f1c6f1e-4a8b-4a55-9d4b-2b7f0c1e9a10",
		Title:         "Cotización Demo",
		Notes:         "Entregar en 48h",
		Currency:      "COP",
		MarginPercent: 35,
		Breakdown: costing.Breakdown{
			Material:   123.45,
			Quantity:   3,
			RiskFactor: 1.1,
			Jobs:       []costing.JobCost{{MachineName: "Ender 3", Type: costing.MachineFDM, AdjustedMinutes: 99, AdjustedGrams: 165}},
			Warnings:   []string{"no resin machines in catalog: depreciation rate resolved to 0"},
		},
		Totals: Totals{Total: 999.99, RecommendedPrice: 900, AppliedRules: []string{"pedido-minimo"}},
	}

	body := Text(q)

	for _, expected := range []string{
		"Cotización Demo",
		"Total: 999.99 COP",
		"Precio unitario: 333.33 COP",
		"Precio sugerido: 900.00 COP",
		"- Material: 123.45 COP",
		"Ender 3 (fdm): 99 min, 165 g",
		"Supuestos:",
		"- Margen: 35%",
		"- Factor de riesgo: 1.1",
		"- Regla aplicada: pedido-minimo",
		"- Advertencia: no resin machines",
		"Notas: Entregar en 48h",
	} {
		assert.True(t, strings.Contains(body, expected), "expected body to contain %q, got:\n%s", expected, body)
	}
}

func TestExtractTotalFromJSON(t *testing.T) {
	assert.Equal(t, 12.5, extractTotalFromJSON(`{"total": 12.5, "grand_total": 99}`))
	assert.Equal(t, 7.0, extractTotalFromJSON(`{"final_total": 7}`))
	assert.Zero(t, extractTotalFromJSON(`not json`))
	assert.Zero(t, extractTotalFromJSON(`{"applied_rules": ["x"]}`))
}
