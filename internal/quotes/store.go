// Package quotes stores quote snapshots. A stored quote is never recalculated:
// reading it returns exactly the breakdown and totals computed when it was saved.
package quotes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Simplici0/costeo3d/internal/costing"
)

// ErrNotFound is returned when a quote does not exist.
var ErrNotFound = errors.New("quote not found")

// Totals are the roll-up values of a quote.
type Totals struct {
	Total            float64  `json:"total"`
	RecommendedPrice float64  `json:"recommended_price"`
	TotalBaseCost    float64  `json:"total_base_cost"`
	UnitTotalCost    float64  `json:"unit_total_cost"`
	UnitPrice        float64  `json:"unit_price"`
	MarginFallback   bool     `json:"margin_fallback,omitempty"`
	AppliedRules     []string `json:"applied_rules,omitempty"`
}

// Quote is a stored estimate snapshot.
type Quote struct {
	ID            int64             `json:"id"`
	PublicID      string            `json:"publicId"`
	CreatedAt     string            `json:"createdAt"`
	Title         string            `json:"title"`
	Notes         string            `json:"notes"`
	Currency      string            `json:"currency"`
	MarginPercent float64           `json:"marginPercent"`
	Input         costing.Input     `json:"input"`
	Breakdown     costing.Breakdown `json:"breakdown"`
	Totals        Totals            `json:"totals"`
}

// ListItem is a row of the quotes list.
type ListItem struct {
	ID        int64   `json:"id"`
	PublicID  string  `json:"publicId"`
	CreatedAt string  `json:"createdAt"`
	Title     string  `json:"title"`
	Total     float64 `json:"total"`
}

// Store persists quote snapshots in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts q, assigning its id, public id and creation time.
func (s *Store) Create(ctx context.Context, q Quote) (Quote, error) {
	q.PublicID = uuid.NewString()
	q.Title = strings.TrimSpace(q.Title)
	q.Notes = strings.TrimSpace(q.Notes)

	inputJSON, err := json.Marshal(q.Input)
	if err != nil {
		return Quote{}, fmt.Errorf("encode quote input: %w", err)
	}
	breakdownJSON, err := json.Marshal(q.Breakdown)
	if err != nil {
		return Quote{}, fmt.Errorf("encode quote breakdown: %w", err)
	}
	totalsJSON, err := json.Marshal(q.Totals)
	if err != nil {
		return Quote{}, fmt.Errorf("encode quote totals: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO quotes (public_id, title, notes, margin_percent, currency, input_json, breakdown_json, totals_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at
	`, q.PublicID, q.Title, q.Notes, q.MarginPercent, q.Currency, string(inputJSON), string(breakdownJSON), string(totalsJSON)).
		Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	return q, nil
}

// List returns quotes newest first, filtered by title or notes when query is not empty.
func (s *Store) List(ctx context.Context, query string) ([]ListItem, error) {
	search := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			public_id,
			created_at,
			COALESCE(title, ''),
			totals_json
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? ESCAPE '\' OR COALESCE(notes, '') LIKE ? ESCAPE '\')
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	items := make([]ListItem, 0)
	for rows.Next() {
		var item ListItem
		var totalsJSON string
		if err := rows.Scan(&item.ID, &item.PublicID, &item.CreatedAt, &item.Title, &totalsJSON); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.Total = extractTotalFromJSON(totalsJSON)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes the LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Get reads the stored snapshot of quote id.
func (s *Store) Get(ctx context.Context, id int64) (Quote, error) {
	var q Quote
	var inputJSON, breakdownJSON, totalsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, public_id, created_at, COALESCE(title, ''), COALESCE(notes, ''), currency,
			margin_percent, input_json, breakdown_json, totals_json
		FROM quotes
		WHERE id = ?
	`, id).Scan(
		&q.ID, &q.PublicID, &q.CreatedAt, &q.Title, &q.Notes, &q.Currency,
		&q.MarginPercent, &inputJSON, &breakdownJSON, &totalsJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, fmt.Errorf("quote %d: %w", id, ErrNotFound)
		}
		return Quote{}, fmt.Errorf("query quote %d: %w", id, err)
	}

	if err := json.Unmarshal([]byte(inputJSON), &q.Input); err != nil {
		return Quote{}, fmt.Errorf("decode quote %d input: %w", id, err)
	}
	if err := json.Unmarshal([]byte(breakdownJSON), &q.Breakdown); err != nil {
		return Quote{}, fmt.Errorf("decode quote %d breakdown: %w", id, err)
	}
	if err := json.Unmarshal([]byte(totalsJSON), &q.Totals); err != nil {
		return Quote{}, fmt.Errorf("decode quote %d totals: %w", id, err)
	}

	return q, nil
}

// extractTotalFromJSON tolerates older snapshots that stored the total under another key.
func extractTotalFromJSON(totalsJSON string) float64 {
	var values map[string]json.RawMessage
	if err := json.Unmarshal([]byte(totalsJSON), &values); err != nil {
		return 0
	}

	for _, key := range []string{"total", "grand_total", "final_total"} {
		raw, ok := values[key]
		if !ok {
			continue
		}
		var total float64
		if err := json.Unmarshal(raw, &total); err == nil {
			return total
		}
	}

	return 0
}
