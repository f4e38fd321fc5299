// Package settings persists shop cost settings, the machine catalog and consumable presets.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/costeo3d/internal/costing"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultCurrency is the display currency of stored amounts.
const DefaultCurrency = "COP"

// Shop is the stored settings singleton.
type Shop struct {
	ElectricityPricePerKwh  float64  `json:"electricityPricePerKwh"`
	FilamentCostPerKg       float64  `json:"filamentCostPerKg"`
	ResinCostPerKg          float64  `json:"resinCostPerKg"`
	HumanHourlyRate         float64  `json:"humanHourlyRate"`
	HumanHourlyRatePainting *float64 `json:"humanHourlyRatePainting,omitempty"`
	HumanHourlyRateModeling *float64 `json:"humanHourlyRateModeling,omitempty"`
	StartupFee              *float64 `json:"startupFee,omitempty"`
	Currency                string   `json:"currency"`
}

// Machine is a catalog row.
type Machine struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Type       costing.MachineType `json:"type"`
	HourlyRate float64             `json:"hourlyRate"`
	Active     bool                `json:"active"`
}

// Consumable is a flat-cost preset (packaging, glue, support media).
type Consumable struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	FlatCost float64 `json:"flatCost"`
	Notes    string  `json:"notes"`
	Active   bool    `json:"active"`
}

// Store reads and writes settings rows.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureShop inserts the zero-valued settings singleton if it is missing.
func (s *Store) EnsureShop(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_settings (id, currency)
		VALUES (1, ?)
		ON CONFLICT(id) DO NOTHING
	`, DefaultCurrency)
	if err != nil {
		return fmt.Errorf("insert default shop_settings: %w", err)
	}
	return nil
}

// GetShop returns the settings singleton.
func (s *Store) GetShop(ctx context.Context) (Shop, error) {
	var shop Shop
	var painting, modeling, startup sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			electricity_price_per_kwh,
			filament_cost_per_kg,
			resin_cost_per_kg,
			human_hourly_rate,
			human_hourly_rate_painting,
			human_hourly_rate_modeling,
			startup_fee,
			currency
		FROM shop_settings
		WHERE id = 1
	`).Scan(
		&shop.ElectricityPricePerKwh,
		&shop.FilamentCostPerKg,
		&shop.ResinCostPerKg,
		&shop.HumanHourlyRate,
		&painting,
		&modeling,
		&startup,
		&shop.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Shop{}, fmt.Errorf("shop_settings singleton: %w", ErrNotFound)
		}
		return Shop{}, fmt.Errorf("query shop_settings: %w", err)
	}

	shop.HumanHourlyRatePainting = fromNull(painting)
	shop.HumanHourlyRateModeling = fromNull(modeling)
	shop.StartupFee = fromNull(startup)
	return shop, nil
}

// UpdateShop replaces the settings singleton.
func (s *Store) UpdateShop(ctx context.Context, shop Shop) error {
	if err := ValidateShop(shop); err != nil {
		return err
	}
	// Amounts are always stored in the shop currency; no conversion happens.
	shop.Currency = DefaultCurrency

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_settings
		SET
			electricity_price_per_kwh = ?,
			filament_cost_per_kg = ?,
			resin_cost_per_kg = ?,
			human_hourly_rate = ?,
			human_hourly_rate_painting = ?,
			human_hourly_rate_modeling = ?,
			startup_fee = ?,
			currency = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		shop.ElectricityPricePerKwh,
		shop.FilamentCostPerKg,
		shop.ResinCostPerKg,
		shop.HumanHourlyRate,
		toNull(shop.HumanHourlyRatePainting),
		toNull(shop.HumanHourlyRateModeling),
		toNull(shop.StartupFee),
		shop.Currency,
	)
	if err != nil {
		return fmt.Errorf("update shop_settings: %w", err)
	}
	return requireAffected(result, "shop_settings singleton")
}

// Load returns the engine settings: the singleton plus the active machine catalog.
func (s *Store) Load(ctx context.Context) (costing.Settings, error) {
	shop, err := s.GetShop(ctx)
	if err != nil {
		return costing.Settings{}, err
	}

	machines, err := s.ListMachines(ctx, true)
	if err != nil {
		return costing.Settings{}, err
	}

	catalog := make([]costing.Machine, 0, len(machines))
	for _, m := range machines {
		catalog = append(catalog, costing.Machine{ID: m.ID, Name: m.Name, Type: m.Type, HourlyRate: m.HourlyRate})
	}

	return costing.Settings{
		ElectricityPricePerKwh:  shop.ElectricityPricePerKwh,
		FilamentCostPerKg:       shop.FilamentCostPerKg,
		ResinCostPerKg:          shop.ResinCostPerKg,
		HumanHourlyRate:         shop.HumanHourlyRate,
		HumanHourlyRatePainting: shop.HumanHourlyRatePainting,
		HumanHourlyRateModeling: shop.HumanHourlyRateModeling,
		StartupFee:              shop.StartupFee,
		Machines:                catalog,
	}, nil
}

// ListMachines returns the catalog ordered by id.
func (s *Store) ListMachines(ctx context.Context, activeOnly bool) ([]Machine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, hourly_rate, active
		FROM machines
		WHERE (? = 0 OR active = TRUE)
		ORDER BY id
	`, boolToInt(activeOnly))
	if err != nil {
		return nil, fmt.Errorf("query machines: %w", err)
	}
	defer rows.Close()

	machines := make([]Machine, 0)
	for rows.Next() {
		var m Machine
		var machineType string
		if err := rows.Scan(&m.ID, &m.Name, &machineType, &m.HourlyRate, &m.Active); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		m.Type = costing.MachineType(machineType)
		machines = append(machines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate machines: %w", err)
	}

	return machines, nil
}

// CreateMachine inserts a catalog machine.
func (s *Store) CreateMachine(ctx context.Context, m Machine) error {
	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	if m.ID == "" {
		return &ValidationError{Field: "id", Message: "id es requerido"}
	}
	if err := ValidateMachine(m); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (id, name, type, hourly_rate, active)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Name, string(m.Type), m.HourlyRate, m.Active)
	if err != nil {
		return fmt.Errorf("insert machine: %w", err)
	}
	return nil
}

// UpdateMachine replaces the catalog machine with the given id.
func (s *Store) UpdateMachine(ctx context.Context, m Machine) error {
	m.Name = strings.TrimSpace(m.Name)
	if err := ValidateMachine(m); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE machines
		SET
			name = ?,
			type = ?,
			hourly_rate = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.Name, string(m.Type), m.HourlyRate, m.Active, m.ID)
	if err != nil {
		return fmt.Errorf("update machine: %w", err)
	}
	return requireAffected(result, "machine "+m.ID)
}

// ListConsumables returns consumable presets, newest first.
func (s *Store) ListConsumables(ctx context.Context) ([]Consumable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, flat_cost, COALESCE(notes, ''), active
		FROM consumables
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query consumables: %w", err)
	}
	defer rows.Close()

	consumables := make([]Consumable, 0)
	for rows.Next() {
		var c Consumable
		if err := rows.Scan(&c.ID, &c.Name, &c.FlatCost, &c.Notes, &c.Active); err != nil {
			return nil, fmt.Errorf("scan consumable: %w", err)
		}
		consumables = append(consumables, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consumables: %w", err)
	}

	return consumables, nil
}

// CreateConsumable inserts a preset and returns its id.
func (s *Store) CreateConsumable(ctx context.Context, c Consumable) (int64, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Notes = strings.TrimSpace(c.Notes)
	if err := ValidateConsumable(c); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO consumables (name, flat_cost, notes, active)
		VALUES (?, ?, ?, ?)
	`, c.Name, c.FlatCost, c.Notes, c.Active)
	if err != nil {
		return 0, fmt.Errorf("insert consumable: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read consumable id: %w", err)
	}
	return id, nil
}

// UpdateConsumable replaces the preset with c.ID.
func (s *Store) UpdateConsumable(ctx context.Context, c Consumable) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Notes = strings.TrimSpace(c.Notes)
	if err := ValidateConsumable(c); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE consumables
		SET
			name = ?,
			flat_cost = ?,
			notes = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.Name, c.FlatCost, c.Notes, c.Active, c.ID)
	if err != nil {
		return fmt.Errorf("update consumable: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("consumable %d", c.ID))
}

// ConsumablesCost sums the flat cost of the given active presets. Repeated ids count
// once per occurrence.
func (s *Store) ConsumablesCost(ctx context.Context, ids []int64) (float64, error) {
	var total float64
	for _, id := range ids {
		var cost float64
		err := s.db.QueryRowContext(ctx, `
			SELECT flat_cost FROM consumables WHERE id = ? AND active = TRUE
		`, id).Scan(&cost)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, fmt.Errorf("consumable %d: %w", id, ErrNotFound)
			}
			return 0, fmt.Errorf("query consumable %d: %w", id, err)
		}
		total += cost
	}
	return total, nil
}

func requireAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", what, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
