package settings

import (
	"fmt"
	"math"
)

// ValidationError describes a rejected field. Messages are shown to shop staff as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func nonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s debe ser numérico", field)}
	}
	if value < 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s debe ser mayor o igual a 0", field)}
	}
	return nil
}

func optionalNonNegative(field string, value *float64) error {
	if value == nil {
		return nil
	}
	return nonNegative(field, *value)
}

// ValidateShop rejects negative or non-finite rates.
func ValidateShop(shop Shop) error {
	checks := []error{
		nonNegative("electricityPricePerKwh", shop.ElectricityPricePerKwh),
		nonNegative("filamentCostPerKg", shop.FilamentCostPerKg),
		nonNegative("resinCostPerKg", shop.ResinCostPerKg),
		nonNegative("humanHourlyRate", shop.HumanHourlyRate),
		optionalNonNegative("humanHourlyRatePainting", shop.HumanHourlyRatePainting),
		optionalNonNegative("humanHourlyRateModeling", shop.HumanHourlyRateModeling),
		optionalNonNegative("startupFee", shop.StartupFee),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// ValidateMachine checks a catalog machine.
func ValidateMachine(m Machine) error {
	if m.Name == "" {
		return &ValidationError{Field: "name", Message: "name es requerido"}
	}
	if !m.Type.Valid() {
		return &ValidationError{Field: "type", Message: "type debe ser fdm o resin"}
	}
	return nonNegative("hourlyRate", m.HourlyRate)
}

// ValidateConsumable checks a consumable preset.
func ValidateConsumable(c Consumable) error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "name es requerido"}
	}
	return nonNegative("flatCost", c.FlatCost)
}
