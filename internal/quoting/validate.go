package quoting

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput marks requests rejected before reaching the engine.
var ErrInvalidInput = errors.New("invalid input")

// InputError carries a user-facing message for a rejected field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func checkNonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &InputError{Field: field, Message: fmt.Sprintf("%s debe ser numérico", field)}
	}
	if value < 0 {
		return &InputError{Field: field, Message: fmt.Sprintf("%s debe ser mayor o igual a 0", field)}
	}
	return nil
}

// Validate rejects negative or non-finite quantities, unknown machine types and
// negative margins. The costing engine itself does not validate.
func Validate(req Request) error {
	in := req.Input
	for _, c := range []struct {
		field string
		value float64
	}{
		{"totalMinutes", in.TotalMinutes},
		{"materialWeightGrams", in.MaterialWeightGrams},
		{"humanMinutes", in.HumanMinutes},
		{"extraCost", in.ExtraCost},
		{"failureRatePercent", in.FailureRatePercent},
		{"consumablesCost", in.ConsumablesCost},
		{"marginPercent", req.MarginPercent},
	} {
		if err := checkNonNegative(c.field, c.value); err != nil {
			return err
		}
	}

	for i, job := range in.MachineDetails {
		prefix := fmt.Sprintf("machineDetails[%d]", i)
		if !job.Type.Valid() {
			return &InputError{Field: prefix + ".type", Message: fmt.Sprintf("%s.type debe ser fdm o resin", prefix)}
		}
		if err := checkNonNegative(prefix+".durationMinutes", job.DurationMinutes); err != nil {
			return err
		}
		if err := checkNonNegative(prefix+".weightGrams", job.WeightGrams); err != nil {
			return err
		}
		if job.HourlyRate != nil {
			if err := checkNonNegative(prefix+".hourlyRate", *job.HourlyRate); err != nil {
				return err
			}
		}
	}

	if d := in.LaborDetails; d != nil {
		for _, c := range []struct {
			field string
			value float64
		}{
			{"laborDetails.generalMinutes", d.GeneralMinutes},
			{"laborDetails.paintingMinutes", d.PaintingMinutes},
			{"laborDetails.modelingMinutes", d.ModelingMinutes},
		} {
			if err := checkNonNegative(c.field, c.value); err != nil {
				return err
			}
		}
	}

	for _, id := range req.ConsumableIDs {
		if id <= 0 {
			return &InputError{Field: "consumableIds", Message: "consumableIds debe contener ids mayores a 0"}
		}
	}

	return nil
}
