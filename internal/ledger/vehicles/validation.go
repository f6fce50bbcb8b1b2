package vehicles

import (
	"strings"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

func (in VehicleInput) normalized() VehicleInput {
	return VehicleInput{
		Plate:   strings.TrimSpace(in.Plate),
		Type:    strings.TrimSpace(in.Type),
		Remarks: strings.TrimSpace(in.Remarks),
	}
}

// validate checks the input and plate uniqueness within the company, ignoring the vehicle being
// edited.
func validate(in VehicleInput, company ledger.Company, selfID string) error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	for _, v := range company.Vehicles {
		if v.ID != selfID && strings.EqualFold(strings.TrimSpace(v.Plate), in.Plate) {
			return shared.FieldError("plate", "is already registered for this company")
		}
	}
	return nil
}
