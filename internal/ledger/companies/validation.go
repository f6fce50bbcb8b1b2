package companies

import (
	"strings"

	"github.com/servicebook/servicebook/internal/shared"
)

func (in CompanyInput) normalized() CompanyInput {
	return CompanyInput{
		Name:    strings.TrimSpace(in.Name),
		TaxID:   strings.TrimSpace(in.TaxID),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
	}
}

func validate(in CompanyInput) error {
	return shared.ValidateStruct(in)
}
