package items

import (
	"strings"

	"github.com/servicebook/servicebook/internal/shared"
)

func (in ItemInput) normalized() ItemInput {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	return in
}

func validate(in ItemInput) error {
	if strings.ContainsAny(in.ID, "/.#$[]") {
		return shared.FieldError("id", "must not contain / . # $ [ ]")
	}
	return shared.ValidateStruct(in)
}
