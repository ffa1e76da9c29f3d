package validation

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

var documentPattern = regexp.MustCompile(`^[A-Za-z0-9.\-]{4,32}$`)

// Shared field rules for request structs
var (
	Name     = []validation.Rule{validation.Required, validation.Length(2, 120)}
	Email    = []validation.Rule{validation.Required, is.Email, validation.Length(3, 255)}
	Document = []validation.Rule{validation.Required, validation.Match(documentPattern).Error("must contain 4 to 32 letters, digits, dots or dashes")}
	Phone    = []validation.Rule{validation.Length(0, 40)}
	Password = []validation.Rule{validation.Required, validation.Length(8, 72)}
)

// IsValidation reports whether err comes from a failed request validation
func IsValidation(err error) bool {
	var fieldErrs validation.Errors
	return errors.As(err, &fieldErrs)
}

// ID rejects the nil UUID, which Required does not see as empty
var ID = validation.By(func(value any) error {
	if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
})

// Kind accepts only the known enrollment kinds. In and Required compare the
// driver value of common.Kind, which is its name, so they cannot be used here.
var Kind = validation.By(func(value any) error {
	k, ok := value.(common.Kind)
	if !ok {
		return errors.New("must be a valid value")
	}
	if _, known := common.KindFromString(k.String()); !known {
		return errors.New("must be attendee, participant or evaluator")
	}
	return nil
})

// After checks that a time field is later than ref
func After(ref time.Time, field string) validation.Rule {
	return validation.By(func(value any) error {
		t, ok := value.(time.Time)
		if !ok || t.IsZero() {
			return nil
		}
		if !t.After(ref) {
			return errors.New("must be after " + field)
		}
		return nil
	})
}

// Rules joins rule sets so request structs can extend the shared ones
func Rules(sets ...[]validation.Rule) []validation.Rule {
	var out []validation.Rule
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}
