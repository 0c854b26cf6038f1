// internal/booking/fields.go
package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"inkbook/internal/models"
)

var (
	ErrUnknownField     = errors.New("unknown booking field")
	ErrInvalidFieldType = errors.New("invalid value type for booking field")
)

// ParseField maps a JSON field name to a Field.
func ParseField(name string) (models.Field, error) {
	f := models.Field(name)
	if _, ok := models.NewBookingDraft().StringValue(f); ok {
		return f, nil
	}
	switch f {
	case models.FieldDuration, models.FieldReferences, models.FieldAgreedToTerms, models.FieldMarketingConsent:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// setField assigns value to f. Values decoded from JSON (float64, []any,
// json.Number) are accepted alongside native Go types.
func setField(d *models.BookingDraft, f models.Field, value any) error {
	if _, ok := d.StringValue(f); ok {
		s, ok := value.(string)
		if !ok {
			return typeError(f, "string", value)
		}
		setString(d, f, s)
		return nil
	}

	switch f {
	case models.FieldDuration:
		n, err := toInt(value)
		if err != nil {
			return typeError(f, "integer", value)
		}
		d.Duration = n
	case models.FieldReferences:
		refs, err := toStrings(value)
		if err != nil {
			return typeError(f, "list of strings", value)
		}
		d.References = refs
	case models.FieldAgreedToTerms:
		b, ok := value.(bool)
		if !ok {
			return typeError(f, "boolean", value)
		}
		d.AgreedToTerms = b
	case models.FieldMarketingConsent:
		b, ok := value.(bool)
		if !ok {
			return typeError(f, "boolean", value)
		}
		d.MarketingConsent = b
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}

func setString(d *models.BookingDraft, f models.Field, s string) {
	switch f {
	case models.FieldServiceType:
		d.ServiceType = s
	case models.FieldArtistID:
		d.ArtistID = s
	case models.FieldStudioID:
		d.StudioID = s
	case models.FieldAppointmentDate:
		d.AppointmentDate = s
	case models.FieldAppointmentTime:
		d.AppointmentTime = s
	case models.FieldFirstName:
		d.FirstName = s
	case models.FieldLastName:
		d.LastName = s
	case models.FieldEmail:
		d.Email = s
	case models.FieldPhone:
		d.Phone = s
	case models.FieldDescription:
		d.Description = s
	case models.FieldSpecialRequests:
		d.SpecialRequests = s
	}
}

func typeError(f models.Field, want string, got any) error {
	return fmt.Errorf("%w: %s wants %s, got %T", ErrInvalidFieldType, f, want, got)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func toStrings(v any) ([]string, error) {
	switch refs := v.(type) {
	case []string:
		out := make([]string, len(refs))
		copy(out, refs)
		return out, nil
	case []any:
		out := make([]string, 0, len(refs))
		for _, r := range refs {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("element is %T", r)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return []string{}, nil
	}
	return nil, fmt.Errorf("not a list: %T", v)
}
