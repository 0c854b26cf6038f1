package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern     = regexp.MustCompile(`^\+?\d{1,16}$`)
	clockPattern     = regexp.MustCompile(`^\d{2}:\d{2}$`)
	phoneSeparators  = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	bookingSchemaDoc = gojsonschema.NewStringLoader(BookingPayloadSchema)
)

// BookingPayloadSchema describes the JSON body handed to the submission
// collaborators.
const BookingPayloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["serviceType", "artistId", "appointmentDate", "appointmentTime",
               "firstName", "lastName", "email", "phone", "agreedToTerms"],
  "properties": {
    "serviceType":      {"type": "string", "minLength": 1},
    "artistId":         {"type": "string", "minLength": 1},
    "studioId":         {"type": "string"},
    "appointmentDate":  {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
    "appointmentTime":  {"type": "string", "pattern": "^\\d{2}:\\d{2}$"},
    "duration":         {"type": "integer", "minimum": 0},
    "firstName":        {"type": "string", "minLength": 2},
    "lastName":         {"type": "string", "minLength": 2},
    "email":            {"type": "string", "minLength": 3},
    "phone":            {"type": "string", "minLength": 1},
    "description":      {"type": "string"},
    "references":       {"type": "array", "items": {"type": "string"}},
    "specialRequests":  {"type": "string"},
    "agreedToTerms":    {"type": "boolean", "const": true},
    "marketingConsent": {"type": "boolean"}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateBookingPayload checks a submission payload against BookingPayloadSchema.
// payload is anything encoding/json can marshal.
func ValidateBookingPayload(payload interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(bookingSchemaDoc, gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		field := e.Field()
		if field == "(root)" {
			if prop, ok := e.Details()["property"].(string); ok {
				field = prop
			}
		}
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return vr, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ValidateEmail requires local@domain.tld with no whitespace.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizePhone strips spaces, dashes and parentheses.
func NormalizePhone(phone string) string {
	return phoneSeparators.Replace(phone)
}

// ValidatePhone accepts an optional leading '+' and 1 to 16 digits once
// separators are stripped.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}

// ValidateName requires at least two characters after trimming.
func ValidateName(name string) bool {
	return len([]rune(strings.TrimSpace(name))) >= 2
}

func ValidateDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// ValidateTime requires a zero-padded 24-hour HH:MM clock, the same shape
// BookingPayloadSchema accepts.
func ValidateTime(clock string) bool {
	if !clockPattern.MatchString(clock) {
		return false
	}
	_, err := time.Parse(TimeLayout, clock)
	return err == nil
}
