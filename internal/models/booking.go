// internal/models/booking.go
package models

import "time"

// Field names a BookingDraft field by its JSON key.
type Field string

const (
	FieldServiceType      Field = "serviceType"
	FieldArtistID         Field = "artistId"
	FieldStudioID         Field = "studioId"
	FieldAppointmentDate  Field = "appointmentDate"
	FieldAppointmentTime  Field = "appointmentTime"
	FieldDuration         Field = "duration"
	FieldFirstName        Field = "firstName"
	FieldLastName         Field = "lastName"
	FieldEmail            Field = "email"
	FieldPhone            Field = "phone"
	FieldDescription      Field = "description"
	FieldReferences       Field = "references"
	FieldSpecialRequests  Field = "specialRequests"
	FieldAgreedToTerms    Field = "agreedToTerms"
	FieldMarketingConsent Field = "marketingConsent"
)

// SubmitErrorKey is the reserved ValidationErrors key for submission failures.
const SubmitErrorKey = "submit"

// RequiredFields must be non-empty before a draft can be submitted.
var RequiredFields = []Field{
	FieldServiceType,
	FieldArtistID,
	FieldAppointmentDate,
	FieldAppointmentTime,
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
}

// BookingDraft is the partially-filled booking a client is building.
type BookingDraft struct {
	ServiceType      string   `json:"serviceType,omitempty"`
	ArtistID         string   `json:"artistId,omitempty"`
	StudioID         string   `json:"studioId,omitempty"`
	AppointmentDate  string   `json:"appointmentDate,omitempty"`
	AppointmentTime  string   `json:"appointmentTime,omitempty"`
	Duration         int      `json:"duration,omitempty"` // minutes
	FirstName        string   `json:"firstName,omitempty"`
	LastName         string   `json:"lastName,omitempty"`
	Email            string   `json:"email,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Description      string   `json:"description,omitempty"`
	References       []string `json:"references"`
	SpecialRequests  string   `json:"specialRequests,omitempty"`
	AgreedToTerms    bool     `json:"agreedToTerms"`
	MarketingConsent bool     `json:"marketingConsent"`
}

// NewBookingDraft returns an empty draft with a non-nil references list.
func NewBookingDraft() BookingDraft {
	return BookingDraft{References: []string{}}
}

// Clone returns a deep copy.
func (d BookingDraft) Clone() BookingDraft {
	out := d
	out.References = make([]string, len(d.References))
	copy(out.References, d.References)
	return out
}

// StringValue returns the value of a string-typed field and whether the
// field is string-typed at all.
func (d BookingDraft) StringValue(f Field) (string, bool) {
	switch f {
	case FieldServiceType:
		return d.ServiceType, true
	case FieldArtistID:
		return d.ArtistID, true
	case FieldStudioID:
		return d.StudioID, true
	case FieldAppointmentDate:
		return d.AppointmentDate, true
	case FieldAppointmentTime:
		return d.AppointmentTime, true
	case FieldFirstName:
		return d.FirstName, true
	case FieldLastName:
		return d.LastName, true
	case FieldEmail:
		return d.Email, true
	case FieldPhone:
		return d.Phone, true
	case FieldDescription:
		return d.Description, true
	case FieldSpecialRequests:
		return d.SpecialRequests, true
	}
	return "", false
}

// Has reports whether a field carries a non-zero value.
func (d BookingDraft) Has(f Field) bool {
	if s, ok := d.StringValue(f); ok {
		return s != ""
	}
	switch f {
	case FieldDuration:
		return d.Duration > 0
	case FieldReferences:
		return len(d.References) > 0
	case FieldAgreedToTerms:
		return d.AgreedToTerms
	case FieldMarketingConsent:
		return d.MarketingConsent
	}
	return false
}

// ValidationErrors maps a field name to a human-readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) Clone() ValidationErrors {
	out := make(ValidationErrors, len(v))
	for k, msg := range v {
		out[k] = msg
	}
	return out
}

// SubmissionReceipt is what a submission collaborator returns on success.
type SubmissionReceipt struct {
	BookingID string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
