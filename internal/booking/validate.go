// internal/booking/validate.go
package booking

import (
	"fmt"
	"unicode/utf8"

	"inkbook/internal/common/validation"
	"inkbook/internal/models"
)

var fieldLabels = map[models.Field]string{
	models.FieldServiceType:     "Service type",
	models.FieldArtistID:        "Artist",
	models.FieldAppointmentDate: "Appointment date",
	models.FieldAppointmentTime: "Appointment time",
	models.FieldFirstName:       "First name",
	models.FieldLastName:        "Last name",
	models.FieldEmail:           "Email",
	models.FieldPhone:           "Phone number",
}

// stepFields lists the fields each step validates before advancing.
var stepFields = map[models.Step][]models.Field{
	models.StepBasicInfo: {
		models.FieldServiceType,
		models.FieldArtistID,
		models.FieldAppointmentDate,
		models.FieldAppointmentTime,
		models.FieldDuration,
	},
	models.StepPersonalDetails: {
		models.FieldFirstName,
		models.FieldLastName,
		models.FieldEmail,
		models.FieldPhone,
	},
	models.StepTattooDetails: {models.FieldDescription},
	models.StepReferences:    {models.FieldReferences},
	models.StepReview:        {models.FieldAgreedToTerms},
}

type rules struct {
	maxReferences  int
	minDescription int
}

func isRequired(f models.Field) bool {
	for _, r := range models.RequiredFields {
		if r == f {
			return true
		}
	}
	return false
}

// checkFormat validates a field's value when one is present. An empty value
// is never a format error.
func (r rules) checkFormat(d models.BookingDraft, f models.Field) string {
	switch f {
	case models.FieldEmail:
		if d.Email != "" && !validation.ValidateEmail(d.Email) {
			return "Please enter a valid email address"
		}
	case models.FieldPhone:
		if d.Phone != "" && !validation.ValidatePhone(d.Phone) {
			return "Please enter a valid phone number"
		}
	case models.FieldFirstName, models.FieldLastName:
		v, _ := d.StringValue(f)
		if v != "" && !validation.ValidateName(v) {
			return fmt.Sprintf("%s must be at least 2 characters", fieldLabels[f])
		}
	case models.FieldAppointmentDate:
		if d.AppointmentDate != "" && !validation.ValidateDate(d.AppointmentDate) {
			return "Please choose a valid date"
		}
	case models.FieldAppointmentTime:
		if d.AppointmentTime != "" && !validation.ValidateTime(d.AppointmentTime) {
			return "Please choose a valid time"
		}
	case models.FieldDuration:
		if d.Duration < 0 {
			return "Duration cannot be negative"
		}
	case models.FieldDescription:
		if d.Description != "" && utf8.RuneCountInString(d.Description) < r.minDescription {
			return fmt.Sprintf("Description must be at least %d characters", r.minDescription)
		}
	case models.FieldReferences:
		if r.maxReferences > 0 && len(d.References) > r.maxReferences {
			return fmt.Sprintf("You can attach at most %d reference images", r.maxReferences)
		}
	}
	return ""
}

// check is the full rule for a field: presence for required fields and the
// terms checkbox, then format.
func (r rules) check(d models.BookingDraft, f models.Field) string {
	if isRequired(f) && !d.Has(f) {
		return fmt.Sprintf("%s is required", fieldLabels[f])
	}
	if f == models.FieldAgreedToTerms && !d.AgreedToTerms {
		return "You must agree to the terms and conditions"
	}
	return r.checkFormat(d, f)
}

func (r rules) validateStep(d models.BookingDraft, step models.Step) models.ValidationErrors {
	errs := make(models.ValidationErrors)
	for _, f := range stepFields[step] {
		if msg := r.check(d, f); msg != "" {
			errs[string(f)] = msg
		}
	}
	return errs
}

func (r rules) validateAll(d models.BookingDraft) models.ValidationErrors {
	errs := make(models.ValidationErrors)
	for step := models.FirstStep; step <= models.LastStep; step++ {
		for f, msg := range r.validateStep(d, step) {
			errs[f] = msg
		}
	}
	return errs
}
