package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"a.b+c@sub.example.co", true},
		{"not-an-email", false},
		{"user@example", false},
		{"user @example.com", false},
		{"@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateEmail(tt.email))
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  bool
	}{
		{"plain digits", "5551234567", true},
		{"leading plus", "+15551234567", true},
		{"separators stripped", "+1 (555) 123-4567", true},
		{"single digit", "7", true},
		{"sixteen digits", "1234567890123456", true},
		{"seventeen digits", "12345678901234567", false},
		{"letters", "555-CALL-NOW", false},
		{"plus only", "+", false},
		{"empty", "", false},
		{"inner plus", "1+5551234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePhone(tt.phone))
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.True(t, ValidateName("Al"))
	assert.True(t, ValidateName("  Jo  "))
	assert.False(t, ValidateName(" J "))
	assert.False(t, ValidateName(""))
}

func TestValidateDateAndTime(t *testing.T) {
	assert.True(t, ValidateDate("2026-11-03"))
	assert.False(t, ValidateDate("2026-13-03"))
	assert.False(t, ValidateDate("03/11/2026"))

	assert.True(t, ValidateTime("09:30"))
	assert.False(t, ValidateTime("25:00"))
	assert.False(t, ValidateTime("9.30"))
	assert.False(t, ValidateTime("9:30"))
	assert.False(t, ValidateTime("09:30:00"))
	assert.True(t, ValidateTime("00:00"))
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"serviceType":     "custom",
		"artistId":        "artist-1",
		"appointmentDate": "2026-11-03",
		"appointmentTime": "14:00",
		"firstName":       "Ada",
		"lastName":        "Lovelace",
		"email":           "ada@example.com",
		"phone":           "+15551234567",
		"references":      []string{"ref-1"},
		"agreedToTerms":   true,
	}
}

func TestValidateBookingPayload(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		res, err := ValidateBookingPayload(validPayload())
		require.NoError(t, err)
		assert.True(t, res.Valid, res.GetErrorMessages())
	})

	t.Run("missing required field", func(t *testing.T) {
		p := validPayload()
		delete(p, "email")

		res, err := ValidateBookingPayload(p)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.True(t, res.HasErrors("email"))
	})

	t.Run("terms not agreed", func(t *testing.T) {
		p := validPayload()
		p["agreedToTerms"] = false

		res, err := ValidateBookingPayload(p)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.GetErrorMessages())
	})

	t.Run("malformed date", func(t *testing.T) {
		p := validPayload()
		p["appointmentDate"] = "next tuesday"

		res, err := ValidateBookingPayload(p)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.True(t, res.HasErrors("appointmentDate"))
	})
}

func TestAcceptedClockPassesPayloadSchema(t *testing.T) {
	tests := []struct {
		clock string
		want  bool
	}{
		{"09:30", true},
		{"23:59", true},
		{"9:30", false},
		{"7:5", false},
		{"24:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			require.Equal(t, tt.want, ValidateTime(tt.clock))
			if !tt.want {
				return
			}
			p := validPayload()
			p["appointmentTime"] = tt.clock

			res, err := ValidateBookingPayload(p)
			require.NoError(t, err)
			assert.True(t, res.Valid, res.GetErrorMessages())
		})
	}
}
