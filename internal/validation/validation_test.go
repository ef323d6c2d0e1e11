package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	Street  string `json:"street" binding:"required,min=5"`
	ZipCode string `json:"zip_code" binding:"required,min=5"`
}

type payload struct {
	Name    string          `json:"name" binding:"required,min=2"`
	Email   string          `json:"email" binding:"required,email"`
	Price   decimal.Decimal `json:"price" binding:"gt=0"`
	Card    string          `json:"card" binding:"omitempty,cardnumber"`
	Expiry  string          `json:"expiry" binding:"omitempty,expiry"`
	Address address         `json:"address"`
}

func validPayload() payload {
	return payload{
		Name:    "Jane",
		Email:   "jane@example.com",
		Price:   decimal.RequireFromString("0.01"),
		Card:    "4242 4242 4242 4242",
		Expiry:  "12/30",
		Address: address{Street: "1 Main Street", ZipCode: "12345"},
	}
}

func TestValidator_FieldErrors(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(validPayload()))

	p := validPayload()
	p.Name = "J"
	p.Email = "not-an-email"
	p.Price = decimal.Zero
	p.Card = "4242 4242 4242 4241"
	p.Expiry = "13/30"
	p.Address.ZipCode = "12"

	err := FromValidator(v.Struct(p))
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"name":             "must be at least 2 characters",
		"email":            "must be a valid email address",
		"price":            "must be greater than 0",
		"card":             "must be a valid card number",
		"expiry":           "must be a valid expiry date (MM/YY)",
		"address.zip_code": "must be at least 5 characters",
	}, verr.Fields)
	assert.Contains(t, verr.Error(), "address.zip_code")
}

func TestFromValidator_PassesOtherErrors(t *testing.T) {
	other := errors.New("boom")
	assert.Same(t, other, FromValidator(other))
}

func TestCardExpiry_PastMonth(t *testing.T) {
	defer func() { now = time.Now }()
	now = func() time.Time { return time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC) }

	v := New()
	tests := map[string]bool{
		"10/26": true,
		"09/26": false,
		"01/27": true,
		"12/25": false,
		"1/27":  false,
		"00/27": false,
	}
	for expiry, ok := range tests {
		p := validPayload()
		p.Expiry = expiry
		assert.Equal(t, ok, v.Struct(p) == nil, expiry)
	}
}
