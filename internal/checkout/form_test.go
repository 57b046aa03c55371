package checkout

import (
	"testing"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() Form {
	return Form{
		FullName:      "Achieng Otieno",
		Email:         "achieng@example.com",
		Phone:         "0712345678",
		County:        "Nakuru",
		Town:          "Naivasha",
		Instructions:  "Call on arrival",
		PaymentMethod: domain.PaymentMpesa,
	}
}

func TestCounties(t *testing.T) {
	assert.Len(t, Counties, 47)
	assert.True(t, IsCounty("Nairobi City"))
	assert.True(t, IsCounty("Murang'a"))
	assert.False(t, IsCounty("Nairobi"))
}

func TestValidate_Phone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"0712345678", true},
		{"0112345678", true},
		{"+254712345678", true},
		{"254112345678", true},
		{"712345678", true},
		{" 0712345678 ", true},
		{"12345", false},
		{"0812345678", false},
		{"07123456789", false},
		{"+255712345678", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			f := validForm()
			f.Phone = tt.phone
			err := f.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "Enter a valid Safaricom/Airtel number", ve.Fields["phone"])
		})
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	err := Form{FullName: "  ", Town: "\t"}.Validate()

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{
		"full_name": "Full name is required",
		"email":     "Email is required",
		"phone":     "Phone number is required",
		"county":    "County is required",
		"town":      "Town is required",
	}, ve.Fields)
}

func TestValidate_UnknownCounty(t *testing.T) {
	f := validForm()
	f.County = "Atlantis"

	var ve *domain.ValidationError
	require.ErrorAs(t, f.Validate(), &ve)
	assert.Contains(t, ve.Fields, "county")
}

func TestShippingAddress(t *testing.T) {
	f := validForm()
	assert.Equal(t, "Naivasha, Nakuru. Call on arrival", f.ShippingAddress())

	f.Instructions = ""
	assert.Equal(t, "Naivasha, Nakuru.", f.ShippingAddress())
}

func TestTotals(t *testing.T) {
	p := DefaultPricing()
	tests := []struct {
		subtotal int64
		shipping int64
		grand    int64
	}{
		{40000, 1500, 41500},
		{60000, 0, 60000},
		{50000, 1500, 51500},
		{50001, 0, 50001},
		{0, 1500, 1500},
	}
	for _, tt := range tests {
		got := p.Totals(decimal.NewFromInt(tt.subtotal))
		assert.True(t, decimal.NewFromInt(tt.shipping).Equal(got.Shipping), "shipping for %d", tt.subtotal)
		assert.True(t, decimal.NewFromInt(tt.grand).Equal(got.GrandTotal), "grand total for %d", tt.subtotal)
	}
}
