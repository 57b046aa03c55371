package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
)

// Kenyan mobile numbers: 07xxxxxxxx, 01xxxxxxxx, 2547xxxxxxxx or +2547xxxxxxxx.
var phonePattern = regexp.MustCompile(`^(?:254|\+254|0)?(7|1)\d{8}$`)

// Counties are the 47 counties a delivery can be addressed to.
var Counties = []string{
	"Mombasa", "Kwale", "Kilifi", "Tana River", "Lamu", "Taita/Taveta",
	"Garissa", "Wajir", "Mandera", "Marsabit", "Isiolo", "Meru",
	"Tharaka-Nithi", "Embu", "Kitui", "Machakos", "Makueni", "Nyandarua",
	"Nyeri", "Kirinyaga", "Murang'a", "Kiambu", "Turkana", "West Pokot",
	"Samburu", "Trans Nzoia", "Uasin Gishu", "Elgeyo/Marakwet", "Nandi", "Baringo",
	"Laikipia", "Nakuru", "Narok", "Kajiado", "Kericho", "Bomet",
	"Kakamega", "Vihiga", "Bungoma", "Busia", "Siaya", "Kisumu",
	"Homa Bay", "Migori", "Kisii", "Nyamira", "Nairobi City",
}

var countySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Counties))
	for _, c := range Counties {
		m[c] = struct{}{}
	}
	return m
}()

func IsCounty(name string) bool {
	_, ok := countySet[name]
	return ok
}

// Form is the contact and delivery form filled in at checkout.
type Form struct {
	FullName      string               `json:"full_name"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	County        string               `json:"county"`
	Town          string               `json:"town"`
	Instructions  string               `json:"instructions,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

// Validate returns a *domain.ValidationError listing every bad field.
func (f Form) Validate() error {
	errs := map[string]string{}

	if strings.TrimSpace(f.FullName) == "" {
		errs["full_name"] = "Full name is required"
	}
	if strings.TrimSpace(f.Email) == "" {
		errs["email"] = "Email is required"
	}

	phone := strings.TrimSpace(f.Phone)
	switch {
	case phone == "":
		errs["phone"] = "Phone number is required"
	case !phonePattern.MatchString(phone):
		errs["phone"] = "Enter a valid Safaricom/Airtel number"
	}

	county := strings.TrimSpace(f.County)
	switch {
	case county == "":
		errs["county"] = "County is required"
	case !IsCounty(county):
		errs["county"] = "Select a county from the list"
	}

	if strings.TrimSpace(f.Town) == "" {
		errs["town"] = "Town is required"
	}

	switch f.paymentMethod() {
	case domain.PaymentMpesa, domain.PaymentCashOnDelivery:
	default:
		errs["payment_method"] = "Select a payment method"
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Fields: errs}
	}
	return nil
}

// paymentMethod defaults to M-Pesa when the form leaves it blank.
func (f Form) paymentMethod() domain.PaymentMethod {
	if f.PaymentMethod == "" {
		return domain.PaymentMpesa
	}
	return f.PaymentMethod
}

// ShippingAddress renders "<town>, <county>. <instructions>".
func (f Form) ShippingAddress() string {
	addr := fmt.Sprintf("%s, %s. %s",
		strings.TrimSpace(f.Town),
		strings.TrimSpace(f.County),
		strings.TrimSpace(f.Instructions),
	)
	return strings.TrimRight(addr, " \t\r\n")
}
