package checkout

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

// CardDetails are only validated. They are never stored or forwarded.
type CardDetails struct {
	Number string `json:"number" binding:"required,cardnumber"`
	Expiry string `json:"expiry" binding:"required,expiry"`
	CVV    string `json:"cvv" binding:"required,numeric,min=3,max=4"`
	Holder string `json:"holder" binding:"required,min=2"`
}

type Form struct {
	CustomerName    string               `json:"customer_name" binding:"required,min=2"`
	CustomerEmail   string               `json:"customer_email" binding:"required,email"`
	CustomerPhone   string               `json:"customer_phone" binding:"required,min=10"`
	ShippingAddress domain.Address       `json:"shipping_address"`
	SameAsShipping  *bool                `json:"same_as_shipping"`
	BillingAddress  *domain.Address      `json:"billing_address"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method" binding:"required"`
	Card            *CardDetails         `json:"card"`
	ShippingTier    domain.ShippingTier  `json:"shipping_tier"`
}

// billingSameAsShipping defaults to true when the flag is absent.
func (f Form) billingSameAsShipping() bool {
	return f.SameAsShipping == nil || *f.SameAsShipping
}

func (f Form) billing() domain.Address {
	if f.billingSameAsShipping() || f.BillingAddress == nil {
		return f.ShippingAddress
	}
	return *f.BillingAddress
}

func (f Form) normalize() Form {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.CustomerEmail = strings.TrimSpace(f.CustomerEmail)
	f.CustomerPhone = strings.TrimSpace(f.CustomerPhone)
	f.ShippingAddress = trimAddress(f.ShippingAddress)
	f.PaymentMethod = domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(f.PaymentMethod))))
	f.ShippingTier = domain.ShippingTier(strings.ToLower(strings.TrimSpace(string(f.ShippingTier))))
	if f.ShippingTier == "" {
		f.ShippingTier = domain.ShippingStandard
	}

	if f.billingSameAsShipping() {
		f.BillingAddress = nil
	} else if f.BillingAddress != nil {
		b := trimAddress(*f.BillingAddress)
		f.BillingAddress = &b
	}

	if f.PaymentMethod != domain.PaymentCard {
		f.Card = nil
	}
	return f
}

func trimAddress(a domain.Address) domain.Address {
	return domain.Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

// formRules returns the cross-field checks for a Form: the payment method must
// be enabled, billing is needed unless it mirrors shipping, and card payments
// need card details.
func formRules(enabled []domain.PaymentMethod) validator.StructLevelFunc {
	names := make([]string, len(enabled))
	for i, m := range enabled {
		names[i] = string(m)
	}
	oneOf := strings.Join(names, " ")

	return func(sl validator.StructLevel) {
		f := sl.Current().Interface().(Form)

		if f.PaymentMethod != "" && !methodEnabled(enabled, f.PaymentMethod) {
			sl.ReportError(f.PaymentMethod, "payment_method", "PaymentMethod", "oneof", oneOf)
		}
		if !f.billingSameAsShipping() && f.BillingAddress == nil {
			sl.ReportError(f.BillingAddress, "billing_address", "BillingAddress", "required", "")
		}
		if f.PaymentMethod == domain.PaymentCard && f.Card == nil {
			sl.ReportError(f.Card, "card", "Card", "required", "")
		}
		if _, err := domain.ParseShippingTier(string(f.ShippingTier)); err != nil {
			sl.ReportError(f.ShippingTier, "shipping_tier", "ShippingTier", "oneof", "standard express")
		}
	}
}

func methodEnabled(enabled []domain.PaymentMethod, m domain.PaymentMethod) bool {
	for _, e := range enabled {
		if e == m {
			return true
		}
	}
	return false
}
