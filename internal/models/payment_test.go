package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePaymentMethod(t *testing.T) {
	assert.Equal(t, PaymentMethodCreditCard, NormalizePaymentMethod("card"))
	assert.Equal(t, PaymentMethodCreditCard, NormalizePaymentMethod("credit_card"))
	assert.Equal(t, PaymentMethodUPI, NormalizePaymentMethod("upi"))
	assert.Equal(t, "cash", NormalizePaymentMethod("cash"))
}

func TestPaymentDetailsValidateUPI(t *testing.T) {
	details := PaymentDetails{UPI: &UPIDetails{UpiID: "name@bank"}}
	assert.NoError(t, details.Validate(PaymentMethodUPI))

	noSeparator := PaymentDetails{UPI: &UPIDetails{UpiID: "nameBank"}}
	err := noSeparator.Validate(PaymentMethodUPI)
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	missing := PaymentDetails{}
	assert.Error(t, missing.Validate(PaymentMethodUPI))

	bothVariants := PaymentDetails{
		UPI:        &UPIDetails{UpiID: "name@bank"},
		CreditCard: &CreditCardDetails{CardHolder: "A", CardNumber: "4111111111111111", ExpiryDate: "12/30", CVV: "123"},
	}
	assert.Error(t, bothVariants.Validate(PaymentMethodUPI))
}

func TestPaymentDetailsValidateCreditCard(t *testing.T) {
	valid := PaymentDetails{CreditCard: &CreditCardDetails{
		CardHolder: "Jane Roe",
		CardNumber: "4111111111111111",
		ExpiryDate: "12/30",
		CVV:        "123",
	}}
	assert.NoError(t, valid.Validate(PaymentMethodCreditCard))

	shortNumber := PaymentDetails{CreditCard: &CreditCardDetails{
		CardHolder: "Jane Roe",
		CardNumber: "4111",
		ExpiryDate: "12/30",
		CVV:        "123",
	}}
	assert.Error(t, shortNumber.Validate(PaymentMethodCreditCard))

	shortCVV := PaymentDetails{CreditCard: &CreditCardDetails{
		CardHolder: "Jane Roe",
		CardNumber: "4111111111111111",
		ExpiryDate: "12/30",
		CVV:        "1",
	}}
	assert.Error(t, shortCVV.Validate(PaymentMethodCreditCard))

	incomplete := PaymentDetails{CreditCard: &CreditCardDetails{
		CardNumber: "4111111111111111",
	}}
	assert.Error(t, incomplete.Validate(PaymentMethodCreditCard))
}

func TestPaymentDetailsValidateUnknownMethod(t *testing.T) {
	details := PaymentDetails{UPI: &UPIDetails{UpiID: "name@bank"}}
	err := details.Validate("cash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credit card and UPI")
}

func TestPaymentValidate(t *testing.T) {
	payment := Payment{
		Kind:           PaymentKindProperty,
		UserID:         1,
		PropertyID:     9,
		AmountPaid:     decimal.NewFromInt(500),
		PaymentMethod:  PaymentMethodUPI,
		PaymentDetails: PaymentDetails{UPI: &UPIDetails{UpiID: "name@bank"}},
		Status:         PaymentStatusCompleted,
	}
	assert.NoError(t, payment.Validate())

	negative := payment
	negative.AmountPaid = decimal.NewFromInt(-5)
	assert.Error(t, negative.Validate())

	noKind := payment
	noKind.Kind = "unknown"
	assert.Error(t, noKind.Validate())

	missingUser := payment
	missingUser.UserID = 0
	assert.Error(t, missingUser.Validate())
}

func TestIsSettledStatus(t *testing.T) {
	assert.True(t, IsSettledStatus(PaymentStatusCompleted))
	assert.True(t, IsSettledStatus(PaymentStatusPaid))
	assert.False(t, IsSettledStatus("pending"))
}

func TestPaymentDetailsScan(t *testing.T) {
	var details PaymentDetails
	err := details.Scan([]byte(`{"upi":{"upi_id":"name@bank"}}`))
	require.NoError(t, err)
	require.NotNil(t, details.UPI)
	assert.Equal(t, "name@bank", details.UPI.UpiID)
	assert.Nil(t, details.CreditCard)

	err = details.Scan(nil)
	require.NoError(t, err)
	assert.Nil(t, details.UPI)
}
