package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnownSource(t *testing.T) {
	assert.True(t, IsKnownSource(SourceCourseHub))
	assert.True(t, IsKnownSource(SourcePayflow))
	assert.True(t, IsKnownSource(SourceTixbee))
	assert.False(t, IsKnownSource("stripe"))
	assert.False(t, IsKnownSource(""))
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(EventStatusReceived))
	assert.True(t, IsTerminalStatus(EventStatusSuccess))
	assert.True(t, IsTerminalStatus(EventStatusFailed))
	assert.True(t, IsTerminalStatus(EventStatusDuplicate))
	assert.False(t, IsTerminalStatus("weird"))
}

func TestNewPlaceholderContact(t *testing.T) {
	c := NewPlaceholderContact("  Dana.Reyes@Example.ORG  ", " Dana ", " Reyes ")

	assert.Equal(t, "dana.reyes@example.org", c.Email)
	assert.Equal(t, "Dana", c.FirstName)
	assert.Equal(t, "Reyes", c.LastName)
	assert.Equal(t, ContactStatusPlaceholder, c.Status)
	require.NoError(t, c.Validate())
}

func TestContactValidate(t *testing.T) {
	valid := &Contact{Email: "dana@example.org", Status: ContactStatusActive}
	assert.NoError(t, valid.Validate())

	badEmail := &Contact{Email: "not-an-email", Status: ContactStatusActive}
	assert.Error(t, badEmail.Validate())

	badStatus := &Contact{Email: "dana@example.org", Status: "frozen"}
	assert.Error(t, badStatus.Validate())
}

func TestTransactionValidate(t *testing.T) {
	ext := "txn_1"
	valid := &Transaction{
		ContactID:             1,
		SourceSystem:          SourcePayflow,
		ExternalTransactionID: &ext,
		AmountCents:           5000,
		Currency:              "USD",
		TransactionDate:       time.Now(),
		Status:                TransactionStatusCompleted,
		TransactionType:       TransactionTypeDonation,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"unknown source system", func(tx *Transaction) { tx.SourceSystem = "stripe" }},
		{"negative amount", func(tx *Transaction) { tx.AmountCents = -1 }},
		{"bad currency length", func(tx *Transaction) { tx.Currency = "USDX" }},
		{"unknown status", func(tx *Transaction) { tx.Status = "maybe" }},
		{"unknown type", func(tx *Transaction) { tx.TransactionType = "gift" }},
		{"missing contact", func(tx *Transaction) { tx.ContactID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := *valid
			tt.mutate(&tx)
			assert.Error(t, tx.Validate())
		})
	}
}
