package startup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecordAndClear(t *testing.T) {
	ledger := NewLedger()
	assert.Nil(t, ledger.Current())

	ledger.Record("mount chain exhausted", "try remounting manually")
	failure := ledger.Current()
	require.NotNil(t, failure)
	assert.Equal(t, "mount chain exhausted", failure.Message)
	assert.Equal(t, "try remounting manually", failure.RemediationHint)
	assert.False(t, failure.OccurredAt.IsZero())

	ledger.Clear()
	assert.Nil(t, ledger.Current())
}

func TestLedgerCurrentReturnsCopy(t *testing.T) {
	ledger := NewLedger()
	ledger.Record("boom", "")

	first := ledger.Current()
	first.Message = "mutated"

	assert.Equal(t, "boom", ledger.Current().Message)
}

func TestDeriveHint(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"no API key configured for provider", hintCredentials},
		{"missing access key for bucket", hintCredentials},
		{"no storage account configured", hintCredentials},
		{"process killed: out of memory", hintMemory},
		{"mmap: cannot allocate memory", hintMemory},
		{"something else entirely", hintGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveHint(tt.message), tt.message)
	}
}
