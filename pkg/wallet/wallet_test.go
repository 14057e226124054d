package wallet_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/backend/pkg/wallet"
)

// Checksummed form taken from the EIP-55 reference vectors.
const checksummedAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestNormalizeAddress(t *testing.T) {
	t.Run("lowercase input is checksummed", func(t *testing.T) {
		got, err := wallet.NormalizeAddress(strings.ToLower(checksummedAddr))
		require.NoError(t, err)
		assert.Equal(t, checksummedAddr, got)
	})

	t.Run("correct checksum passes through", func(t *testing.T) {
		got, err := wallet.NormalizeAddress(checksummedAddr)
		require.NoError(t, err)
		assert.Equal(t, checksummedAddr, got)
	})

	t.Run("broken checksum is rejected", func(t *testing.T) {
		broken := strings.Replace(checksummedAddr, "aA", "Aa", 1)
		_, err := wallet.NormalizeAddress(broken)
		require.ErrorIs(t, err, wallet.ErrChecksumMismatch)
	})

	t.Run("malformed input is rejected", func(t *testing.T) {
		for _, input := range []string{
			"",
			"0x123",
			"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed00", // missing 0x, wrong length
			"0xZZZeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		} {
			_, err := wallet.NormalizeAddress(input)
			assert.ErrorIs(t, err, wallet.ErrInvalidAddress, "input %q", input)
		}
	})
}

func TestValidateTxReference(t *testing.T) {
	valid := "0x" + strings.Repeat("ab12", 16)
	require.NoError(t, wallet.ValidateTxReference(valid))

	for _, input := range []string{
		"",
		"abcd",
		"0x" + strings.Repeat("ab", 31),  // too short
		"0x" + strings.Repeat("ab", 33),  // too long
		strings.Repeat("ab12", 16),       // missing 0x
		"0x" + strings.Repeat("zz12", 16), // non-hex
	} {
		assert.ErrorIs(t, wallet.ValidateTxReference(input), wallet.ErrInvalidTxReference, "input %q", input)
	}
}
