// Package wallet validates blockchain payment input: address format and
// EIP-55 checksums, transaction reference shape, and the read-only link
// between a user and their wallet address. Linking itself happens elsewhere;
// this package only consumes the recorded fact.
package wallet

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	ErrInvalidAddress     = errors.New("invalid wallet address")
	ErrChecksumMismatch   = errors.New("wallet address fails checksum validation")
	ErrInvalidTxReference = errors.New("invalid transaction reference")
	ErrNoLinkedWallet     = errors.New("no wallet linked to user")
)

var txReferencePattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// NormalizeAddress validates s as a hex address and returns its EIP-55
// checksummed form. Mixed-case input must already carry a correct checksum;
// all-lowercase and all-uppercase input is accepted and checksummed.
func NormalizeAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}

	checksummed := common.HexToAddress(s).Hex()

	hexPart := strings.TrimPrefix(s, "0x")
	hexPart = strings.TrimPrefix(hexPart, "0X")
	if hasMixedCase(hexPart) && "0x"+hexPart != checksummed {
		return "", ErrChecksumMismatch
	}

	return checksummed, nil
}

// ValidateTxReference checks that s looks like a 32-byte transaction hash.
// This is structural validation only: it proves nothing about the transaction
// existing on-chain or paying the right amount to the right recipient.
func ValidateTxReference(s string) error {
	if !txReferencePattern.MatchString(s) {
		return ErrInvalidTxReference
	}
	return nil
}

func hasMixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'F':
			hasUpper = true
		case r >= 'a' && r <= 'f':
			hasLower = true
		}
	}
	return hasUpper && hasLower
}

// LinkedWalletSource reads the wallet address previously linked to a user.
type LinkedWalletSource interface {
	// LinkedAddress returns the checksummed address linked to the user.
	// Returns ErrNoLinkedWallet if the user has not linked a wallet.
	LinkedAddress(ctx context.Context, userID uuid.UUID) (string, error)
}
