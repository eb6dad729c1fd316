package domain

import (
	"fmt"
	"strings"
)

// Commitment is the confirmation level requested from the RPC node.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// DefaultCommitment is used when a caller does not pick one.
const DefaultCommitment = CommitmentConfirmed

// ParseCommitment maps a case-insensitive name to a Commitment.
// An empty string yields DefaultCommitment.
func ParseCommitment(s string) (Commitment, error) {
	switch c := Commitment(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return DefaultCommitment, nil
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return c, nil
	default:
		return "", fmt.Errorf("unknown commitment %q", s)
	}
}
