package progression

import "fmt"

// VerificationKind is the closed set of externally checked Day 0 steps.
type VerificationKind string

const (
	VerificationProfile    VerificationKind = "profile"
	VerificationRepository VerificationKind = "repository_creation"
	VerificationCommit     VerificationKind = "commit_verification"
)

// VerificationSequence is the order Day 0 tasks must be verified in.
var VerificationSequence = []VerificationKind{
	VerificationProfile,
	VerificationRepository,
	VerificationCommit,
}

func (k VerificationKind) Valid() bool {
	switch k {
	case VerificationProfile, VerificationRepository, VerificationCommit:
		return true
	default:
		return false
	}
}

func ParseVerificationKind(raw string) (VerificationKind, error) {
	k := VerificationKind(raw)
	if !k.Valid() {
		return "", fmt.Errorf("unknown verification kind %q", raw)
	}
	return k, nil
}

func (k VerificationKind) Ptr() *VerificationKind { return &k }
