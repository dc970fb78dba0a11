package domain

import "github.com/yungbote/gitguide-backend/internal/domain/progression"

const (
	FirstDayNumber = progression.FirstDayNumber
	LastDayNumber  = progression.LastDayNumber
	TotalDayCount  = progression.TotalDayCount

	VerificationProfile    = progression.VerificationProfile
	VerificationRepository = progression.VerificationRepository
	VerificationCommit     = progression.VerificationCommit
)

var (
	ErrTaskOwner         = progression.ErrTaskOwner
	VerificationSequence = progression.VerificationSequence
)

type (
	Project          = progression.Project
	Day              = progression.Day
	Concept          = progression.Concept
	Subconcept       = progression.Subconcept
	Task             = progression.Task
	VerificationKind = progression.VerificationKind
)
