// internal/app/policy/governancepolicy/governancepolicy.go
package governancepolicy

import (
	"github.com/dalemusser/civic/internal/domain/models"
)

const (
	// BootstrapMaxMembers is the largest group that still skips formal voting.
	BootstrapMaxMembers = 3

	// MinManagers is the manager count a non-bootstrap group must keep
	// (the founder counts as a manager).
	MinManagers = 2

	// RuleStep is the rule compliance penalty per unmet rule.
	RuleStep = 25

	// DefaultParticipationFloor is the participation rate (percent) below
	// which a group is flagged as low participation.
	DefaultParticipationFloor = 50
)

// RequiredVotes returns the quorum for a decision taken by managerCount
// managers: ceil(managerCount / 2), never less than one.
func RequiredVotes(managerCount int) int {
	n := (managerCount + 1) / 2
	if n < 1 {
		return 1
	}
	return n
}

// IsBootstrap reports whether a group of totalMembers is small enough to
// resolve decisions without a quorum.
func IsBootstrap(totalMembers int) bool {
	return totalMembers <= BootstrapMaxMembers
}

// Violation reports whether the group breaks the minimum manager rule.
func Violation(c models.RoleCounts) bool {
	return !IsBootstrap(c.Total()) && c.Managers() < MinManagers
}

// ComplianceStatus labels the manager-count posture of a group.
func ComplianceStatus(c models.RoleCounts) string {
	if Violation(c) {
		return models.ComplianceAtRisk
	}
	if c.Managers() == MinManagers && c.Total() > 5 {
		return models.ComplianceWarning
	}
	return models.ComplianceHealthy
}

// AddsManager reports whether approving the action raises the manager count.
// These are the only proposals allowed while the group is in violation.
func AddsManager(a models.ActionType) bool {
	return a == models.ActionPromote || a == models.ActionRevertDemotion
}

// Outcome is the result of a quorum check.
type Outcome int

const (
	Undecided Outcome = iota
	Approved
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	}
	return "undecided"
}

// Decide applies the majority rule after a vote. eligible is the number of
// managers allowed to vote on the decision. A decision is rejected as soon as
// the ballots still outstanding can no longer lift approve to required.
func Decide(approve, reject, eligible, required int) Outcome {
	if approve >= required {
		return Approved
	}
	remaining := eligible - approve - reject
	if remaining < 0 {
		remaining = 0
	}
	if approve+remaining < required {
		return Rejected
	}
	return Undecided
}

// HealthInput is the raw material for a health snapshot.
type HealthInput struct {
	Counts models.RoleCounts

	// ResolvedProposals is the number of proposals resolved in the trailing
	// participation window.
	ResolvedProposals int

	// ParticipatingManagers is the number of distinct current managers who
	// voted on at least one of those proposals.
	ParticipatingManagers int

	// PendingDecisions counts active proposals plus open join requests.
	PendingDecisions int

	// ParticipationFloor overrides DefaultParticipationFloor when > 0.
	ParticipationFloor int
}

// ParticipationRate returns the 0-100 vote participation rate.
func ParticipationRate(in HealthInput) int {
	managers := in.Counts.Managers()
	if in.ResolvedProposals == 0 || managers == 0 {
		return 100
	}
	rate := in.ParticipatingManagers * 100 / managers
	if rate > 100 {
		return 100
	}
	return rate
}

// Evaluate derives the governance health snapshot. It has no side effects.
func Evaluate(in HealthInput) models.HealthSnapshot {
	floor := in.ParticipationFloor
	if floor <= 0 {
		floor = DefaultParticipationFloor
	}

	c := in.Counts
	compliance := ComplianceStatus(c)
	participation := ParticipationRate(in)

	unmet := 0
	switch compliance {
	case models.ComplianceAtRisk:
		unmet++
	case models.ComplianceWarning:
		unmet++
	}
	lowParticipation := participation < floor
	if lowParticipation {
		unmet++
	}

	score := 100 - RuleStep*unmet
	if score < 0 {
		score = 0
	}

	status := models.HealthHealthy
	switch {
	case compliance != models.ComplianceHealthy:
		status = models.HealthCentralizationRisk
	case lowParticipation:
		status = models.HealthLowParticipation
	}

	return models.HealthSnapshot{
		ManagerCount:          c.Managers(),
		MemberCount:           c.Member,
		TotalMembers:          c.Total(),
		IsBootstrap:           IsBootstrap(c.Total()),
		GovernanceViolation:   Violation(c),
		ComplianceStatus:      compliance,
		VoteParticipationRate: participation,
		RuleCompliance:        score,
		PendingDecisions:      in.PendingDecisions,
		Status:                status,
	}
}
