// internal/domain/models/health.go
package models

// Compliance labels shown to managers.
const (
	ComplianceHealthy = "Healthy"
	ComplianceWarning = "Warning"
	ComplianceAtRisk  = "At Risk"
)

// HealthStatus summarises a group's governance posture.
type HealthStatus string

const (
	HealthHealthy            HealthStatus = "healthy"
	HealthLowParticipation   HealthStatus = "low_participation"
	HealthCentralizationRisk HealthStatus = "centralization_risk"
)

// HealthSnapshot is derived on demand from the membership registry and recent
// proposal/join request history. It is never persisted.
type HealthSnapshot struct {
	ManagerCount          int          `json:"manager_count"`
	MemberCount           int          `json:"member_count"`
	TotalMembers          int          `json:"total_members"`
	IsBootstrap           bool         `json:"is_bootstrap"`
	GovernanceViolation   bool         `json:"governance_violation"`
	ComplianceStatus      string       `json:"compliance_status"`
	VoteParticipationRate int          `json:"vote_participation_rate"`
	RuleCompliance        int          `json:"rule_compliance"`
	PendingDecisions      int          `json:"pending_decisions"`
	Status                HealthStatus `json:"status"`
}
