package service

import "github.com/helpdesk-dispatch/backend/internal/models"

const (
	ReasonAssignedSpecialCase      = "ASSIGNED_SPECIAL_CASE"
	ReasonAssignedEscalation       = "ASSIGNED_ESCALATION"
	ReasonAssignedEscalationAdmin  = "ASSIGNED_ESCALATION_ADMIN"
	ReasonAssignedRule             = "ASSIGNED_RULE"
	ReasonAssignedFallbackSpecial  = "ASSIGNED_FALLBACK_SPECIALIST"
	ReasonAssignedFallbackGeneric  = "ASSIGNED_FALLBACK_GENERIC"
	ReasonAssignedCatalog          = "ASSIGNED_CATALOG"
	ReasonSpecialCaseUnavailable   = "SPECIAL_CASE_UNAVAILABLE"
	ReasonNoRule                   = "NO_RULE"
	ReasonRuleExhausted            = "RULE_EXHAUSTED"
	ReasonNoEscalationTarget       = "NO_ESCALATION_TARGET"
	ReasonNoTechnicianAvailable    = "NO_TECHNICIAN_AVAILABLE"
	ReasonNoResponsibleDeclared    = "NO_RESPONSIBLE_DECLARED"
	ReasonResponsibleNotFound      = "RESPONSIBLE_NOT_FOUND"
	ReasonResponsibleInactive      = "RESPONSIBLE_INACTIVE"
	ReasonSkippedCurrentOwner      = "SKIPPED_CURRENT_OWNER"
	ReasonSlotEmpty                = "SLOT_EMPTY"
	ReasonSlotInactive             = "SLOT_INACTIVE"
	ReasonSlotAtCapacity           = "SLOT_AT_CAPACITY"
	ReasonTierEmpty                = "TIER_EMPTY"
	ReasonPicked                   = "PICKED"
	ReasonLoadCheckFailedAssigned  = "LOAD_CHECK_FAILED_ASSIGNED"
	ReasonResponsibleOverCapacity  = "RESPONSIBLE_OVER_CAPACITY"
	ReasonRequesterRoleUnavailable = "REQUESTER_ROLE_UNAVAILABLE"
)

// Path tags name the resolution path that produced a decision. They are
// persisted as the ticket's assignment tag.
const (
	PathSpecialCase = "special"
	PathEscalation  = "escalation"
	PathRule        = "rule"
	PathFallback    = "fallback"
	PathCatalog     = "catalog"
	PathNone        = "none"
)

const (
	ModeRules   = "rules"
	ModeCatalog = "catalog"
	ModeAuto    = "auto"
)

// Attempt is one step of the decision trail kept for operators.
type Attempt struct {
	Stage        string `json:"stage"`
	Tier         string `json:"tier,omitempty"`
	Priority     string `json:"priority,omitempty"`
	TechnicianID int64  `json:"technician_id,omitempty"`
	OpenTickets  *int   `json:"open_tickets,omitempty"`
	Candidates   *int   `json:"candidates,omitempty"`
	ReasonCode   string `json:"reason_code"`
}

type Decision struct {
	TechnicianID      int64         `json:"technician_id"`
	TechnicianName    string        `json:"technician_name"`
	TechnicianEmail   string        `json:"technician_email,omitempty"`
	Area              models.Area   `json:"area"`
	Tier              models.Tier   `json:"tier,omitempty"`
	Priority          PriorityScore `json:"priority"`
	RuleID            *int64        `json:"rule_id,omitempty"`
	Path              string        `json:"path"`
	IsFallback        bool          `json:"is_fallback"`
	IsEscalation      bool          `json:"is_escalation"`
	IsAdminEscalation bool          `json:"is_admin_escalation"`
	IsSpecialCase     bool          `json:"is_special_case"`
}

// Outcome is the engine's answer for one ticket. When Assigned is false the
// ticket stays pending manual assignment and ReasonCode says why.
type Outcome struct {
	TicketID   int64         `json:"ticket_id"`
	Mode       string        `json:"mode"`
	Assigned   bool          `json:"assigned"`
	Decision   *Decision     `json:"decision,omitempty"`
	Area       models.Area   `json:"area"`
	Priority   PriorityScore `json:"priority"`
	ReasonCode string        `json:"reason_code"`
	ReasonText string        `json:"reason_text"`
	Attempts   []Attempt     `json:"attempts"`
}

func (o Outcome) Path() string {
	if o.Decision == nil {
		return PathNone
	}
	return o.Decision.Path
}

func (o Outcome) Result() string {
	if o.Assigned {
		return "assigned"
	}
	return "unassigned"
}

func intPtr(v int) *int {
	return &v
}
