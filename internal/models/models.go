package models

import (
	"encoding/json"
	"time"
)

type Ticket struct {
	ID                   int64           `json:"id"`
	ServiceID            int64           `json:"service_id"`
	RequesterID          int64           `json:"requester_id"`
	Title                string          `json:"title"`
	TechnicalPriority    string          `json:"technical_priority"`
	Priority             PriorityLevel   `json:"priority"`
	TechnicianID         *int64          `json:"technician_id"`
	Status               TicketStatus    `json:"status"`
	IsEscalated          bool            `json:"is_escalated"`
	AssignmentTier       string          `json:"assignment_tier,omitempty"`
	AssignmentRuleID     *int64          `json:"assignment_rule_id,omitempty"`
	AssignmentTag        string          `json:"assignment_tag,omitempty"`
	AssignmentReasonCode string          `json:"assignment_reason_code,omitempty"`
	AssignmentReasonText string          `json:"assignment_reason_text,omitempty"`
	AssignmentReasoning  json.RawMessage `json:"assignment_reasoning,omitempty"`
	AssignedAt           *time.Time      `json:"assigned_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type ServiceCatalogEntry struct {
	ID                     int64  `json:"id"`
	Category               string `json:"category"`
	Subcategory            string `json:"subcategory"`
	TechnicalPriority      string `json:"technical_priority"`
	InitialResponsibleName string `json:"initial_responsible_name,omitempty"`
	EscalationHint         string `json:"escalation_hint,omitempty"`
	TargetResolutionHours  int    `json:"target_resolution_hours"`
	MaxResolutionHours     int    `json:"max_resolution_hours"`
}

// Technician is any staff account that can own tickets. Employees live in the
// same users table but never satisfy IsStaff.
type Technician struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

func (t Technician) IsStaff() bool {
	return t.Role == RoleTechnician || t.Role == RoleAdministrator
}

type TechnicianSpecialty struct {
	TechnicianID int64 `json:"technician_id"`
	Area         Area  `json:"area"`
	Tier         Tier  `json:"tier"`
	Active       bool  `json:"active"`
}

type AssignmentRule struct {
	ID          int64         `json:"id"`
	Area        Area          `json:"area"`
	Priority    PriorityLevel `json:"priority"`
	PrincipalID *int64        `json:"principal_id"`
	SecondaryID *int64        `json:"secondary_id"`
	SupportID   *int64        `json:"support_id"`
	MaxLoad     int           `json:"max_load"`
	Active      bool          `json:"active"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Slots returns the rule's technician slots in walk order. Nil slots are kept
// so callers can report which positions were empty.
func (r AssignmentRule) Slots() []RuleSlot {
	return []RuleSlot{
		{Tier: TierPrincipal, TechnicianID: r.PrincipalID},
		{Tier: TierSecondary, TechnicianID: r.SecondaryID},
		{Tier: TierSupport, TechnicianID: r.SupportID},
	}
}

type RuleSlot struct {
	Tier         Tier
	TechnicianID *int64
}

type Escalation struct {
	ID               int64         `json:"id"`
	TicketID         int64         `json:"ticket_id"`
	FromTechnicianID *int64        `json:"from_technician_id"`
	ToTechnicianID   int64         `json:"to_technician_id"`
	Priority         PriorityLevel `json:"priority"`
	Reason           string        `json:"reason"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Candidate is a technician read together with its live open-ticket count.
type Candidate struct {
	Technician  Technician `json:"technician"`
	Tier        Tier       `json:"tier,omitempty"`
	OpenTickets int        `json:"open_tickets"`
}

type Run struct {
	ID         int64           `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary"`
}

// TicketAssignment is the single write produced from one decision. Store
// implementations apply it atomically, escalation row included.
type TicketAssignment struct {
	TicketID     int64
	TechnicianID *int64
	Priority     PriorityLevel
	Status       TicketStatus
	Tier         string
	RuleID       *int64
	Tag          string
	ReasonCode   string
	ReasonText   string
	Reasoning    []byte
	AssignedAt   time.Time
	Escalated    bool
	Escalation   *Escalation
}
