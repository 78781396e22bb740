package models

type Area string

const (
	AreaInternet         Area = "INTERNET"
	AreaTelephonyIP      Area = "TELEPHONY_IP"
	AreaComputeEquipment Area = "COMPUTE_EQUIPMENT"
	AreaEmail            Area = "EMAIL"
	AreaSoftware         Area = "SOFTWARE"
	AreaNetwork          Area = "NETWORK"
	AreaGeneral          Area = "GENERAL"
)

var Areas = []Area{
	AreaInternet,
	AreaTelephonyIP,
	AreaComputeEquipment,
	AreaEmail,
	AreaSoftware,
	AreaNetwork,
	AreaGeneral,
}

func (a Area) Valid() bool {
	for _, v := range Areas {
		if v == a {
			return true
		}
	}
	return false
}

type Tier string

const (
	TierPrincipal Tier = "principal"
	TierSecondary Tier = "secondary"
	TierSupport   Tier = "support"
)

// Rank orders tiers from most to least expert. Unknown tiers sort last.
func (t Tier) Rank() int {
	switch t {
	case TierPrincipal:
		return 1
	case TierSecondary:
		return 2
	case TierSupport:
		return 3
	default:
		return 4
	}
}

type PriorityLevel string

const (
	PriorityCritical PriorityLevel = "critica"
	PriorityHigh     PriorityLevel = "alta"
	PriorityMedium   PriorityLevel = "media"
	PriorityLow      PriorityLevel = "baja"
)

type Role string

const (
	RoleAdministrator Role = "administrador"
	RoleTechnician    Role = "tecnico"
	RoleEmployee      Role = "empleado"
)

type TicketStatus string

const (
	StatusOpen              TicketStatus = "open"
	StatusInProgress        TicketStatus = "in_progress"
	StatusPending           TicketStatus = "pending"
	StatusPendingAssignment TicketStatus = "pending_assignment"
	StatusResolved          TicketStatus = "resolved"
	StatusClosed            TicketStatus = "closed"
)

// OpenStatuses is the set counted as a technician's live load.
var OpenStatuses = []TicketStatus{StatusOpen, StatusInProgress, StatusPending}
