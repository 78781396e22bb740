package service

import (
	"context"
	"time"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

// TechnicianReader is the directory's view of the store. TechnicianByID
// returns nil without error when no such user exists.
type TechnicianReader interface {
	TechnicianByID(ctx context.Context, id int64) (*models.Technician, error)
	SearchTechnicians(ctx context.Context, term string, firstToken string) ([]models.Technician, error)
	CountOpenTickets(ctx context.Context, technicianID int64) (int, error)
}

// RuleReader returns the newest active rule for the pair, or nil.
type RuleReader interface {
	ActiveRule(ctx context.Context, area models.Area, level models.PriorityLevel) (*models.AssignmentRule, error)
}

// CandidateReader lists technicians with their live load. Both methods return
// active staff only, ordered by tier rank, then open tickets, then id.
type CandidateReader interface {
	SpecialistsByLoad(ctx context.Context, area models.Area, tiers []models.Tier) ([]models.Candidate, error)
	TechniciansByLoad(ctx context.Context, roles []models.Role) ([]models.Candidate, error)
}

type RequesterReader interface {
	OrganizationalRole(ctx context.Context, userID int64) (models.Role, error)
}

// Recorder receives one observation per finished decision.
type Recorder interface {
	ObserveDecision(mode string, path string, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDecision(string, string, string, time.Duration) {}
