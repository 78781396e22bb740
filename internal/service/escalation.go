package service

import (
	"context"
	"fmt"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

type EscalationResult struct {
	Candidate *models.Candidate
	IsAdmin   bool
	// ReasonCode is NO_ESCALATION_TARGET when the ladder produced nobody.
	ReasonCode string
	Attempts   []Attempt
}

// EscalationResolver walks principal specialists, then secondary specialists,
// then any administrator. Each rung picks the least loaded candidate.
type EscalationResolver struct {
	Candidates CandidateReader
}

// Resolve finds a new owner for an escalated ticket of the given area and
// priority. The priority does not reorder the ladder; it is recorded on every
// attempt so the decision trace shows what was being escalated.
func (r *EscalationResolver) Resolve(ctx context.Context, area models.Area, level models.PriorityLevel, currentOwnerID int64) (EscalationResult, error) {
	res := EscalationResult{}

	for _, tier := range []models.Tier{models.TierPrincipal, models.TierSecondary} {
		list, err := r.Candidates.SpecialistsByLoad(ctx, area, []models.Tier{tier})
		if err != nil {
			return EscalationResult{}, fmt.Errorf("escalation %s/%s: %w", area, tier, err)
		}
		pick, attempt := pickExcluding(list, currentOwnerID)
		attempt.Stage = "escalation_" + string(tier)
		attempt.Tier = string(tier)
		attempt.Priority = string(level)
		res.Attempts = append(res.Attempts, attempt)
		if pick != nil {
			res.Candidate = pick
			return res, nil
		}
	}

	admins, err := r.Candidates.TechniciansByLoad(ctx, []models.Role{models.RoleAdministrator})
	if err != nil {
		return EscalationResult{}, fmt.Errorf("escalation administrators: %w", err)
	}
	pick, attempt := pickExcluding(admins, currentOwnerID)
	attempt.Stage = "escalation_administrator"
	attempt.Priority = string(level)
	res.Attempts = append(res.Attempts, attempt)
	if pick != nil {
		res.Candidate = pick
		res.IsAdmin = true
		return res, nil
	}

	res.ReasonCode = ReasonNoEscalationTarget
	return res, nil
}

// pickExcluding takes the first candidate of an already ordered list whose id
// differs from excludeID. The attempt records whether the excluded owner was
// the reason the list came up empty.
func pickExcluding(list []models.Candidate, excludeID int64) (*models.Candidate, Attempt) {
	attempt := Attempt{Candidates: intPtr(len(list))}
	skipped := false
	for i := range list {
		if excludeID != 0 && list[i].Technician.ID == excludeID {
			skipped = true
			continue
		}
		c := list[i]
		attempt.TechnicianID = c.Technician.ID
		attempt.OpenTickets = intPtr(c.OpenTickets)
		attempt.ReasonCode = ReasonPicked
		return &c, attempt
	}
	if skipped {
		attempt.ReasonCode = ReasonSkippedCurrentOwner
	} else {
		attempt.ReasonCode = ReasonTierEmpty
	}
	return nil, attempt
}
