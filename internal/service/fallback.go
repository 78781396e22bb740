package service

import (
	"context"
	"fmt"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

type FallbackResult struct {
	Candidate *models.Candidate
	// Generic is set when the pick came from the area-agnostic technician pool.
	Generic    bool
	ReasonCode string
	Attempts   []Attempt
}

var allTiers = []models.Tier{models.TierPrincipal, models.TierSecondary, models.TierSupport}

type FallbackResolver struct {
	Candidates CandidateReader
}

// Resolve picks any specialist of the area by tier then load, and otherwise
// the least loaded plain technician. Administrators are not part of the
// generic pool.
func (r *FallbackResolver) Resolve(ctx context.Context, area models.Area, excludeID int64) (FallbackResult, error) {
	res := FallbackResult{}

	specialists, err := r.Candidates.SpecialistsByLoad(ctx, area, allTiers)
	if err != nil {
		return FallbackResult{}, fmt.Errorf("fallback specialists %s: %w", area, err)
	}
	pick, attempt := pickExcluding(specialists, excludeID)
	attempt.Stage = "fallback_specialist"
	if pick != nil {
		attempt.Tier = string(pick.Tier)
	}
	res.Attempts = append(res.Attempts, attempt)
	if pick != nil {
		res.Candidate = pick
		return res, nil
	}

	generic, err := r.Candidates.TechniciansByLoad(ctx, []models.Role{models.RoleTechnician})
	if err != nil {
		return FallbackResult{}, fmt.Errorf("fallback technicians: %w", err)
	}
	pick, attempt = pickExcluding(generic, excludeID)
	attempt.Stage = "fallback_generic"
	res.Attempts = append(res.Attempts, attempt)
	if pick != nil {
		res.Candidate = pick
		res.Generic = true
		return res, nil
	}

	res.ReasonCode = ReasonNoTechnicianAvailable
	return res, nil
}
