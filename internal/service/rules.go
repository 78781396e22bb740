package service

import (
	"context"
	"fmt"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

type RuleMatch struct {
	Technician  models.Technician
	Tier        models.Tier
	Rule        models.AssignmentRule
	OpenTickets int
}

// RuleResult carries either a match or the reason the rule path gave up
// (NO_RULE or RULE_EXHAUSTED).
type RuleResult struct {
	Match      *RuleMatch
	ReasonCode string
	Attempts   []Attempt
}

type RuleResolver struct {
	Rules     RuleReader
	Directory *Directory
}

// Resolve walks the principal, secondary and support slots of the active rule
// for the pair and returns the first active technician under the rule's load
// cap. excludeID, when non-zero, is never selected.
func (r *RuleResolver) Resolve(ctx context.Context, area models.Area, level models.PriorityLevel, excludeID int64) (RuleResult, error) {
	rule, err := r.Rules.ActiveRule(ctx, area, level)
	if err != nil {
		return RuleResult{}, fmt.Errorf("load rule %s/%s: %w", area, level, err)
	}
	if rule == nil {
		return RuleResult{
			ReasonCode: ReasonNoRule,
			Attempts:   []Attempt{{Stage: "rule_lookup", ReasonCode: ReasonNoRule}},
		}, nil
	}

	res := RuleResult{}
	for _, slot := range rule.Slots() {
		if slot.TechnicianID == nil {
			res.Attempts = append(res.Attempts, Attempt{Stage: "rule_slot", Tier: string(slot.Tier), ReasonCode: ReasonSlotEmpty})
			continue
		}
		id := *slot.TechnicianID
		if excludeID != 0 && id == excludeID {
			res.Attempts = append(res.Attempts, Attempt{Stage: "rule_slot", Tier: string(slot.Tier), TechnicianID: id, ReasonCode: ReasonSkippedCurrentOwner})
			continue
		}
		tech, err := r.Directory.GetActiveTechnicianByID(ctx, id)
		if err != nil {
			return RuleResult{}, err
		}
		if tech == nil {
			res.Attempts = append(res.Attempts, Attempt{Stage: "rule_slot", Tier: string(slot.Tier), TechnicianID: id, ReasonCode: ReasonSlotInactive})
			continue
		}
		ok, load, err := r.Directory.IsAvailable(ctx, id, rule.MaxLoad)
		if err != nil {
			return RuleResult{}, err
		}
		if !ok {
			res.Attempts = append(res.Attempts, Attempt{Stage: "rule_slot", Tier: string(slot.Tier), TechnicianID: id, OpenTickets: intPtr(load), ReasonCode: ReasonSlotAtCapacity})
			continue
		}
		res.Attempts = append(res.Attempts, Attempt{Stage: "rule_slot", Tier: string(slot.Tier), TechnicianID: id, OpenTickets: intPtr(load), ReasonCode: ReasonAssignedRule})
		res.Match = &RuleMatch{Technician: *tech, Tier: slot.Tier, Rule: *rule, OpenTickets: load}
		return res, nil
	}

	res.ReasonCode = ReasonRuleExhausted
	return res, nil
}
