package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

func networkRuleStore() *fakeStore {
	s := newFakeStore()
	s.addTech(10, "Principal Red", models.RoleTechnician, true)
	s.addTech(11, "Secundario Red", models.RoleTechnician, true)
	s.addTech(12, "Soporte Red", models.RoleTechnician, true)
	s.rules = []models.AssignmentRule{{
		ID:          7,
		Area:        models.AreaNetwork,
		Priority:    models.PriorityHigh,
		PrincipalID: int64Ptr(10),
		SecondaryID: int64Ptr(11),
		SupportID:   int64Ptr(12),
		MaxLoad:     3,
		Active:      true,
	}}
	return s
}

func newRuleResolver(s *fakeStore) *RuleResolver {
	return &RuleResolver{Rules: s, Directory: NewDirectory(s)}
}

func TestRuleResolverSkipsFullPrincipal(t *testing.T) {
	s := networkRuleStore()
	s.open[10] = 3
	s.open[11] = 1

	res, err := newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityHigh, 0)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, int64(11), res.Match.Technician.ID)
	assert.Equal(t, models.TierSecondary, res.Match.Tier)
	assert.Equal(t, int64(7), res.Match.Rule.ID)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, ReasonSlotAtCapacity, res.Attempts[0].ReasonCode)
	assert.Equal(t, 3, *res.Attempts[0].OpenTickets)
}

func TestRuleResolverNeverExceedsMaxLoad(t *testing.T) {
	s := networkRuleStore()
	s.open[10], s.open[11], s.open[12] = 3, 4, 9

	res, err := newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityHigh, 0)
	require.NoError(t, err)
	assert.Nil(t, res.Match)
	assert.Equal(t, ReasonRuleExhausted, res.ReasonCode)
	assert.Len(t, res.Attempts, 3)
}

func TestRuleResolverSlotStates(t *testing.T) {
	s := networkRuleStore()
	s.rules[0].PrincipalID = nil
	s.addTech(11, "Secundario Red", models.RoleTechnician, false)

	res, err := newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityHigh, 12)
	require.NoError(t, err)
	assert.Nil(t, res.Match)
	codes := []string{}
	for _, a := range res.Attempts {
		codes = append(codes, a.ReasonCode)
	}
	assert.Equal(t, []string{ReasonSlotEmpty, ReasonSlotInactive, ReasonSkippedCurrentOwner}, codes)
}

func TestRuleResolverNoRule(t *testing.T) {
	s := networkRuleStore()

	res, err := newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityLow, 0)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoRule, res.ReasonCode)

	s.rules[0].Active = false
	res, err = newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityHigh, 0)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoRule, res.ReasonCode)
}

func TestRuleResolverPropagatesStoreErrors(t *testing.T) {
	s := networkRuleStore()
	s.ruleErr = errStoreDown
	_, err := newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityHigh, 0)
	assert.ErrorIs(t, err, errStoreDown)

	s.ruleErr = nil
	s.countErr = errStoreDown
	_, err = newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityHigh, 0)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestRuleResolverNewestDuplicateWins(t *testing.T) {
	s := networkRuleStore()
	now := time.Now()
	older := s.rules[0]
	older.ID = 20
	older.CreatedAt = now.Add(-time.Hour)
	newer := s.rules[0]
	newer.ID = 8
	newer.CreatedAt = now
	newer.PrincipalID = int64Ptr(12)
	s.rules = []models.AssignmentRule{older, newer}

	res, err := newRuleResolver(s).Resolve(context.Background(), models.AreaNetwork, models.PriorityHigh, 0)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, int64(8), res.Match.Rule.ID)
	assert.Equal(t, int64(12), res.Match.Technician.ID)
}
