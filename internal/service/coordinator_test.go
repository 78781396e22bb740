package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

func newTestCoordinator(s *fakeStore, rec *fakeRecorder) *Coordinator {
	cfg := DefaultCoordinatorConfig()
	cfg.SpecialistName = "Carla Ruiz"
	cfg.SpecialistMaxLoad = 5
	return NewCoordinator(Dependencies{
		Technicians: s,
		Rules:       s,
		Candidates:  s,
		Requesters:  s,
		Logger:      zerolog.Nop(),
		Recorder:    rec,
	}, cfg)
}

func telephonyStore() *fakeStore {
	s := newFakeStore()
	s.addTech(1, "Carla Ruiz", models.RoleTechnician, true)
	s.addTech(2, "Pedro Voz", models.RoleTechnician, true)
	s.addSpecialty(2, models.AreaTelephonyIP, models.TierPrincipal)
	s.roles[100] = models.RoleEmployee
	s.rules = []models.AssignmentRule{{
		ID: 3, Area: models.AreaTelephonyIP, Priority: models.PriorityLow,
		PrincipalID: int64Ptr(2), MaxLoad: 5, Active: true,
	}}
	return s
}

func TestAssignSpecialCaseRunsBeforeRules(t *testing.T) {
	s := telephonyStore()
	rec := &fakeRecorder{}

	out, err := newTestCoordinator(s, rec).Assign(context.Background(), TicketRequest{
		TicketID: 1, RequesterID: 100, Category: "Telefonía IP no funciona", TechnicalPriority: "alta",
	})
	require.NoError(t, err)
	require.True(t, out.Assigned)
	assert.Equal(t, models.AreaTelephonyIP, out.Area)
	assert.Equal(t, int64(1), out.Decision.TechnicianID)
	assert.True(t, out.Decision.IsSpecialCase)
	assert.Equal(t, PathSpecialCase, out.Decision.Path)
	assert.Equal(t, ReasonAssignedSpecialCase, out.ReasonCode)
	assert.Equal(t, 0, s.ruleCalls, "rule lookup must not run when the special case assigns")
	assert.Equal(t, []recordedDecision{{ModeRules, PathSpecialCase, "assigned"}}, rec.decisions)
}

func TestAssignSpecialCaseAtCapacityFallsThroughToRule(t *testing.T) {
	s := telephonyStore()
	s.open[1] = 5

	out, err := newTestCoordinator(s, &fakeRecorder{}).Assign(context.Background(), TicketRequest{
		TicketID: 1, RequesterID: 100, Category: "Telefonía IP", TechnicalPriority: "alta",
	})
	require.NoError(t, err)
	require.True(t, out.Assigned)
	assert.Equal(t, int64(2), out.Decision.TechnicianID)
	assert.Equal(t, PathRule, out.Decision.Path)
	require.NotNil(t, out.Decision.RuleID)
	assert.Equal(t, int64(3), *out.Decision.RuleID)
	assert.Equal(t, ReasonSpecialCaseUnavailable, out.Attempts[0].ReasonCode)
}

func TestAssignRuleSecondaryWhenPrincipalFull(t *testing.T) {
	s := networkRuleStore()
	s.roles[100] = models.RoleTechnician
	s.open[10] = 3

	// tecnico + alta => 2.7 => alta
	out, err := newTestCoordinator(s, &fakeRecorder{}).Assign(context.Background(), TicketRequest{
		TicketID: 9, RequesterID: 100, Category: "Red caída", TechnicalPriority: "alta",
	})
	require.NoError(t, err)
	require.True(t, out.Assigned)
	assert.Equal(t, models.PriorityHigh, out.Priority.Level)
	assert.Equal(t, int64(11), out.Decision.TechnicianID)
	assert.Equal(t, models.TierSecondary, out.Decision.Tier)
	require.NotNil(t, out.Decision.RuleID)
	assert.Equal(t, int64(7), *out.Decision.RuleID)
}

func TestAssignFallbackGenericClearsTier(t *testing.T) {
	s := newFakeStore()
	s.addTech(4, "Generico", models.RoleTechnician, true)

	out, err := newTestCoordinator(s, &fakeRecorder{}).Assign(context.Background(), TicketRequest{
		TicketID: 2, Category: "Otra cosa", TechnicalPriority: "media",
	})
	require.NoError(t, err)
	require.True(t, out.Assigned)
	assert.Equal(t, ReasonAssignedFallbackGeneric, out.ReasonCode)
	assert.True(t, out.Decision.IsFallback)
	assert.Equal(t, models.Tier(""), out.Decision.Tier)
}

func TestAssignUnassignedWhenNobodyExists(t *testing.T) {
	rec := &fakeRecorder{}
	out, err := newTestCoordinator(newFakeStore(), rec).Assign(context.Background(), TicketRequest{
		TicketID: 2, Category: "Otra cosa", TechnicalPriority: "media",
	})
	require.NoError(t, err)
	assert.False(t, out.Assigned)
	assert.Nil(t, out.Decision)
	assert.Equal(t, ReasonNoTechnicianAvailable, out.ReasonCode)
	assert.Equal(t, PathNone, out.Path())
	assert.Equal(t, "unassigned", rec.decisions[0].outcome)
}

func TestAssignEscalationSkipsOwner(t *testing.T) {
	s := newFakeStore()
	s.addTech(1, "Xavier", models.RoleTechnician, true)
	s.addTech(2, "Yolanda", models.RoleTechnician, true)
	s.addSpecialty(1, models.AreaNetwork, models.TierPrincipal)
	s.addSpecialty(2, models.AreaNetwork, models.TierSecondary)

	out, err := newTestCoordinator(s, &fakeRecorder{}).Assign(context.Background(), TicketRequest{
		TicketID: 5, Category: "VPN", TechnicalPriority: "alta", IsEscalated: true, CurrentTechnicianID: 1,
	})
	require.NoError(t, err)
	require.True(t, out.Assigned)
	assert.Equal(t, int64(2), out.Decision.TechnicianID)
	assert.True(t, out.Decision.IsEscalation)
	assert.Equal(t, ReasonAssignedEscalation, out.ReasonCode)
	for _, a := range out.Attempts {
		if a.Stage == "escalation_principal" {
			assert.Equal(t, string(out.Priority.Level), a.Priority)
		}
	}
}

func TestAssignEscalationWithoutTargetNeverPicksOwner(t *testing.T) {
	s := newFakeStore()
	s.addTech(1, "Xavier", models.RoleTechnician, true)
	s.addSpecialty(1, models.AreaNetwork, models.TierPrincipal)

	out, err := newTestCoordinator(s, &fakeRecorder{}).Assign(context.Background(), TicketRequest{
		TicketID: 5, Category: "VPN", TechnicalPriority: "alta", IsEscalated: true, CurrentTechnicianID: 1,
	})
	require.NoError(t, err)
	assert.False(t, out.Assigned)
	assert.Contains(t, out.ReasonText, "escalation")
}

func TestAssignRequesterRoleFailureUsesDefaultPriority(t *testing.T) {
	s := newFakeStore()
	s.addTech(4, "Generico", models.RoleTechnician, true)
	s.roleErr = errStoreDown

	out, err := newTestCoordinator(s, &fakeRecorder{}).Assign(context.Background(), TicketRequest{
		TicketID: 2, RequesterID: 100, Category: "Otra cosa", TechnicalPriority: "critica",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority.Level, out.Priority.Level)
	assert.Equal(t, ReasonRequesterRoleUnavailable, out.Attempts[0].ReasonCode)
}

func TestAssignPropagatesInfrastructureErrors(t *testing.T) {
	s := networkRuleStore()
	s.ruleErr = errStoreDown

	_, err := newTestCoordinator(s, &fakeRecorder{}).Assign(context.Background(), TicketRequest{
		TicketID: 9, Category: "Red", TechnicalPriority: "alta",
	})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestAssignFromCatalogHasNoFallback(t *testing.T) {
	s := newFakeStore()
	s.addTech(4, "Generico", models.RoleTechnician, true)

	out, err := newTestCoordinator(s, &fakeRecorder{}).AssignFromCatalog(context.Background(), TicketRequest{
		TicketID: 2, Category: "Correo", TechnicalPriority: "media", InitialResponsibleName: "JUAN PEREZ",
	})
	require.NoError(t, err)
	assert.False(t, out.Assigned)
	assert.Equal(t, ReasonResponsibleNotFound, out.ReasonCode)
	assert.Equal(t, ModeCatalog, out.Mode)
}
