package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory stand-in for db.Store covering every read port
// and the ticket store.
type fakeStore struct {
	techs       map[int64]models.Technician
	open        map[int64]int
	specialties []models.TechnicianSpecialty
	rules       []models.AssignmentRule
	roles       map[int64]models.Role

	tickets map[int64]models.Ticket
	entries map[int64]models.ServiceCatalogEntry
	applied []models.TicketAssignment

	countErr   error
	ruleErr    error
	roleErr    error
	ticketErrs map[int64]error
	ruleCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		techs:      map[int64]models.Technician{},
		open:       map[int64]int{},
		roles:      map[int64]models.Role{},
		tickets:    map[int64]models.Ticket{},
		entries:    map[int64]models.ServiceCatalogEntry{},
		ticketErrs: map[int64]error{},
	}
}

func (f *fakeStore) addTech(id int64, name string, role models.Role, active bool) {
	f.techs[id] = models.Technician{ID: id, Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com", Role: role, Active: active}
}

func (f *fakeStore) addSpecialty(id int64, area models.Area, tier models.Tier) {
	f.specialties = append(f.specialties, models.TechnicianSpecialty{TechnicianID: id, Area: area, Tier: tier, Active: true})
}

func (f *fakeStore) TechnicianByID(_ context.Context, id int64) (*models.Technician, error) {
	t, ok := f.techs[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) SearchTechnicians(_ context.Context, term string, first string) ([]models.Technician, error) {
	var out []models.Technician
	for _, t := range f.techs {
		name := NormalizeName(t.Name)
		if strings.Contains(name, term) || (first != "" && strings.Contains(name, first)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CountOpenTickets(_ context.Context, id int64) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.open[id], nil
}

func (f *fakeStore) ActiveRule(_ context.Context, area models.Area, level models.PriorityLevel) (*models.AssignmentRule, error) {
	f.ruleCalls++
	if f.ruleErr != nil {
		return nil, f.ruleErr
	}
	var best *models.AssignmentRule
	for i := range f.rules {
		r := f.rules[i]
		if !r.Active || r.Area != area || r.Priority != level {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) || (r.CreatedAt.Equal(best.CreatedAt) && r.ID > best.ID) {
			best = &r
		}
	}
	return best, nil
}

func (f *fakeStore) SpecialistsByLoad(_ context.Context, area models.Area, tiers []models.Tier) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, s := range f.specialties {
		t, ok := f.techs[s.TechnicianID]
		if !s.Active || s.Area != area || !ok || !t.Active || !t.IsStaff() || !containsTier(tiers, s.Tier) {
			continue
		}
		out = append(out, models.Candidate{Technician: t, Tier: s.Tier, OpenTickets: f.open[t.ID]})
	}
	sortCandidates(out)
	return out, nil
}

func (f *fakeStore) TechniciansByLoad(_ context.Context, roles []models.Role) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, t := range f.techs {
		if !t.Active || !containsRole(roles, t.Role) {
			continue
		}
		out = append(out, models.Candidate{Technician: t, OpenTickets: f.open[t.ID]})
	}
	sortCandidates(out)
	return out, nil
}

func (f *fakeStore) OrganizationalRole(_ context.Context, userID int64) (models.Role, error) {
	if f.roleErr != nil {
		return "", f.roleErr
	}
	return f.roles[userID], nil
}

func (f *fakeStore) GetTicket(_ context.Context, id int64) (models.Ticket, error) {
	if err := f.ticketErrs[id]; err != nil {
		return models.Ticket{}, err
	}
	t, ok := f.tickets[id]
	if !ok {
		return models.Ticket{}, errors.New("not found")
	}
	return t, nil
}

func (f *fakeStore) GetServiceEntry(_ context.Context, id int64) (models.ServiceCatalogEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return models.ServiceCatalogEntry{}, errors.New("not found")
	}
	return e, nil
}

func (f *fakeStore) ListPendingTickets(context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.TechnicianID == nil && t.Status != models.StatusClosed && t.Status != models.StatusResolved {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ApplyAssignment(_ context.Context, a models.TicketAssignment) error {
	f.applied = append(f.applied, a)
	t := f.tickets[a.TicketID]
	t.TechnicianID = a.TechnicianID
	t.Status = a.Status
	t.Priority = a.Priority
	t.IsEscalated = a.Escalated
	f.tickets[a.TicketID] = t
	if a.TechnicianID != nil {
		f.open[*a.TechnicianID]++
	}
	return nil
}

func containsTier(list []models.Tier, t models.Tier) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsRole(list []models.Role, r models.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}

func sortCandidates(list []models.Candidate) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Tier.Rank() != b.Tier.Rank() {
			return a.Tier.Rank() < b.Tier.Rank()
		}
		if a.OpenTickets != b.OpenTickets {
			return a.OpenTickets < b.OpenTickets
		}
		return a.Technician.ID < b.Technician.ID
	})
}

type recordedDecision struct {
	mode, path, outcome string
}

type fakeRecorder struct {
	decisions     []recordedDecision
	notifyFailure int
}

func (r *fakeRecorder) ObserveDecision(mode, path, outcome string, _ time.Duration) {
	r.decisions = append(r.decisions, recordedDecision{mode, path, outcome})
}

func (r *fakeRecorder) IncNotificationFailure() {
	r.notifyFailure++
}

func int64Ptr(v int64) *int64 {
	return &v
}
