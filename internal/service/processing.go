package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpdesk-dispatch/backend/internal/models"
	"github.com/helpdesk-dispatch/backend/internal/notify"
)

var (
	ErrTicketAssigned = errors.New("ticket already has a technician")
	ErrTicketClosed   = errors.New("ticket is closed")
	ErrInvalidMode    = errors.New("invalid assignment mode")
)

// TicketStore is the intake layer's view of persistence.
type TicketStore interface {
	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	GetServiceEntry(ctx context.Context, id int64) (models.ServiceCatalogEntry, error)
	ListPendingTickets(ctx context.Context) ([]models.Ticket, error)
	ApplyAssignment(ctx context.Context, a models.TicketAssignment) error
}

type NotificationRecorder interface {
	IncNotificationFailure()
}

// ProcessingService is the ticket-intake side of the engine: it loads a
// ticket, asks the Coordinator for a decision and persists the result.
type ProcessingService struct {
	Store       TicketStore
	Coordinator *Coordinator
	Notifier    notify.Notifier
	Metrics     NotificationRecorder
	Logger      zerolog.Logger
}

type RunSummary struct {
	Processed  int            `json:"processed"`
	Assigned   int            `json:"assigned"`
	Unassigned int            `json:"unassigned"`
	Errors     int            `json:"errors"`
	ByPath     map[string]int `json:"by_path"`
	ByReason   map[string]int `json:"by_reason"`
	Samples    []Outcome      `json:"samples,omitempty"`
	ElapsedMs  int64          `json:"elapsed_ms"`
}

const maxRunSamples = 5

// AssignTicket decides and persists the first owner of an unowned ticket.
func (s *ProcessingService) AssignTicket(ctx context.Context, ticketID int64, mode string) (Outcome, error) {
	out, ticket, err := s.decide(ctx, ticketID, mode)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.persist(ctx, ticket, out, nil); err != nil {
		return Outcome{}, err
	}
	s.notify(ctx, ticket, out, false)
	return out, nil
}

// PreviewTicket runs the same decision as AssignTicket without writing.
func (s *ProcessingService) PreviewTicket(ctx context.Context, ticketID int64, mode string) (Outcome, error) {
	out, _, err := s.decide(ctx, ticketID, mode)
	return out, err
}

// EscalateTicket moves a ticket away from its current technician. When no
// new owner is found the ticket is left as it was.
func (s *ProcessingService) EscalateTicket(ctx context.Context, ticketID int64, reason string) (Outcome, error) {
	ticket, entry, err := s.load(ctx, ticketID)
	if err != nil {
		return Outcome{}, err
	}
	if isClosed(ticket.Status) {
		return Outcome{}, ErrTicketClosed
	}

	req := requestFor(ticket, entry)
	req.IsEscalated = true
	out, err := s.Coordinator.Assign(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	if !out.Assigned {
		return out, nil
	}

	esc := &models.Escalation{
		TicketID:         ticket.ID,
		FromTechnicianID: ticket.TechnicianID,
		ToTechnicianID:   out.Decision.TechnicianID,
		Priority:         out.Priority.Level,
		Reason:           strings.TrimSpace(reason),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.persist(ctx, ticket, out, esc); err != nil {
		return Outcome{}, err
	}
	s.notify(ctx, ticket, out, true)
	return out, nil
}

// ProcessPending retries every ticket still waiting for a technician. A
// failure on one ticket is counted and does not stop the run; a done context
// does, and the partial summary is returned with the context error.
func (s *ProcessingService) ProcessPending(ctx context.Context) (RunSummary, error) {
	start := time.Now()
	tickets, err := s.Store.ListPendingTickets(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list pending tickets: %w", err)
	}

	summary := RunSummary{ByPath: map[string]int{}, ByReason: map[string]int{}}
	for i, t := range tickets {
		if err := ctx.Err(); err != nil {
			summary.ElapsedMs = time.Since(start).Milliseconds()
			return summary, fmt.Errorf("pending run stopped after %d of %d tickets: %w", i, len(tickets), err)
		}
		summary.Processed++
		out, err := s.AssignTicket(ctx, t.ID, ModeAuto)
		if err != nil {
			summary.Errors++
			s.Logger.Error().Err(err).Int64("ticket_id", t.ID).Msg("pending ticket processing failed")
			continue
		}
		summary.ByPath[out.Path()]++
		summary.ByReason[out.ReasonCode]++
		if out.Assigned {
			summary.Assigned++
			continue
		}
		summary.Unassigned++
		if len(summary.Samples) < maxRunSamples {
			summary.Samples = append(summary.Samples, out)
		}
	}
	summary.ElapsedMs = time.Since(start).Milliseconds()
	return summary, nil
}

func (s *ProcessingService) decide(ctx context.Context, ticketID int64, mode string) (Outcome, models.Ticket, error) {
	ticket, entry, err := s.load(ctx, ticketID)
	if err != nil {
		return Outcome{}, models.Ticket{}, err
	}
	if ticket.TechnicianID != nil {
		return Outcome{}, models.Ticket{}, ErrTicketAssigned
	}
	if isClosed(ticket.Status) {
		return Outcome{}, models.Ticket{}, ErrTicketClosed
	}

	req := requestFor(ticket, entry)
	switch ResolveMode(mode, entry) {
	case ModeCatalog:
		out, err := s.Coordinator.AssignFromCatalog(ctx, req)
		return out, ticket, err
	case ModeRules:
		out, err := s.Coordinator.Assign(ctx, req)
		return out, ticket, err
	default:
		return Outcome{}, models.Ticket{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// ResolveMode turns auto into a concrete mode: catalog when the entry names a
// responsible, rules otherwise. Empty means auto.
func ResolveMode(mode string, entry models.ServiceCatalogEntry) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAuto:
		if strings.TrimSpace(entry.InitialResponsibleName) != "" {
			return ModeCatalog
		}
		return ModeRules
	case ModeCatalog:
		return ModeCatalog
	case ModeRules:
		return ModeRules
	default:
		return mode
	}
}

func (s *ProcessingService) load(ctx context.Context, ticketID int64) (models.Ticket, models.ServiceCatalogEntry, error) {
	ticket, err := s.Store.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, models.ServiceCatalogEntry{}, fmt.Errorf("load ticket %d: %w", ticketID, err)
	}
	entry, err := s.Store.GetServiceEntry(ctx, ticket.ServiceID)
	if err != nil {
		return models.Ticket{}, models.ServiceCatalogEntry{}, fmt.Errorf("load service %d: %w", ticket.ServiceID, err)
	}
	return ticket, entry, nil
}

func requestFor(t models.Ticket, e models.ServiceCatalogEntry) TicketRequest {
	technical := t.TechnicalPriority
	if strings.TrimSpace(technical) == "" {
		technical = e.TechnicalPriority
	}
	req := TicketRequest{
		TicketID:               t.ID,
		RequesterID:            t.RequesterID,
		Category:               e.Category,
		TechnicalPriority:      technical,
		InitialResponsibleName: e.InitialResponsibleName,
	}
	if t.TechnicianID != nil {
		req.CurrentTechnicianID = *t.TechnicianID
	}
	return req
}

func (s *ProcessingService) persist(ctx context.Context, t models.Ticket, out Outcome, esc *models.Escalation) error {
	reasoning, err := json.Marshal(map[string]any{
		"mode":     out.Mode,
		"area":     out.Area,
		"priority": out.Priority,
		"attempts": out.Attempts,
	})
	if err != nil {
		return fmt.Errorf("encode reasoning: %w", err)
	}

	a := models.TicketAssignment{
		TicketID:   t.ID,
		Priority:   out.Priority.Level,
		Status:     models.StatusPendingAssignment,
		Tag:        out.Path(),
		ReasonCode: out.ReasonCode,
		ReasonText: out.ReasonText,
		Reasoning:  reasoning,
		AssignedAt: time.Now().UTC(),
		Escalated:  esc != nil || t.IsEscalated,
		Escalation: esc,
	}
	if out.Decision != nil {
		id := out.Decision.TechnicianID
		a.TechnicianID = &id
		a.Tier = string(out.Decision.Tier)
		a.RuleID = out.Decision.RuleID
		a.Status = t.Status
		if a.Status == "" || a.Status == models.StatusPendingAssignment {
			a.Status = models.StatusOpen
		}
	}

	if err := s.Store.ApplyAssignment(ctx, a); err != nil {
		return fmt.Errorf("apply assignment for ticket %d: %w", t.ID, err)
	}
	return nil
}

func (s *ProcessingService) notify(ctx context.Context, t models.Ticket, out Outcome, escalated bool) {
	if s.Notifier == nil || out.Decision == nil {
		return
	}
	subject := fmt.Sprintf("Ticket #%d assigned to you", t.ID)
	if escalated {
		subject = fmt.Sprintf("Ticket #%d escalated to you", t.ID)
	}
	msg := notify.Message{
		To:       out.Decision.TechnicianEmail,
		Subject:  subject,
		Body:     fmt.Sprintf("%s\nPriority: %s\nArea: %s", t.Title, out.Priority.Level, out.Area),
		TicketID: t.ID,
	}
	if err := s.Notifier.Send(ctx, msg); err != nil {
		s.Logger.Warn().Err(err).Int64("ticket_id", t.ID).Int64("technician_id", out.Decision.TechnicianID).Msg("notification failed")
		if s.Metrics != nil {
			s.Metrics.IncNotificationFailure()
		}
	}
}

func isClosed(st models.TicketStatus) bool {
	return st == models.StatusResolved || st == models.StatusClosed
}
