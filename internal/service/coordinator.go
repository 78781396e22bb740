package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

type CoordinatorConfig struct {
	// SpecialCaseArea routes straight to the named specialist account before
	// any rule lookup.
	SpecialCaseArea   models.Area
	SpecialistName    string
	SpecialistMaxLoad int
	// CatalogMaxLoad is advisory only; zero skips the catalog load check.
	CatalogMaxLoad int
	Weights        PriorityWeights
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		SpecialCaseArea:   models.AreaTelephonyIP,
		SpecialistMaxLoad: 10,
		Weights:           DefaultWeights,
	}
}

type Dependencies struct {
	Technicians TechnicianReader
	Rules       RuleReader
	Candidates  CandidateReader
	Requesters  RequesterReader
	Logger      zerolog.Logger
	Recorder    Recorder
}

// Coordinator owns the decision flow. It is stateless between calls.
type Coordinator struct {
	directory  *Directory
	rules      *RuleResolver
	catalog    *CatalogResolver
	escalation *EscalationResolver
	fallback   *FallbackResolver
	requesters RequesterReader
	blender    PriorityBlender
	cfg        CoordinatorConfig
	logger     zerolog.Logger
	recorder   Recorder
}

func NewCoordinator(deps Dependencies, cfg CoordinatorConfig) *Coordinator {
	dir := NewDirectory(deps.Technicians)
	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Coordinator{
		directory:  dir,
		rules:      &RuleResolver{Rules: deps.Rules, Directory: dir},
		catalog:    &CatalogResolver{Directory: dir, MaxLoad: cfg.CatalogMaxLoad, Logger: deps.Logger},
		escalation: &EscalationResolver{Candidates: deps.Candidates},
		fallback:   &FallbackResolver{Candidates: deps.Candidates},
		requesters: deps.Requesters,
		blender:    NewPriorityBlender(cfg.Weights),
		cfg:        cfg,
		logger:     deps.Logger,
		recorder:   rec,
	}
}

func (c *Coordinator) Directory() *Directory {
	return c.directory
}

func (c *Coordinator) Blender() PriorityBlender {
	return c.blender
}

// TicketRequest is everything the engine needs to know about one ticket.
type TicketRequest struct {
	TicketID               int64
	RequesterID            int64
	Category               string
	TechnicalPriority      string
	InitialResponsibleName string
	IsEscalated            bool
	// CurrentTechnicianID is zero when the ticket has no owner.
	CurrentTechnicianID int64
}

// Assign runs the rule-driven flow: special case, escalation, rule, fallback.
// The first step that yields a technician wins.
func (c *Coordinator) Assign(ctx context.Context, req TicketRequest) (Outcome, error) {
	start := time.Now()
	out := Outcome{TicketID: req.TicketID, Mode: ModeRules, Area: MapCategoryToArea(req.Category)}
	out.Priority = c.priority(ctx, req, &out)

	exclude := int64(0)
	if req.IsEscalated {
		exclude = req.CurrentTechnicianID
	}

	if out.Area == c.cfg.SpecialCaseArea {
		dec, err := c.specialCase(ctx, &out, exclude)
		if err != nil {
			return Outcome{}, err
		}
		if dec != nil {
			return c.assigned(out, *dec, ReasonAssignedSpecialCase, "Assigned to designated specialist", start), nil
		}
	}

	escalationFailed := false
	if req.IsEscalated {
		res, err := c.escalation.Resolve(ctx, out.Area, out.Priority.Level, req.CurrentTechnicianID)
		if err != nil {
			return Outcome{}, err
		}
		out.Attempts = append(out.Attempts, res.Attempts...)
		if res.Candidate != nil {
			dec := c.decisionFrom(out, res.Candidate.Technician, res.Candidate.Tier, PathEscalation)
			dec.IsEscalation = true
			dec.IsAdminEscalation = res.IsAdmin
			if res.IsAdmin {
				return c.assigned(out, dec, ReasonAssignedEscalationAdmin, "Escalated to administrator", start), nil
			}
			return c.assigned(out, dec, ReasonAssignedEscalation, "Escalated to "+string(res.Candidate.Tier)+" specialist", start), nil
		}
		escalationFailed = true
		c.logger.Warn().Int64("ticket_id", req.TicketID).Str("area", string(out.Area)).Msg("no escalation target, continuing with normal flow")
	}

	ruleRes, err := c.rules.Resolve(ctx, out.Area, out.Priority.Level, exclude)
	if err != nil {
		return Outcome{}, err
	}
	out.Attempts = append(out.Attempts, ruleRes.Attempts...)
	if m := ruleRes.Match; m != nil {
		dec := c.decisionFrom(out, m.Technician, m.Tier, PathRule)
		ruleID := m.Rule.ID
		dec.RuleID = &ruleID
		return c.assigned(out, dec, ReasonAssignedRule, "Assigned by rule to "+string(m.Tier), start), nil
	}

	fb, err := c.fallback.Resolve(ctx, out.Area, exclude)
	if err != nil {
		return Outcome{}, err
	}
	out.Attempts = append(out.Attempts, fb.Attempts...)
	if fb.Candidate != nil {
		dec := c.decisionFrom(out, fb.Candidate.Technician, fb.Candidate.Tier, PathFallback)
		dec.IsFallback = true
		if fb.Generic {
			dec.Tier = ""
			return c.assigned(out, dec, ReasonAssignedFallbackGeneric, "Assigned to least loaded technician", start), nil
		}
		return c.assigned(out, dec, ReasonAssignedFallbackSpecial, "Assigned to area specialist by fallback", start), nil
	}

	text := "No technician available"
	if escalationFailed {
		text = "No escalation target and no technician available"
	}
	return c.unassigned(out, fb.ReasonCode, text, start), nil
}

// AssignFromCatalog resolves the catalog's declared responsible and nothing
// else. Any failure leaves the ticket unassigned.
func (c *Coordinator) AssignFromCatalog(ctx context.Context, req TicketRequest) (Outcome, error) {
	start := time.Now()
	out := Outcome{TicketID: req.TicketID, Mode: ModeCatalog, Area: MapCategoryToArea(req.Category)}
	out.Priority = c.priority(ctx, req, &out)

	res, err := c.catalog.Resolve(ctx, req.InitialResponsibleName)
	if err != nil {
		return Outcome{}, err
	}
	out.Attempts = append(out.Attempts, res.Attempts...)
	if res.Technician == nil {
		return c.unassigned(out, res.ReasonCode, res.ReasonText, start), nil
	}
	dec := c.decisionFrom(out, *res.Technician, "", PathCatalog)
	return c.assigned(out, dec, res.ReasonCode, res.ReasonText, start), nil
}

func (c *Coordinator) priority(ctx context.Context, req TicketRequest, out *Outcome) PriorityScore {
	var role models.Role
	if req.RequesterID != 0 && c.requesters != nil {
		r, err := c.requesters.OrganizationalRole(ctx, req.RequesterID)
		if err != nil {
			c.logger.Warn().Err(err).Int64("ticket_id", req.TicketID).Int64("requester_id", req.RequesterID).Msg("requester role lookup failed, using default priority")
			out.Attempts = append(out.Attempts, Attempt{Stage: "priority", ReasonCode: ReasonRequesterRoleUnavailable})
			p := DefaultPriority
			p.Weights = c.blender.Weights
			return p
		}
		role = r
	}
	return c.blender.Blend(req.TechnicalPriority, role)
}

func (c *Coordinator) specialCase(ctx context.Context, out *Outcome, exclude int64) (*Decision, error) {
	attempt := Attempt{Stage: "special_case", ReasonCode: ReasonSpecialCaseUnavailable}
	if c.cfg.SpecialistName == "" {
		out.Attempts = append(out.Attempts, attempt)
		return nil, nil
	}
	tech, err := c.directory.FindTechnicianByName(ctx, c.cfg.SpecialistName)
	if err != nil {
		return nil, err
	}
	if tech == nil || !tech.Active {
		out.Attempts = append(out.Attempts, attempt)
		return nil, nil
	}
	attempt.TechnicianID = tech.ID
	if exclude != 0 && tech.ID == exclude {
		attempt.ReasonCode = ReasonSkippedCurrentOwner
		out.Attempts = append(out.Attempts, attempt)
		return nil, nil
	}
	if c.cfg.SpecialistMaxLoad > 0 {
		ok, load, err := c.directory.IsAvailable(ctx, tech.ID, c.cfg.SpecialistMaxLoad)
		if err != nil {
			return nil, err
		}
		attempt.OpenTickets = intPtr(load)
		if !ok {
			out.Attempts = append(out.Attempts, attempt)
			return nil, nil
		}
	}
	attempt.ReasonCode = ReasonAssignedSpecialCase
	out.Attempts = append(out.Attempts, attempt)
	dec := c.decisionFrom(*out, *tech, "", PathSpecialCase)
	dec.IsSpecialCase = true
	return &dec, nil
}

func (c *Coordinator) decisionFrom(out Outcome, t models.Technician, tier models.Tier, path string) Decision {
	return Decision{
		TechnicianID:    t.ID,
		TechnicianName:  t.Name,
		TechnicianEmail: t.Email,
		Area:            out.Area,
		Tier:            tier,
		Priority:        out.Priority,
		Path:            path,
	}
}

func (c *Coordinator) assigned(out Outcome, dec Decision, code, text string, start time.Time) Outcome {
	out.Assigned = true
	out.Decision = &dec
	out.ReasonCode = code
	out.ReasonText = text
	c.finish(out, start)
	return out
}

func (c *Coordinator) unassigned(out Outcome, code, text string, start time.Time) Outcome {
	out.Assigned = false
	out.Decision = nil
	out.ReasonCode = code
	out.ReasonText = text
	c.finish(out, start)
	return out
}

func (c *Coordinator) finish(out Outcome, start time.Time) {
	elapsed := time.Since(start)
	c.recorder.ObserveDecision(out.Mode, out.Path(), out.Result(), elapsed)

	ev := c.logger.Info().
		Int64("ticket_id", out.TicketID).
		Str("mode", out.Mode).
		Str("area", string(out.Area)).
		Str("priority", string(out.Priority.Level)).
		Str("reason_code", out.ReasonCode).
		Dur("elapsed", elapsed)
	if out.Decision != nil {
		ev = ev.Int64("technician_id", out.Decision.TechnicianID).Str("path", out.Decision.Path)
	}
	ev.Msg("assignment decision")

	if e := c.logger.Debug(); e.Enabled() {
		e.Int64("ticket_id", out.TicketID).Interface("attempts", out.Attempts).Msg("assignment attempts")
	}
}
