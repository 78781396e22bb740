package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// openCountExpr counts a user's live load; $1 must be the open status list.
const openCountExpr = `(SELECT COUNT(*) FROM tickets t WHERE t.technician_id = u.id AND t.status = ANY($1))`

func openStatuses() []string {
	out := make([]string, 0, len(models.OpenStatuses))
	for _, st := range models.OpenStatuses {
		out = append(out, string(st))
	}
	return out
}

func (s *Store) TechnicianByID(ctx context.Context, id int64) (*models.Technician, error) {
	var t models.Technician
	err := s.Pool.QueryRow(ctx, `SELECT id, name, email, role, active FROM users WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Email, &t.Role, &t.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// SearchTechnicians returns staff whose name contains the term, or the first
// token when one is given. Ranking and the final match are done by the caller.
// Case folding of non-ASCII text depends on the database collation, so an
// accented term skips the SQL prefilter and every staff row is returned.
func (s *Store) SearchTechnicians(ctx context.Context, term string, firstToken string) ([]models.Technician, error) {
	query := `
		SELECT id, name, email, role, active
		FROM users
		WHERE role IN ('tecnico', 'administrador')
			AND (TRIM(name) ILIKE '%' || $1 || '%' ESCAPE '\\'
				OR ($2 <> '' AND TRIM(name) ILIKE '%' || $2 || '%' ESCAPE '\\'))
		ORDER BY UPPER(TRIM(name)) ASC, id ASC
	`
	args := []any{likeEscaper.Replace(strings.TrimSpace(term)), likeEscaper.Replace(firstToken)}
	if !isASCII(term) || !isASCII(firstToken) {
		query = `
			SELECT id, name, email, role, active
			FROM users
			WHERE role IN ('tecnico', 'administrador')
			ORDER BY UPPER(TRIM(name)) ASC, id ASC
		`
		args = nil
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Technician
	for rows.Next() {
		var t models.Technician
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Role, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func isASCII(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func (s *Store) CountOpenTickets(ctx context.Context, technicianID int64) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE technician_id = $1 AND status = ANY($2)`, technicianID, openStatuses()).Scan(&n)
	return n, err
}

func (s *Store) ActiveRule(ctx context.Context, area models.Area, level models.PriorityLevel) (*models.AssignmentRule, error) {
	var r models.AssignmentRule
	err := s.Pool.QueryRow(ctx, `
		SELECT id, area, priority, principal_id, secondary_id, support_id, max_load, active, created_at
		FROM assignment_rules
		WHERE area = $1 AND priority = $2 AND active
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, string(area), string(level)).Scan(&r.ID, &r.Area, &r.Priority, &r.PrincipalID, &r.SecondaryID, &r.SupportID, &r.MaxLoad, &r.Active, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) SpecialistsByLoad(ctx context.Context, area models.Area, tiers []models.Tier) ([]models.Candidate, error) {
	tierArgs := make([]string, 0, len(tiers))
	for _, t := range tiers {
		tierArgs = append(tierArgs, string(t))
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.active, sp.tier, `+openCountExpr+` AS open_tickets
		FROM technician_specialties sp
		JOIN users u ON u.id = sp.technician_id
		WHERE sp.area = $2 AND sp.active AND sp.tier = ANY($3)
			AND u.active AND u.role IN ('tecnico', 'administrador')
		ORDER BY CASE sp.tier WHEN 'principal' THEN 1 WHEN 'secondary' THEN 2 ELSE 3 END,
			open_tickets ASC, u.id ASC
	`, openStatuses(), string(area), tierArgs)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows, true)
}

func (s *Store) TechniciansByLoad(ctx context.Context, roles []models.Role) ([]models.Candidate, error) {
	roleArgs := make([]string, 0, len(roles))
	for _, r := range roles {
		roleArgs = append(roleArgs, string(r))
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.active, `+openCountExpr+` AS open_tickets
		FROM users u
		WHERE u.active AND u.role = ANY($2)
		ORDER BY open_tickets ASC, u.id ASC
	`, openStatuses(), roleArgs)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows, false)
}

// ListTechnicians lists staff with their live load, optionally limited to
// specialists of one area.
func (s *Store) ListTechnicians(ctx context.Context, area models.Area) ([]models.Candidate, error) {
	if area != "" {
		return s.SpecialistsByLoad(ctx, area, []models.Tier{models.TierPrincipal, models.TierSecondary, models.TierSupport})
	}
	return s.TechniciansByLoad(ctx, []models.Role{models.RoleTechnician, models.RoleAdministrator})
}

func scanCandidates(rows pgx.Rows, withTier bool) ([]models.Candidate, error) {
	defer rows.Close()
	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		dest := []any{&c.Technician.ID, &c.Technician.Name, &c.Technician.Email, &c.Technician.Role, &c.Technician.Active}
		if withTier {
			dest = append(dest, &c.Tier)
		}
		dest = append(dest, &c.OpenTickets)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) OrganizationalRole(ctx context.Context, userID int64) (models.Role, error) {
	var role models.Role
	err := s.Pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return role, nil
}

const ticketColumns = `id, service_id, requester_id, title, technical_priority, priority, technician_id, status, is_escalated,
	assignment_tier, assignment_rule_id, assignment_tag, assignment_reason_code, assignment_reason_text,
	assignment_reasoning, assigned_at, created_at, updated_at`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var (
		t         models.Ticket
		reasoning []byte
	)
	err := row.Scan(&t.ID, &t.ServiceID, &t.RequesterID, &t.Title, &t.TechnicalPriority, &t.Priority, &t.TechnicianID, &t.Status, &t.IsEscalated,
		&t.AssignmentTier, &t.AssignmentRuleID, &t.AssignmentTag, &t.AssignmentReasonCode, &t.AssignmentReasonText,
		&reasoning, &t.AssignedAt, &t.CreatedAt, &t.UpdatedAt)
	if len(reasoning) > 0 {
		t.AssignmentReasoning = reasoning
	}
	return t, err
}

func (s *Store) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	t, err := scanTicket(s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
		}
		return models.Ticket{}, err
	}
	return t, nil
}

func (s *Store) ListPendingTickets(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE technician_id IS NULL AND status IN ('open', 'pending_assignment')
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetServiceEntry(ctx context.Context, id int64) (models.ServiceCatalogEntry, error) {
	var (
		e           models.ServiceCatalogEntry
		responsible *string
		hint        *string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, category, subcategory, technical_priority, initial_responsible_name, escalation_hint,
			target_resolution_hours, max_resolution_hours
		FROM service_catalog WHERE id = $1
	`, id).Scan(&e.ID, &e.Category, &e.Subcategory, &e.TechnicalPriority, &responsible, &hint, &e.TargetResolutionHours, &e.MaxResolutionHours)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ServiceCatalogEntry{}, fmt.Errorf("service %d: %w", id, ErrNotFound)
		}
		return models.ServiceCatalogEntry{}, err
	}
	e.InitialResponsibleName = derefString(responsible)
	e.EscalationHint = derefString(hint)
	return e, nil
}

// ApplyAssignment writes the decision onto the ticket and, for escalations,
// appends the escalation row in the same transaction.
func (s *Store) ApplyAssignment(ctx context.Context, a models.TicketAssignment) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE tickets
			SET technician_id = $1, priority = $2, status = $3, assignment_tier = $4, assignment_rule_id = $5,
				assignment_tag = $6, assignment_reason_code = $7, assignment_reason_text = $8,
				assignment_reasoning = $9, assigned_at = $10, is_escalated = $11, updated_at = NOW()
			WHERE id = $12
		`, a.TechnicianID, string(a.Priority), string(a.Status), a.Tier, a.RuleID, a.Tag, a.ReasonCode, a.ReasonText,
			a.Reasoning, a.AssignedAt, a.Escalated, a.TicketID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("ticket %d: %w", a.TicketID, ErrNotFound)
		}
		if a.Escalation == nil {
			return nil
		}
		e := a.Escalation
		_, err = tx.Exec(ctx, `
			INSERT INTO escalations (ticket_id, from_technician_id, to_technician_id, priority, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.TicketID, e.FromTechnicianID, e.ToTechnicianID, string(e.Priority), e.Reason, e.CreatedAt)
		return err
	})
}

func (s *Store) ListEscalations(ctx context.Context, ticketID int64) ([]models.Escalation, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, ticket_id, from_technician_id, to_technician_id, priority, reason, created_at
		FROM escalations WHERE ticket_id = $1
		ORDER BY created_at DESC, id DESC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Escalation
	for rows.Next() {
		var e models.Escalation
		if err := rows.Scan(&e.ID, &e.TicketID, &e.FromTechnicianID, &e.ToTechnicianID, &e.Priority, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateRun(ctx context.Context, status string) (int64, error) {
	var id int64
	err := s.Pool.QueryRow(ctx, `INSERT INTO runs (status, started_at) VALUES ($1, NOW()) RETURNING id`, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID int64, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	var (
		r       models.Run
		summary []byte
	)
	err := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`).
		Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &summary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Run{}, ErrNotFound
		}
		return models.Run{}, err
	}
	if len(summary) > 0 {
		r.Summary = summary
	}
	return r, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
