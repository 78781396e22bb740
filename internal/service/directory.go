package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

// Directory answers technician lookups. It holds no state beyond its reader,
// so every call sees the current load.
type Directory struct {
	Reader TechnicianReader
}

func NewDirectory(r TechnicianReader) *Directory {
	return &Directory{Reader: r}
}

// GetActiveTechnicianByID returns the technician only when it is an active
// staff account.
func (d *Directory) GetActiveTechnicianByID(ctx context.Context, id int64) (*models.Technician, error) {
	if id <= 0 {
		return nil, nil
	}
	t, err := d.Reader.TechnicianByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("technician %d: %w", id, err)
	}
	if t == nil || !t.IsStaff() || !t.Active {
		return nil, nil
	}
	return t, nil
}

// FindTechnicianByName resolves free text to the single best staff match.
// Inactive technicians are returned too; callers decide what inactive means.
func (d *Directory) FindTechnicianByName(ctx context.Context, name string) (*models.Technician, error) {
	term := NormalizeName(name)
	if term == "" {
		return nil, nil
	}
	first := firstSearchToken(term)
	candidates, err := d.Reader.SearchTechnicians(ctx, term, first)
	if err != nil {
		return nil, fmt.Errorf("search technician %q: %w", term, err)
	}
	return BestNameMatch(term, candidates), nil
}

func (d *Directory) CountOpenTickets(ctx context.Context, technicianID int64) (int, error) {
	n, err := d.Reader.CountOpenTickets(ctx, technicianID)
	if err != nil {
		return 0, fmt.Errorf("count open tickets for %d: %w", technicianID, err)
	}
	return n, nil
}

// IsAvailable reports whether the technician is strictly under maxLoad. The
// load read is returned so callers can record it.
func (d *Directory) IsAvailable(ctx context.Context, technicianID int64, maxLoad int) (bool, int, error) {
	n, err := d.CountOpenTickets(ctx, technicianID)
	if err != nil {
		return false, 0, err
	}
	return n < maxLoad, n, nil
}

func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

const (
	matchExact = iota
	matchPrefix
	matchSubstring
	matchFirstToken
	matchNone
)

// BestNameMatch ranks candidates against an already normalized term: exact,
// then prefix, then substring, then first token when that token is longer
// than two characters. Ties go to the ascending name.
func BestNameMatch(term string, candidates []models.Technician) *models.Technician {
	first := firstSearchToken(term)
	bestRank := matchNone
	var best *models.Technician
	ranked := make([]models.Technician, 0, len(candidates))
	for _, c := range candidates {
		if c.IsStaff() {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return NormalizeName(ranked[i].Name) < NormalizeName(ranked[j].Name)
	})
	for i := range ranked {
		rank := nameMatchRank(term, first, NormalizeName(ranked[i].Name))
		if rank < bestRank {
			bestRank = rank
			best = &ranked[i]
		}
	}
	return best
}

func nameMatchRank(term, first, candidate string) int {
	switch {
	case candidate == term:
		return matchExact
	case strings.HasPrefix(candidate, term):
		return matchPrefix
	case strings.Contains(candidate, term):
		return matchSubstring
	case first != "" && strings.Contains(candidate, first):
		return matchFirstToken
	default:
		return matchNone
	}
}

// firstSearchToken returns the first word of the term when it is long enough
// to be used on its own, otherwise "".
func firstSearchToken(term string) string {
	fields := strings.Fields(term)
	if len(fields) == 0 {
		return ""
	}
	if len([]rune(fields[0])) <= 2 {
		return ""
	}
	return fields[0]
}
