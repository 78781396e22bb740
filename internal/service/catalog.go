package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

type CatalogResult struct {
	Technician *models.Technician
	ReasonCode string
	ReasonText string
	Attempts   []Attempt
}

// CatalogResolver assigns the technician named on a catalog entry. It never
// substitutes anyone else.
type CatalogResolver struct {
	Directory *Directory
	// MaxLoad is the advisory load cap; zero disables the check.
	MaxLoad int
	Logger  zerolog.Logger
}

func (r *CatalogResolver) Resolve(ctx context.Context, responsibleName string) (CatalogResult, error) {
	name := strings.TrimSpace(responsibleName)
	if name == "" {
		return CatalogResult{
			ReasonCode: ReasonNoResponsibleDeclared,
			ReasonText: "Service has no initial responsible declared",
			Attempts:   []Attempt{{Stage: "catalog_responsible", ReasonCode: ReasonNoResponsibleDeclared}},
		}, nil
	}

	tech, err := r.Directory.FindTechnicianByName(ctx, name)
	if err != nil {
		return CatalogResult{}, err
	}
	if tech == nil {
		return CatalogResult{
			ReasonCode: ReasonResponsibleNotFound,
			ReasonText: "No technician matches catalog responsible " + NormalizeName(name),
			Attempts:   []Attempt{{Stage: "catalog_responsible", ReasonCode: ReasonResponsibleNotFound}},
		}, nil
	}
	if !tech.Active {
		return CatalogResult{
			ReasonCode: ReasonResponsibleInactive,
			ReasonText: "Catalog responsible " + tech.Name + " is inactive",
			Attempts:   []Attempt{{Stage: "catalog_responsible", TechnicianID: tech.ID, ReasonCode: ReasonResponsibleInactive}},
		}, nil
	}

	attempt := Attempt{Stage: "catalog_responsible", TechnicianID: tech.ID, ReasonCode: ReasonAssignedCatalog}
	if r.MaxLoad > 0 {
		ok, load, err := r.Directory.IsAvailable(ctx, tech.ID, r.MaxLoad)
		switch {
		case err != nil:
			r.Logger.Warn().Err(err).Int64("technician_id", tech.ID).Msg("catalog load check failed, assigning anyway")
			attempt.ReasonCode = ReasonLoadCheckFailedAssigned
		case !ok:
			attempt.OpenTickets = intPtr(load)
			attempt.ReasonCode = ReasonResponsibleOverCapacity
		default:
			attempt.OpenTickets = intPtr(load)
		}
	}

	return CatalogResult{
		Technician: tech,
		ReasonCode: ReasonAssignedCatalog,
		ReasonText: "Assigned to catalog responsible " + tech.Name,
		Attempts:   []Attempt{attempt},
	}, nil
}
