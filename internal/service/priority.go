package service

import (
	"math"
	"strings"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

type PriorityWeights struct {
	Organizational float64 `json:"organizational"`
	Technical      float64 `json:"technical"`
}

var DefaultWeights = PriorityWeights{Organizational: 0.70, Technical: 0.30}

type PriorityScore struct {
	Score               float64              `json:"score"`
	Level               models.PriorityLevel `json:"level"`
	TechnicalLevel      int                  `json:"technical_level"`
	OrganizationalLevel int                  `json:"organizational_level"`
	Weights             PriorityWeights      `json:"weights"`
}

// DefaultPriority is used whenever the inputs to blending cannot be read.
var DefaultPriority = PriorityScore{
	Score:               4.0,
	Level:               models.PriorityMedium,
	TechnicalLevel:      3,
	OrganizationalLevel: 7,
	Weights:             DefaultWeights,
}

const lowestOrganizationalLevel = 7

var technicalLevels = map[string]int{
	string(models.PriorityCritical): 1,
	string(models.PriorityHigh):     2,
	string(models.PriorityMedium):   3,
	string(models.PriorityLow):      4,
}

var organizationalLevels = map[models.Role]int{
	models.RoleAdministrator: 1,
	models.RoleTechnician:    3,
	models.RoleEmployee:      7,
}

type PriorityBlender struct {
	Weights PriorityWeights
}

func NewPriorityBlender(w PriorityWeights) PriorityBlender {
	if !validWeights(w) {
		w = DefaultWeights
	}
	return PriorityBlender{Weights: w}
}

// Blend combines the technical priority token with the requester's role.
// Unknown tokens fall back to media and unknown roles to the lowest rank.
func (b PriorityBlender) Blend(technical string, role models.Role) PriorityScore {
	w := b.Weights
	if !validWeights(w) {
		w = DefaultWeights
	}

	tech, ok := technicalLevels[strings.ToLower(strings.TrimSpace(technical))]
	if !ok {
		tech = technicalLevels[string(models.PriorityMedium)]
	}
	org, ok := organizationalLevels[models.Role(strings.ToLower(strings.TrimSpace(string(role))))]
	if !ok {
		org = lowestOrganizationalLevel
	}

	score := float64(org)*w.Organizational + float64(tech)*w.Technical
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return DefaultPriority
	}
	score = math.Round(score*10000) / 10000

	return PriorityScore{
		Score:               score,
		Level:               ClassifyScore(score),
		TechnicalLevel:      tech,
		OrganizationalLevel: org,
		Weights:             w,
	}
}

func ClassifyScore(score float64) models.PriorityLevel {
	switch {
	case score <= 2.0:
		return models.PriorityCritical
	case score <= 3.5:
		return models.PriorityHigh
	case score <= 5.0:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func validWeights(w PriorityWeights) bool {
	if math.IsNaN(w.Organizational) || math.IsNaN(w.Technical) {
		return false
	}
	return w.Organizational >= 0 && w.Technical >= 0 && w.Organizational+w.Technical > 0
}
