package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/helpdesk-dispatch/backend/internal/models"
)

type areaKeywords struct {
	Area     models.Area
	Keywords []string
}

// Order matters: the first table entry with a matching keyword wins.
// Keywords are matched against the folded category padded with spaces, so a
// keyword wrapped in spaces only matches a whole word.
var categoryKeywords = []areaKeywords{
	{Area: models.AreaTelephonyIP, Keywords: []string{"telefon", "voip", "telephon", "softphone", "conmutador"}},
	{Area: models.AreaInternet, Keywords: []string{"internet", "wifi", "wi-fi", "navegacion", "ancho de banda"}},
	{Area: models.AreaEmail, Keywords: []string{"correo", "email", "e-mail", "outlook", " mail "}},
	{Area: models.AreaComputeEquipment, Keywords: []string{"equipo", "computo", "computadora", "laptop", "impresora", "hardware", "monitor", "teclado"}},
	{Area: models.AreaSoftware, Keywords: []string{"software", "aplicacion", "programa", "sistema", "licencia", "office"}},
	{Area: models.AreaNetwork, Keywords: []string{" red ", " redes ", "network", "vpn", "switch", "router", "cableado", "firewall"}},
}

// MapCategoryToArea maps a free-text service category onto a specialization
// area. Matching is case and accent insensitive; unmatched input is GENERAL.
func MapCategoryToArea(category string) models.Area {
	folded := " " + foldText(category) + " "
	if strings.TrimSpace(folded) == "" {
		return models.AreaGeneral
	}
	for _, entry := range categoryKeywords {
		for _, kw := range entry.Keywords {
			if strings.Contains(folded, kw) {
				return entry.Area
			}
		}
	}
	return models.AreaGeneral
}

func foldText(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		out = value
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
