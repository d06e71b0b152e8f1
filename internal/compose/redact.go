package compose

import (
	"strings"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// RedactPlace coarsens a resolved place according to the privacy level:
// "exact" passes everything through, "city" keeps city/region/country, and
// "area" keeps only region/country. Returns "" when nothing survives.
func RedactPlace(p *models.Place, level string) string {
	if p == nil || p.Empty() {
		return ""
	}
	switch level {
	case "exact":
		if p.Label != "" {
			return p.Label
		}
		return joinParts(p.City, p.Region, p.Country)
	case "city":
		if s := joinParts(p.City, p.Region, p.Country); s != "" {
			return s
		}
		return redactLabel(p.Label, 2)
	default: // area
		if s := joinParts(p.Region, p.Country); s != "" {
			return s
		}
		return redactLabel(p.Label, 1)
	}
}

// joinParts joins the non-empty components with ", ".
func joinParts(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, ", ")
}

// redactLabel keeps only the last n comma-separated components of a raw
// geocoder label. Labels run from most to least specific ("123 Main St,
// Springfield, State"), so dropping leading components coarsens them.
func redactLabel(label string, keep int) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	parts := strings.Split(label, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > keep {
		parts = parts[len(parts)-keep:]
	}
	return strings.Join(parts, ", ")
}
