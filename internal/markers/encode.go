package markers

import "github.com/lemtool/lem-backend/internal/domain"

// Color palette shared by the canvas overlay and the exported report.
const (
	ColorGreen = "#16a34a"
	ColorRed   = "#dc2626"
	ColorBlue  = "#2563eb"
	ColorPink  = "#db2777"
)

// needStyle keys visual encoding by SDT need.
var needStyle = map[domain.NeedType]struct{ color, icon string }{
	domain.NeedAutonomy:    {ColorBlue, "compass"},
	domain.NeedCompetence:  {ColorGreen, "target"},
	domain.NeedRelatedness: {ColorPink, "users"},
}

// briefStyle keys visual encoding by strategy brief type.
var briefStyle = map[domain.BriefType]struct{ color, icon string }{
	domain.BriefOpportunity: {ColorGreen, "trending-up"},
	domain.BriefPainPoint:   {ColorRed, "alert-triangle"},
	domain.BriefInsight:     {ColorBlue, "lightbulb"},
}

// Encode returns the deterministic color and icon for a marker based on its
// layer-specific category. Absent or unrecognized payloads fall through to
// the neutral blue encoding so malformed data stays visible.
func Encode(m domain.Marker) (color, icon string) {
	switch m.Layer {
	case domain.LayerEmotions:
		if m.Emotion != nil {
			switch m.Emotion.Category() {
			case domain.CategoryPositive:
				return ColorGreen, "smile"
			case domain.CategoryNegative:
				return ColorRed, "frown"
			}
		}
		return ColorBlue, "meh"
	case domain.LayerNeeds:
		if m.Need != nil {
			if s, ok := needStyle[*m.Need]; ok {
				return s.color, s.icon
			}
		}
		return ColorBlue, "circle"
	case domain.LayerStrategy:
		if m.Brief != nil {
			if s, ok := briefStyle[*m.Brief]; ok {
				return s.color, s.icon
			}
		}
		return ColorBlue, "circle"
	}
	return ColorBlue, "circle"
}
