package markers

import "github.com/lemtool/lem-backend/internal/domain"

// ShapeMode selects point or area markers.
type ShapeMode string

// Shape modes.
const (
	ShapePoints ShapeMode = "points"
	ShapeAreas  ShapeMode = "areas"
)

// SourceFilter narrows markers by provenance.
type SourceFilter string

// Source filters.
const (
	SourceAll   SourceFilter = "all"
	SourceAI    SourceFilter = "ai"
	SourceHuman SourceFilter = "human"
)

// Participant filter sentinels. Any other value is treated as a specific
// session id.
const (
	ParticipantAll    = "all"
	ParticipantAIOnly = "ai-only"
)

// View is the full set of composable filters applied to an aggregated marker
// collection. All filters are independent and combined as a conjunction.
type View struct {
	Layer       domain.Layer
	Shape       ShapeMode
	Source      SourceFilter
	Participant string
}

// DefaultView shows emotion points from every source.
func DefaultView() View {
	return View{
		Layer:       domain.LayerEmotions,
		Shape:       ShapePoints,
		Source:      SourceAll,
		Participant: ParticipantAll,
	}
}

// Styled is a marker annotated with its deterministic visual encoding.
type Styled struct {
	domain.Marker
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Filter derives the exact subset of markers a view renders, each annotated
// with its color and icon. The layer field alone gates layer inclusion: a
// marker with a missing or unrecognized payload still passes and receives
// the neutral encoding instead of being silently dropped.
func Filter(all []domain.Marker, v View) []Styled {
	out := make([]Styled, 0, len(all))
	for _, m := range all {
		if m.Layer != v.Layer {
			continue
		}
		if !matchShape(m, v.Shape) {
			continue
		}
		if !matchSource(m, v.Source) {
			continue
		}
		if !matchParticipant(m, v.Participant) {
			continue
		}
		color, icon := Encode(m)
		out = append(out, Styled{Marker: m, Color: color, Icon: icon})
	}
	return out
}

// matchShape keeps points when IsArea is false, and areas only when both
// dimensions are actually present. An "area" marker lacking width or height
// is excluded from area mode rather than rendered degenerate.
func matchShape(m domain.Marker, s ShapeMode) bool {
	switch s {
	case ShapeAreas:
		return m.IsArea && m.Width != nil && m.Height != nil
	default:
		return !m.IsArea
	}
}

func matchSource(m domain.Marker, f SourceFilter) bool {
	switch f {
	case SourceAI:
		return m.Source == domain.SourceAI
	case SourceHuman:
		return m.Source == domain.SourceHuman
	default:
		return true
	}
}

// matchParticipant applies the participant selector. A specific session id
// excludes AI markers implicitly, since those carry no session attribution.
func matchParticipant(m domain.Marker, p string) bool {
	switch p {
	case "", ParticipantAll:
		return true
	case ParticipantAIOnly:
		return m.Source == domain.SourceAI
	default:
		return m.SessionID == p
	}
}
