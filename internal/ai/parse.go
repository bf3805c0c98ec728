package ai

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lemtool/lem-backend/internal/domain"
)

// RawAnalysis is the JSON payload returned by the model. Marker candidates
// are untrusted: coordinates may exceed bounds and payload fields may be
// inconsistent with the declared layer, so everything is validated and
// clamped before entering the data model.
type RawAnalysis struct {
	Markers []RawMarker           `json:"markers"`
	Report  domain.AnalysisReport `json:"report"`
}

// RawMarker is one unvalidated marker candidate.
type RawMarker struct {
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`
	IsArea  bool     `json:"is_area,omitempty"`
	Layer   string   `json:"layer"`
	Emotion string   `json:"emotion,omitempty"`
	Need    string   `json:"need,omitempty"`
	Brief   string   `json:"brief_type,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// ErrEmptyAnalysis is returned when the model response contains no usable
// markers at all; callers treat it like any other parse failure and fall
// back to demo content.
var ErrEmptyAnalysis = errors.New("analysis contains no markers")

// ToDomain validates a raw analysis into domain markers and a report.
// Coordinates are clamped into range, payload fields are normalized to match
// the declared layer, and candidates with an unknown layer are skipped. The
// report score is clamped into [0,100].
func ToDomain(raw RawAnalysis) ([]domain.Marker, domain.AnalysisReport, error) {
	if len(raw.Markers) == 0 {
		return nil, domain.AnalysisReport{}, ErrEmptyAnalysis
	}

	out := make([]domain.Marker, 0, len(raw.Markers))
	for _, rm := range raw.Markers {
		m, ok := convertMarker(rm)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, domain.AnalysisReport{}, ErrEmptyAnalysis
	}

	report := raw.Report
	if report.Score < 0 {
		report.Score = 0
	}
	if report.Score > 100 {
		report.Score = 100
	}
	return out, report, nil
}

func convertMarker(rm RawMarker) (domain.Marker, bool) {
	layer := domain.Layer(strings.ToLower(strings.TrimSpace(rm.Layer)))
	if !layer.Valid() {
		return domain.Marker{}, false
	}

	m := domain.Marker{
		ID:      uuid.NewString(),
		X:       rm.X,
		Y:       rm.Y,
		Layer:   layer,
		Source:  domain.SourceAI,
		Comment: strings.TrimSpace(rm.Comment),
	}
	if rm.IsArea && rm.Width != nil && rm.Height != nil {
		m.IsArea = true
		m.Width = rm.Width
		m.Height = rm.Height
	}

	// Only the field matching the layer survives; the rest is upstream noise.
	switch layer {
	case domain.LayerEmotions:
		if e := normalizeEnum(rm.Emotion); e != "" {
			et := domain.EmotionType(e)
			m.Emotion = &et
		}
	case domain.LayerNeeds:
		if n := normalizeEnum(rm.Need); n != "" {
			nt := domain.NeedType(n)
			m.Need = &nt
		}
	case domain.LayerStrategy:
		if b := normalizeEnum(rm.Brief); b != "" {
			bt := domain.BriefType(b)
			m.Brief = &bt
		}
	}

	m.Clamp()
	return m, true
}

// normalizeEnum title-cases a single enum word so "joy", "JOY", and "Joy"
// all map to the canonical value. Multi-word values ("Pain Point") are
// normalized per word.
func normalizeEnum(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
