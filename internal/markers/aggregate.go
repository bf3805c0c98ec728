// Package markers implements the pure marker aggregation and filtering logic
// shared by the live canvas view and the exported report. Everything in this
// package is a total function of its inputs: no persistence, no failure
// modes.
package markers

import "github.com/lemtool/lem-backend/internal/domain"

// Toggles controls which marker provenances contribute to an aggregation.
// Both default to off, so callers state explicitly what they want.
type Toggles struct {
	AI    bool
	Human bool
}

// AllSources is the common case: both AI and human markers visible.
var AllSources = Toggles{AI: true, Human: true}

// Aggregate combines a project's own AI markers and the markers of all its
// test sessions into one collection representing everything annotated on the
// project.
//
// Project markers come first with source forced to AI and no session
// attribution; then each session's markers in session order, stamped with
// that session's id. Consumers must not rely on any finer cross-session
// ordering. Empty inputs contribute nothing; the function never fails.
func Aggregate(project []domain.Marker, sessions []domain.TestSession, t Toggles) []domain.Marker {
	out := make([]domain.Marker, 0, len(project))
	if t.AI {
		for _, m := range project {
			m.Source = domain.SourceAI
			m.SessionID = ""
			out = append(out, m)
		}
	}
	if t.Human {
		for _, s := range sessions {
			for _, m := range s.Markers.Data() {
				m.Source = domain.SourceHuman
				m.SessionID = s.ID
				out = append(out, m)
			}
		}
	}
	return out
}
