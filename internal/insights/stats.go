// Package insights computes rollup statistics over marker collections for
// the live report panel and the exported document. All functions are pure
// and total: empty inputs resolve to zero values, never a division by zero.
package insights

import (
	"math"
	"sort"

	"github.com/lemtool/lem-backend/internal/domain"
)

// TopEmotions is the default breakdown size for the main report panel.
const TopEmotions = 5

// Sentiment bands derived from the positive ratio. The 60 boundary is
// inclusive on the positive side.
const (
	BandPositive = "overwhelmingly positive"
	BandMixed    = "mixed"
	BandConcerns = "concerns expressed"
)

// EmotionCount is one row of the emotion distribution.
type EmotionCount struct {
	Emotion domain.EmotionType `json:"emotion"`
	Count   int                `json:"count"`
	Percent int                `json:"percent"`
}

// EmotionBreakdown groups markers by emotion, sorts descending by count with
// first-seen order breaking ties, and truncates to topN. Percent is the share
// of markers carrying any emotion, rounded to the nearest integer; percentages
// of a truncated breakdown intentionally need not sum to 100.
func EmotionBreakdown(ms []domain.Marker, topN int) []EmotionCount {
	counts := make(map[domain.EmotionType]int)
	order := make([]domain.EmotionType, 0)
	total := 0
	for _, m := range ms {
		if m.Emotion == nil {
			continue
		}
		e := *m.Emotion
		if _, seen := counts[e]; !seen {
			order = append(order, e)
		}
		counts[e]++
		total++
	}
	if total == 0 {
		return []EmotionCount{}
	}

	out := make([]EmotionCount, 0, len(order))
	for _, e := range order {
		out = append(out, EmotionCount{
			Emotion: e,
			Count:   counts[e],
			Percent: int(math.Round(float64(counts[e]) / float64(total) * 100)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// PositiveRatio returns the percentage of emotion-carrying markers whose
// emotion category is positive. With no emotion markers present it returns 0.
func PositiveRatio(ms []domain.Marker) float64 {
	positive, total := 0, 0
	for _, m := range ms {
		if m.Emotion == nil {
			continue
		}
		total++
		if m.Emotion.Category() == domain.CategoryPositive {
			positive++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(positive) / float64(total) * 100
}

// SentimentBand classifies an overall positive ratio into one of three bands.
// Exact thresholds: >=60 positive, >=40 mixed, otherwise concerns.
func SentimentBand(ratio float64) string {
	switch {
	case ratio >= 60:
		return BandPositive
	case ratio >= 40:
		return BandMixed
	default:
		return BandConcerns
	}
}

// SessionStats summarizes one participant session for the per-session
// breakdown table.
type SessionStats struct {
	SessionID       string `json:"session_id"`
	ParticipantName string `json:"participant_name"`
	Total           int    `json:"total"`
	Positive        int    `json:"positive"`
	Negative        int    `json:"negative"`
}

// SessionBreakdown computes marker totals and positive/negative emotion
// counts for each test session, in session order.
func SessionBreakdown(sessions []domain.TestSession) []SessionStats {
	out := make([]SessionStats, 0, len(sessions))
	for _, s := range sessions {
		st := SessionStats{SessionID: s.ID, ParticipantName: s.ParticipantName}
		for _, m := range s.Markers.Data() {
			st.Total++
			if m.Emotion == nil {
				continue
			}
			switch m.Emotion.Category() {
			case domain.CategoryPositive:
				st.Positive++
			case domain.CategoryNegative:
				st.Negative++
			}
		}
		out = append(out, st)
	}
	return out
}
