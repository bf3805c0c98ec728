package ai

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lemtool/lem-backend/internal/domain"
)

// FallbackAnalysis produces the deterministic demo marker set and report
// substituted when the analysis service is unreachable or its response is
// unparseable. Both failure paths funnel through this single generator so
// "demo mode" output is identical and testable regardless of how the real
// call failed. Marker ids are freshly generated; everything else is fixed.
func FallbackAnalysis(targetURL string) ([]domain.Marker, domain.AnalysisReport) {
	markers := []domain.Marker{
		domain.NewEmotionMarker(uuid.NewString(), 50, 8, domain.EmotionFascination,
			"The hero section draws attention immediately."),
		domain.NewEmotionMarker(uuid.NewString(), 20, 35, domain.EmotionSatisfaction,
			"Navigation labels are clear and predictable."),
		domain.NewEmotionMarker(uuid.NewString(), 75, 55, domain.EmotionBoredom,
			"This block of text is long and visually flat."),
		domain.NewEmotionMarker(uuid.NewString(), 50, 80, domain.EmotionNeutral,
			"The footer is functional but unremarkable."),
		domain.NewNeedMarker(uuid.NewString(), 30, 20, domain.NeedAutonomy,
			"Visitors can choose their own path from the landing view."),
		domain.NewNeedMarker(uuid.NewString(), 65, 45, domain.NeedCompetence,
			"The form gives no feedback about what a valid input looks like."),
		domain.NewStrategyMarker(uuid.NewString(), 50, 30, domain.BriefOpportunity,
			"A prominent call to action here would capture engaged visitors."),
		domain.NewStrategyMarker(uuid.NewString(), 80, 65, domain.BriefPainPoint,
			"Important details are buried below the fold."),
	}

	report := domain.AnalysisReport{
		Score:          65,
		Summary:        fmt.Sprintf("Preview analysis of %s. This is demonstration content shown because the live analysis was unavailable.", targetURL),
		TargetAudience: "General web visitors evaluating the product or service at a glance.",
		SDT: domain.SDTScores{
			Autonomy:    domain.SDTScore{Score: 6.5, Justification: "Clear navigation offers choice, though some paths are hidden."},
			Competence:  domain.SDTScore{Score: 6.0, Justification: "Most interactions are self-explanatory; forms lack guidance."},
			Relatedness: domain.SDTScore{Score: 5.5, Justification: "Little social proof or human imagery to connect with."},
		},
		KeyFindings: []domain.KeyFinding{
			{Title: "Strong first impression", Description: "The hero area communicates purpose quickly.", Valence: "positive"},
			{Title: "Dense mid-page content", Description: "Long unbroken text reduces engagement halfway down.", Valence: "negative"},
		},
		Suggestions: []string{
			"Break long text blocks into scannable sections.",
			"Add a visible call to action above the fold.",
			"Provide inline validation hints on form fields.",
		},
	}
	return markers, report
}
