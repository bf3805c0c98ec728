package domain

// SDTScore is one Self-Determination Theory dimension score with the model's
// justification text.
type SDTScore struct {
	Score         float64 `json:"score"` // 0-10
	Justification string  `json:"justification"`
}

// SDTScores holds the three named SDT dimensions.
type SDTScores struct {
	Autonomy    SDTScore `json:"autonomy"`
	Competence  SDTScore `json:"competence"`
	Relatedness SDTScore `json:"relatedness"`
}

// KeyFinding is a single titled observation with a valence
// ("positive"/"negative"/"neutral").
type KeyFinding struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Valence     string `json:"valence"`
}

// Recommendation is one categorized improvement suggestion.
type Recommendation struct {
	Priority       string `json:"priority"` // high|medium|low
	CurrentState   string `json:"current_state"`
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
	Example        string `json:"example,omitempty"`
}

// Recommendations groups recommendations by discipline. All lists are
// optional.
type Recommendations struct {
	Design []Recommendation `json:"design,omitempty"`
	Copy   []Recommendation `json:"copy,omitempty"`
	UX     []Recommendation `json:"ux,omitempty"`
}

// Persona describes one target-audience persona the model derived for the
// analyzed page.
type Persona struct {
	Name        string `json:"name"`
	Age         string `json:"age,omitempty"`
	Description string `json:"description"`
	Goals       string `json:"goals,omitempty"`
}

// AnalysisReport is the AI-produced summary attached 1:1 to a Project. It is
// created atomically with its project and never independently mutated.
type AnalysisReport struct {
	Score          float64          `json:"score"` // 0-100
	Summary        string           `json:"summary"`
	TargetAudience string           `json:"target_audience"`
	SDT            SDTScores        `json:"sdt_scores"`
	KeyFindings    []KeyFinding     `json:"key_findings,omitempty"`
	Suggestions    []string         `json:"suggestions,omitempty"`
	Recommendation *Recommendations `json:"recommendations,omitempty"`
	Personas       []Persona        `json:"personas,omitempty"`
}
