// Package domain defines the persistence models and the marker/report data
// model for analyzed pages. These types are mapped with GORM and form the
// core data layer of the application.
package domain

// Layer is the three-way classification axis a marker belongs to. A marker
// carries exactly one layer-specific payload field, matching its layer.
type Layer string

// Marker layers.
const (
	LayerEmotions Layer = "emotions"
	LayerNeeds    Layer = "needs"
	LayerStrategy Layer = "strategy"
)

// Valid reports whether l is one of the known layers.
func (l Layer) Valid() bool {
	switch l {
	case LayerEmotions, LayerNeeds, LayerStrategy:
		return true
	}
	return false
}

// Source is the provenance tag distinguishing AI-generated markers from
// human-submitted ones.
type Source string

// Marker sources.
const (
	SourceAI    Source = "ai"
	SourceHuman Source = "human"
)

// EmotionType is one of the nine emotional responses a marker can express.
type EmotionType string

// Emotion values.
const (
	EmotionJoy             EmotionType = "Joy"
	EmotionDesire          EmotionType = "Desire"
	EmotionFascination     EmotionType = "Fascination"
	EmotionSatisfaction    EmotionType = "Satisfaction"
	EmotionNeutral         EmotionType = "Neutral"
	EmotionSadness         EmotionType = "Sadness"
	EmotionDisgust         EmotionType = "Disgust"
	EmotionBoredom         EmotionType = "Boredom"
	EmotionDissatisfaction EmotionType = "Dissatisfaction"
)

// EmotionCategory groups emotions for positive/negative ratio computations.
type EmotionCategory string

// Emotion categories.
const (
	CategoryPositive EmotionCategory = "positive"
	CategoryNeutral  EmotionCategory = "neutral"
	CategoryNegative EmotionCategory = "negative"
)

// Category returns the category an emotion belongs to. Unknown values map to
// the neutral category so that malformed upstream data never breaks ratio
// computations.
func (e EmotionType) Category() EmotionCategory {
	switch e {
	case EmotionJoy, EmotionDesire, EmotionFascination, EmotionSatisfaction:
		return CategoryPositive
	case EmotionSadness, EmotionDisgust, EmotionBoredom, EmotionDissatisfaction:
		return CategoryNegative
	}
	return CategoryNeutral
}

// NeedType is one of the three Self-Determination Theory needs.
type NeedType string

// Need values.
const (
	NeedAutonomy    NeedType = "Autonomy"
	NeedCompetence  NeedType = "Competence"
	NeedRelatedness NeedType = "Relatedness"
)

// BriefType classifies a strategy-layer marker.
type BriefType string

// Brief types.
const (
	BriefOpportunity BriefType = "Opportunity"
	BriefPainPoint   BriefType = "Pain Point"
	BriefInsight     BriefType = "Insight"
)

// AppraisalType classifies the structured rationale a human participant can
// attach to a marker.
type AppraisalType string

// Appraisal types.
const (
	AppraisalGoal     AppraisalType = "Goal"
	AppraisalAttitude AppraisalType = "Attitude"
	AppraisalNorm     AppraisalType = "Norm"
	AppraisalStandard AppraisalType = "Standard"
)

// Appraisal is an optional structured rationale captured from human
// participants alongside the free-text comment.
type Appraisal struct {
	Type    AppraisalType `json:"type"`
	Prefix  string        `json:"prefix"`
	Content string        `json:"content"`
}

// Marker is a single annotation on an analyzed page. Position is expressed in
// percent of page width/height; area markers additionally carry a width and
// height. Exactly one of Emotion, Need, and Brief is populated, matching
// Layer; the NewEmotionMarker/NewNeedMarker/NewStrategyMarker constructors
// keep that invariant structurally true.
//
// Markers have no lifecycle of their own: they are always embedded in either
// a Project (AI origin) or a TestSession (human origin).
type Marker struct {
	ID     string   `json:"id"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	IsArea bool     `json:"is_area"`

	Layer   Layer        `json:"layer"`
	Emotion *EmotionType `json:"emotion,omitempty"`
	Need    *NeedType    `json:"need,omitempty"`
	Brief   *BriefType   `json:"brief_type,omitempty"`

	Source    Source     `json:"source"`
	SessionID string     `json:"session_id,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	Appraisal *Appraisal `json:"appraisal,omitempty"`
}

// Coordinate bounds enforced on ingestion. Upstream AI output is not trusted
// to respect them.
const (
	MinX = 1.0
	MaxX = 99.0
	MinY = 0.0
	MaxY = 100.0
)

// Clamp forces the marker position into the allowed range: X in [1,99] and
// Y in [0,100]. Area dimensions are clamped to the remaining page extent so
// a rectangle can never overflow the page.
func (m *Marker) Clamp() {
	m.X = clampFloat(m.X, MinX, MaxX)
	m.Y = clampFloat(m.Y, MinY, MaxY)
	if m.Width != nil {
		w := clampFloat(*m.Width, 0, 100-m.X)
		m.Width = &w
	}
	if m.Height != nil {
		h := clampFloat(*m.Height, 0, 100-m.Y)
		m.Height = &h
	}
}

// Payload returns the layer-specific payload value as a string, or ""
// when the payload is absent (malformed data keeps rendering with a neutral
// encoding rather than being dropped).
func (m Marker) Payload() string {
	switch m.Layer {
	case LayerEmotions:
		if m.Emotion != nil {
			return string(*m.Emotion)
		}
	case LayerNeeds:
		if m.Need != nil {
			return string(*m.Need)
		}
	case LayerStrategy:
		if m.Brief != nil {
			return string(*m.Brief)
		}
	}
	return ""
}

// NewEmotionMarker builds a point marker on the emotions layer.
func NewEmotionMarker(id string, x, y float64, emotion EmotionType, comment string) Marker {
	e := emotion
	m := Marker{ID: id, X: x, Y: y, Layer: LayerEmotions, Emotion: &e, Comment: comment}
	m.Clamp()
	return m
}

// NewNeedMarker builds a point marker on the needs layer.
func NewNeedMarker(id string, x, y float64, need NeedType, comment string) Marker {
	n := need
	m := Marker{ID: id, X: x, Y: y, Layer: LayerNeeds, Need: &n, Comment: comment}
	m.Clamp()
	return m
}

// NewStrategyMarker builds a point marker on the strategy layer.
func NewStrategyMarker(id string, x, y float64, brief BriefType, comment string) Marker {
	b := brief
	m := Marker{ID: id, X: x, Y: y, Layer: LayerStrategy, Brief: &b, Comment: comment}
	m.Clamp()
	return m
}

// AsArea converts m into an area marker with the given percent dimensions.
func (m Marker) AsArea(width, height float64) Marker {
	m.IsArea = true
	m.Width = &width
	m.Height = &height
	m.Clamp()
	return m
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
