package domain

import "testing"

func TestMarkerClamp_Bounds(t *testing.T) {
	cases := []struct {
		name         string
		x, y         float64
		wantX, wantY float64
	}{
		{"negative both", -50, -10, 1, 0},
		{"over both", 250, 180, 99, 100},
		{"x below floor", 0, 50, 1, 50},
		{"x above ceiling", 100, 50, 99, 50},
		{"in range untouched", 42.5, 13.7, 42.5, 13.7},
		{"y edges allowed", 50, 0, 50, 0},
	}
	for _, tc := range cases {
		m := Marker{X: tc.x, Y: tc.y}
		m.Clamp()
		if m.X != tc.wantX || m.Y != tc.wantY {
			t.Errorf("%s: Clamp() = (%v,%v); want (%v,%v)", tc.name, m.X, m.Y, tc.wantX, tc.wantY)
		}
	}
}

func TestMarkerClamp_AreaNeverOverflowsPage(t *testing.T) {
	m := NewEmotionMarker("m1", 90, 95, EmotionJoy, "").AsArea(40, 30)
	if m.Width == nil || m.Height == nil {
		t.Fatalf("area dimensions missing: %+v", m)
	}
	if *m.Width != 10 || *m.Height != 5 {
		t.Fatalf("area not clamped to page extent: w=%v h=%v", *m.Width, *m.Height)
	}
}

func TestConstructors_PayloadMatchesLayer(t *testing.T) {
	em := NewEmotionMarker("a", 10, 10, EmotionSadness, "too dense")
	if em.Layer != LayerEmotions || em.Emotion == nil || em.Need != nil || em.Brief != nil {
		t.Fatalf("emotion marker payload mismatch: %+v", em)
	}
	nm := NewNeedMarker("b", 10, 10, NeedCompetence, "")
	if nm.Layer != LayerNeeds || nm.Need == nil || nm.Emotion != nil || nm.Brief != nil {
		t.Fatalf("need marker payload mismatch: %+v", nm)
	}
	sm := NewStrategyMarker("c", 10, 10, BriefPainPoint, "")
	if sm.Layer != LayerStrategy || sm.Brief == nil || sm.Emotion != nil || sm.Need != nil {
		t.Fatalf("strategy marker payload mismatch: %+v", sm)
	}
}

func TestPayload_ReturnsLayerField(t *testing.T) {
	em := NewEmotionMarker("a", 10, 10, EmotionDesire, "")
	if got := em.Payload(); got != "Desire" {
		t.Errorf("Payload() = %q; want Desire", got)
	}
	// Malformed marker: layer set, payload missing. Payload is empty but the
	// marker itself stays renderable.
	bad := Marker{Layer: LayerEmotions}
	if got := bad.Payload(); got != "" {
		t.Errorf("Payload() on malformed marker = %q; want empty", got)
	}
}

func TestEmotionCategory(t *testing.T) {
	positives := []EmotionType{EmotionJoy, EmotionDesire, EmotionFascination, EmotionSatisfaction}
	for _, e := range positives {
		if e.Category() != CategoryPositive {
			t.Errorf("%s: category = %s; want positive", e, e.Category())
		}
	}
	negatives := []EmotionType{EmotionSadness, EmotionDisgust, EmotionBoredom, EmotionDissatisfaction}
	for _, e := range negatives {
		if e.Category() != CategoryNegative {
			t.Errorf("%s: category = %s; want negative", e, e.Category())
		}
	}
	if EmotionNeutral.Category() != CategoryNeutral {
		t.Errorf("Neutral category = %s; want neutral", EmotionNeutral.Category())
	}
	if EmotionType("Confusion").Category() != CategoryNeutral {
		t.Errorf("unknown emotion should fall back to neutral category")
	}
}

func TestLayerValid(t *testing.T) {
	for _, l := range []Layer{LayerEmotions, LayerNeeds, LayerStrategy} {
		if !l.Valid() {
			t.Errorf("%s should be valid", l)
		}
	}
	if Layer("feelings").Valid() {
		t.Errorf("unknown layer should be invalid")
	}
}

func TestEntitlementCanAnalyze(t *testing.T) {
	cases := []struct {
		e    Entitlement
		want bool
	}{
		{Entitlement{RemainingAnalyses: 3}, true},
		{Entitlement{PackCredits: 1}, true},
		{Entitlement{RemainingAnalyses: 0, PackCredits: 0}, false},
	}
	for i, tc := range cases {
		if got := tc.e.CanAnalyze(); got != tc.want {
			t.Errorf("case %d: CanAnalyze() = %v; want %v", i, got, tc.want)
		}
	}
}
