package export

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/go-pdf/fpdf"

	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/insights"
)

// A4 layout in millimetres.
const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
	pageMarginMM = 10.0

	usableWidthMM  = pageWidthMM - 2*pageMarginMM
	usableHeightMM = pageHeightMM - 2*pageMarginMM
)

// Document carries everything the exported report renders: the AI analysis,
// the rollup statistics over the full marker set, and the optional full-page
// screenshot (PNG bytes).
type Document struct {
	TargetURL     string
	DemoMode      bool
	Report        domain.AnalysisReport
	Breakdown     []insights.EmotionCount
	PositiveRatio float64
	Band          string
	Sessions      []insights.SessionStats
	AIMarkers     int
	HumanMarkers  int
	Screenshot    []byte
}

// RenderPDF assembles the report PDF: a summary page with scores and the
// emotion breakdown, a per-session comparison table, and the screenshot
// paginated across as many pages as its scaled height needs.
func RenderPDF(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("UX Report", true)
	pdf.SetAutoPageBreak(false, pageMarginMM)

	writeSummaryPage(pdf, doc)
	writeSessionsPage(pdf, doc)
	if len(doc.Screenshot) > 0 {
		if err := writeScreenshotPages(pdf, doc.Screenshot); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummaryPage(pdf *fpdf.Fpdf, doc Document) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(usableWidthMM, 12, "UX Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(usableWidthMM, 6, doc.TargetURL, "", 1, "L", false, 0, "")
	if doc.DemoMode {
		pdf.SetTextColor(180, 100, 0)
		pdf.CellFormat(usableWidthMM, 6, "Preview report (demo data)", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(usableWidthMM, 8, fmt.Sprintf("Overall score: %.0f / 100", doc.Report.Score), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(usableWidthMM, 5, doc.Report.Summary, "", "L", false)
	pdf.Ln(2)
	pdf.MultiCell(usableWidthMM, 5, "Target audience: "+doc.Report.TargetAudience, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(usableWidthMM, 7, "Self-Determination Theory", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	sdt := []struct {
		name  string
		score domain.SDTScore
	}{
		{"Autonomy", doc.Report.SDT.Autonomy},
		{"Competence", doc.Report.SDT.Competence},
		{"Relatedness", doc.Report.SDT.Relatedness},
	}
	for _, row := range sdt {
		pdf.CellFormat(40, 6, row.name, "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%.1f / 10", row.score.Score), "", 0, "L", false, 0, "")
		pdf.MultiCell(usableWidthMM-60, 6, row.score.Justification, "", "L", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(usableWidthMM, 7, "Emotional response", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(usableWidthMM, 6,
		fmt.Sprintf("Positive ratio %.0f%% - %s", doc.PositiveRatio, doc.Band), "", 1, "L", false, 0, "")
	for _, row := range doc.Breakdown {
		pdf.CellFormat(usableWidthMM, 5,
			fmt.Sprintf("%s: %d (%d%%)", row.Emotion, row.Count, row.Percent), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(doc.Report.KeyFindings) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(usableWidthMM, 7, "Key findings", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, f := range doc.Report.KeyFindings {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(usableWidthMM, 5, f.Title, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(usableWidthMM, 5, f.Description, "", "L", false)
		}
	}
}

func writeSessionsPage(pdf *fpdf.Fpdf, doc Document) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(usableWidthMM, 9, "AI vs participants", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(usableWidthMM, 6,
		fmt.Sprintf("AI markers: %d   Participant markers: %d", doc.AIMarkers, doc.HumanMarkers),
		"", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(70, 6, "Participant", "B", 0, "L", false, 0, "")
	pdf.CellFormat(30, 6, "Markers", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, "Positive", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, "Negative", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, s := range doc.Sessions {
		pdf.CellFormat(70, 6, s.ParticipantName, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.Total), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.Positive), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.Negative), "", 1, "R", false, 0, "")
	}
	if len(doc.Sessions) == 0 {
		pdf.CellFormat(usableWidthMM, 6, "No participant sessions yet.", "", 1, "L", false, 0, "")
	}
}

// writeScreenshotPages registers the PNG once and draws it on successive
// pages shifted up by one usable page height each time, per the Paginate
// contract.
func writeScreenshotPages(pdf *fpdf.Fpdf, shot []byte) error {
	cfg, err := png.DecodeConfig(bytes.NewReader(shot))
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("screenshot", opts, bytes.NewReader(shot))
	if pdf.Err() {
		return fmt.Errorf("register screenshot: %v", pdf.Error())
	}

	imgW := float64(cfg.Width)
	imgH := float64(cfg.Height)
	scaledH := ScaledHeight(imgW, imgH, usableWidthMM)
	for _, slice := range Paginate(imgW, imgH, usableWidthMM, usableHeightMM, pageMarginMM) {
		pdf.AddPage()
		pdf.ImageOptions("screenshot",
			pageMarginMM, pageMarginMM-slice.OffsetY,
			usableWidthMM, scaledH,
			false, opts, 0, "")
	}
	if pdf.Err() {
		return fmt.Errorf("draw screenshot: %v", pdf.Error())
	}
	return nil
}
