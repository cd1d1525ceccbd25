package pdfdoc

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/go-pdf/fpdf"
)

const (
	ReportTitle      = "AetherCare - AI Health Analysis Report"
	NoAnalysisNotice = "No AI analysis available. Please ensure files were uploaded correctly."
	TruncationMarker = "... (truncated for brevity)"
	DisclaimerText   = "This analysis is generated by AI and is for informational purposes only. " +
		"It should not be used as a substitute for professional medical advice, diagnosis, or treatment. " +
		"Always consult with qualified healthcare professionals for medical decisions."

	// MaxOriginalChars bounds the original-content section.
	MaxOriginalChars = 2000

	notAvailable = "N/A"
)

// Style is the font and colour of a block.
type Style struct {
	Size  float64
	Bold  bool
	Color [3]int
}

var (
	titleStyle      = Style{Size: 20, Bold: true, Color: [3]int{51, 153, 204}}
	headingStyle    = Style{Size: 16, Bold: true, Color: [3]int{77, 77, 77}}
	disclaimerHead  = Style{Size: 14, Bold: true, Color: [3]int{204, 51, 51}}
	fieldStyle      = Style{Size: 12}
	analysisStyle   = Style{Size: 11}
	noticeStyle     = Style{Size: 11, Color: [3]int{153, 153, 153}}
	originalStyle   = Style{Size: 10}
	disclaimerStyle = Style{Size: 10, Color: [3]int{128, 128, 128}}
	footerStyle     = Style{Size: 10, Color: [3]int{128, 128, 128}}
)

// Block is one wrapped paragraph followed by extra vertical space.
type Block struct {
	Text     string
	Style    Style
	GapAfter float64
}

// Input is everything a report is composed from.
type Input struct {
	Profile       *models.Profile
	ImageAnalysis *string
	PDFSummary    *string
	DocumentText  string
	GeneratedAt   time.Time
}

// Blocks returns the report content in drawing order.
func Blocks(in Input) []Block {
	blocks := []Block{
		{Text: ReportTitle, Style: titleStyle, GapAfter: 15},
		{Text: "PATIENT INFORMATION", Style: headingStyle, GapAfter: 10},
	}
	blocks = append(blocks, patientBlocks(in.Profile)...)
	blocks[len(blocks)-1].GapAfter = 20

	if in.ImageAnalysis != nil {
		blocks = append(blocks,
			Block{Text: "IMAGE AI ANALYSIS (Radiology-Infer-Mini)", Style: headingStyle, GapAfter: 10},
			Block{Text: *in.ImageAnalysis, Style: analysisStyle, GapAfter: 20},
		)
	}
	if in.PDFSummary != nil {
		blocks = append(blocks,
			Block{Text: "MEDICAL REPORT ANALYSIS (Gemini AI)", Style: headingStyle, GapAfter: 10},
			Block{Text: *in.PDFSummary, Style: analysisStyle, GapAfter: 20},
		)
	}
	if in.ImageAnalysis == nil && in.PDFSummary == nil {
		blocks = append(blocks, Block{Text: NoAnalysisNotice, Style: noticeStyle, GapAfter: 20})
	}

	blocks = append(blocks,
		Block{Text: "ORIGINAL REPORT CONTENT", Style: headingStyle, GapAfter: 10},
		Block{Text: TruncateText(in.DocumentText, MaxOriginalChars), Style: originalStyle},
		Block{Text: "IMPORTANT DISCLAIMER", Style: disclaimerHead, GapAfter: 10},
		Block{Text: DisclaimerText, Style: disclaimerStyle},
	)
	return blocks
}

func patientBlocks(p *models.Profile) []Block {
	if p == nil {
		p = &models.Profile{}
	}
	bmi := notAvailable
	if p.BMI > 0 {
		bmi = fmt.Sprintf("%.1f", p.BMI)
	}
	lines := []string{
		"Name: " + orNA(p.Name),
		"Age: " + withUnit(p.Age, "years"),
		"Height: " + withUnit(p.Height, "cm"),
		"Weight: " + withUnit(p.Weight, "kg"),
		"BMI: " + bmi,
		"Habits: " + orNA(p.Habits),
		"Allergies: " + orNA(p.Allergies),
		"Chronic Conditions: " + orNA(p.ChronicConditions),
		"Family History: " + orNA(p.FamilyConditions),
	}
	blocks := make([]Block, len(lines))
	for i, l := range lines {
		blocks[i] = Block{Text: l, Style: fieldStyle}
	}
	return blocks
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func withUnit(s, unit string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s + " " + unit
}

// TruncateText keeps the first max characters and appends the truncation marker.
func TruncateText(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "\n\n" + TruncationMarker
}

// Compose renders the report into a PDF.
func Compose(in Input) ([]byte, error) {
	l := LetterLayout
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(ReportTitle, true)
	pdf.SetCreator("AetherCare", true)
	pdf.AddPage()

	w := &writer{
		pdf:    pdf,
		layout: l,
		cursor: l.Start(),
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	for _, b := range Blocks(in) {
		w.block(b)
	}

	w.setStyle(footerStyle)
	pdf.Text(l.MarginLeft, l.PageHeight-30, w.tr("Generated on: "+in.GeneratedAt.UTC().Format("2006-01-02")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type writer struct {
	pdf    *fpdf.Fpdf
	layout Layout
	cursor Cursor
	tr     func(string) string
}

func (w *writer) setStyle(s Style) {
	fontStyle := ""
	if s.Bold {
		fontStyle = "B"
	}
	w.pdf.SetFont("Helvetica", fontStyle, s.Size)
	w.pdf.SetTextColor(s.Color[0], s.Color[1], s.Color[2])
}

func (w *writer) block(b Block) {
	w.setStyle(b.Style)
	for _, line := range Wrap(w.tr(b.Text), w.pdf.GetStringWidth, w.layout.ContentWidth()) {
		if line != "" {
			w.fit()
			w.pdf.Text(w.layout.MarginLeft, w.cursor.Y, line)
		}
		w.cursor = Advance(w.cursor, b.Style.Size+5)
	}
	if b.GapAfter > 0 {
		w.cursor = Advance(w.cursor, b.GapAfter)
	}
}

func (w *writer) fit() {
	next, broke := Fit(w.layout, w.cursor)
	if broke {
		w.pdf.AddPage()
	}
	w.cursor = next
}
