package pdfdoc

import "strings"

// Layout describes the page geometry in points, measured from the top-left corner.
type Layout struct {
	PageWidth   float64
	PageHeight  float64
	MarginLeft  float64
	MarginRight float64
	MarginTop   float64
	// BottomLimit is the distance from the bottom edge below which no line may start.
	BottomLimit float64
}

// LetterLayout is the US Letter page used for every report.
var LetterLayout = Layout{
	PageWidth:   612,
	PageHeight:  792,
	MarginLeft:  50,
	MarginRight: 50,
	MarginTop:   50,
	BottomLimit: 100,
}

// ContentWidth is the usable line width.
func (l Layout) ContentWidth() float64 {
	return l.PageWidth - l.MarginLeft - l.MarginRight
}

// Cursor is the position of the next baseline.
type Cursor struct {
	Page int
	Y    float64
}

// Start returns the cursor at the top of the first page.
func (l Layout) Start() Cursor {
	return Cursor{Page: 1, Y: l.MarginTop}
}

// Advance moves the cursor down by step without breaking the page.
func Advance(c Cursor, step float64) Cursor {
	c.Y += step
	return c
}

// Fit returns the cursor where the next line can be drawn. When the cursor has
// passed the bottom limit it moves to the top of the next page and reports the
// break, so a page is only started once there is a line to put on it.
func Fit(l Layout, c Cursor) (Cursor, bool) {
	if c.Y > l.PageHeight-l.BottomLimit {
		return Cursor{Page: c.Page + 1, Y: l.MarginTop}, true
	}
	return c, false
}

// Wrap splits text into lines no wider than maxWidth, breaking only between
// words. Newlines start a new paragraph; an empty paragraph yields an empty
// line. A single word wider than maxWidth is kept whole on its own line.
func Wrap(text string, measure func(string) float64, maxWidth float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line != "" && measure(candidate) > maxWidth {
				lines = append(lines, line)
				line = word
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}
