package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
)

// Renderer writes a Report to an output stream.
type Renderer interface {
	Render(r Report) error
}

// New returns the renderer for the given format name, writing to w.
func New(format string, w io.Writer) Renderer {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONRenderer(w)
	default:
		return NewTextRenderer(w)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleName   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")) // cyan
	styleCount  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleTop    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true) // green
	styleFaint  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// TextRenderer prints the ranked table with colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to w, or
// stdout when w is nil.
func NewTextRenderer(w io.Writer) *TextRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(rep Report) error {
	header := fmt.Sprintf("Number of downloads: %d", rep.Total)
	if rep.Bytes > 0 {
		header += styleFaint.Render(fmt.Sprintf("  (%s served)", humanize.Bytes(rep.Bytes)))
	}
	if _, err := fmt.Fprintln(r.w, styleHeader.Render(header)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.w, styleFaint.Render(separator)); err != nil {
		return err
	}

	for i, rc := range rep.Ranked {
		name := styleName.Render(fmt.Sprintf("%28s", rc.Name))
		count := styleCount
		if i == 0 {
			count = styleTop
		}
		if _, err := fmt.Fprintf(r.w, "%s: %s\n", name, count.Render(fmt.Sprintf("%-5d", rc.Count))); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints the report as a single JSON object.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON to w, or stdout when w is nil.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(rep Report) error {
	return r.enc.Encode(rep)
}
