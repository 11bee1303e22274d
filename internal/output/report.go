package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/atikulmunna/dlcount/internal/fsutil"
	"github.com/atikulmunna/dlcount/internal/model"
)

// Layouts of the aggregation time in the report header. The fraction is left
// out when the time falls on a whole second.
const (
	GeneratedLayout      = "2006-01-02 15:04:05.000000"
	GeneratedLayoutWhole = "2006-01-02 15:04:05"
)

const separator = "--------------------------------"

// Report is everything needed to render the statistics file.
type Report struct {
	Start       string              `json:"start"`
	Total       int                 `json:"total"`
	GeneratedAt time.Time           `json:"generated_at"`
	Ranked      []model.RankedCount `json:"counts"`
	Bytes       uint64              `json:"bytes"`
}

// Lines renders one line per artifact: name right-aligned in 28 columns,
// count left-aligned in 5.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r.Ranked))
	for _, rc := range r.Ranked {
		lines = append(lines, fmt.Sprintf("%28s: %-5d", rc.Name, rc.Count))
	}
	return lines
}

// String renders the full statistics file.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Start: %s\n", r.Start)
	fmt.Fprintf(&b, "Number of downloads: %d -> %s\n", r.Total, FormatGenerated(r.GeneratedAt))
	b.WriteString(separator + "\n")
	b.WriteString(strings.Join(r.Lines(), "\n"))
	return b.String()
}

// FormatGenerated renders t for the report header, with microseconds unless
// there are none.
func FormatGenerated(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(GeneratedLayoutWhole)
	}
	return t.Format(GeneratedLayout)
}

// WriteReport replaces the file at path with the rendered report.
func WriteReport(path string, r Report) error {
	if err := fsutil.WriteFileAtomic(path, []byte(r.String())); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
