package aggregator

import (
	"errors"
	"path"
	"strings"

	"github.com/atikulmunna/dlcount/internal/model"
)

// ProbeName is the artifact key of version probes. Probes are counted but
// excluded from the download total.
const ProbeName = "version.txt"

// Reasons an event does not map to an artifact.
var (
	ErrDocs    = errors.New("docs")
	ErrFavicon = errors.New("favicon")
	ErrBlank   = errors.New("blank")
)

// Diagnostics counts events that were not attributed to any artifact, and
// events counted under the empty artifact name.
type Diagnostics struct {
	Skipped  map[string]int `json:"skipped"`
	EmptyKey int            `json:"empty_key"`
}

// Total returns the number of skipped events.
func (d Diagnostics) Total() int {
	var n int
	for _, v := range d.Skipped {
		n += v
	}
	return n
}

// Filename returns the last element of a request path. A path of "/" or ""
// has no filename.
func Filename(requestPath string) string {
	name := path.Base(requestPath)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// Normalize maps a request path to its artifact key: the filename up to the
// first hyphen, lowercased. "FinalCif-setup-x64-v10.exe" becomes "finalcif".
// A filename without a hyphen is used whole; one starting with a hyphen maps
// to the empty key.
func Normalize(requestPath string) (string, error) {
	name := Filename(requestPath)
	switch name {
	case "":
		return "", ErrBlank
	case "docs":
		return "", ErrDocs
	case "favicon.ico":
		return "", ErrFavicon
	}

	key, _, _ := strings.Cut(name, "-")
	return strings.ToLower(key), nil
}

// Result is a CountTable together with the events that could not be counted.
type Result struct {
	Counts      *model.CountTable
	Diagnostics Diagnostics
}

// Count builds a fresh CountTable from every event in the store.
func Count(store model.EventStore) Result {
	res := Result{
		Counts:      model.NewCountTable(),
		Diagnostics: Diagnostics{Skipped: make(map[string]int)},
	}
	for _, ev := range store.Events() {
		key, err := Normalize(ev.Path)
		if err != nil {
			res.Diagnostics.Skipped[err.Error()]++
			continue
		}
		if key == "" {
			res.Diagnostics.EmptyKey++
		}
		res.Counts.Inc(key)
	}
	return res
}

// Total returns the number of real downloads in the table, leaving out
// version probes.
func Total(counts *model.CountTable) int {
	probes, _ := counts.Get(ProbeName)
	return counts.Sum() - probes
}

// BytesServed sums the bytes sent for every stored event.
func BytesServed(store model.EventStore) uint64 {
	var n uint64
	for _, ev := range store {
		if ev.Bytes > 0 {
			n += uint64(ev.Bytes)
		}
	}
	return n
}
