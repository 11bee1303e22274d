package ingest

import (
	"strings"

	"github.com/atikulmunna/dlcount/internal/model"
)

// Reason classifies why an event was kept or discarded.
type Reason string

const (
	Accepted       Reason = "accepted"
	RejectStatus   Reason = "status"
	RejectBot      Reason = "bot"
	RejectRoot     Reason = "root"
	RejectExcluded Reason = "excluded"
)

// excludedSuffixes are site assets and pages; requests for them are not downloads.
var excludedSuffixes = []string{
	".html",
	"robots.txt",
	"mystats.txt",
	".png",
	".js",
	".woff2",
	".css",
}

// Classify decides whether a parsed event is a download worth storing.
func Classify(ev model.LogEvent) Reason {
	switch {
	case ev.Status != 200:
		return RejectStatus
	case strings.Contains(ev.UserAgent, "bot"):
		return RejectBot
	case ev.Path == "/":
		return RejectRoot
	}
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(ev.Path, suffix) {
			return RejectExcluded
		}
	}
	return Accepted
}
