package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atikulmunna/dlcount/internal/model"
)

// Parser converts a raw access log line into a LogEvent.
type Parser interface {
	Parse(raw model.RawLine) (model.LogEvent, error)
}

// ParseError reports a line that does not match the expected log grammar.
type ParseError struct {
	Source string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
}

// ---------------------------------------------------------------------------
// Combined Log Format Parser
// ---------------------------------------------------------------------------

// timeLayout is the Apache %t layout: 17/Feb/2026:12:00:00 +0000
const timeLayout = "02/Jan/2006:15:04:05 -0700"

// quoted matches a double-quoted field that may contain backslash escapes.
const quoted = `"((?:[^"\\]|\\.)*)"`

// CombinedParser handles Apache combined log format lines:
//
//	%a - %u %t "%r" %>s %O "%{Referer}i" "%{User-agent}i"
type CombinedParser struct {
	re *regexp.Regexp
}

func NewCombinedParser() *CombinedParser {
	return &CombinedParser{
		re: regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] ` + quoted + ` (\d{3}) (\S+) ` + quoted + ` ` + quoted + `\s*$`),
	}
}

func (p *CombinedParser) Parse(raw model.RawLine) (model.LogEvent, error) {
	fail := func(format string, args ...interface{}) (model.LogEvent, error) {
		return model.LogEvent{}, &ParseError{Source: raw.Source, Line: raw.Number, Reason: fmt.Sprintf(format, args...)}
	}

	m := p.re.FindStringSubmatch(raw.Text)
	if m == nil {
		return fail("line does not match combined log format")
	}

	ts, err := time.Parse(timeLayout, m[4])
	if err != nil {
		return fail("bad timestamp %q", m[4])
	}

	path, err := requestPath(unescape(m[5]))
	if err != nil {
		return fail("%v", err)
	}

	status, _ := strconv.Atoi(m[6]) // guaranteed three digits by the pattern

	var bytes int64
	if m[7] != "-" {
		bytes, err = strconv.ParseInt(m[7], 10, 64)
		if err != nil {
			return fail("bad byte count %q", m[7])
		}
	}

	return model.LogEvent{
		Timestamp: ts.UTC(),
		IP:        m[1],
		Path:      path,
		Bytes:     bytes,
		UserAgent: unescape(m[9]),
		Status:    status,
	}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// requestPath extracts the decoded URL path from a request line such as
// "GET /files/setup.exe?x=1 HTTP/1.1".
func requestPath(request string) (string, error) {
	fields := strings.Fields(request)
	if len(fields) != 3 {
		return "", fmt.Errorf("malformed request line %q", request)
	}
	u, err := url.ParseRequestURI(fields[1])
	if err != nil {
		return "", fmt.Errorf("bad request target %q", fields[1])
	}
	return u.Path, nil
}

// unescape undoes the backslash escaping Apache applies to quoted fields.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
