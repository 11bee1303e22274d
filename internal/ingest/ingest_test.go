package ingest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/dlcount/internal/model"
	"github.com/atikulmunna/dlcount/internal/parser"
)

const sampleLog = `198.51.100.1 - - [08/Oct/2021:10:00:00 +0000] "GET /files/dsr-setup.exe HTTP/1.1" 200 1000 "-" "Mozilla/5.0"
198.51.100.2 - - [08/Oct/2021:10:00:05 +0000] "GET /files/dsr-setup.exe HTTP/1.1" 200 1000 "-" "Mozilla/5.0"
66.249.66.1 - - [08/Oct/2021:10:00:09 +0000] "GET /files/dsr-setup.exe HTTP/1.1" 200 1000 "-" "Googlebot/2.1"
198.51.100.3 - - [08/Oct/2021:10:00:12 +0000] "GET /css/site.css HTTP/1.1" 200 200 "-" "Mozilla/5.0"
198.51.100.4 - - [08/Oct/2021:10:00:15 +0000] "GET /files/dsr-setup.exe HTTP/1.1" 404 0 "-" "Mozilla/5.0"
`

func writeLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func line(path, ua string, status int) string {
	return `10.0.0.1 - - [08/Oct/2021:10:00:00 +0000] "GET ` + path + ` HTTP/1.1" ` +
		strconv.Itoa(status) + ` 100 "-" "` + ua + `"`
}

func TestClassify(t *testing.T) {
	cases := []struct {
		path   string
		ua     string
		status int
		want   Reason
	}{
		{"/files/dsr-setup.exe", "Mozilla/5.0", 200, Accepted},
		{"/files/dsr-setup.exe", "Mozilla/5.0", 206, RejectStatus},
		{"/files/dsr-setup.exe", "Mozilla/5.0", 304, RejectStatus},
		{"/files/dsr-setup.exe", "bingbot/2.0", 200, RejectBot},
		{"/files/dsr-setup.exe", "Googlebot", 200, RejectBot},
		{"/files/dsr-setup.exe", "GOOGLEBOT", 200, Accepted},
		{"/", "Mozilla/5.0", 200, RejectRoot},
		{"/index.html", "Mozilla/5.0", 200, RejectExcluded},
		{"/robots.txt", "Mozilla/5.0", 200, RejectExcluded},
		{"/mystats.txt", "Mozilla/5.0", 200, RejectExcluded},
		{"/img/logo.png", "Mozilla/5.0", 200, RejectExcluded},
		{"/js/app.js", "Mozilla/5.0", 200, RejectExcluded},
		{"/fonts/a.woff2", "Mozilla/5.0", 200, RejectExcluded},
		{"/css/site.css", "Mozilla/5.0", 200, RejectExcluded},
		{"/files/version.txt", "Mozilla/5.0", 200, Accepted},
	}

	p := parser.NewCombinedParser()
	for _, tc := range cases {
		ev, err := p.Parse(model.RawLine{Text: line(tc.path, tc.ua, tc.status)})
		require.NoError(t, err)
		assert.Equal(t, tc.want, Classify(ev), "path=%s ua=%s status=%d", tc.path, tc.ua, tc.status)
	}
}

func TestIngestFiltersAndCounts(t *testing.T) {
	path := writeLog(t, "access.log", sampleLog+"this line is broken\n\n")

	in := New(parser.NewCombinedParser())
	store, res, err := in.Ingest(path, model.NewEventStore())
	require.NoError(t, err)

	assert.Len(t, store, 2)
	assert.Equal(t, 6, res.Lines)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.ParseErrors)
	assert.Equal(t, 1, res.Rejected[RejectBot])
	assert.Equal(t, 1, res.Rejected[RejectExcluded])
	assert.Equal(t, 1, res.Rejected[RejectStatus])
	assert.Equal(t, []string{path}, res.Files)

	for _, ev := range store {
		assert.Equal(t, 200, ev.Status)
		assert.Equal(t, "/files/dsr-setup.exe", ev.Path)
	}
}

func TestIngestSkipsOverLongLine(t *testing.T) {
	after := `198.51.100.9 - - [08/Oct/2021:11:00:00 +0000] "GET /files/finalcif-setup.exe HTTP/1.1" 200 1000 "-" "Mozilla/5.0"`
	input := sampleLog + strings.Repeat("x", 2*maxLineSize) + "\n" + after + "\n"

	store := model.NewEventStore()
	res, err := New(parser.NewCombinedParser()).IngestReader(strings.NewReader(input), "access.log", store)
	require.NoError(t, err)

	assert.Equal(t, 7, res.Lines)
	assert.Equal(t, 1, res.ParseErrors)
	assert.Equal(t, 3, res.Accepted)
	assert.Len(t, store, 3)
	assert.Contains(t, store, "2021-10-08T11:00:00Z")
}

func TestIngestLastLineWithoutNewline(t *testing.T) {
	store := model.NewEventStore()
	input := strings.TrimSuffix(sampleLog, "\n")

	res, err := New(parser.NewCombinedParser()).IngestReader(strings.NewReader(input), "access.log", store)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Lines)
	assert.Equal(t, 0, res.ParseErrors)
	assert.Len(t, store, 2)
}

func TestIngestIsIdempotent(t *testing.T) {
	path := writeLog(t, "access.log", sampleLog)
	in := New(parser.NewCombinedParser())

	once, _, err := in.Ingest(path, model.NewEventStore())
	require.NoError(t, err)

	twice, _, err := in.Ingest(path, model.NewEventStore())
	require.NoError(t, err)
	twice, _, err = in.Ingest(path, twice)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestIngestKeepsExistingEvents(t *testing.T) {
	path := writeLog(t, "access.log", sampleLog)

	old := model.NewEventStore()
	old.Put(model.LogEvent{Path: "/files/old-1.zip", Status: 200})

	store, _, err := New(parser.NewCombinedParser()).Ingest(path, old)
	require.NoError(t, err)
	assert.Len(t, store, 3)
}

func TestIngestGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log.1.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(sampleLog))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	store, res, err := New(parser.NewCombinedParser()).Ingest(path, nil)
	require.NoError(t, err)
	assert.Len(t, store, 2)
	assert.Equal(t, 5, res.Lines)
}

func TestIngestGlob(t *testing.T) {
	dir := t.TempDir()
	lines := strings.SplitAfter(sampleLog, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access.log"), []byte(lines[0]), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access.log.1"), []byte(lines[1]), 0644))

	store, res, err := New(parser.NewCombinedParser()).Ingest(filepath.Join(dir, "access.log*"), nil)
	require.NoError(t, err)
	assert.Len(t, store, 2)
	assert.Len(t, res.Files, 2)
}

func TestIngestMissingInput(t *testing.T) {
	in := New(parser.NewCombinedParser())

	_, _, err := in.Ingest(filepath.Join(t.TempDir(), "nope.log"), nil)
	assert.ErrorIs(t, err, ErrInputNotFound)

	_, _, err = in.Ingest(filepath.Join(t.TempDir(), "*.log"), nil)
	assert.ErrorIs(t, err, ErrInputNotFound)
}
