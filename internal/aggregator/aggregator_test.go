package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/dlcount/internal/model"
)

func event(sec int, path string) model.LogEvent {
	return model.LogEvent{
		Timestamp: time.Date(2021, 10, 8, 10, 0, sec, 0, time.UTC),
		IP:        "198.51.100.1",
		Path:      path,
		Bytes:     1000,
		UserAgent: "Mozilla/5.0",
		Status:    200,
	}
}

func storeOf(paths ...string) model.EventStore {
	s := model.NewEventStore()
	for i, p := range paths {
		s.Put(event(i, p))
	}
	return s
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/files/FinalCif-setup-x64-v10.exe": "finalcif",
		"/files/finalcif-setup-x64-v11.exe": "finalcif",
		"/dsr-setup.exe":                    "dsr",
		"/files/version.txt":                "version.txt",
		"/files/StructureFinder.zip":        "structurefinder.zip",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeClassifiesSkips(t *testing.T) {
	cases := map[string]error{
		"":             ErrBlank,
		"/":            ErrBlank,
		"/docs":        ErrDocs,
		"/docs/":       ErrDocs,
		"/favicon.ico": ErrFavicon,
	}
	for in, want := range cases {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, want, in)
	}
}

func TestCount(t *testing.T) {
	store := storeOf(
		"/files/FinalCif-setup-x64-v10.exe",
		"/files/finalcif-setup-x64-v11.exe",
	)

	res := Count(store)
	n, ok := res.Counts.Get("finalcif")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, res.Counts.Len())
	assert.Equal(t, 0, res.Diagnostics.Total())
}

func TestCountDiagnostics(t *testing.T) {
	store := storeOf("/favicon.ico", "/docs/", "/files/dsr-setup.exe", "/favicon.ico")

	res := Count(store)
	assert.Equal(t, 2, res.Diagnostics.Skipped["favicon"])
	assert.Equal(t, 1, res.Diagnostics.Skipped["docs"])
	assert.Equal(t, 3, res.Diagnostics.Total())
	assert.Equal(t, []string{"dsr"}, res.Counts.Names())
}

func TestCountLeadingHyphenUnderEmptyKey(t *testing.T) {
	store := storeOf("/files/-beta.zip", "/files/dsr-setup.exe", "/files/-RC.zip")

	res := Count(store)
	n, ok := res.Counts.Get("")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, res.Diagnostics.EmptyKey)
	assert.Equal(t, 0, res.Diagnostics.Total())
	assert.Equal(t, 3, Total(res.Counts))
}

func TestTotalExcludesVersionProbes(t *testing.T) {
	store := storeOf("/files/dsr-setup.exe", "/version.txt", "/files/finalcif-1.exe", "/version.txt")

	res := Count(store)
	probes, ok := res.Counts.Get(ProbeName)
	assert.True(t, ok)
	assert.Equal(t, 2, probes)
	assert.Equal(t, 4, res.Counts.Sum())
	assert.Equal(t, 2, Total(res.Counts))
}

func TestRankingIsStable(t *testing.T) {
	counts := model.NewCountTable()
	counts.Add("a", 3)
	counts.Add("b", 5)
	counts.Add("c", 3)

	assert.Equal(t, []model.RankedCount{
		{Name: "b", Count: 5},
		{Name: "a", Count: 3},
		{Name: "c", Count: 3},
	}, counts.Ranked())
}

func TestCountUsesChronologicalEncounterOrder(t *testing.T) {
	store := model.NewEventStore()
	store.Put(event(30, "/b-1.zip"))
	store.Put(event(10, "/a-1.zip"))
	store.Put(event(20, "/c-1.zip"))

	res := Count(store)
	assert.Equal(t, []string{"a", "c", "b"}, res.Counts.Names())
}

func TestBytesServed(t *testing.T) {
	assert.Equal(t, uint64(3000), BytesServed(storeOf("/a-1", "/b-1", "/c-1")))
}
