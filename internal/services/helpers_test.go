package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"alfredoptarigan/ats-scanner/internal/models"
)

// fakeClock hands out tickers and timers backed by channels the test drives.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
	after chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		ticks: make(chan time.Time),
		after: make(chan time.Time),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	return fakeTicker{c: c.ticks}
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	return c.after
}

// Tick blocks until the running workflow consumes one tick.
func (c *fakeClock) Tick(t *testing.T) {
	t.Helper()
	select {
	case c.ticks <- c.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("tick was not consumed")
	}
}

// FireGrace releases a workflow waiting on its completion grace period.
func (c *fakeClock) FireGrace(t *testing.T) {
	t.Helper()
	select {
	case c.after <- c.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("grace timer was not awaited")
	}
}

type fakeTicker struct {
	c chan time.Time
}

func (f fakeTicker) C() <-chan time.Time { return f.c }
func (f fakeTicker) Stop()               {}

type fakeAnalyzer struct {
	analyzeFn func(ctx context.Context, payload *models.FilePayload, onMilestone func(string)) (*models.AnalysisRecord, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, payload *models.FilePayload, onMilestone func(string)) (*models.AnalysisRecord, error) {
	return f.analyzeFn(ctx, payload, onMilestone)
}

type failingStore struct {
	getErr error
	setErr error
}

func (f failingStore) Get(context.Context, string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return "", errors.New("not implemented")
}

func (f failingStore) Set(context.Context, string, string) error {
	return f.setErr
}

func (f failingStore) Delete(context.Context, string) error {
	return nil
}

type errSource struct {
	name        string
	contentType string
	size        int64
	openErr     error
	readErr     error
}

func (e errSource) Name() string        { return e.name }
func (e errSource) ContentType() string { return e.contentType }
func (e errSource) Size() int64         { return e.size }

func (e errSource) Open() (io.ReadCloser, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	return io.NopCloser(errReader{err: e.readErr}), nil
}

type errReader struct {
	err error
}

func (r errReader) Read([]byte) (int, error) {
	return 0, r.err
}

// countingSource records whether Open was called.
type countingSource struct {
	FileSource
	opened bool
}

func (c *countingSource) Open() (io.ReadCloser, error) {
	c.opened = true
	return c.FileSource.Open()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func sampleRecord() *models.AnalysisRecord {
	keyword := 70.0
	final := 78.42
	return &models.AnalysisRecord{
		ATSScore:      78,
		BestRole:      "Backend Developer",
		CandidateName: "Jane Doe",
		Summary:       "Backend engineer with six years of Go experience.",
		Skills: models.SkillList{
			{Name: "Go", Category: "Technical"},
			{Name: "PostgreSQL", Category: "Technical"},
			{Name: "Mentoring", Category: "Soft Skills"},
		},
		ExperienceHighlights:   []string{"Led migration to gRPC"},
		Education:              []string{"BSc Computer Science from ITB (2014-2018)"},
		Strengths:              []string{"Strong backend depth"},
		Weaknesses:             []string{"Little frontend exposure"},
		ImprovementSuggestions: []string{"Quantify impact", "Add a projects section"},
		SectionScores:          map[string]float64{"skills": 24, "experience": 31.5},
		KeywordMatchScore:      &keyword,
		FinalATSScore:          &final,
		ReportFile:             "report_1a2b3c4d.pdf",
		MissingKeywords:        []string{"kubernetes"},
	}
}
