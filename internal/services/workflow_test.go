package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"alfredoptarigan/ats-scanner/internal/models"
	"alfredoptarigan/ats-scanner/internal/repositories"
)

type workflowFixture struct {
	workflow *Workflow
	clock    *fakeClock
	store    repositories.KeyValueStore
	logs     *observer.ObservedLogs
}

func newWorkflowFixture(t *testing.T, analyzer Analyzer) *workflowFixture {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	clock := newFakeClock()
	store := repositories.NewMemoryStore()

	w := NewWorkflow("session-1", NewFileValidator(DefaultMaxFileSize), analyzer, NewSessionPersistence(store, log), WorkflowOptions{
		Clock:  clock,
		Events: NewEventBus(0),
		Logger: log,
	})
	t.Cleanup(w.Close)

	return &workflowFixture{workflow: w, clock: clock, store: store, logs: logs}
}

func pdfSource(size int) FileSource {
	data := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{'x'}, size)...)
	return NewBytesSource("resume.pdf", models.MimePDF, data)
}

func statusSequence(events []Event) []models.SessionStatus {
	var out []models.SessionStatus
	for _, e := range events {
		if e.Type == EventTypeStatus {
			out = append(out, e.Status)
		}
	}
	return out
}

func TestWorkflowSubmitSuccess(t *testing.T) {
	release := make(chan struct{})
	analyzer := &fakeAnalyzer{analyzeFn: func(ctx context.Context, payload *models.FilePayload, onMilestone func(string)) (*models.AnalysisRecord, error) {
		if payload.MimeType != models.MimePDF {
			t.Errorf("payload mime = %q", payload.MimeType)
		}
		onMilestone("Parsing document structure...")
		onMilestone("Uploading resume to analysis engine...")
		onMilestone("Analyzing resume against Backend Developer...")
		<-release
		return sampleRecord(), nil
	}}
	f := newWorkflowFixture(t, analyzer)
	w := f.workflow

	snap, err := w.Submit(pdfSource(2 * 1024 * 1024))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if snap.Status != models.StatusAnalyzing {
		t.Fatalf("status = %s, want analyzing", snap.Status)
	}
	if snap.File == nil || snap.File.FileName != "resume.pdf" {
		t.Fatalf("file info = %+v", snap.File)
	}

	waitFor(t, 2*time.Second, func() bool {
		return w.Snapshot(context.Background()).Progress >= 40
	})
	for i := 0; i < 5; i++ {
		f.clock.Tick(t)
	}

	running := w.Snapshot(context.Background())
	if running.Progress <= 40 || running.Progress > ProgressCeiling {
		t.Fatalf("progress = %f, want within (40, 92]", running.Progress)
	}
	if running.Milestone != "Analyzing resume against Backend Developer..." {
		t.Fatalf("milestone = %q", running.Milestone)
	}
	if len(running.Steps) != 4 || !running.Steps[0].Completed {
		t.Fatalf("steps = %+v", running.Steps)
	}

	close(release)
	waitFor(t, 2*time.Second, func() bool {
		return w.Snapshot(context.Background()).Progress == ProgressComplete
	})
	if got := w.Status(); got != models.StatusAnalyzing {
		t.Fatalf("status during grace period = %s, want analyzing", got)
	}

	f.clock.FireGrace(t)
	waitFor(t, 2*time.Second, func() bool {
		return w.Status() == models.StatusSuccess
	})

	record, err := w.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if record.ATSScore < 0 || record.ATSScore > 100 {
		t.Fatalf("atsScore = %d out of range", record.ATSScore)
	}

	events := w.Events().Since(0)
	want := []models.SessionStatus{models.StatusAnalyzing, models.StatusSuccess}
	if got := statusSequence(events); !equalStatuses(got, want) {
		t.Fatalf("status sequence = %v, want %v", got, want)
	}

	var prev, last float64
	for _, e := range events {
		if e.Type != EventTypeProgress && e.Type != EventTypeMilestone {
			continue
		}
		if e.Progress < prev {
			t.Fatalf("progress decreased: %f -> %f", prev, e.Progress)
		}
		if e.Progress > ProgressCeiling && e.Progress != ProgressComplete {
			t.Fatalf("progress %f above ceiling before completion", e.Progress)
		}
		prev, last = e.Progress, e.Progress
	}
	if last != ProgressComplete {
		t.Fatalf("final progress = %f, want 100", last)
	}

	if got := w.Snapshot(context.Background()); got.Progress != 0 || got.Steps != nil {
		t.Fatalf("progress not cleared after leaving analyzing: %+v", got)
	}
	if f.logs.FilterMessage("session transition").Len() != 2 {
		t.Fatalf("expected two logged transitions, got %d", f.logs.FilterMessage("session transition").Len())
	}
}

func equalStatuses(a, b []models.SessionStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWorkflowSubmitFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "plain message", err: errors.New("service unavailable"), want: "service unavailable"},
		{name: "blank message", err: errors.New("   "), want: GenericAnalysisMessage},
		{
			name: "analysis error",
			err:  &AnalysisError{Stage: "parse", Message: "AI response parsing failed", Err: errors.New("unexpected token")},
			want: "AI response parsing failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{analyzeFn: func(context.Context, *models.FilePayload, func(string)) (*models.AnalysisRecord, error) {
				return nil, tt.err
			}}
			f := newWorkflowFixture(t, analyzer)

			if _, err := f.workflow.Submit(pdfSource(1024)); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			waitFor(t, 2*time.Second, func() bool {
				return f.workflow.Status() == models.StatusError
			})

			snap := f.workflow.Snapshot(context.Background())
			if snap.Error != tt.want {
				t.Fatalf("error = %q, want %q", snap.Error, tt.want)
			}
			if snap.Progress != 0 {
				t.Fatalf("progress = %f, want 0", snap.Progress)
			}
			if _, err := f.workflow.Record(); !errors.Is(err, ErrNoRecord) {
				t.Fatalf("Record() error = %v, want ErrNoRecord", err)
			}
		})
	}
}

func TestWorkflowValidationErrorKeepsIdle(t *testing.T) {
	called := false
	analyzer := &fakeAnalyzer{analyzeFn: func(context.Context, *models.FilePayload, func(string)) (*models.AnalysisRecord, error) {
		called = true
		return sampleRecord(), nil
	}}
	f := newWorkflowFixture(t, analyzer)

	_, err := f.workflow.Submit(NewBytesSource("notes.txt", "text/plain", []byte("hello")))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Submit() error = %v, want ErrUnsupportedType", err)
	}

	big := bytes.Repeat([]byte{'x'}, int(DefaultMaxFileSize)+1)
	_, err = f.workflow.Submit(NewBytesSource("big.png", models.MimePNG, big))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Submit() error = %v, want ErrTooLarge", err)
	}

	if f.workflow.Status() != models.StatusIdle {
		t.Fatalf("status = %s, want idle", f.workflow.Status())
	}
	if len(f.workflow.Events().Since(0)) != 0 {
		t.Fatal("validation failures should not emit events")
	}
	if called {
		t.Fatal("analyzer invoked for an invalid file")
	}
}

func TestWorkflowRejectsSecondSubmit(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	analyzer := &fakeAnalyzer{analyzeFn: func(ctx context.Context, _ *models.FilePayload, _ func(string)) (*models.AnalysisRecord, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}}
	f := newWorkflowFixture(t, analyzer)

	if _, err := f.workflow.Submit(pdfSource(10)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := f.workflow.Submit(pdfSource(10)); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("second Submit() error = %v, want ErrNotIdle", err)
	}
	if _, err := f.workflow.LoadSaved(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("LoadSaved() error = %v, want ErrNotIdle", err)
	}
}

func TestWorkflowResetCancelsInFlightAnalysis(t *testing.T) {
	cancelled := make(chan struct{})
	analyzer := &fakeAnalyzer{analyzeFn: func(ctx context.Context, _ *models.FilePayload, onMilestone func(string)) (*models.AnalysisRecord, error) {
		onMilestone("Parsing document structure...")
		<-ctx.Done()
		close(cancelled)
		return nil, errors.New("late failure")
	}}
	f := newWorkflowFixture(t, analyzer)

	if _, err := f.workflow.Submit(pdfSource(10)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return f.workflow.Snapshot(context.Background()).Progress >= 10
	})

	snap, err := f.workflow.Reset()
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if snap.Status != models.StatusIdle || snap.File != nil || snap.Progress != 0 {
		t.Fatalf("snapshot after reset = %+v", snap)
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("analyzer context was not cancelled")
	}

	time.Sleep(20 * time.Millisecond)
	if got := f.workflow.Snapshot(context.Background()); got.Status != models.StatusIdle || got.Error != "" {
		t.Fatalf("late result leaked into session: %+v", got)
	}
}

func TestWorkflowResetFromSuccessAndIdle(t *testing.T) {
	f := newWorkflowFixture(t, &fakeAnalyzer{})
	ctx := context.Background()

	if _, err := f.workflow.Reset(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Reset() from idle error = %v, want ErrInvalidTransition", err)
	}

	if err := NewSessionPersistence(f.store, nil).Save(ctx, sampleRecord()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := f.workflow.LoadSaved(ctx); err != nil {
		t.Fatalf("LoadSaved() error = %v", err)
	}

	snap, err := f.workflow.Reset()
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if snap.Status != models.StatusIdle || snap.Record != nil {
		t.Fatalf("snapshot after reset = %+v", snap)
	}
	if _, err := f.workflow.Record(); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("Record() error = %v, want ErrNoRecord", err)
	}
	if !snap.HasSaved {
		t.Fatal("reset must not clear the saved analysis")
	}
}

func TestWorkflowLoadSaved(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing saved", func(t *testing.T) {
		f := newWorkflowFixture(t, &fakeAnalyzer{})
		if _, err := f.workflow.LoadSaved(ctx); !errors.Is(err, ErrNoSavedAnalysis) {
			t.Fatalf("LoadSaved() error = %v, want ErrNoSavedAnalysis", err)
		}
	})

	t.Run("goes straight to success", func(t *testing.T) {
		f := newWorkflowFixture(t, &fakeAnalyzer{})
		if err := NewSessionPersistence(f.store, nil).Save(ctx, sampleRecord()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		snap, err := f.workflow.LoadSaved(ctx)
		if err != nil {
			t.Fatalf("LoadSaved() error = %v", err)
		}
		if snap.Status != models.StatusSuccess || snap.Record == nil || snap.Record.CandidateName != "Jane Doe" {
			t.Fatalf("snapshot = %+v", snap)
		}
		want := []models.SessionStatus{models.StatusSuccess}
		if got := statusSequence(f.workflow.Events().Since(0)); !equalStatuses(got, want) {
			t.Fatalf("status sequence = %v, want %v", got, want)
		}
	})

	t.Run("corrupt record stays idle", func(t *testing.T) {
		f := newWorkflowFixture(t, &fakeAnalyzer{})
		if err := f.store.Set(ctx, SavedAnalysisKey, "{oops"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		snap, err := f.workflow.LoadSaved(ctx)
		var pErr *PersistenceError
		if !errors.As(err, &pErr) {
			t.Fatalf("LoadSaved() error = %v, want PersistenceError", err)
		}
		if snap.Status != models.StatusIdle || snap.Notice != loadFailedNotice {
			t.Fatalf("snapshot = %+v", snap)
		}
	})
}

func TestWorkflowSave(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a record", func(t *testing.T) {
		f := newWorkflowFixture(t, &fakeAnalyzer{})
		if _, err := f.workflow.Save(ctx); !errors.Is(err, ErrNoRecord) {
			t.Fatalf("Save() error = %v, want ErrNoRecord", err)
		}
	})

	t.Run("failure becomes a notice", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		if err := NewSessionPersistence(store, nil).Save(ctx, sampleRecord()); err != nil {
			t.Fatalf("seed: %v", err)
		}
		w := NewWorkflow("s", NewFileValidator(0), &fakeAnalyzer{}, &splitPersistence{
			SessionPersistence: NewSessionPersistence(store, nil),
			saveErr:            &PersistenceError{Op: "save", Err: errors.New("quota exceeded")},
		}, WorkflowOptions{Clock: newFakeClock()})

		if _, err := w.LoadSaved(ctx); err != nil {
			t.Fatalf("LoadSaved() error = %v", err)
		}
		snap, err := w.Save(ctx)
		if err == nil {
			t.Fatal("expected save error")
		}
		if snap.Status != models.StatusSuccess || snap.Notice != saveFailedNotice {
			t.Fatalf("snapshot = %+v", snap)
		}
	})
}

type splitPersistence struct {
	SessionPersistence
	saveErr error
}

func (s *splitPersistence) Save(context.Context, *models.AnalysisRecord) error {
	return s.saveErr
}

func TestAnalysisErrorMessage(t *testing.T) {
	if got := AnalysisErrorMessage(nil); got != GenericAnalysisMessage {
		t.Fatalf("nil error message = %q", got)
	}
	wrapped := errors.Join(&AnalysisError{Message: "Resume could not be read"}, errors.New("x"))
	if got := AnalysisErrorMessage(wrapped); got != "Resume could not be read" {
		t.Fatalf("wrapped message = %q", got)
	}
	bare := &AnalysisError{Stage: "generate", Err: errors.New("boom")}
	if got := bare.Error(); got != "boom" {
		t.Fatalf("Error() = %q, want boom", got)
	}
	if got := AnalysisErrorMessage(bare); got != "boom" {
		t.Fatalf("bare message = %q, want boom", got)
	}
}

func TestIsValidTransition(t *testing.T) {
	valid := [][2]models.SessionStatus{
		{models.StatusIdle, models.StatusAnalyzing},
		{models.StatusIdle, models.StatusSuccess},
		{models.StatusAnalyzing, models.StatusSuccess},
		{models.StatusAnalyzing, models.StatusError},
		{models.StatusAnalyzing, models.StatusIdle},
		{models.StatusSuccess, models.StatusIdle},
		{models.StatusError, models.StatusIdle},
	}
	for _, edge := range valid {
		if !isValidTransition(edge[0], edge[1]) {
			t.Fatalf("%s -> %s should be valid", edge[0], edge[1])
		}
	}

	invalid := [][2]models.SessionStatus{
		{models.StatusIdle, models.StatusError},
		{models.StatusIdle, models.StatusIdle},
		{models.StatusSuccess, models.StatusAnalyzing},
		{models.StatusError, models.StatusSuccess},
	}
	for _, edge := range invalid {
		if isValidTransition(edge[0], edge[1]) {
			t.Fatalf("%s -> %s should be invalid", edge[0], edge[1])
		}
	}
}
