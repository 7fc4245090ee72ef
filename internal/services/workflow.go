package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/models"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultGracePeriod  = 600 * time.Millisecond

	preparingMilestone = "Preparing document..."
	loadFailedNotice   = "Could not load saved data."
	saveFailedNotice   = "Could not save analysis."
	savedNotice        = "Analysis saved."
)

// Analyzer is the external analysis engine. onMilestone receives coarse
// progress labels in order; it must not be called after Analyze returns.
type Analyzer interface {
	Analyze(ctx context.Context, payload *models.FilePayload, onMilestone func(label string)) (*models.AnalysisRecord, error)
}

type WorkflowOptions struct {
	TickInterval time.Duration
	GracePeriod  time.Duration
	Clock        Clock
	Events       *EventBus
	Logger       *zap.Logger
}

// Workflow owns the state of one analysis session. All mutation goes through
// its methods; readers get copies via Snapshot and Record.
type Workflow struct {
	id          string
	validator   FileValidator
	analyzer    Analyzer
	persistence SessionPersistence
	clock       Clock
	events      *EventBus
	logger      *zap.Logger

	tickInterval time.Duration
	gracePeriod  time.Duration

	mu         sync.Mutex
	status     models.SessionStatus
	progress   *ProgressEstimator
	milestone  string
	file       *models.FileInfo
	record     *models.AnalysisRecord
	errMsg     string
	notice     string
	generation uint64
	cancel     context.CancelFunc
	updatedAt  time.Time
}

func NewWorkflow(id string, validator FileValidator, analyzer Analyzer, persistence SessionPersistence, opts WorkflowOptions) *Workflow {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Clock == nil {
		opts.Clock = NewRealClock()
	}
	if opts.Events == nil {
		opts.Events = NewEventBus(0)
	}

	return &Workflow{
		id:           id,
		validator:    validator,
		analyzer:     analyzer,
		persistence:  persistence,
		clock:        opts.Clock,
		events:       opts.Events,
		logger:       logger.WithSession(opts.Logger, id),
		tickInterval: opts.TickInterval,
		gracePeriod:  opts.GracePeriod,
		status:       models.StatusIdle,
		progress:     NewProgressEstimator(),
		updatedAt:    opts.Clock.Now(),
	}
}

func (w *Workflow) ID() string {
	return w.id
}

func (w *Workflow) Events() *EventBus {
	return w.events
}

func (w *Workflow) Status() models.SessionStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// LastActivity is the time of the most recent state change.
func (w *Workflow) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

// Submit validates src and starts the analysis. Validation errors leave the
// session untouched and are returned as *ValidationError.
func (w *Workflow) Submit(src FileSource) (models.SessionSnapshot, error) {
	if w.Status() != models.StatusIdle {
		return models.SessionSnapshot{}, ErrNotIdle
	}

	payload, err := w.validator.Validate(src)
	if err != nil {
		w.logger.Info("file rejected", zap.String("file", src.Name()), zap.Error(err))
		return models.SessionSnapshot{}, err
	}

	w.mu.Lock()
	if w.status != models.StatusIdle {
		w.mu.Unlock()
		return models.SessionSnapshot{}, ErrNotIdle
	}
	if err := w.transitionLocked(models.StatusAnalyzing); err != nil {
		w.mu.Unlock()
		return models.SessionSnapshot{}, err
	}

	info := payload.Info()
	w.file = &info
	w.record = nil
	w.errMsg = ""
	w.notice = ""
	w.milestone = preparingMilestone
	w.progress.Reset()
	w.generation++
	gen := w.generation

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Info("analysis started",
		zap.String("file", info.FileName),
		zap.String("mime_type", info.MimeType),
		zap.Int64("size_bytes", info.SizeBytes),
	)

	go w.run(ctx, gen, payload)

	return w.snapshot(context.Background()), nil
}

type analysisOutcome struct {
	record *models.AnalysisRecord
	err    error
}

// run drives one analysis: it relays milestones and ticks into the progress
// estimator until the analyzer returns, then settles the terminal state.
func (w *Workflow) run(ctx context.Context, gen uint64, payload *models.FilePayload) {
	milestones := make(chan string, 16)
	done := make(chan analysisOutcome, 1)

	go func() {
		record, err := w.analyzer.Analyze(ctx, payload, func(label string) {
			select {
			case milestones <- label:
			case <-ctx.Done():
			}
		})
		done <- analysisOutcome{record: record, err: err}
	}()

	ticker := w.clock.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			w.tick(gen)
		case label := <-milestones:
			w.applyMilestone(gen, label)
		case out := <-done:
			w.drainMilestones(gen, milestones)
			ticker.Stop()

			if out.err == nil && out.record == nil {
				out.err = &AnalysisError{Stage: "analyze", Message: "Analysis returned no result."}
			}
			if out.err != nil {
				w.fail(gen, out.err)
				return
			}

			if !w.complete(gen) {
				return
			}
			select {
			case <-w.clock.After(w.gracePeriod):
				w.succeed(gen, out.record)
			case <-ctx.Done():
			}
			return
		}
	}
}

func (w *Workflow) drainMilestones(gen uint64, milestones <-chan string) {
	for {
		select {
		case label := <-milestones:
			w.applyMilestone(gen, label)
		default:
			return
		}
	}
}

// activeLocked reports whether gen is still the running analysis.
func (w *Workflow) activeLocked(gen uint64) bool {
	return w.generation == gen && w.status == models.StatusAnalyzing
}

func (w *Workflow) tick(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.activeLocked(gen) {
		return
	}

	before := w.progress.Value()
	value := w.progress.Tick()
	if value != before {
		w.publishLocked(Event{Type: EventTypeProgress, Progress: value})
	}
}

func (w *Workflow) applyMilestone(gen uint64, label string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.activeLocked(gen) {
		return
	}

	w.milestone = label
	value := w.progress.Milestone(label)
	w.touchLocked()
	w.publishLocked(Event{Type: EventTypeMilestone, Message: label, Progress: value})
	w.logger.Debug("milestone", zap.String("label", label), zap.Float64("progress", value))
}

// complete forces progress to 100 ahead of the grace period.
func (w *Workflow) complete(gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.activeLocked(gen) {
		return false
	}

	value := w.progress.Complete()
	w.touchLocked()
	w.publishLocked(Event{Type: EventTypeProgress, Progress: value})
	return true
}

func (w *Workflow) succeed(gen uint64, record *models.AnalysisRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.activeLocked(gen) {
		return
	}

	if err := w.transitionLocked(models.StatusSuccess); err != nil {
		w.logger.Error("completing analysis", zap.Error(err))
		return
	}
	w.record = record.Clone()
	w.leaveAnalyzingLocked()
	w.publishLocked(Event{Type: EventTypeResult, Message: record.BestRole})
}

func (w *Workflow) fail(gen uint64, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.activeLocked(gen) {
		return
	}

	if terr := w.transitionLocked(models.StatusError); terr != nil {
		w.logger.Error("failing analysis", zap.Error(terr))
		return
	}
	w.errMsg = AnalysisErrorMessage(err)
	w.leaveAnalyzingLocked()
	w.publishLocked(Event{Type: EventTypeError, Message: w.errMsg})
	w.logger.Warn("analysis failed", zap.Error(err))
}

// Reset returns the session to Idle, discarding the record, error and file.
// An in-flight analysis is cancelled and its late results are ignored.
func (w *Workflow) Reset() (models.SessionSnapshot, error) {
	w.mu.Lock()
	if err := w.transitionLocked(models.StatusIdle); err != nil {
		w.mu.Unlock()
		return models.SessionSnapshot{}, err
	}

	w.generation++
	w.leaveAnalyzingLocked()
	w.record = nil
	w.file = nil
	w.errMsg = ""
	w.notice = ""
	w.mu.Unlock()

	return w.snapshot(context.Background()), nil
}

// LoadSaved moves an idle session straight to Success with the stored
// record. A corrupt record leaves the session idle with a notice.
func (w *Workflow) LoadSaved(ctx context.Context) (models.SessionSnapshot, error) {
	if w.Status() != models.StatusIdle {
		return models.SessionSnapshot{}, ErrNotIdle
	}
	if !w.persistence.HasSaved(ctx) {
		return models.SessionSnapshot{}, ErrNoSavedAnalysis
	}

	record, err := w.persistence.Load(ctx)
	if err != nil {
		w.setNotice(loadFailedNotice)
		w.logger.Warn("loading saved analysis failed", zap.Error(err))
		return w.snapshot(ctx), err
	}

	w.mu.Lock()
	if w.status != models.StatusIdle {
		w.mu.Unlock()
		return models.SessionSnapshot{}, ErrNotIdle
	}
	if err := w.transitionLocked(models.StatusSuccess); err != nil {
		w.mu.Unlock()
		return models.SessionSnapshot{}, err
	}
	w.record = record
	w.file = nil
	w.errMsg = ""
	w.notice = ""
	w.publishLocked(Event{Type: EventTypeResult, Message: record.BestRole})
	w.mu.Unlock()

	return w.snapshot(ctx), nil
}

// Save persists the current record. Failures are reported as a notice and
// returned, but never change the session state.
func (w *Workflow) Save(ctx context.Context) (models.SessionSnapshot, error) {
	record, err := w.Record()
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	if err := w.persistence.Save(ctx, record); err != nil {
		w.setNotice(saveFailedNotice)
		return w.snapshot(ctx), err
	}

	w.setNotice(savedNotice)
	return w.snapshot(ctx), nil
}

// Record returns a copy of the completed analysis.
func (w *Workflow) Record() (*models.AnalysisRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != models.StatusSuccess || w.record == nil {
		return nil, ErrNoRecord
	}
	return w.record.Clone(), nil
}

func (w *Workflow) Snapshot(ctx context.Context) models.SessionSnapshot {
	return w.snapshot(ctx)
}

// Close cancels any in-flight analysis. The session is unusable afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.generation++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *Workflow) snapshot(ctx context.Context) models.SessionSnapshot {
	hasSaved := w.persistence != nil && w.persistence.HasSaved(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	snap := models.SessionSnapshot{
		ID:        w.id,
		Status:    w.status,
		Progress:  w.progress.Value(),
		Error:     w.errMsg,
		Notice:    w.notice,
		HasSaved:  hasSaved,
		Record:    w.record.Clone(),
		UpdatedAt: w.updatedAt,
	}
	if w.status == models.StatusAnalyzing {
		snap.Milestone = w.milestone
		snap.Steps = ProgressSteps(snap.Progress)
	}
	if w.file != nil {
		info := *w.file
		snap.File = &info
	}
	return snap
}

func (w *Workflow) setNotice(notice string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.notice = notice
	w.touchLocked()
	w.publishLocked(Event{Type: EventTypeNotice, Message: notice})
}

// leaveAnalyzingLocked stops progress reporting and cancels the analyzer.
func (w *Workflow) leaveAnalyzingLocked() {
	w.progress.Reset()
	w.milestone = ""
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *Workflow) transitionLocked(to models.SessionStatus) error {
	from := w.status
	if !isValidTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	w.status = to
	w.touchLocked()
	w.publishLocked(Event{Type: EventTypeStatus, Status: to})
	w.logger.Info("session transition", zap.String("from", string(from)), zap.String("to", string(to)))
	return nil
}

func (w *Workflow) touchLocked() {
	w.updatedAt = w.clock.Now()
}

func (w *Workflow) publishLocked(event Event) {
	event.SessionID = w.id
	if event.Status == "" {
		event.Status = w.status
	}
	w.events.Publish(event)
}

// isValidTransition enforces the session state machine edges.
func isValidTransition(from, to models.SessionStatus) bool {
	switch from {
	case models.StatusIdle:
		return to == models.StatusAnalyzing || to == models.StatusSuccess
	case models.StatusAnalyzing:
		return to == models.StatusSuccess || to == models.StatusError || to == models.StatusIdle
	case models.StatusSuccess, models.StatusError:
		return to == models.StatusIdle
	default:
		return false
	}
}

// AnalysisErrorMessage derives the user-facing message for a failed analysis.
func AnalysisErrorMessage(err error) string {
	if err == nil {
		return GenericAnalysisMessage
	}

	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		if msg := strings.TrimSpace(analysisErr.Message); msg != "" {
			return msg
		}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericAnalysisMessage
}
