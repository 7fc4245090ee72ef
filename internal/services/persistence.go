package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/models"
	"alfredoptarigan/ats-scanner/internal/repositories"
)

// SavedAnalysisKey is the fixed key holding the last saved analysis.
const SavedAnalysisKey = "savedResumeAnalysis"

//go:embed schema/analysis_record.schema.json
var analysisRecordSchema string

var recordSchemaLoader = gojsonschema.NewStringLoader(analysisRecordSchema)

type SessionPersistence interface {
	Save(ctx context.Context, record *models.AnalysisRecord) error
	HasSaved(ctx context.Context) bool
	Load(ctx context.Context) (*models.AnalysisRecord, error)
}

type sessionPersistence struct {
	store  repositories.KeyValueStore
	key    string
	logger *zap.Logger
}

func NewSessionPersistence(store repositories.KeyValueStore, log *zap.Logger) SessionPersistence {
	return &sessionPersistence{
		store:  store,
		key:    SavedAnalysisKey,
		logger: logger.WithFields(log, zap.String("component", "persistence")),
	}
}

// Save serializes the whole record under the fixed key. Failures come back
// as *PersistenceError so callers can turn them into a notice.
func (p *sessionPersistence) Save(ctx context.Context, record *models.AnalysisRecord) error {
	if record == nil {
		return &PersistenceError{Op: "save", Err: ErrNoRecord}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("failed to encode record: %w", err)}
	}

	if err := p.store.Set(ctx, p.key, string(data)); err != nil {
		p.logger.Warn("saving analysis failed", zap.Error(err))
		return &PersistenceError{Op: "save", Err: err}
	}

	p.logger.Debug("analysis saved", zap.Int("bytes", len(data)))
	return nil
}

func (p *sessionPersistence) HasSaved(ctx context.Context) bool {
	raw, err := p.store.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, repositories.ErrKeyNotFound) {
			p.logger.Warn("checking saved analysis failed", zap.Error(err))
		}
		return false
	}
	return strings.TrimSpace(raw) != ""
}

// Load returns ErrNoSavedAnalysis when nothing is stored and a
// *PersistenceError when the stored text is not a valid record.
func (p *sessionPersistence) Load(ctx context.Context) (*models.AnalysisRecord, error) {
	raw, err := p.store.Get(ctx, p.key)
	if err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return nil, ErrNoSavedAnalysis
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoSavedAnalysis
	}

	if err := validateRecordJSON(raw); err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	var record models.AnalysisRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("failed to decode record: %w", err)}
	}

	return &record, nil
}

func validateRecordJSON(raw string) error {
	res, err := gojsonschema.Validate(recordSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("invalid saved analysis: %w", err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
