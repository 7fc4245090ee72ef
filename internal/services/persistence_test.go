package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"alfredoptarigan/ats-scanner/internal/models"
	"alfredoptarigan/ats-scanner/internal/repositories"
)

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewSessionPersistence(repositories.NewMemoryStore(), nil)

	if p.HasSaved(ctx) {
		t.Fatal("empty store reports a saved analysis")
	}
	if _, err := p.Load(ctx); !errors.Is(err, ErrNoSavedAnalysis) {
		t.Fatalf("Load() error = %v, want ErrNoSavedAnalysis", err)
	}

	records := map[string]*models.AnalysisRecord{
		"full":    sampleRecord(),
		"minimal": {ATSScore: 0, Skills: models.SkillList{}},
		"legacy":  {ATSScore: 100, BestRole: "Intern", Strengths: []string{}},
	}

	for name, record := range records {
		t.Run(name, func(t *testing.T) {
			if err := p.Save(ctx, record); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if !p.HasSaved(ctx) {
				t.Fatal("HasSaved() = false after save")
			}

			got, err := p.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, record) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, record)
			}
		})
	}
}

func TestPersistenceLoadRejectsInvalidText(t *testing.T) {
	ctx := context.Background()

	for name, raw := range map[string]string{
		"not json":          "{broken",
		"missing score":     `{"bestRole":"QA Engineer"}`,
		"string score":      `{"atsScore":"high"}`,
		"array":             `[1,2,3]`,
		"score above range": `{"atsScore":150}`,
		"negative score":    `{"atsScore":-1}`,
	} {
		t.Run(name, func(t *testing.T) {
			store := repositories.NewMemoryStore()
			if err := store.Set(ctx, SavedAnalysisKey, raw); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			_, err := NewSessionPersistence(store, nil).Load(ctx)
			var pErr *PersistenceError
			if !errors.As(err, &pErr) || pErr.Op != "load" {
				t.Fatalf("Load() error = %v, want load PersistenceError", err)
			}
		})
	}
}

func TestPersistenceSaveFailureIsReported(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	boom := errors.New("quota exceeded")
	p := NewSessionPersistence(failingStore{setErr: boom}, zap.New(core))

	err := p.Save(context.Background(), sampleRecord())
	var pErr *PersistenceError
	if !errors.As(err, &pErr) || pErr.Op != "save" {
		t.Fatalf("Save() error = %v, want save PersistenceError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Save() error does not wrap cause: %v", err)
	}
	if logs.FilterMessage("saving analysis failed").Len() != 1 {
		t.Fatalf("expected one warning, got %v", logs.All())
	}

	if err := p.Save(context.Background(), nil); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("Save(nil) error = %v, want ErrNoRecord", err)
	}
}
