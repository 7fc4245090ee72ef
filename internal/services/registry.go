package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/models"
)

// WorkflowFactory builds the workflow for a new session. clientID scopes the
// session's saved analysis.
type WorkflowFactory func(id, clientID string) *Workflow

type SessionRegistry interface {
	Create(clientID string) *Workflow
	Get(id string) (*Workflow, error)
	Delete(id string) error
	Len() int
	Sweep(now time.Time, ttl time.Duration) []string
	CloseAll()
}

type sessionRegistry struct {
	factory WorkflowFactory
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Workflow
}

func NewSessionRegistry(factory WorkflowFactory, log *zap.Logger) SessionRegistry {
	return &sessionRegistry{
		factory:  factory,
		logger:   logger.WithFields(log, zap.String("component", "registry")),
		sessions: make(map[string]*Workflow),
	}
}

// Create implements SessionRegistry.
func (r *sessionRegistry) Create(clientID string) *Workflow {
	id := uuid.NewString()
	wf := r.factory(id, clientID)

	r.mu.Lock()
	r.sessions[id] = wf
	r.mu.Unlock()

	r.logger.Info("session created",
		zap.String(logger.FieldSessionID, id),
		zap.String(logger.FieldClientID, clientID),
	)
	return wf
}

// Get implements SessionRegistry.
func (r *sessionRegistry) Get(id string) (*Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return wf, nil
}

// Delete implements SessionRegistry.
func (r *sessionRegistry) Delete(id string) error {
	r.mu.Lock()
	wf, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	wf.Close()
	r.logger.Info("session deleted", zap.String(logger.FieldSessionID, id))
	return nil
}

// Len implements SessionRegistry.
func (r *sessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes and removes sessions with no activity for longer than ttl.
// Sessions that are still analyzing are kept.
func (r *sessionRegistry) Sweep(now time.Time, ttl time.Duration) []string {
	var expired []*Workflow

	r.mu.Lock()
	for id, wf := range r.sessions {
		if wf.Status() == models.StatusAnalyzing {
			continue
		}
		if now.Sub(wf.LastActivity()) > ttl {
			expired = append(expired, wf)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, wf := range expired {
		wf.Close()
		ids = append(ids, wf.ID())
	}
	return ids
}

// CloseAll cancels every in-flight analysis and empties the registry.
func (r *sessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Workflow)
	r.mu.Unlock()

	for _, wf := range sessions {
		wf.Close()
	}
}
