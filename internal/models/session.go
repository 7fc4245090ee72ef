package models

import "time"

type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusAnalyzing SessionStatus = "analyzing"
	StatusSuccess   SessionStatus = "success"
	StatusError     SessionStatus = "error"
)

// AnalysisStep is one row of the progress checklist shown while analyzing.
type AnalysisStep struct {
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	Active    bool   `json:"active"`
}

// SessionSnapshot is an immutable copy of a workflow's state.
type SessionSnapshot struct {
	ID        string          `json:"id"`
	Status    SessionStatus   `json:"status"`
	Progress  float64         `json:"progress"`
	Milestone string          `json:"milestone,omitempty"`
	Steps     []AnalysisStep  `json:"steps,omitempty"`
	File      *FileInfo       `json:"file,omitempty"`
	Error     string          `json:"error,omitempty"`
	Notice    string          `json:"notice,omitempty"`
	HasSaved  bool            `json:"hasSaved"`
	Record    *AnalysisRecord `json:"-"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
