package models

// Role is one target position of the catalog used to score resumes.
type Role struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Keywords    []string       `json:"keywords"`
	Description string         `json:"description"`
	Weights     map[string]int `json:"weights"`
}
