package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"alfredoptarigan/ats-scanner/internal/models"
)

// DefaultRoleID is used when no role matches a resume.
const DefaultRoleID = "software_engineer"

//go:embed catalog/roles.json
var rolesJSON []byte

// RoleCatalog is the ordered, read-only set of target roles.
type RoleCatalog struct {
	roles []models.Role
	byID  map[string]int
}

func NewRoleCatalog(roles []models.Role) *RoleCatalog {
	c := &RoleCatalog{
		roles: make([]models.Role, 0, len(roles)),
		byID:  make(map[string]int, len(roles)),
	}
	for _, role := range roles {
		if _, dup := c.byID[role.ID]; dup {
			continue
		}
		c.byID[role.ID] = len(c.roles)
		c.roles = append(c.roles, role)
	}
	return c
}

// DefaultRoleCatalog loads the built-in catalog.
func DefaultRoleCatalog() (*RoleCatalog, error) {
	var roles []models.Role
	if err := json.Unmarshal(rolesJSON, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode role catalog: %w", err)
	}
	return NewRoleCatalog(roles), nil
}

func (c *RoleCatalog) All() []models.Role {
	out := make([]models.Role, len(c.roles))
	copy(out, c.roles)
	return out
}

func (c *RoleCatalog) Get(id string) (models.Role, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Role{}, false
	}
	return c.roles[i], true
}

// Default returns the fallback role, or the first role when it is missing.
func (c *RoleCatalog) Default() models.Role {
	if role, ok := c.Get(DefaultRoleID); ok {
		return role
	}
	if len(c.roles) > 0 {
		return c.roles[0]
	}
	return models.Role{ID: DefaultRoleID, Title: "Software Engineer"}
}

// DetectByKeywords picks the role whose keywords occur most often in text.
// Ties go to the role listed first.
func (c *RoleCatalog) DetectByKeywords(text string) (models.Role, int) {
	if len(c.roles) == 0 {
		return c.Default(), 0
	}

	lower := strings.ToLower(text)
	best, bestScore := 0, -1
	for i, role := range c.roles {
		score := 0
		for _, kw := range role.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return c.roles[best], bestScore
}
