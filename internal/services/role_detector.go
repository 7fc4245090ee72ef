package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/models"
)

const roleMatchesPerChunk = 3

// Embedder produces vectors for the role index.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RoleDetector picks the target role for a resume. With a role index it
// sums vector similarity over resume chunks; otherwise, or when the index
// fails, it counts keyword hits.
type RoleDetector struct {
	catalog  *RoleCatalog
	index    RoleIndex
	embedder Embedder
	chunker  *TextChunker
	logger   *zap.Logger
}

func NewRoleDetector(catalog *RoleCatalog, index RoleIndex, embedder Embedder, log *zap.Logger) *RoleDetector {
	return &RoleDetector{
		catalog:  catalog,
		index:    index,
		embedder: embedder,
		chunker:  NewTextChunker(defaultChunkSize, defaultChunkOverlap),
		logger:   logger.WithFields(log, zap.String("component", "role_detector")),
	}
}

func (d *RoleDetector) Catalog() *RoleCatalog {
	return d.catalog
}

func (d *RoleDetector) Detect(ctx context.Context, text string) models.Role {
	if strings.TrimSpace(text) == "" {
		return d.catalog.Default()
	}

	if d.index != nil && d.embedder != nil {
		role, err := d.detectByIndex(ctx, text)
		if err == nil {
			return role
		}
		d.logger.Warn("role index lookup failed, using keywords", zap.Error(err))
	}

	role, hits := d.catalog.DetectByKeywords(text)
	d.logger.Debug("role detected by keywords", zap.String("role", role.ID), zap.Int("hits", hits))
	return role
}

func (d *RoleDetector) detectByIndex(ctx context.Context, text string) (models.Role, error) {
	scores := make(map[string]float64)
	for _, chunk := range d.chunker.Chunk(text) {
		embedding, err := d.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return models.Role{}, err
		}

		matches, err := d.index.SearchRoles(ctx, embedding, roleMatchesPerChunk)
		if err != nil {
			return models.Role{}, err
		}
		for _, m := range matches {
			scores[m.RoleID] += float64(m.Score)
		}
	}

	best, bestScore := models.Role{}, 0.0
	for _, role := range d.catalog.All() {
		if score, ok := scores[role.ID]; ok && score > bestScore {
			best, bestScore = role, score
		}
	}
	if best.ID == "" {
		return models.Role{}, errNoIndexMatch
	}

	d.logger.Debug("role detected by index", zap.String("role", best.ID), zap.Float64("score", bestScore))
	return best, nil
}
