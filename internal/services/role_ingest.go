package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/models"
)

type IngestSummary struct {
	Roles  int
	Chunks int
	Failed []string
}

// RoleIngestor embeds role profiles into the role index.
type RoleIngestor struct {
	index    RoleIndex
	embedder Embedder
	chunker  *TextChunker
	logger   *zap.Logger
}

func NewRoleIngestor(index RoleIndex, embedder Embedder, log *zap.Logger) *RoleIngestor {
	return &RoleIngestor{
		index:    index,
		embedder: embedder,
		chunker:  NewTextChunker(defaultChunkSize, defaultChunkOverlap),
		logger:   logger.WithFields(log, zap.String("component", "role_ingest")),
	}
}

// RoleProfile is the text indexed for a role.
func RoleProfile(role models.Role) string {
	return fmt.Sprintf("%s\n\n%s\n\nKey skills: %s", role.Title, role.Description, strings.Join(role.Keywords, ", "))
}

// Ingest replaces the indexed chunks of every role. A role that fails is
// recorded in the summary and the rest are still ingested.
func (r *RoleIngestor) Ingest(ctx context.Context, roles []models.Role) IngestSummary {
	summary := IngestSummary{}

	for _, role := range roles {
		chunks, err := r.ingestRole(ctx, role)
		if err != nil {
			r.logger.Error("failed to ingest role", zap.String("role", role.ID), zap.Error(err))
			summary.Failed = append(summary.Failed, role.ID)
			continue
		}

		r.logger.Info("role ingested", zap.String("role", role.ID), zap.Int("chunks", chunks))
		summary.Roles++
		summary.Chunks += chunks
	}

	return summary
}

func (r *RoleIngestor) ingestRole(ctx context.Context, role models.Role) (int, error) {
	if err := r.index.DeleteRole(ctx, role.ID); err != nil {
		return 0, err
	}

	chunks := r.chunker.Chunk(RoleProfile(role))
	for i, chunk := range chunks {
		embedding, err := r.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return i, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		if err := r.index.UpsertRoleChunk(ctx, role, i, chunk, embedding); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}
