package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/models"
)

const (
	roleDocType      = "role_profile"
	embeddingSize    = 768
	defaultGRPCPort  = 6334
	pointIDNamespace = "ats-scanner/role"
)

// RoleIndex stores role profile embeddings in qdrant and finds the roles
// closest to a piece of resume text.
type RoleIndex interface {
	InitCollection(ctx context.Context) error
	UpsertRoleChunk(ctx context.Context, role models.Role, chunk int, text string, embedding []float32) error
	SearchRoles(ctx context.Context, queryEmbedding []float32, limit int) ([]RoleMatch, error)
	DeleteRole(ctx context.Context, roleID string) error
	Ping(ctx context.Context) error
}

type RoleMatch struct {
	RoleID string
	Title  string
	Score  float32
	Text   string
}

type qdrantRoleIndex struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	logger         *zap.Logger
}

func NewQdrantRoleIndex(urlStr, apiKey, collectionName string, log *zap.Logger) (RoleIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("invalid Qdrant URL %q: missing host", urlStr)
	}
	useTLS := parsed.Scheme == "https"

	port := defaultGRPCPort
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantRoleIndex{
		client:         client,
		collectionName: collectionName,
		vectorSize:     embeddingSize,
		logger:         logger.WithFields(log, zap.String("component", "role_index"), zap.String("collection", collectionName)),
	}, nil
}

// InitCollection implements RoleIndex.
func (q *qdrantRoleIndex) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Debug("collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.logger.Info("collection created")
	return nil
}

// UpsertRoleChunk implements RoleIndex. Point ids are derived from the role
// and chunk so re-ingesting replaces earlier points.
func (q *qdrantRoleIndex) UpsertRoleChunk(ctx context.Context, role models.Role, chunk int, text string, embedding []float32) error {
	pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%s/%d", pointIDNamespace, role.ID, chunk)))

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(pointID.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"role_id":  role.ID,
			"title":    role.Title,
			"doc_type": roleDocType,
			"text":     text,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchRoles implements RoleIndex.
func (q *qdrantRoleIndex) SearchRoles(ctx context.Context, queryEmbedding []float32, limit int) ([]RoleMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("doc_type", roleDocType),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]RoleMatch, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		match := RoleMatch{
			RoleID: payloadString(payload, "role_id"),
			Title:  payloadString(payload, "title"),
			Text:   payloadString(payload, "text"),
			Score:  point.GetScore(),
		}
		if match.RoleID == "" {
			continue
		}
		matches = append(matches, match)
	}

	return matches, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

// DeleteRole implements RoleIndex.
func (q *qdrantRoleIndex) DeleteRole(ctx context.Context, roleID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("role_id", roleID),
		},
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("failed to delete role %s: %w", roleID, err)
	}

	return nil
}

// Ping implements RoleIndex.
func (q *qdrantRoleIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant unavailable: %w", err)
	}
	return nil
}
