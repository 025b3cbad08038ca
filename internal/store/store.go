// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/medassist/orchestrator/internal/domain"
)

// MatchRow is a raw matcher result before disease hydration.
type MatchRow struct {
	DiseaseID string
	Matches   int
}

// Store defines the interface for data persistence: the durable
// conversation/message records and the read-only knowledge base.
type Store interface {
	// Conversation operations
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	TouchConversation(ctx context.Context, conversationID string) error

	// Message operations (append-only)
	AppendMessage(ctx context.Context, msg *domain.Message) error
	GetMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// Knowledge base reads
	FindSymptomsByNameOrSynonym(ctx context.Context, name string) ([]domain.Symptom, error)
	FindDiseaseIDsWithAllSymptoms(ctx context.Context, symptomIDs []string) ([]string, error)
	FindDiseaseMatchesBySymptoms(ctx context.Context, symptomIDs []string) ([]MatchRow, error)
	GetDisease(ctx context.Context, diseaseID string) (*domain.Disease, error)

	// Knowledge base seeding
	UpsertSymptom(ctx context.Context, sym *domain.Symptom) error
	UpsertDisease(ctx context.Context, dis *domain.Disease) error
	UpsertDiseaseSymptom(ctx context.Context, edge *domain.DiseaseSymptom) error

	// Lifecycle
	Close() error
}
