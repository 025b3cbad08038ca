// Package service implements the conversation orchestrator.
package service

import (
	"context"
	"fmt"

	"github.com/medassist/orchestrator/internal/adapter/predictor"
	"github.com/medassist/orchestrator/internal/config"
	"github.com/medassist/orchestrator/internal/domain"
	"github.com/medassist/orchestrator/internal/kb"
	"github.com/medassist/orchestrator/internal/session"
	"github.com/medassist/orchestrator/internal/store"
	"github.com/medassist/orchestrator/policy"
)

// Assistant is the conversational text collaborator.
type Assistant interface {
	Converse(ctx context.Context, sess *domain.Session, userMessage string) string
}

// Predictor is the probabilistic disease predictor collaborator.
type Predictor interface {
	Predict(ctx context.Context, in predictor.Input) ([]predictor.Prediction, error)
}

// Service orchestrates conversations over the knowledge base and the
// external collaborators.
type Service struct {
	store     store.Store
	sessions  session.Store
	resolver  *kb.Resolver
	matcher   *kb.Matcher
	assistant Assistant
	predictor Predictor
	triage    *policy.Engine
	config    *config.Config
}

// New creates the service.
func New(st store.Store, sessions session.Store, assistant Assistant, pred Predictor, triage *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		store:     st,
		sessions:  sessions,
		resolver:  kb.NewResolver(st),
		matcher:   kb.NewMatcher(st),
		assistant: assistant,
		predictor: pred,
		triage:    triage,
		config:    cfg,
	}
}

// GetMessages returns the durable message log for a conversation.
func (s *Service) GetMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	messages, err := s.store.GetMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// Rank resolves the given symptom phrases and runs the ranked any-of match.
// Exposed as an independent entry point alongside the conversation flow.
func (s *Service) Rank(ctx context.Context, symptomNames []string) ([]domain.DiseaseMatch, error) {
	ids, err := s.resolver.ResolveAll(ctx, symptomNames)
	if err != nil {
		return nil, err
	}
	return s.matcher.Diagnose(ctx, ids)
}
