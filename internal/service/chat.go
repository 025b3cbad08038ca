package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/orchestrator/internal/adapter/predictor"
	"github.com/medassist/orchestrator/internal/domain"
	"github.com/medassist/orchestrator/internal/extract"
	"github.com/medassist/orchestrator/policy"
)

// EscalationSentinel is the reply value signaling the user asked for a doctor.
const EscalationSentinel = "1"

// User-facing replies.
const (
	replyProcessingError = "An error occurred while processing your request. Please try again."
	replyEscalation      = "We will call a doctor for you."
	replyNeedMoreInfo    = "Please provide more information about your current condition so I can make an accurate diagnosis. Or you can ask to call a doctor."
	replyDoctorAdvice    = "Given the severity, you should see a doctor soon."
)

// HandleTurn advances the conversation for the given session by one user
// utterance. Turns for the same session are linearized; any internal failure
// becomes a generic processing-error reply and the session is kept so the
// user can retry the turn.
func (s *Service) HandleTurn(ctx context.Context, sessionID, userMessage string) *domain.Outcome {
	release := s.sessions.Acquire(sessionID)
	defer release()

	sess := s.sessions.GetOrCreate(sessionID)

	out, err := s.advance(ctx, sessionID, sess, userMessage)
	if err != nil {
		log.Printf("chat: turn failed for session %s: %v", sessionID, err)
		return &domain.Outcome{Reply: replyProcessingError, State: domain.StateCollecting}
	}
	return out
}

// Reset wipes the session state so the next message starts fresh.
func (s *Service) Reset(sessionID string) {
	release := s.sessions.Acquire(sessionID)
	defer release()
	s.sessions.Delete(sessionID)
}

func (s *Service) advance(ctx context.Context, sessionID string, sess *domain.Session, userMessage string) (*domain.Outcome, error) {
	reply := s.assistant.Converse(ctx, sess, userMessage)

	sess.Audit = append(sess.Audit, "User: "+userMessage, "Bot: "+reply)
	if err := s.recordTurn(ctx, sessionID, userMessage, reply); err != nil {
		return nil, err
	}

	res := extract.Parse(reply)
	if res.Kind != extract.KindValid {
		// Conversational text, keep collecting.
		return &domain.Outcome{Reply: reply, State: domain.StateCollecting}, nil
	}
	sess.Extraction = domain.ExtractionSymptoms

	// An explicit escalation request wins over everything else.
	remainder := extract.Strip(reply)
	if remainder == EscalationSentinel {
		sess.Extraction = domain.ExtractionTerminal
		s.sessions.Delete(sessionID)
		return &domain.Outcome{
			Reply:       replyEscalation,
			NeedsDoctor: true,
			State:       domain.StateEscalated,
			Log:         res.Raw,
		}, nil
	}

	ids, err := s.resolver.ResolveAll(ctx, res.Payload.Symptoms)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		diseases, err := s.matcher.Search(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(diseases) > 0 {
			return s.resolveKB(ctx, sessionID, sess, diseases, res.Raw)
		}
	}

	demo, err := res.Payload.Demographics()
	if err != nil {
		// Missing prediction inputs: surface as need-more-information and
		// keep collecting.
		sess.Audit = append(sess.Audit, "Prediction skipped: "+err.Error())
		return &domain.Outcome{Reply: replyNeedMoreInfo, State: domain.StateCollecting}, nil
	}
	sess.Extraction = domain.ExtractionDemographics

	preds, err := s.predictWithRetry(ctx, predictor.Input{
		Gender:      demo.Gender,
		Age:         demo.Age,
		Region:      demo.Region,
		OnsetTime:   demo.OnsetTime,
		Symptoms:    res.Payload.Symptoms,
		RiskFactors: res.Payload.RiskFactors,
		TopK:        s.config.PredictionTopK,
	})
	if err != nil {
		return nil, err
	}

	if predictor.IsConfident(preds) {
		sess.Extraction = domain.ExtractionTerminal
		s.sessions.Delete(sessionID)
		return &domain.Outcome{
			Reply: "Predict: " + formatPredictions(preds),
			State: domain.StateResolvedPredicted,
			Log:   res.Raw,
		}, nil
	}

	sess.Audit = append(sess.Audit, "External disease model: insufficient information")
	body := strings.TrimSpace(remainder)
	if body != "" {
		body += "\n"
	}
	return &domain.Outcome{Reply: body + replyNeedMoreInfo, State: domain.StateCollecting}, nil
}

func (s *Service) resolveKB(ctx context.Context, sessionID string, sess *domain.Session, diseases []domain.Disease, rawPayload string) (*domain.Outcome, error) {
	action, err := s.triage.Evaluate(ctx, map[string]interface{}{
		"kind":         "kb_match",
		"max_severity": maxSeverity(diseases),
	})
	if err != nil {
		return nil, err
	}

	reply := formatDiseases(diseases)
	needsDoctor := false
	if action == policy.ActionRecommendDoctor {
		reply += "\n\n" + replyDoctorAdvice
		needsDoctor = true
	}

	sess.Extraction = domain.ExtractionTerminal
	s.sessions.Delete(sessionID)
	return &domain.Outcome{
		Reply:       reply,
		NeedsDoctor: needsDoctor,
		State:       domain.StateResolvedKB,
		Log:         rawPayload,
	}, nil
}

// predictWithRetry retries a failed predictor call once. The client itself
// never retries.
func (s *Service) predictWithRetry(ctx context.Context, in predictor.Input) ([]predictor.Prediction, error) {
	preds, err := s.predictor.Predict(ctx, in)
	if err == nil {
		return preds, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Printf("chat: prediction failed, retrying once: %v", err)
	return s.predictor.Predict(ctx, in)
}

// recordTurn persists both turns to the append-only message store, lazily
// creating the conversation record. Persistence failures are fatal for the
// turn.
func (s *Service) recordTurn(ctx context.Context, conversationID, userMessage, reply string) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		now := time.Now()
		conv = &domain.Conversation{
			ConversationID:  conversationID,
			Title:           deriveTitle(userMessage),
			StartTime:       now,
			LastMessageTime: now,
		}
		if err := s.store.CreateConversation(ctx, conv); err != nil {
			return err
		}
	} else if err := s.store.TouchConversation(ctx, conversationID); err != nil {
		return err
	}

	now := time.Now()
	userMsg := &domain.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conversationID,
		Role:           "user",
		Content:        userMessage,
		CreatedAt:      now,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return err
	}
	botMsg := &domain.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conversationID,
		Role:           "model",
		Content:        reply,
		CreatedAt:      now,
	}
	return s.store.AppendMessage(ctx, botMsg)
}

// deriveTitle builds a conversation title from the first message: the first
// sentence, capped at ten words.
func deriveTitle(firstMessage string) string {
	msg := strings.TrimSpace(firstMessage)
	if msg == "" {
		return "New Chat"
	}
	main := msg
	if idx := strings.IndexAny(msg, ".!?"); idx >= 0 {
		main = strings.TrimSpace(msg[:idx])
	}
	words := strings.Fields(main)
	if len(words) == 0 {
		return "New Chat"
	}
	if len(words) > 10 {
		return strings.Join(words[:10], " ") + "..."
	}
	return strings.Join(words, " ")
}

func formatDiseases(diseases []domain.Disease) string {
	blocks := make([]string, 0, len(diseases))
	for _, d := range diseases {
		blocks = append(blocks, fmt.Sprintf(
			"- Name (EN): %s\n  Name (VN): %s\n  Description (EN): %s\n  Description (VN): %s",
			orNone(d.NameEN), orNone(d.NameVN), orNone(d.DescriptionEN), orNone(d.DescriptionVN)))
	}
	return "Found diseases matching all reported symptoms:\n\n" + strings.Join(blocks, "\n\n")
}

func formatPredictions(preds []predictor.Prediction) string {
	if len(preds) == 0 {
		return "No suitable solution"
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ", ")
}

func maxSeverity(diseases []domain.Disease) string {
	rank := map[domain.Severity]int{
		domain.SeverityLow:    1,
		domain.SeverityMedium: 2,
		domain.SeverityHigh:   3,
	}
	max := domain.Severity("")
	for _, d := range diseases {
		if rank[d.Severity] > rank[max] {
			max = d.Severity
		}
	}
	if max == "" {
		return string(domain.SeverityLow)
	}
	return string(max)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
