package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medassist/orchestrator/internal/adapter/predictor"
	"github.com/medassist/orchestrator/internal/config"
	"github.com/medassist/orchestrator/internal/domain"
	"github.com/medassist/orchestrator/internal/kb"
	"github.com/medassist/orchestrator/internal/session"
	"github.com/medassist/orchestrator/internal/store"
	"github.com/medassist/orchestrator/policy"
)

// fakeAssistant replays scripted replies and mimics the real client's side
// effect of appending both turns to the session log.
type fakeAssistant struct {
	replies []string
	i       int
}

func (f *fakeAssistant) Converse(ctx context.Context, sess *domain.Session, userMessage string) string {
	sess.AddUserTurn(userMessage)
	reply := f.replies[f.i]
	if f.i < len(f.replies)-1 {
		f.i++
	}
	sess.AddModelTurn(reply)
	return reply
}

type fakePredictor struct {
	preds []predictor.Prediction
	errs  []error
	calls int
}

func (f *fakePredictor) Predict(ctx context.Context, in predictor.Input) ([]predictor.Prediction, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.preds, nil
}

type errTransport struct{}

func (errTransport) Error() string { return "connection refused" }

func newTestService(t *testing.T, assistant Assistant, pred Predictor, severity string) (*Service, session.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	seed := &kb.Seed{
		Symptoms: []kb.SeedSymptom{
			{ID: "SYM001", NameEN: "Fever", Synonym: "high temperature"},
			{ID: "SYM002", NameEN: "Cough"},
			{ID: "SYM003", NameEN: "Headache"},
		},
		Diseases: []kb.SeedDisease{
			{ID: "DIS001", NameEN: "Influenza", NameVN: "Cúm", Severity: severity,
				Symptoms: []kb.SeedEdge{{ID: "SYM001", Weight: 3}, {ID: "SYM002", Weight: 2}}},
			{ID: "DIS002", NameEN: "Migraine", Severity: "low",
				Symptoms: []kb.SeedEdge{{ID: "SYM003", Weight: 3}}},
		},
	}
	require.NoError(t, seed.Apply(context.Background(), st))

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	sessions := session.NewMemoryStore()
	svc := New(st, sessions, assistant, pred, engine, &config.Config{PredictionTopK: 5})
	return svc, sessions
}

const payloadFeverCough = "```json\n{\"symptomStartTime\":\"2025-06-01T08:00:00\",\"age\":34,\"gender\":\"Male\",\"region\":\"Hanoi\",\"symptoms\":[\"fever\",\"cough\"],\"risk_factors\":[]}\n```"

const payloadFeverHeadache = "```json\n{\"symptomStartTime\":\"2025-06-01T08:00:00\",\"age\":34,\"gender\":\"Male\",\"region\":\"Hanoi\",\"symptoms\":[\"fever\",\"headache\"],\"risk_factors\":[]}\n```"

const payloadNoAge = "```json\n{\"symptomStartTime\":\"2025-06-01T08:00:00\",\"gender\":\"Male\",\"region\":\"Hanoi\",\"symptoms\":[\"fever\",\"headache\"]}\n```"

func TestHandleTurnConversationalPassthrough(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{"How long have you had the fever?"}}
	svc, sessions := newTestService(t, assistant, &fakePredictor{}, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "I have a fever")
	require.Equal(t, domain.StateCollecting, out.State)
	require.Equal(t, "How long have you had the fever?", out.Reply)
	require.False(t, out.NeedsDoctor)

	// Session stays alive while collecting.
	sess, ok := sessions.Get("c1")
	require.True(t, ok)
	require.Len(t, sess.Audit, 2)

	// Both turns were persisted durably.
	messages, err := svc.GetMessages(context.Background(), "c1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "user", messages[0].Role)
	require.Equal(t, "model", messages[1].Role)
}

func TestHandleTurnKnowledgeBaseHit(t *testing.T) {
	// Scenario: fever+cough cover DIS001's edge set exactly.
	assistant := &fakeAssistant{replies: []string{payloadFeverCough}}
	pred := &fakePredictor{}
	svc, sessions := newTestService(t, assistant, pred, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "fever and cough, nothing else")
	require.Equal(t, domain.StateResolvedKB, out.State)
	require.Contains(t, out.Reply, "Influenza")
	require.Contains(t, out.Reply, "Cúm")
	require.False(t, out.NeedsDoctor)
	require.NotEmpty(t, out.Log)

	// Terminal outcome wipes the session; the predictor was never consulted.
	_, ok := sessions.Get("c1")
	require.False(t, ok)
	require.Zero(t, pred.calls)
}

func TestHandleTurnKnowledgeBaseHitHighSeverity(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{payloadFeverCough}}
	svc, _ := newTestService(t, assistant, &fakePredictor{}, "high")

	out := svc.HandleTurn(context.Background(), "c1", "fever and cough")
	require.Equal(t, domain.StateResolvedKB, out.State)
	require.True(t, out.NeedsDoctor)
	require.Contains(t, out.Reply, "see a doctor")
}

func TestHandleTurnConfidentPrediction(t *testing.T) {
	// Scenario: fever+headache match no disease strictly; the model is sure.
	assistant := &fakeAssistant{replies: []string{payloadFeverHeadache}}
	pred := &fakePredictor{preds: []predictor.Prediction{{Disease: "Flu", ProbabilityPercentage: 72.0}}}
	svc, sessions := newTestService(t, assistant, pred, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "fever and headache")
	require.Equal(t, domain.StateResolvedPredicted, out.State)
	require.Contains(t, out.Reply, "Flu (72.00%)")

	_, ok := sessions.Get("c1")
	require.False(t, ok)
}

func TestHandleTurnNotConfidentStaysCollecting(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{payloadFeverHeadache}}
	pred := &fakePredictor{preds: []predictor.Prediction{{Disease: "Flu", ProbabilityPercentage: 40.0}}}
	svc, sessions := newTestService(t, assistant, pred, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "fever and headache")
	require.Equal(t, domain.StateCollecting, out.State)
	require.Contains(t, out.Reply, "provide more information")

	sess, ok := sessions.Get("c1")
	require.True(t, ok)
	found := false
	for _, entry := range sess.Audit {
		if strings.Contains(entry, "insufficient information") {
			found = true
		}
	}
	require.True(t, found, "audit log should note the insufficient-information round")
}

func TestHandleTurnEscalation(t *testing.T) {
	// Scenario: the stripped reply is the escalation sentinel.
	reply := "1\n" + payloadFeverHeadache
	assistant := &fakeAssistant{replies: []string{reply}}
	svc, sessions := newTestService(t, assistant, &fakePredictor{}, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "call a doctor please")
	require.Equal(t, domain.StateEscalated, out.State)
	require.True(t, out.NeedsDoctor)
	require.Equal(t, "We will call a doctor for you.", out.Reply)

	_, ok := sessions.Get("c1")
	require.False(t, ok)
}

func TestHandleTurnEscalationBeatsKnowledgeBase(t *testing.T) {
	// The payload would strict-match DIS001, but the sentinel wins.
	reply := "1\n" + payloadFeverCough
	assistant := &fakeAssistant{replies: []string{reply}}
	pred := &fakePredictor{}
	svc, _ := newTestService(t, assistant, pred, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "call a doctor")
	require.Equal(t, domain.StateEscalated, out.State)
	require.Zero(t, pred.calls)
}

func TestHandleTurnMissingDemographics(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{payloadNoAge}}
	pred := &fakePredictor{}
	svc, sessions := newTestService(t, assistant, pred, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "fever and headache")
	require.Equal(t, domain.StateCollecting, out.State)
	require.Contains(t, out.Reply, "provide more information")
	require.Zero(t, pred.calls, "prediction must not run without demographics")

	_, ok := sessions.Get("c1")
	require.True(t, ok)
}

func TestHandleTurnPredictorFailureIsGenericError(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{payloadFeverHeadache}}
	pred := &fakePredictor{errs: []error{errTransport{}, errTransport{}}}
	svc, sessions := newTestService(t, assistant, pred, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "fever and headache")
	require.Equal(t, domain.StateCollecting, out.State)
	require.Contains(t, out.Reply, "error occurred")

	// One retry, then give up; the session survives for the user to retry.
	require.Equal(t, 2, pred.calls)
	_, ok := sessions.Get("c1")
	require.True(t, ok)
}

func TestHandleTurnPredictorRetrySucceeds(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{payloadFeverHeadache}}
	pred := &fakePredictor{
		errs:  []error{errTransport{}, nil},
		preds: []predictor.Prediction{{Disease: "Flu", ProbabilityPercentage: 72.0}},
	}
	svc, _ := newTestService(t, assistant, pred, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "fever and headache")
	require.Equal(t, domain.StateResolvedPredicted, out.State)
	require.Equal(t, 2, pred.calls)
}

func TestHandleTurnFreshConversationAfterTerminal(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{payloadFeverCough, "Hello again, what brings you here?"}}
	svc, sessions := newTestService(t, assistant, &fakePredictor{}, "medium")

	out := svc.HandleTurn(context.Background(), "c1", "fever and cough")
	require.Equal(t, domain.StateResolvedKB, out.State)

	// Next message under the same id starts a new session.
	out = svc.HandleTurn(context.Background(), "c1", "hi")
	require.Equal(t, domain.StateCollecting, out.State)
	sess, ok := sessions.Get("c1")
	require.True(t, ok)
	require.Len(t, sess.Turns, 2)
}

func TestReset(t *testing.T) {
	assistant := &fakeAssistant{replies: []string{"tell me more"}}
	svc, sessions := newTestService(t, assistant, &fakePredictor{}, "medium")

	svc.HandleTurn(context.Background(), "c1", "hello")
	_, ok := sessions.Get("c1")
	require.True(t, ok)

	svc.Reset("c1")
	_, ok = sessions.Get("c1")
	require.False(t, ok)
}

func TestRank(t *testing.T) {
	svc, _ := newTestService(t, &fakeAssistant{replies: []string{""}}, &fakePredictor{}, "medium")

	matches, err := svc.Rank(context.Background(), []string{"fever", "cough", "headache"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "DIS001", matches[0].Disease.DiseaseID)
	require.Equal(t, 2, matches[0].MatchedSymptoms)

	// Unresolvable phrases short-circuit to no matches.
	matches, err = svc.Rank(context.Background(), []string{"nonsense"})
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestDeriveTitle(t *testing.T) {
	require.Equal(t, "I have a fever", deriveTitle("I have a fever. It started yesterday."))
	require.Equal(t, "New Chat", deriveTitle("   "))
	require.Equal(t,
		"one two three four five six seven eight nine ten...",
		deriveTitle("one two three four five six seven eight nine ten eleven"))
}
