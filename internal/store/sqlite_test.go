package store

import (
	"context"
	"testing"
	"time"

	"github.com/medassist/orchestrator/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreConversationAndMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	conv := &domain.Conversation{
		ConversationID:  "c1",
		Title:           "I have a fever",
		StartTime:       time.Now(),
		LastMessageTime: time.Now(),
	}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	got, err := store.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got == nil || got.Title != "I have a fever" {
		t.Fatalf("unexpected conversation: %+v", got)
	}

	missing, err := store.GetConversation(ctx, "nope")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing conversation, got %+v", missing)
	}

	for i, content := range []string{"hello", "hi, what brings you here?"} {
		role := "user"
		if i == 1 {
			role = "model"
		}
		msg := &domain.Message{
			MessageID:      "m" + string(rune('1'+i)),
			ConversationID: "c1",
			Role:           role,
			Content:        content,
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	messages, err := store.GetMessages(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "model" {
		t.Fatalf("messages out of order: %+v", messages)
	}

	if err := store.TouchConversation(ctx, "c1"); err != nil {
		t.Fatalf("TouchConversation failed: %v", err)
	}
}

func seedKB(t *testing.T, store *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	symptoms := []domain.Symptom{
		{SymptomID: "SYM001", NameEN: "Fever", NameVN: "Sốt", Synonym: "high temperature; pyrexia", Frequency: domain.FrequencyFrequent},
		{SymptomID: "SYM002", NameEN: "Cough", NameVN: "Ho", Synonym: "dry cough; hacking cough"},
		{SymptomID: "SYM003", NameEN: "Headache", NameVN: "Đau đầu"},
	}
	for i := range symptoms {
		if err := store.UpsertSymptom(ctx, &symptoms[i]); err != nil {
			t.Fatalf("UpsertSymptom failed: %v", err)
		}
	}

	diseases := []domain.Disease{
		{DiseaseID: "DIS001", NameEN: "Influenza", NameVN: "Cúm", Severity: domain.SeverityMedium},
		{DiseaseID: "DIS002", NameEN: "Migraine", Severity: domain.SeverityLow},
	}
	for i := range diseases {
		if err := store.UpsertDisease(ctx, &diseases[i]); err != nil {
			t.Fatalf("UpsertDisease failed: %v", err)
		}
	}

	edges := []domain.DiseaseSymptom{
		{DiseaseID: "DIS001", SymptomID: "SYM001", Weight: 3},
		{DiseaseID: "DIS001", SymptomID: "SYM002", Weight: 2},
		{DiseaseID: "DIS002", SymptomID: "SYM003", Weight: 3},
		{DiseaseID: "DIS002", SymptomID: "SYM001", Weight: 1},
	}
	for i := range edges {
		if err := store.UpsertDiseaseSymptom(ctx, &edges[i]); err != nil {
			t.Fatalf("UpsertDiseaseSymptom failed: %v", err)
		}
	}
}

func TestSQLiteStoreSymptomLookup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()
	seedKB(t, store)

	// Exact name, case-insensitive
	syms, err := store.FindSymptomsByNameOrSynonym(ctx, "fever")
	if err != nil {
		t.Fatalf("FindSymptomsByNameOrSynonym failed: %v", err)
	}
	if len(syms) != 1 || syms[0].SymptomID != "SYM001" {
		t.Fatalf("unexpected symptoms: %+v", syms)
	}

	// Locale name
	syms, err = store.FindSymptomsByNameOrSynonym(ctx, "ho")
	if err != nil {
		t.Fatalf("FindSymptomsByNameOrSynonym failed: %v", err)
	}
	if len(syms) != 1 || syms[0].SymptomID != "SYM002" {
		t.Fatalf("unexpected symptoms: %+v", syms)
	}

	// Synonym substring
	syms, err = store.FindSymptomsByNameOrSynonym(ctx, "Pyrexia")
	if err != nil {
		t.Fatalf("FindSymptomsByNameOrSynonym failed: %v", err)
	}
	if len(syms) != 1 || syms[0].SymptomID != "SYM001" {
		t.Fatalf("unexpected symptoms: %+v", syms)
	}

	// Unmatched phrase
	syms, err = store.FindSymptomsByNameOrSynonym(ctx, "spontaneous combustion")
	if err != nil {
		t.Fatalf("FindSymptomsByNameOrSynonym failed: %v", err)
	}
	if len(syms) != 0 {
		t.Fatalf("expected no symptoms, got %+v", syms)
	}
}

func TestSQLiteStoreStrictMatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()
	seedKB(t, store)

	ids, err := store.FindDiseaseIDsWithAllSymptoms(ctx, []string{"SYM001", "SYM002"})
	if err != nil {
		t.Fatalf("FindDiseaseIDsWithAllSymptoms failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "DIS001" {
		t.Fatalf("unexpected strict matches: %v", ids)
	}

	// No disease has all three
	ids, err = store.FindDiseaseIDsWithAllSymptoms(ctx, []string{"SYM001", "SYM002", "SYM003"})
	if err != nil {
		t.Fatalf("FindDiseaseIDsWithAllSymptoms failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no strict matches, got %v", ids)
	}
}

func TestSQLiteStoreRankedMatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()
	seedKB(t, store)

	matches, err := store.FindDiseaseMatchesBySymptoms(ctx, []string{"SYM001", "SYM002"})
	if err != nil {
		t.Fatalf("FindDiseaseMatchesBySymptoms failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].DiseaseID != "DIS001" || matches[0].Matches != 2 {
		t.Fatalf("unexpected top match: %+v", matches[0])
	}
	if matches[1].DiseaseID != "DIS002" || matches[1].Matches != 1 {
		t.Fatalf("unexpected second match: %+v", matches[1])
	}
}

func TestSQLiteStoreEdgeKeyUnique(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()
	seedKB(t, store)

	// Re-upserting the same edge must not create a duplicate pair.
	err := store.UpsertDiseaseSymptom(ctx, &domain.DiseaseSymptom{DiseaseID: "DIS001", SymptomID: "SYM001", Weight: 5})
	if err != nil {
		t.Fatalf("UpsertDiseaseSymptom failed: %v", err)
	}

	matches, err := store.FindDiseaseMatchesBySymptoms(ctx, []string{"SYM001"})
	if err != nil {
		t.Fatalf("FindDiseaseMatchesBySymptoms failed: %v", err)
	}
	for _, m := range matches {
		if m.DiseaseID == "DIS001" && m.Matches != 1 {
			t.Fatalf("duplicate edge counted: %+v", m)
		}
	}
}
