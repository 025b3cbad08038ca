package kb

import (
	"context"
	"fmt"

	"github.com/medassist/orchestrator/internal/domain"
	"github.com/medassist/orchestrator/internal/store"
)

// Matcher finds candidate diseases for a set of resolved symptom ids.
type Matcher struct {
	store store.Store
}

// NewMatcher creates a matcher backed by the given store.
func NewMatcher(st store.Store) *Matcher {
	return &Matcher{store: st}
}

// Search is the strict all-of match: only diseases associated with every one
// of the given symptom ids are returned. An empty id list short-circuits to
// no match without querying. Zero results is a valid outcome, not an error.
// Disease ids with no backing disease row are dropped silently.
func (m *Matcher) Search(ctx context.Context, symptomIDs []string) ([]domain.Disease, error) {
	if len(symptomIDs) == 0 {
		return nil, nil
	}
	ids, err := m.store.FindDiseaseIDsWithAllSymptoms(ctx, symptomIDs)
	if err != nil {
		return nil, fmt.Errorf("strict match failed: %w", err)
	}
	var diseases []domain.Disease
	for _, id := range ids {
		d, err := m.store.GetDisease(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("strict match failed: %w", err)
		}
		if d == nil {
			continue
		}
		diseases = append(diseases, *d)
	}
	return diseases, nil
}

// Diagnose is the ranked any-of match: diseases overlapping the given symptom
// ids ordered by descending match count, ties broken by disease id. Kept as
// an independent entry point for callers that want partial matches.
func (m *Matcher) Diagnose(ctx context.Context, symptomIDs []string) ([]domain.DiseaseMatch, error) {
	if len(symptomIDs) == 0 {
		return nil, nil
	}
	rows, err := m.store.FindDiseaseMatchesBySymptoms(ctx, symptomIDs)
	if err != nil {
		return nil, fmt.Errorf("ranked match failed: %w", err)
	}
	var matches []domain.DiseaseMatch
	for _, row := range rows {
		d, err := m.store.GetDisease(ctx, row.DiseaseID)
		if err != nil {
			return nil, fmt.Errorf("ranked match failed: %w", err)
		}
		if d == nil {
			continue
		}
		matches = append(matches, domain.DiseaseMatch{Disease: *d, MatchedSymptoms: row.Matches})
	}
	return matches, nil
}
