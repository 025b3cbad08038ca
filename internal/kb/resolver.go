// Package kb implements the symptom resolver and the disease matcher over the
// knowledge base.
package kb

import (
	"context"
	"fmt"

	"github.com/medassist/orchestrator/internal/store"
)

// Resolver maps free-text symptom phrases to canonical symptom ids.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve returns the ids of all symptoms whose canonical name (either
// locale) equals the phrase case-insensitively, or whose synonym field
// contains it as a case-insensitive substring. An unmatched phrase yields no
// ids; there is no fuzzy matching or spell correction.
func (r *Resolver) Resolve(ctx context.Context, name string) ([]string, error) {
	symptoms, err := r.store.FindSymptomsByNameOrSynonym(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve symptom %q: %w", name, err)
	}
	ids := make([]string, 0, len(symptoms))
	for _, sym := range symptoms {
		ids = append(ids, sym.SymptomID)
	}
	return ids, nil
}

// ResolveAll resolves every phrase and returns the deduplicated union of ids,
// preserving first-seen order.
func (r *Resolver) ResolveAll(ctx context.Context, names []string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, name := range names {
		resolved, err := r.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, id := range resolved {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
