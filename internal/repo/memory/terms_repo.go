package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/civichub/internal/domain/term"
)

type TermsRepo struct {
	mu    sync.RWMutex
	items map[string]term.Term
}

func NewTermsRepo() *TermsRepo {
	return &TermsRepo{
		items: make(map[string]term.Term),
	}
}

func (r *TermsRepo) Create(ctx context.Context, req term.CreateRequest) (term.Term, error) {
	t := term.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TermsRepo) GetByID(ctx context.Context, id string) (term.Term, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok {
		return term.Term{}, term.ErrNotFound
	}

	return t, nil
}

func (r *TermsRepo) List(ctx context.Context) ([]term.Term, error) {
	r.mu.RLock()
	out := make([]term.Term, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartYear != out[j].StartYear {
			return out[i].StartYear > out[j].StartYear
		}
		return out[i].Name < out[j].Name
	})

	return out, nil
}
