package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/civichub/internal/domain/activity"
)

type ActivitiesRepo struct {
	mu    sync.RWMutex
	items map[string]activity.Activity
	terms *TermsRepo
}

func NewActivitiesRepo(terms *TermsRepo) *ActivitiesRepo {
	return &ActivitiesRepo{
		items: make(map[string]activity.Activity),
		terms: terms,
	}
}

func (r *ActivitiesRepo) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	if err := r.checkTerm(ctx, a.TermID); err != nil {
		return activity.Activity{}, err
	}

	r.mu.Lock()
	r.items[a.ID] = a
	r.mu.Unlock()

	return r.populate(ctx, a), nil
}

func (r *ActivitiesRepo) List(ctx context.Context, f activity.ListFilter) ([]activity.Activity, int, error) {
	r.mu.RLock()
	matched := make([]activity.Activity, 0, len(r.items))
	for _, a := range r.items {
		if matches(a, f) {
			matched = append(matched, a)
		}
	}
	r.mu.RUnlock()

	// same ordering as the postgres repo: newest date first, undated last
	sort.Slice(matched, func(i, j int) bool {
		di, dj := matched[i].Date, matched[j].Date
		switch {
		case di == nil && dj == nil:
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.After(*dj)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)

	start := f.Offset
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}

	out := make([]activity.Activity, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, r.populate(ctx, a))
	}

	return out, total, nil
}

func (r *ActivitiesRepo) GetByID(ctx context.Context, id string) (activity.Activity, error) {
	r.mu.RLock()
	a, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return activity.Activity{}, activity.ErrNotFound
	}

	return r.populate(ctx, a), nil
}

func (r *ActivitiesRepo) Update(ctx context.Context, id string, p activity.Patch) (activity.Activity, error) {
	if err := r.checkTerm(ctx, p.TermID); err != nil {
		return activity.Activity{}, err
	}

	r.mu.Lock()
	a, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return activity.Activity{}, activity.ErrNotFound
	}

	p.Apply(&a)
	a.UpdatedAt = time.Now().UTC()
	r.items[id] = a
	r.mu.Unlock()

	return r.populate(ctx, a), nil
}

func (r *ActivitiesRepo) Delete(ctx context.Context, id string) (activity.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return activity.Activity{}, activity.ErrNotFound
	}

	delete(r.items, id)

	return a, nil
}

func (r *ActivitiesRepo) checkTerm(ctx context.Context, termID *string) error {
	if termID == nil {
		return nil
	}

	if _, err := r.terms.GetByID(ctx, *termID); err != nil {
		return activity.ErrUnknownTerm
	}

	return nil
}

func (r *ActivitiesRepo) populate(ctx context.Context, a activity.Activity) activity.Activity {
	a.Term = nil

	if a.TermID != nil {
		t, err := r.terms.GetByID(ctx, *a.TermID)
		if err == nil {
			a.Term = &t
		}
	}

	return a
}

func matches(a activity.Activity, f activity.ListFilter) bool {
	if f.Type != nil && a.Type != *f.Type {
		return false
	}
	if f.Congress != nil && a.Congress != *f.Congress {
		return false
	}
	if f.TermID != nil && (a.TermID == nil || *a.TermID != *f.TermID) {
		return false
	}
	return true
}
