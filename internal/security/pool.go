package security

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool runs bcrypt work off the request goroutine, with at most `workers`
// computations in flight. Callers block until their result is ready or
// their context is done.
type Pool struct {
	hasher *Hasher
	sem    *semaphore.Weighted
	obs    Observer

	dummyOnce sync.Once
	dummy     string
}

func NewPool(hasher *Hasher, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(workers)),
	}
}

// Observer receives the latency of every pool call, queueing included.
type Observer interface {
	ObserveHash(op string, d time.Duration, err error)
}

func (p *Pool) WithObserver(obs Observer) *Pool {
	p.obs = obs
	return p
}

type hashResult struct {
	hash string
	ok   bool
	err  error
}

func (p *Pool) Hash(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	res, err := p.submit(ctx, "hash", func() hashResult {
		h, err := p.hasher.Hash(plain)
		return hashResult{hash: h, err: err}
	})
	if err != nil {
		return "", err
	}

	return res.hash, res.err
}

func (p *Pool) Verify(ctx context.Context, plain, hash string) (bool, error) {
	res, err := p.submit(ctx, "verify", func() hashResult {
		return hashResult{ok: p.hasher.Verify(plain, hash)}
	})
	if err != nil {
		return false, err
	}

	return res.ok, nil
}

// Burn spends one verification worth of work against a throwaway hash. Used
// when the account is unknown so the response time does not reveal it. It
// goes through Verify, so overlong input short-circuits the same way it does
// for a known account.
func (p *Pool) Burn(ctx context.Context, plain string) error {
	p.dummyOnce.Do(func() {
		p.dummy, _ = p.hasher.Hash("civichub-timing-equaliser")
	})

	_, err := p.Verify(ctx, plain, p.dummy)
	return err
}

func (p *Pool) submit(ctx context.Context, op string, fn func() hashResult) (res hashResult, err error) {
	start := time.Now()
	defer func() {
		if p.obs == nil {
			return
		}
		failure := err
		if failure == nil {
			failure = res.err
		}
		p.obs.ObserveHash(op, time.Since(start), failure)
	}()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return hashResult{}, err
	}

	// buffered so the worker never blocks if the caller already left
	done := make(chan hashResult, 1)

	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	}
}
