package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("document store circuit open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

type ProtectedConfig struct {
	Timeout          time.Duration // per call
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // time spent open before a trial call
	HalfOpenMaxCalls int
}

// Protected guards a remote DocumentStore with a per-call timeout and a
// circuit breaker, so a dead bucket fails uploads fast instead of pinning
// request goroutines.
type Protected struct {
	inner DocumentStore
	cfg   ProtectedConfig
	now   func() time.Time

	mu               sync.Mutex
	state            breakerState
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
}

func NewProtected(inner DocumentStore, cfg ProtectedConfig) *Protected {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &Protected{inner: inner, cfg: cfg, now: time.Now}
}

func (p *Protected) Put(ctx context.Context, doc Document) (string, error) {
	var url string
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		url, err = p.inner.Put(ctx, doc)
		return err
	})
	return url, err
}

func (p *Protected) Delete(ctx context.Context, url string) error {
	return p.call(ctx, func(ctx context.Context) error {
		return p.inner.Delete(ctx, url)
	})
}

func (p *Protected) call(ctx context.Context, fn func(context.Context) error) error {
	if !p.allow() {
		return ErrCircuitOpen
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := fn(cctx)

	// a caller that gave up says nothing about the store
	if err != nil && ctx.Err() != nil {
		p.release()
		return err
	}

	p.record(err)
	return err
}

func (p *Protected) allow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateOpen:
		if p.now().Sub(p.openedAt) < p.cfg.Cooldown {
			return false
		}
		p.state = stateHalfOpen
		p.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *Protected) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}
}

func (p *Protected) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil {
		p.failures = 0
		p.state = stateClosed
		return
	}

	p.failures++

	if p.state == stateHalfOpen || p.failures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
