package security

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *Hasher {
	return NewHasher(bcrypt.MinCost)
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := newTestHasher()

	passwords := []string{"secret123", "p", "unicode-пароль-密码", strings.Repeat("x", 72)}

	for _, p := range passwords {
		hash, err := h.Hash(p)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", p, err)
		}

		if hash == p {
			t.Fatalf("hash must not equal plaintext")
		}

		if !h.Verify(p, hash) {
			t.Fatalf("Verify(%q) = false, want true", p)
		}

		if h.Verify(p+"!", hash) {
			t.Fatalf("Verify with different password returned true")
		}
	}
}

func TestHasher_FreshSaltPerCall(t *testing.T) {
	h := newTestHasher()

	a, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	b, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if a == b {
		t.Fatalf("two hashes of the same password should differ")
	}

	if !h.Verify("secret123", a) || !h.Verify("secret123", b) {
		t.Fatalf("both hashes should verify")
	}
}

func TestHasher_Errors(t *testing.T) {
	h := newTestHasher()

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}

	if _, err := h.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	if h.Verify("secret123", "not-a-bcrypt-hash") {
		t.Fatalf("garbage hash must not verify")
	}
}

func TestHasher_VerifyRejectsInputPastBcryptLimit(t *testing.T) {
	h := newTestHasher()

	exact := strings.Repeat("a", 72)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !h.Verify(exact, hash) {
		t.Fatalf("72-byte password should verify")
	}

	for _, suffix := range []string{"x", "extra", strings.Repeat("z", 100)} {
		if h.Verify(exact+suffix, hash) {
			t.Fatalf("Verify(%d bytes) matched a 72-byte hash", len(exact+suffix))
		}
	}

	p := NewPool(h, 1)
	ok, err := p.Verify(context.Background(), exact+"x", hash)
	if err != nil || ok {
		t.Fatalf("pool Verify got (%v, %v), want (false, nil)", ok, err)
	}
	if err := p.Burn(context.Background(), exact+"x"); err != nil {
		t.Fatalf("Burn error: %v", err)
	}
}

func TestNewHasher_CostFallback(t *testing.T) {
	h := NewHasher(99)

	if h.cost != bcrypt.DefaultCost {
		t.Fatalf("cost got %d want %d", h.cost, bcrypt.DefaultCost)
	}

	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("embedded cost got %d (%v)", cost, err)
	}
}

func TestPool_HashAndVerify(t *testing.T) {
	p := NewPool(newTestHasher(), 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			hash, err := p.Hash(ctx, "secret123")
			if err != nil {
				errs <- err
				return
			}

			ok, err := p.Verify(ctx, "secret123", hash)
			if err != nil {
				errs <- err
				return
			}
			if !ok {
				errs <- errors.New("verify returned false")
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("pool error: %v", err)
	}
}

func TestPool_EmptyPassword(t *testing.T) {
	p := NewPool(newTestHasher(), 1)

	if _, err := p.Hash(context.Background(), ""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestPool_CancelledContext(t *testing.T) {
	p := NewPool(newTestHasher(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Hash(ctx, "secret123"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPool_WaitsForFreeWorker(t *testing.T) {
	p := NewPool(NewHasher(bcrypt.DefaultCost), 1)

	// occupy the only worker
	go func() {
		_, _ = p.Hash(context.Background(), "occupy-the-worker")
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := p.Hash(ctx, "secret123")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPool_Burn(t *testing.T) {
	p := NewPool(newTestHasher(), 1)

	if err := p.Burn(context.Background(), "anything"); err != nil {
		t.Fatalf("Burn error: %v", err)
	}
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingObserver) ObserveHash(op string, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func TestPool_Observer(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPool(newTestHasher(), 1).WithObserver(obs)

	hash, err := p.Hash(context.Background(), "secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if _, err := p.Verify(context.Background(), "secret123", hash); err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	if len(obs.ops) != 2 || obs.ops[0] != "hash" || obs.ops[1] != "verify" {
		t.Fatalf("observed ops %v", obs.ops)
	}
}
