package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"

	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/testutil"
)

type fakePublisher struct {
	mu    sync.Mutex
	fail  bool
	calls int
	sent  []kafka.Message
}

func (p *fakePublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, msgs...)
	return nil
}

func enqueue(t *testing.T, store *repo.Store, topic, key string) {
	t.Helper()
	err := store.InTx(context.Background(), "enqueue", func(ctx context.Context, tx *sqlx.Tx) error {
		return Enqueue(ctx, tx, topic, key, map[string]string{"key": key})
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFlush_PublishesAndMarksSent(t *testing.T) {
	store := testutil.OpenStore(t)
	pub := &fakePublisher{}
	r := NewRelay(store.DB(), pub, nil, 0)
	ctx := context.Background()

	enqueue(t, store, "bet_placed", "b1")
	enqueue(t, store, "draw_settled", "d1")

	n, err := r.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if n != 2 || len(pub.sent) != 2 {
		t.Fatalf("sent = %d (%d published), want 2", n, len(pub.sent))
	}
	for _, m := range pub.sent {
		if m.Topic == "" || len(m.Key) == 0 || len(m.Value) == 0 {
			t.Errorf("incomplete message: %+v", m)
		}
	}

	if n, _ := r.Flush(ctx); n != 0 {
		t.Errorf("second Flush() sent %d, want 0", n)
	}
}

func TestFlush_StopsAtFirstFailureAndRetries(t *testing.T) {
	store := testutil.OpenStore(t)
	pub := &fakePublisher{fail: true}
	r := NewRelay(store.DB(), pub, nil, 0)
	ctx := context.Background()

	enqueue(t, store, "bet_placed", "b1")
	enqueue(t, store, "bet_placed", "b2")
	enqueue(t, store, "bet_placed", "b3")

	n, err := r.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || pub.calls != 1 {
		t.Errorf("sent = %d, calls = %d; want 0 and 1", n, pub.calls)
	}

	pub.fail = false
	if n, _ = r.Flush(ctx); n != 3 {
		t.Errorf("recovered Flush() sent %d, want 3", n)
	}
}

func TestFlush_GivesUpAfterMaxRetry(t *testing.T) {
	store := testutil.OpenStore(t)
	pub := &fakePublisher{fail: true}
	r := NewRelay(store.DB(), pub, nil, 0)
	ctx := context.Background()

	enqueue(t, store, "bet_placed", "b1")
	for i := 0; i < MaxRetry; i++ {
		if _, err := r.Flush(ctx); err != nil {
			t.Fatal(err)
		}
	}
	pending, err := repo.ListPendingOutbox(ctx, store.DB(), MaxRetry, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0 after %d failures", len(pending), MaxRetry)
	}

	pub.fail = false
	if n, _ := r.Flush(ctx); n != 0 {
		t.Errorf("exhausted message was published again")
	}
}
