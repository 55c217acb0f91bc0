package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestEventOrdering(t *testing.T) {
	l := New(Config{})
	var mu sync.Mutex
	var order []string
	var lastExpiry int64

	l.SetEventHandler(func(_ context.Context, ev models.Event) error {
		mu.Lock()
		defer mu.Unlock()
		if ev.ExpiresAt < lastExpiry {
			t.Errorf("event %s observed out-of-order expiration", ev.ID)
		}
		lastExpiry = ev.ExpiresAt
		order = append(order, ev.ID)
		if len(order) == 3 {
			l.RequestShutdown()
		}
		return nil
	})

	_ = l.ScheduleEvent("A", models.EventCustom, nil, 30*time.Millisecond)
	_ = l.ScheduleEvent("B", models.EventCustom, nil, 10*time.Millisecond)
	_ = l.ScheduleEvent("C", models.EventCustom, nil, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not shut down in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "B" || order[1] != "C" || order[2] != "A" {
		t.Fatalf("expected dispatch order [B C A], got %v", order)
	}
}

func TestTaskDispatchedExactlyOnce(t *testing.T) {
	l := New(Config{})
	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	wg.Add(5)

	l.SetTaskHandler(func(_ context.Context, task models.Task) error {
		mu.Lock()
		seen[task.ID]++
		mu.Unlock()
		wg.Done()
		return nil
	})

	go l.Run(context.Background())

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if err := l.SubmitTask(id, []byte("data"), "test"); err != nil {
			t.Fatalf("submit task: %v", err)
		}
	}

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks were not all dispatched")
	}

	l.RequestShutdown()

	mu.Lock()
	defer mu.Unlock()
	for id, count := range seen {
		if count != 1 {
			t.Errorf("task %s dispatched %d times, want 1", id, count)
		}
	}
}

func TestShutdownIdempotent(t *testing.T) {
	l := New(Config{})
	l.RequestShutdown()
	l.RequestShutdown()
	if !l.ShuttingDown() {
		t.Fatal("expected shutdown flag set")
	}
}

func TestEmptyQueueShutdownReturnsImmediately(t *testing.T) {
	l := New(Config{})
	l.RequestShutdown()
	l.wg.Add(1)
	done := make(chan struct{})
	go func() {
		l.workerLoop(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not return immediately on empty queue + shutdown")
	}
}

func TestZeroDelayEventDueImmediately(t *testing.T) {
	l := New(Config{})
	fired := make(chan struct{}, 1)
	l.SetEventHandler(func(_ context.Context, ev models.Event) error {
		fired <- struct{}{}
		l.RequestShutdown()
		return nil
	})
	_ = l.ScheduleEvent("zero", models.EventCustom, nil, 0)

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("zero-delay event was not dispatched promptly")
	}
	<-done
}

func TestOffsetRoundTrip(t *testing.T) {
	l := New(Config{})
	l.UpdateOffset(42)
	if got := l.GetOffset(); got != 42 {
		t.Fatalf("GetOffset() = %d, want 42", got)
	}
}
