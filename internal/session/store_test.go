package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fixed clock helper
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)}
}

// ----- history cap -----

func TestRecordMessage_DropsOldestPastCap(t *testing.T) {
	c := newClock()
	s := New(WithMaxTurns(3), WithClock(c.now))

	for i := 1; i <= 5; i++ {
		s.RecordMessage("conv", fmt.Sprintf("msg %d", i))
		s.RecordReply("conv", fmt.Sprintf("reply %d", i))
		c.advance(time.Minute)
	}

	snaps := s.Snapshots()
	if len(snaps) != 1 || snaps[0].Turns != 3 {
		t.Fatalf("expected 1 session with 3 turns, got %+v", snaps)
	}
	ctx := s.RenderContext("conv")
	if strings.Contains(ctx, "msg 1") || strings.Contains(ctx, "msg 2") {
		t.Fatalf("oldest turns should have been dropped:\n%s", ctx)
	}
	if !strings.Contains(ctx, "msg 5") {
		t.Fatalf("newest turn missing:\n%s", ctx)
	}
}

// ----- context rendering -----

func TestRenderContext_ExcludesInFlightMessage(t *testing.T) {
	c := newClock()
	s := New(WithClock(c.now))

	s.RecordMessage("conv", "who are my top customers?")
	s.RecordReply("conv", "Acme leads with R$ 259.")
	c.advance(2 * time.Minute)
	s.RecordMessage("conv", "and this week?") // in flight, no reply yet

	ctx := s.RenderContext("conv")
	if strings.Contains(ctx, "and this week?") {
		t.Fatalf("in-flight message must not appear in context:\n%s", ctx)
	}
	if !strings.Contains(ctx, "[14:00] user: who are my top customers?") {
		t.Fatalf("expected timestamped prior turn:\n%s", ctx)
	}
	if !strings.Contains(ctx, "assistant: Acme leads") {
		t.Fatalf("expected prior reply:\n%s", ctx)
	}
}

func TestRenderContext_FreshConversationIsEmpty(t *testing.T) {
	s := New()
	if got := s.RenderContext("nobody"); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	s.RecordMessage("conv", "first message")
	if got := s.RenderContext("conv"); got != "" {
		t.Fatalf("only-in-flight turn should render empty, got %q", got)
	}
}

func TestRenderContext_CapsAtRecentTurns(t *testing.T) {
	c := newClock()
	s := New(WithMaxTurns(20), WithClock(c.now))

	for i := 1; i <= 8; i++ {
		s.RecordMessage("conv", fmt.Sprintf("q%d", i))
		s.RecordReply("conv", fmt.Sprintf("a%d", i))
		c.advance(time.Minute)
	}

	ctx := s.RenderContext("conv")
	if strings.Contains(ctx, "q3") {
		t.Fatalf("context should cap at %d turns:\n%s", contextTurns, ctx)
	}
	for i := 4; i <= 8; i++ {
		if !strings.Contains(ctx, fmt.Sprintf("q%d", i)) {
			t.Fatalf("missing recent turn q%d:\n%s", i, ctx)
		}
	}
}

// ----- eviction -----

func TestSweep_EvictsIdleSessionsOnly(t *testing.T) {
	c := newClock()
	s := New(WithTTL(30*time.Minute), WithClock(c.now))

	s.RecordMessage("stale", "hello")
	c.advance(31 * time.Minute)
	s.RecordMessage("fresh", "hi")

	if n := s.Sweep(c.now()); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", s.Len())
	}
	if len(s.Snapshots()) != 1 || s.Snapshots()[0].ConversationID != "fresh" {
		t.Fatalf("wrong survivor: %+v", s.Snapshots())
	}
}

func TestStartStop_SweeperLifecycle(t *testing.T) {
	c := newClock()
	s := New(WithTTL(time.Minute), WithSweepEvery(5*time.Millisecond), WithClock(c.now))
	s.RecordMessage("conv", "hello")
	c.advance(2 * time.Minute)

	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop() // idempotent

	if s.Len() != 0 {
		t.Fatalf("sweeper never evicted the idle session")
	}
}

// ----- explicit termination -----

func TestEnd(t *testing.T) {
	s := New()
	s.RecordMessage("conv", "hello")
	if !s.End("conv") {
		t.Fatalf("expected End to report an existing session")
	}
	if s.End("conv") {
		t.Fatalf("expected End to report false for a gone session")
	}
	if s.Len() != 0 {
		t.Fatalf("session should be gone")
	}
}

// ----- reply bookkeeping -----

func TestRecordReply_NoSessionIsDropped(t *testing.T) {
	s := New()
	s.RecordReply("ghost", "hello?") // must not panic or create a session
	if s.Len() != 0 {
		t.Fatalf("reply for unknown conversation must not create a session")
	}
}

// ----- per-key serialization -----

func TestAcquire_SerializesPerConversation(t *testing.T) {
	s := New()
	var order []int
	var mu sync.Mutex
	unlock := s.Acquire("conv")

	done := make(chan struct{})
	go func() {
		u := s.Acquire("conv")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		u()
		close(done)
	}()

	// Other conversations are not blocked by the held lock.
	otherUnlock := s.Acquire("other")
	otherUnlock()

	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	unlock()
	<-done

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected holder to run first, got %v", order)
	}
}

// ----- snapshots -----

func TestSnapshots_OrderedByActivity(t *testing.T) {
	c := newClock()
	s := New(WithClock(c.now))

	s.RecordMessage("old", "a")
	c.advance(time.Minute)
	s.RecordMessage("new", "b")
	s.RecordReply("new", "ok")

	snaps := s.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ConversationID != "new" || snaps[1].ConversationID != "old" {
		t.Fatalf("wrong order: %+v", snaps)
	}
	if snaps[0].LastReply != "ok" {
		t.Fatalf("expected last reply in snapshot, got %+v", snaps[0])
	}
}
