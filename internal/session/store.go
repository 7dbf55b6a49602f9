// Package session holds the per-conversation state the assistant keeps
// between messages: a bounded turn history with timestamps and the last
// reply sent. Sessions expire after a period of inactivity; an explicit
// background sweeper owned by the store removes them.
//
// The store itself never reorders anything. Callers that need turn order
// within one conversation serialize their work with Acquire.
package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxTurns bounds the history kept per session. Oldest turns are
	// dropped past the cap; the cap itself is the retained floor.
	DefaultMaxTurns = 10

	// DefaultTTL is the inactivity window after which a session is evicted.
	DefaultTTL = 30 * time.Minute

	// DefaultSweepEvery is the cadence of the background eviction cycle.
	DefaultSweepEvery = 5 * time.Minute

	// contextTurns caps how many prior turns RenderContext emits.
	contextTurns = 5
)

// Turn is one user message and, once produced, the reply it got.
type Turn struct {
	At    time.Time `json:"at"`
	Text  string    `json:"text"`
	Reply string    `json:"reply,omitempty"`
}

// Snapshot is a read-only view of one live session for the admin surface.
type Snapshot struct {
	ConversationID string    `json:"conversation_id"`
	Turns          int       `json:"turns"`
	LastActivity   time.Time `json:"last_activity"`
	LastReply      string    `json:"last_reply,omitempty"`
}

type state struct {
	mu       sync.Mutex // per-conversation serialization, handed out by Acquire
	turns    []Turn
	lastSeen time.Time
}

// Store is a concurrency-safe in-memory session map with TTL eviction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state

	maxTurns   int
	ttl        time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Option tweaks a Store at construction time. Zero options give the
// production defaults.
type Option func(*Store)

// WithMaxTurns overrides the per-session history cap.
func WithMaxTurns(n int) Option { return func(s *Store) { s.maxTurns = n } }

// WithTTL overrides the inactivity TTL.
func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

// WithSweepEvery overrides the sweep cadence.
func WithSweepEvery(d time.Duration) Option { return func(s *Store) { s.sweepEvery = d } }

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New builds a Store. Call Start to launch the sweeper and Stop on shutdown.
func New(opts ...Option) *Store {
	s := &Store{
		sessions:   make(map[string]*state),
		maxTurns:   DefaultMaxTurns,
		ttl:        DefaultTTL,
		sweepEvery: DefaultSweepEvery,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background eviction cycle.
func (s *Store) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.sweepEvery)
		defer t.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-t.C:
				if n := s.Sweep(s.now()); n > 0 {
					log.Debug().Int("evicted", n).Msg("session sweep")
				}
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit. Safe to call more
// than once.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Acquire locks the per-conversation mutex and returns the unlock func.
// Holding it serializes turn processing for one conversation without
// blocking any other.
func (s *Store) Acquire(conversationID string) func() {
	st := s.ensure(conversationID)
	st.mu.Lock()
	return st.mu.Unlock
}

func (s *Store) ensure(conversationID string) *state {
	s.mu.RLock()
	st, ok := s.sessions[conversationID]
	s.mu.RUnlock()
	if ok {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.sessions[conversationID]; ok {
		return st
	}
	st = &state{lastSeen: s.now()}
	s.sessions[conversationID] = st
	return st
}

// RecordMessage appends an inbound message as a new turn, creating the
// session on first contact and trimming history past the cap.
func (s *Store) RecordMessage(conversationID, text string) {
	st := s.ensure(conversationID)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	st.turns = append(st.turns, Turn{At: now, Text: text})
	if over := len(st.turns) - s.maxTurns; over > 0 {
		st.turns = append(st.turns[:0], st.turns[over:]...)
	}
	st.lastSeen = now
}

// RecordReply attaches the bot reply to the latest turn. A reply for a
// conversation with no live session is dropped; the session may have been
// swept while the answer was being produced.
func (s *Store) RecordReply(conversationID, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[conversationID]
	if !ok || len(st.turns) == 0 {
		return
	}
	st.turns[len(st.turns)-1].Reply = reply
	st.lastSeen = s.now()
}

// RenderContext formats recent completed turns as continuity context for
// the language model. The in-flight message (the latest turn, which has no
// reply yet) is excluded so the model does not see the question twice.
// Returns "" for a fresh conversation.
func (s *Store) RenderContext(conversationID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[conversationID]
	if !ok {
		return ""
	}

	turns := st.turns
	if n := len(turns); n > 0 && turns[n-1].Reply == "" {
		turns = turns[:n-1]
	}
	if len(turns) > contextTurns {
		turns = turns[len(turns)-contextTurns:]
	}
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	for _, t := range turns {
		b.WriteString("[")
		b.WriteString(t.At.Format("15:04"))
		b.WriteString("] user: ")
		b.WriteString(t.Text)
		b.WriteString("\n")
		if t.Reply != "" {
			b.WriteString("[")
			b.WriteString(t.At.Format("15:04"))
			b.WriteString("] assistant: ")
			b.WriteString(t.Reply)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// End removes a session immediately and reports whether it existed.
func (s *Store) End(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[conversationID]
	delete(s.sessions, conversationID)
	return ok
}

// Sweep evicts every session idle past the TTL relative to now and
// returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.sessions {
		if st.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshots returns a point-in-time view of all live sessions ordered by
// most recent activity first.
func (s *Store) Snapshots() []Snapshot {
	s.mu.RLock()
	out := make([]Snapshot, 0, len(s.sessions))
	for id, st := range s.sessions {
		snap := Snapshot{
			ConversationID: id,
			Turns:          len(st.turns),
			LastActivity:   st.lastSeen,
		}
		if n := len(st.turns); n > 0 {
			snap.LastReply = st.turns[n-1].Reply
		}
		out = append(out, snap)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].ConversationID < out[j].ConversationID
	})
	return out
}
