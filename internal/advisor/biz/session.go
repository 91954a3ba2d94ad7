package biz

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/course-advisor/pkg/llm"
)

// Conversation is the per-session mutable state: the message history and
// the title of the most recently surfaced course. One Conversation belongs
// to exactly one session and is never shared.
type Conversation struct {
	// mu serializes queries on this session. Queries from different
	// sessions run in parallel.
	mu sync.Mutex

	id        string
	history   []llm.Message
	lastTitle string
	createdAt time.Time

	// lastActive is the unix-nano timestamp of the most recent use. It is
	// read by the sweeper without taking mu.
	lastActive atomic.Int64
}

func (c *Conversation) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// ID returns the session identifier.
func (c *Conversation) ID() string {
	return c.id
}

// LastTitle returns the title of the most recently surfaced course, or ""
// when no fresh query has succeeded yet.
func (c *Conversation) LastTitle() string {
	return c.lastTitle
}

// History returns a copy of the message history.
func (c *Conversation) History() []llm.Message {
	out := make([]llm.Message, len(c.history))
	copy(out, c.history)
	return out
}

// recentHistory returns at most the last n messages.
func (c *Conversation) recentHistory(n int) []llm.Message {
	if n <= 0 || len(c.history) == 0 {
		return nil
	}
	start := len(c.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]llm.Message, len(c.history)-start)
	copy(out, c.history[start:])
	return out
}

func (c *Conversation) appendTurn(role llm.Role, content string) {
	c.history = append(c.history, llm.Message{Role: role, Content: content})
}

// Manager owns conversation lifecycles. The WebSocket transport creates a
// conversation on connect and removes it on disconnect. Conversations
// reached over plain HTTP have no disconnect event; they are evicted by
// the sweeper after an idle period.
type Manager struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	entropy       *ulid.MonotonicEntropy
	entropyMu     sync.Mutex
}

// NewManager creates a session manager.
func NewManager() *Manager {
	return &Manager{
		conversations: make(map[string]*Conversation),
		entropy:       ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (m *Manager) newID() string {
	m.entropyMu.Lock()
	defer m.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

// Create starts a new conversation and returns it.
func (m *Manager) Create() *Conversation {
	conv := &Conversation{
		id:        m.newID(),
		createdAt: time.Now(),
	}
	conv.touch()

	m.mu.Lock()
	m.conversations[conv.id] = conv
	m.mu.Unlock()

	return conv
}

// Get returns the conversation with the given id, or nil.
func (m *Manager) Get(id string) *Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conversations[id]
}

// GetOrCreate returns the conversation with the given id, creating one
// when the id is unknown or empty.
func (m *Manager) GetOrCreate(id string) *Conversation {
	if id != "" {
		if conv := m.Get(id); conv != nil {
			conv.touch()
			return conv
		}
	}
	return m.Create()
}

// Remove destroys a conversation. Its state is not persisted.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.conversations, id)
	m.mu.Unlock()
}

// Count returns the number of live conversations.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

// sweepInterval is how often the sweeper checks for idle conversations.
const sweepInterval = time.Minute

// Sweep removes conversations idle for longer than maxIdle and returns
// how many were removed.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, conv := range m.conversations {
		if conv.lastActive.Load() < cutoff {
			delete(m.conversations, id)
			removed++
		}
	}
	return removed
}

// StartSweeper evicts idle conversations in the background until ctx is
// cancelled. A non-positive maxIdle disables eviction.
func (m *Manager) StartSweeper(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(maxIdle); n > 0 {
					logger.Infow("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}
