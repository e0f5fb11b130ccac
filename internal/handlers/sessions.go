package handlers

import (
	"context"
	"sync"
	"time"

	"solitaire-cipher/backend/internal/models"
	"solitaire-cipher/backend/internal/solitaire"

	"github.com/google/uuid"
)

// Session is a live keystream shared by consecutive encrypt/decrypt calls.
// mu serializes every draw so the deck has a single writer.
type Session struct {
	ID        string
	OwnerID   int64
	DeckID    *int64
	CreatedAt time.Time

	mu       sync.Mutex
	ks       *solitaire.Keystream
	lastUsed time.Time
	clock    func() time.Time
}

type SessionView struct {
	ID        string    `json:"id"`
	DeckID    *int64    `json:"deck_id,omitempty"`
	KeysDrawn int       `json:"keys_drawn"`
	Deck      []int     `json:"deck"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

type sessionUpdate struct {
	Direction string `json:"direction"`
	Output    string `json:"output"`
	Letters   int    `json:"letters"`
	KeysDrawn int    `json:"keys_drawn"`
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		ID:        s.ID,
		DeckID:    s.DeckID,
		KeysDrawn: s.ks.Drawn(),
		Deck:      s.ks.Deck().Render(),
		CreatedAt: s.CreatedAt,
		LastUsed:  s.lastUsed,
	}
}

// Apply runs one encrypt or decrypt call against the session keystream. A
// failed call leaves the keys it already drew consumed.
func (s *Session) Apply(ctx context.Context, direction, text string, policy solitaire.DecryptPolicy, maxLetters int) (sessionUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, letters, err := runCipher(ctx, solitaire.NewCipher(s.ks, solitaire.WithDecryptPolicy(policy)), direction, text, maxLetters)
	if err != nil {
		return sessionUpdate{}, err
	}
	s.lastUsed = s.clock()
	return sessionUpdate{
		Direction: direction,
		Output:    out,
		Letters:   letters,
		KeysDrawn: s.ks.Drawn(),
	}, nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTTL    time.Duration
	maxRetries int
	now        func() time.Time
}

func NewSessionManager(idleTTL time.Duration, maxRetries int) *SessionManager {
	return &SessionManager{
		sessions:   map[string]*Session{},
		idleTTL:    idleTTL,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Create starts a session over a copy of d.
func (m *SessionManager) Create(ownerID int64, deckID *int64, d *solitaire.Deck) *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		DeckID:    deckID,
		CreatedAt: now,
		ks:        solitaire.NewKeystream(d.Clone(), solitaire.WithMaxRetries(m.maxRetries)),
		lastUsed:  now,
		clock:     m.now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get hides sessions owned by someone else behind ErrSessionNotFound.
func (m *SessionManager) Get(id string, ownerID int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.OwnerID != ownerID {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Delete(id string, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return models.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *SessionManager) ListByOwner(ownerID int64) []SessionView {
	m.mu.RLock()
	var owned []*Session
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			owned = append(owned, s)
		}
	}
	m.mu.RUnlock()

	out := make([]SessionView, 0, len(owned))
	for _, s := range owned {
		out = append(out, s.View())
	}
	return out
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
func (m *SessionManager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	// Session locks are never taken under m.mu.
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	var expired []*Session
	for _, s := range all {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range expired {
		// Skip ids deleted or replaced since the snapshot.
		if m.sessions[s.ID] == s {
			delete(m.sessions, s.ID)
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				logger.Info().Int("expired", n).Int("remaining", m.Len()).Msg("session janitor")
			}
		}
	}
}
