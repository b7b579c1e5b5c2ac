package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

const defaultUserID int64 = 1

// Session is the transient UI state of one dashboard visitor. The prediction
// slot and the chat slot are updated independently.
type Session struct {
	ID string

	mu         sync.Mutex
	userID     int64
	prediction *cycle.Prediction
	question   string
	response   string
	lastSeen   time.Time
}

// Snapshot is a consistent copy of a session used for rendering.
type Snapshot struct {
	ID         string
	UserID     int64
	Prediction *cycle.Prediction
	Timeline   *cycle.Timeline
	Question   string
	Response   string
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, userID: defaultUserID, lastSeen: now}
}

// Snapshot copies the state and lays out the timeline of the current prediction.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:       s.ID,
		UserID:   s.userID,
		Question: s.question,
		Response: s.response,
	}
	if s.prediction != nil {
		p := *s.prediction
		snap.Prediction = &p
	}
	s.mu.Unlock()

	if snap.Prediction != nil {
		tl := cycle.LayoutPhases(*snap.Prediction)
		snap.Timeline = &tl
	}
	return snap
}

func (s *Session) setUserID(id int64) {
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

func (s *Session) setPrediction(p cycle.Prediction) {
	s.mu.Lock()
	s.prediction = &p
	s.mu.Unlock()
}

func (s *Session) setQuestion(q string) {
	s.mu.Lock()
	s.question = q
	s.mu.Unlock()
}

func (s *Session) setResponse(r string) {
	s.mu.Lock()
	s.response = r
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionStore keeps sessions in memory and evicts idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore builds a store; a non-positive ttl keeps sessions forever.
func NewSessionStore(ttl time.Duration, opts ...Option) *SessionStore {
	o := buildOptions(opts)
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      o.now,
	}
}

// Get returns a live session and refreshes its idle timer.
func (st *SessionStore) Get(id string) (*Session, bool) {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.evictLocked(now)
	sess, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Create starts a new session with a random identifier.
func (st *SessionStore) Create() *Session {
	now := st.now()
	sess := newSession(uuid.NewString(), now)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.evictLocked(now)
	st.sessions[sess.ID] = sess
	return sess
}

func (st *SessionStore) evictLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, sess := range st.sessions {
		if sess.idleSince(now) > st.ttl {
			delete(st.sessions, id)
		}
	}
}
