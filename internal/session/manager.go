// Package session tracks at most one multi-step dialog per user and routes
// free-text input to the step owning that user's session.
package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// CancelCommand aborts a dialog at any step, case-insensitive.
const CancelCommand = "/cancel"

// Action is what a step decides after consuming one message.
type Action int

const (
	// Retry keeps the session on the same step (invalid input, ask again).
	Retry Action = iota
	// Next advances to the following step, ending the session after the last one.
	Next
	// Done ends the session.
	Done
)

// Step consumes one free-text message from the session owner.
type Step func(ctx context.Context, text string) Action

// FeedResult tells the transport layer what happened to a message.
type FeedResult int

const (
	// NotMine means no active session wanted the message.
	NotMine FeedResult = iota
	// Handled means a step consumed the message.
	Handled
	// Cancelled means the user sent the cancel command.
	Cancelled
	// Expired means the session timed out before this message arrived.
	Expired
)

type state struct {
	mu       sync.Mutex
	steps    []Step
	step     int
	deadline time.Time
	done     bool
}

// Manager owns the per-user session table. Input is matched strictly by user
// id, so two users can never interleave into each other's dialog. A session's
// step runs under the session's own lock: rapid-fire messages from one user
// are serialized, different users do not contend.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*state
	timeout  time.Duration
}

func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		sessions: make(map[int64]*state),
		timeout:  timeout,
	}
}

// Start registers a dialog for userID, atomically replacing any existing one.
// The replaced session is marked done so an in-flight Feed cannot advance it.
func (m *Manager) Start(userID int64, steps ...Step) {
	if len(steps) == 0 {
		return
	}
	s := &state{steps: steps, deadline: time.Now().Add(m.timeout)}

	m.mu.Lock()
	old := m.sessions[userID]
	m.sessions[userID] = s
	m.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.done = true
		old.mu.Unlock()
	}
}

// Feed delivers text to userID's active session, if any. The deadline is
// checked lazily here and refreshed on every consumed message.
func (m *Manager) Feed(ctx context.Context, userID int64, text string) FeedResult {
	m.mu.Lock()
	s := m.sessions[userID]
	m.mu.Unlock()
	if s == nil {
		return NotMine
	}

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return NotMine
	}
	if time.Now().After(s.deadline) {
		s.done = true
		s.mu.Unlock()
		m.remove(userID, s)
		return Expired
	}
	if strings.EqualFold(strings.TrimSpace(text), CancelCommand) {
		s.done = true
		s.mu.Unlock()
		m.remove(userID, s)
		return Cancelled
	}

	switch s.steps[s.step](ctx, text) {
	case Next:
		s.step++
		if s.step >= len(s.steps) {
			s.done = true
			s.mu.Unlock()
			m.remove(userID, s)
			return Handled
		}
		s.deadline = time.Now().Add(m.timeout)
	case Done:
		s.done = true
		s.mu.Unlock()
		m.remove(userID, s)
		return Handled
	case Retry:
		s.deadline = time.Now().Add(m.timeout)
	}
	s.mu.Unlock()
	return Handled
}

// Cancel drops userID's session. Reports whether one was active.
func (m *Manager) Cancel(userID int64) bool {
	m.mu.Lock()
	s := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if s == nil {
		return false
	}
	s.mu.Lock()
	active := !s.done
	s.done = true
	s.mu.Unlock()
	return active
}

func (m *Manager) IsActive(userID int64) bool {
	m.mu.Lock()
	s := m.sessions[userID]
	m.mu.Unlock()
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.done && time.Now().Before(s.deadline)
}

// Sweep reclaims sessions whose deadline passed with no further input, so
// abandoned dialogs cannot accumulate. Returns how many were dropped.
func (m *Manager) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	var candidates []*state
	var ids []int64
	for id, s := range m.sessions {
		candidates = append(candidates, s)
		ids = append(ids, id)
	}
	m.mu.Unlock()

	dropped := 0
	for i, s := range candidates {
		s.mu.Lock()
		dead := s.done || now.After(s.deadline)
		if dead {
			s.done = true
		}
		s.mu.Unlock()
		if dead {
			m.remove(ids[i], s)
			dropped++
		}
	}
	return dropped
}

// remove deletes the table entry only if it still points at s, so a session
// started after s is never dropped by mistake.
func (m *Manager) remove(userID int64, s *state) {
	m.mu.Lock()
	if m.sessions[userID] == s {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
}
