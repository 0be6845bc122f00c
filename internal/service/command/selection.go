package command

import "sync"

// Selection remembers which backend each chat session talks to.
type Selection struct {
	mu      sync.RWMutex
	primary string
	choice  map[string]string
}

func NewSelection(primary string) *Selection {
	return &Selection{primary: primary, choice: make(map[string]string)}
}

// Backend returns the session's backend, or the primary one.
func (s *Selection) Backend(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.choice[sessionID]; ok {
		return b
	}
	return s.primary
}

func (s *Selection) Set(sessionID, backend string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backend == s.primary {
		delete(s.choice, sessionID)
		return
	}
	s.choice[sessionID] = backend
}
