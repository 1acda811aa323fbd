package ops

import (
	"sort"
	"sync"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

// Store holds server-side games. Each game has its own lock so turns on
// one game serialize without blocking the others.
type Store struct {
	mu    sync.Mutex
	games map[string]*slot
}

type slot struct {
	mu    sync.Mutex
	state game.GameState
}

func NewStore() *Store {
	return &Store{games: map[string]*slot{}}
}

func (s *Store) slot(id string) (*slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	return g, ok
}

// Put stores st under its game id, replacing any earlier game.
func (s *Store) Put(st game.GameState) {
	s.mu.Lock()
	g, ok := s.games[st.GameID]
	if !ok {
		g = &slot{}
		s.games[st.GameID] = g
	}
	s.mu.Unlock()

	g.mu.Lock()
	g.state = st.Clone()
	g.mu.Unlock()
}

func (s *Store) Get(id string) (game.GameState, bool) {
	g, ok := s.slot(id)
	if !ok {
		return game.GameState{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone(), true
}

// Update runs fn on a copy of the game under its lock and keeps the result
// when fn succeeds.
func (s *Store) Update(id string, fn func(game.GameState) (game.GameState, error)) (bool, error) {
	g, ok := s.slot(id)
	if !ok {
		return false, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	next, err := fn(g.state.Clone())
	if err != nil {
		return true, err
	}
	g.state = next
	return true, nil
}

func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.games))
	for id := range s.games {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}
