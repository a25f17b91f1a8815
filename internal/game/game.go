package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownGameType = errors.New("unknown game type")

// State is the client-held mirror of one game's authoritative state.
type State interface {
	GameType() string
}

// Reconciler combines an incoming authoritative push with previously held
// state. Each game type picks its own policy: Mafia merges field-wise to keep
// client-only knowledge alive, everything else overwrites wholesale.
type Reconciler interface {
	Empty() State
	Reconcile(prev State, incoming json.RawMessage) (State, error)
	// Prompt merges an action_request's content into the state without
	// touching any other field.
	Prompt(prev State, content string) State
}

// Registry maps game type to its reconciler.
type Registry struct {
	mu    sync.RWMutex
	games map[string]Reconciler
}

func NewRegistry() *Registry {
	return &Registry{games: make(map[string]Reconciler)}
}

// Register adds a reconciler. Panics on duplicate game types.
func (r *Registry) Register(gameType string, rec Reconciler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[gameType]; exists {
		panic(fmt.Sprintf("game type %q already registered", gameType))
	}
	r.games[gameType] = rec
}

func (r *Registry) Get(gameType string) (Reconciler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.games[gameType]
	return rec, ok
}

// Reducer holds the current state for one session and applies pushes through
// the session's reconciler. It is only ever touched from the controller's
// loop goroutine.
type Reducer struct {
	rec   Reconciler
	state State
}

func NewReducer(reg *Registry, gameType string) (*Reducer, error) {
	rec, ok := reg.Get(gameType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGameType, gameType)
	}
	return &Reducer{rec: rec, state: rec.Empty()}, nil
}

func (r *Reducer) State() State { return r.state }

// Apply reconciles one game_update payload into the held state.
func (r *Reducer) Apply(incoming json.RawMessage) error {
	next, err := r.rec.Reconcile(r.state, incoming)
	if err != nil {
		return err
	}
	r.state = next
	return nil
}

// ApplyPrompt merges an action_request into the held state.
func (r *Reducer) ApplyPrompt(content string) {
	r.state = r.rec.Prompt(r.state, content)
}

// Reset returns the state to empty, used when a round restarts.
func (r *Reducer) Reset() {
	r.state = r.rec.Empty()
}
