package mafia

import (
	"encoding/json"

	"github.com/Martbul/outDrinkMe-sub001/internal/game"
	"github.com/Martbul/outDrinkMe-sub001/internal/protocol"
)

const Type = "mafia"

type Phase string

const (
	PhaseNight    Phase = "NIGHT"
	PhaseDay      Phase = "DAY"
	PhaseVoting   Phase = "VOTING"
	PhaseResults  Phase = "RESULTS"
	PhaseGameOver Phase = "GAME_OVER"
)

type Role string

const (
	RoleMafia    Role = "MAFIA"
	RoleDoctor   Role = "DOCTOR"
	RolePolice   Role = "POLICE"
	RoleWhore    Role = "WHORE"
	RoleSpy      Role = "SPY"
	RoleCivilian Role = "CIVILIAN"
)

// VoteSkip is the reserved vote target for abstaining.
const VoteSkip = "SKIP"

type State struct {
	Phase         Phase             `json:"phase"`
	MyRole        Role              `json:"myRole"`
	RevealedRoles map[string]Role   `json:"revealedRoles"`
	AlivePlayers  []protocol.Player `json:"alivePlayers"`
	DeadPlayers   []protocol.Player `json:"deadPlayers"`
	Votes         map[string]string `json:"votes"`
	ActionPrompt  string            `json:"actionPrompt,omitempty"`
	IntelMessage  string            `json:"intelMessage,omitempty"`
	Message       string            `json:"message"`
}

func (State) GameType() string { return Type }

// patch mirrors State with pointer fields so an omitted JSON key decodes to
// nil and leaves the previous value untouched.
type patch struct {
	Phase         *Phase             `json:"phase"`
	MyRole        *Role              `json:"myRole"`
	RevealedRoles map[string]Role    `json:"revealedRoles"`
	AlivePlayers  *[]protocol.Player `json:"alivePlayers"`
	DeadPlayers   *[]protocol.Player `json:"deadPlayers"`
	Votes         *map[string]string `json:"votes"`
	ActionPrompt  *string            `json:"actionPrompt"`
	IntelMessage  *string            `json:"intelMessage"`
	Message       *string            `json:"message"`
}

// Reconciler merges field-wise: the server may omit fields it already pushed
// (myRole in particular is revealed exactly once), so the previous state
// survives except where the push says otherwise. Per-phase transients (votes,
// actionPrompt) are cleared on every phase transition before the merge so
// they never leak into the next phase.
type Reconciler struct{}

func (Reconciler) Empty() game.State {
	return State{
		RevealedRoles: map[string]Role{},
		Votes:         map[string]string{},
	}
}

func (Reconciler) Reconcile(prev game.State, incoming json.RawMessage) (game.State, error) {
	var p patch
	if err := json.Unmarshal(incoming, &p); err != nil {
		return nil, err
	}

	next := prev.(State)
	next.RevealedRoles = cloneRoles(next.RevealedRoles)
	next.Votes = cloneVotes(next.Votes)

	if p.Phase != nil && *p.Phase != next.Phase {
		next.Votes = map[string]string{}
		next.ActionPrompt = ""
	}
	if p.Phase != nil {
		next.Phase = *p.Phase
	}
	// Once known, the role never reverts to unknown.
	if p.MyRole != nil && *p.MyRole != "" {
		next.MyRole = *p.MyRole
	}
	// Revealed roles accumulate: GAME_OVER can arrive in several pushes.
	for id, role := range p.RevealedRoles {
		next.RevealedRoles[id] = role
	}
	if p.AlivePlayers != nil {
		next.AlivePlayers = *p.AlivePlayers
	}
	if p.DeadPlayers != nil {
		next.DeadPlayers = *p.DeadPlayers
	}
	if p.Votes != nil {
		next.Votes = *p.Votes
	}
	if p.ActionPrompt != nil {
		next.ActionPrompt = *p.ActionPrompt
	}
	if p.IntelMessage != nil {
		next.IntelMessage = *p.IntelMessage
	}
	if p.Message != nil {
		next.Message = *p.Message
	}
	return next, nil
}

func (Reconciler) Prompt(prev game.State, content string) game.State {
	next := prev.(State)
	next.ActionPrompt = content
	return next
}

func cloneRoles(m map[string]Role) map[string]Role {
	out := make(map[string]Role, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneVotes(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
