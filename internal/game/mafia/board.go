package mafia

import "errors"

var ErrCannotAct = errors.New("cannot act in current phase")
var ErrAlreadySubmitted = errors.New("already submitted this phase")
var ErrNoNightAction = errors.New("role has no night action")
var ErrInvalidVote = errors.New("invalid vote target")

// Game-action kinds sent by this board.
const (
	ActionKill  = "kill"
	ActionHeal  = "heal"
	ActionCheck = "check"
	ActionBlock = "block"
	ActionVote  = "vote"
)

// Outcome of a voting round, readable once RESULTS arrives.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeExecution
	OutcomeNoExecution
)

// Sender dispatches one outbound game action. Fire-and-forget.
type Sender func(actionType string, payload map[string]any) error

// Board derives eligibility from the mirrored state and blocks duplicate
// submits within a phase. The one-action-per-phase guard is UX protection
// only; the server remains the source of truth.
type Board struct {
	selfID       string
	send         Sender
	state        State
	phase        Phase
	hasSubmitted bool
}

func NewBoard(selfID string, send Sender) *Board {
	return &Board{selfID: selfID, send: send}
}

func (b *Board) State() State { return b.state }

// Observe ingests one state update, clearing the submit guard on every phase
// change.
func (b *Board) Observe(s State) {
	if s.Phase != b.phase {
		b.phase = s.Phase
		b.hasSubmitted = false
	}
	b.state = s
}

func (b *Board) CanAct() bool {
	if b.amIDead() || b.state.Phase == PhaseResults || b.state.Phase == PhaseGameOver {
		return false
	}
	switch b.state.Phase {
	case PhaseNight:
		_, ok := nightAction(b.state.MyRole)
		return ok
	case PhaseDay, PhaseVoting:
		return true
	}
	return false
}

// NightAction submits this role's night decision against a target. SPY and
// CIVILIAN have none: the spy passively receives intel, civilians sleep.
func (b *Board) NightAction(targetID string) error {
	if b.state.Phase != PhaseNight || !b.CanAct() {
		return ErrCannotAct
	}
	action, ok := nightAction(b.state.MyRole)
	if !ok {
		return ErrNoNightAction
	}
	if b.hasSubmitted {
		return ErrAlreadySubmitted
	}
	b.hasSubmitted = true
	return b.send(action, map[string]any{"target": targetID})
}

// Vote submits a day/voting-phase vote for an alive player or VoteSkip.
func (b *Board) Vote(target string) error {
	if (b.state.Phase != PhaseDay && b.state.Phase != PhaseVoting) || !b.CanAct() {
		return ErrCannotAct
	}
	if target != VoteSkip && !b.isAlive(target) {
		return ErrInvalidVote
	}
	if b.hasSubmitted {
		return ErrAlreadySubmitted
	}
	b.hasSubmitted = true
	return b.send(ActionVote, map[string]any{"target": target})
}

// VoteTally counts the shared votes map per target for live rendering.
func (b *Board) VoteTally() map[string]int {
	tally := make(map[string]int, len(b.state.Votes))
	for _, target := range b.state.Votes {
		tally[target]++
	}
	return tally
}

// VoteOutcome reports the round result once RESULTS (or GAME_OVER) arrives:
// more SKIP votes than half the alive players means no execution.
func (b *Board) VoteOutcome() Outcome {
	if b.state.Phase != PhaseResults && b.state.Phase != PhaseGameOver {
		return OutcomePending
	}
	skips := 0
	for _, target := range b.state.Votes {
		if target == VoteSkip {
			skips++
		}
	}
	if 2*skips > len(b.state.AlivePlayers) {
		return OutcomeNoExecution
	}
	return OutcomeExecution
}

// RevealedRole reports a player's role, populated for everyone at GAME_OVER.
func (b *Board) RevealedRole(playerID string) (Role, bool) {
	role, ok := b.state.RevealedRoles[playerID]
	return role, ok
}

func (b *Board) amIDead() bool {
	for _, p := range b.state.DeadPlayers {
		if p.ID == b.selfID {
			return true
		}
	}
	return false
}

func (b *Board) isAlive(playerID string) bool {
	for _, p := range b.state.AlivePlayers {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func nightAction(role Role) (string, bool) {
	switch role {
	case RoleMafia:
		return ActionKill, true
	case RoleDoctor:
		return ActionHeal, true
	case RolePolice:
		return ActionCheck, true
	case RoleWhore:
		return ActionBlock, true
	default:
		return "", false
	}
}
