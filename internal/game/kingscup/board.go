package kingscup

import (
	"errors"
	"fmt"
)

var ErrNotStarted = errors.New("game not started")
var ErrGameOver = errors.New("game already over")
var ErrNotYourTurn = errors.New("not your turn")
var ErrNoPromptPending = errors.New("no prompt pending")
var ErrAlreadySubmitted = errors.New("already submitted")

// Game-action kinds sent by this board.
const (
	ActionDrawCard    = "draw_card"
	ActionChooseBuddy = "choose_buddy"
	ActionSetRule     = "set_rule"
)

// Prompt tells the presentation layer which modal, if any, a state update
// should open.
type Prompt int

const (
	PromptNone Prompt = iota
	PromptBuddy
	PromptRule
)

// Sender dispatches one outbound game action. Fire-and-forget.
type Sender func(actionType string, payload map[string]any) error

// Board gates user intent against the mirrored state and translates it into
// outbound actions. Ineligible intent is rejected here and never reaches the
// wire, and between a send and the next authoritative update a second send
// for the same decision is blocked.
type Board struct {
	selfID      string
	send        Sender
	state       State
	promptedSig string // last signature a prompt was shown for
	handledSig  string // last signature a prompt was answered for
	drawSent    bool   // a draw is in flight for the current update
}

func NewBoard(selfID string, send Sender) *Board {
	return &Board{selfID: selfID, send: send}
}

func (b *Board) State() State { return b.state }

// Observe ingests one state update and reports whether it should open a
// special-card prompt. A signature already prompted for never prompts again,
// which suppresses duplicates when the server redelivers the same card. An
// empty table (round reset, pre-draw) starts the bookkeeping over so the
// next round's draws prompt normally.
func (b *Board) Observe(s State) Prompt {
	if updateKey(s) != updateKey(b.state) {
		b.drawSent = false
	}
	if s.CurrentCard == nil || !s.GameStarted {
		b.promptedSig = ""
		b.handledSig = ""
	}
	b.state = s
	if s.CurrentCard == nil {
		return PromptNone
	}
	sig := Signature(*s.CurrentCard)
	if !ShouldPrompt(b.promptedSig, sig) {
		return PromptNone
	}
	switch s.CurrentCard.Value {
	case "8":
		b.promptedSig = sig
		return PromptBuddy
	case "K":
		b.promptedSig = sig
		return PromptRule
	default:
		return PromptNone
	}
}

func (b *Board) CanDraw() bool {
	return b.state.GameStarted && !b.state.GameOver && b.state.CurrentPlayerTurnID == b.selfID
}

// Draw requests the next card. Out-of-turn draws produce zero outbound
// envelopes, and at most one draw goes out per authoritative update.
func (b *Board) Draw() error {
	switch {
	case !b.state.GameStarted:
		return ErrNotStarted
	case b.state.GameOver:
		return ErrGameOver
	case b.state.CurrentPlayerTurnID != b.selfID:
		return ErrNotYourTurn
	case b.drawSent:
		return ErrAlreadySubmitted
	}
	b.drawSent = true
	return b.send(ActionDrawCard, nil)
}

// ChooseBuddy answers an "8" prompt. Buddies are symmetric in effect but
// stored keyed by the chooser server-side.
func (b *Board) ChooseBuddy(playerID string) error {
	if err := b.submitPrompt("8"); err != nil {
		return err
	}
	return b.send(ActionChooseBuddy, map[string]any{"chosen_buddie_id": playerID})
}

// SetRule answers a "K" prompt with a free-text rule.
func (b *Board) SetRule(rule string) error {
	if err := b.submitPrompt("K"); err != nil {
		return err
	}
	return b.send(ActionSetRule, map[string]any{"new_rule": rule})
}

// submitPrompt checks the prompt is open for the current card and marks its
// signature handled, so a benign re-render cannot re-open the modal and a
// second submit for the same draw never reaches the wire.
func (b *Board) submitPrompt(value string) error {
	if b.state.CurrentCard == nil || b.state.CurrentCard.Value != value {
		return ErrNoPromptPending
	}
	sig := Signature(*b.state.CurrentCard)
	if b.handledSig == sig {
		return ErrAlreadySubmitted
	}
	b.handledSig = sig
	b.promptedSig = sig
	return nil
}

// updateKey distinguishes one authoritative update from a redelivery of the
// same one; any change releases the in-flight draw guard.
func updateKey(s State) string {
	sig := ""
	if s.CurrentCard != nil {
		sig = Signature(*s.CurrentCard)
	}
	return fmt.Sprintf("%s|%d|%s|%t|%t", sig, s.CardsRemaining, s.CurrentPlayerTurnID, s.GameStarted, s.GameOver)
}
