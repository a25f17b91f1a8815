package kingscup

import (
	"encoding/json"

	"github.com/Martbul/outDrinkMe-sub001/internal/game"
	"github.com/Martbul/outDrinkMe-sub001/internal/protocol"
)

const Type = "kings-cup"

// Card is immutable and uniquely identified by (value, suit).
type Card struct {
	Suit     string `json:"suit"`
	Value    string `json:"value"`
	Rule     string `json:"rule"`
	Color    string `json:"color"`
	ImageRef string `json:"imageRef"`
}

type State struct {
	CurrentCard         *Card                        `json:"currentCard"`
	CardsRemaining      int                          `json:"cardsRemaining"`
	GameStarted         bool                         `json:"gameStarted"`
	GameOver            bool                         `json:"gameOver"`
	CurrentPlayerTurnID string                       `json:"currentPlayerTurnId"`
	KingsInCup          int                          `json:"kingsInCup"`
	KingCupDrinker      *protocol.Player             `json:"kingCupDrinker"`
	Buddies             map[string][]protocol.Player `json:"buddies"`
	CustomRules         map[string][]string          `json:"customRules"`
}

func (State) GameType() string { return Type }

// Signature identifies a drawn card for prompt deduplication.
func Signature(c Card) string {
	return c.Value + "-" + c.Suit
}

// ShouldPrompt decides whether an incoming card signature warrants a new
// special-card prompt, given the last signature already prompted for.
// Evaluated once per incoming state update, decoupled from rendering.
func ShouldPrompt(prevSig, sig string) bool {
	return sig != "" && sig != prevSig
}

// Reconciler overwrites wholesale: every Kings Cup field is fully
// server-authoritative, so the incoming payload replaces local state.
type Reconciler struct{}

func (Reconciler) Empty() game.State {
	return State{
		Buddies:     map[string][]protocol.Player{},
		CustomRules: map[string][]string{},
	}
}

func (Reconciler) Reconcile(_ game.State, incoming json.RawMessage) (game.State, error) {
	next := State{
		Buddies:     map[string][]protocol.Player{},
		CustomRules: map[string][]string{},
	}
	if err := json.Unmarshal(incoming, &next); err != nil {
		return nil, err
	}
	return next, nil
}

// Prompt is a no-op: the Kings Cup state shape carries no free-form prompt
// field, turn prompts are derived from the current card.
func (Reconciler) Prompt(prev game.State, _ string) game.State { return prev }
