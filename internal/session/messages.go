package session

import (
	"context"
	"encoding/json"

	"github.com/Martbul/outDrinkMe-sub001/internal/game"
	"github.com/Martbul/outDrinkMe-sub001/internal/protocol"
)

type Msg interface{ isCtrlMsg() }

// User intents.

type createSession struct {
	Ctx      context.Context
	GameType string
	Reply    chan error
}

type joinSession struct {
	Ctx       context.Context
	SessionID string
	Reply     chan error
}

type startGame struct{}

type sendChat struct{ Content string }

type resetGame struct{}

type dispatchAction struct {
	Type    string
	Payload map[string]any
}

type leave struct{}

// Channel events, tagged with their source so a stale pump cannot disturb a
// newer session.

type inboundFrame struct {
	Ch  Channel
	Raw json.RawMessage
}

type channelClosed struct {
	Ch  Channel
	Err error
}

// Observer management.

type subscribe struct {
	ID     string
	Outbox chan Snapshot
}

type unsubscribe struct{ ID string }

// GetState reflects internal state without data races; test-only.
type getState struct{ Reply chan View }

type shutdown struct{}

func (createSession) isCtrlMsg()  {}
func (joinSession) isCtrlMsg()    {}
func (startGame) isCtrlMsg()      {}
func (sendChat) isCtrlMsg()       {}
func (resetGame) isCtrlMsg()      {}
func (dispatchAction) isCtrlMsg() {}
func (leave) isCtrlMsg()          {}
func (inboundFrame) isCtrlMsg()   {}
func (channelClosed) isCtrlMsg()  {}
func (subscribe) isCtrlMsg()      {}
func (unsubscribe) isCtrlMsg()    {}
func (getState) isCtrlMsg()       {}
func (shutdown) isCtrlMsg()       {}

// Snapshot is what observers receive after every applied message.
type Snapshot struct {
	Stage    Stage
	Session  Session
	Players  []protocol.Player
	Messages []string // newest-first, unbounded
	Game     game.State
	Err      error
}

// View is a Snapshot plus loop internals, for tests.
type View struct {
	Snapshot
	NumObservers int
}
