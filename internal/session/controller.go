package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Martbul/outDrinkMe-sub001/internal/api"
	"github.com/Martbul/outDrinkMe-sub001/internal/game"
	"github.com/Martbul/outDrinkMe-sub001/internal/protocol"
)

var ErrAlreadyInSession = errors.New("already in a session")
var ErrNotInSession = errors.New("not in a session")

// Stage is the session lifecycle, owned exclusively by the controller.
type Stage string

const (
	StageLobby   Stage = "lobby"
	StageWaiting Stage = "waiting"
	StageGame    Stage = "game"
)

// Session is the client-side record of one running or pending game.
type Session struct {
	SessionID    string
	GameType     string
	HostID       string
	HostUsername string
}

// Channel is the transport contract the controller drives. Satisfied by
// *transport.Channel; tests substitute an in-memory fake.
type Channel interface {
	Send(ctx context.Context, envelope any) error
	Messages() <-chan json.RawMessage
	Err() error
	Close()
}

// Dialer opens the channel for a session, credential already resolved.
type Dialer func(ctx context.Context, sessionID, token string) (Channel, error)

// Identity is who this client is in the roster.
type Identity struct {
	UserID   string
	Username string
}

// Controller owns one session end to end: lobby discovery, joining, roster
// and chat, stage transitions, and routing of inbound envelopes to the game
// reducer. One goroutine applies one message at a time, so state mutation is
// always a single synchronous step. Run one Controller per session.
type Controller struct {
	inbox     chan Msg
	observers map[string]chan Snapshot

	api      *api.Client
	tokens   api.TokenProvider
	dial     Dialer
	registry *game.Registry
	log      *zap.Logger
	self     Identity

	stage    Stage
	sess     Session
	isHost   bool
	players  []protocol.Player
	messages []string
	reducer  *game.Reducer
	channel  Channel
	lastErr  error

	ctx    context.Context
	cancel context.CancelFunc
}

func NewController(parent context.Context, apiClient *api.Client, tokens api.TokenProvider, dial Dialer, registry *game.Registry, self Identity, log *zap.Logger) *Controller {
	if self.UserID == "" {
		self.UserID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		inbox:     make(chan Msg, 64),
		observers: make(map[string]chan Snapshot),
		api:       apiClient,
		tokens:    tokens,
		dial:      dial,
		registry:  registry,
		log:       log,
		self:      self,
		stage:     StageLobby,
		ctx:       ctx,
		cancel:    cancel,
	}
	go c.loop()
	return c
}

func (c *Controller) Self() Identity { return c.self }

// CreateSession asks the backend for a new session of the given game type,
// connects its channel, and joins as host. Stage moves lobby -> waiting.
func (c *Controller) CreateSession(ctx context.Context, gameType string) error {
	reply := make(chan error, 1)
	c.inbox <- createSession{Ctx: ctx, GameType: gameType, Reply: reply}
	return c.await(ctx, reply)
}

// JoinSession connects to an existing session as a regular player. The game
// type is learned from the first join_room ack. Stage moves lobby -> waiting.
func (c *Controller) JoinSession(ctx context.Context, sessionID string) error {
	reply := make(chan error, 1)
	c.inbox <- joinSession{Ctx: ctx, SessionID: sessionID, Reply: reply}
	return c.await(ctx, reply)
}

// BrowseSessions lists public sessions for the lobby browser. Plain
// request/response, not part of the channel.
func (c *Controller) BrowseSessions(ctx context.Context) ([]protocol.PublicSession, error) {
	return c.api.ListPublicSessions(ctx)
}

// StartGame, SendChat, ResetGame, DispatchAction and Leave are all
// fire-and-forget: no acknowledgment is awaited.

func (c *Controller) StartGame() { c.inbox <- startGame{} }

func (c *Controller) SendChat(content string) { c.inbox <- sendChat{Content: content} }

func (c *Controller) ResetGame() { c.inbox <- resetGame{} }

func (c *Controller) Leave() { c.inbox <- leave{} }

// DispatchAction sends one game action envelope, the single mutator exposed
// to the game boards.
func (c *Controller) DispatchAction(actionType string, payload map[string]any) {
	c.inbox <- dispatchAction{Type: actionType, Payload: payload}
}

// Subscribe registers an observer outbox. The current snapshot is delivered
// immediately; slow observers are dropped.
func (c *Controller) Subscribe(id string, outbox chan Snapshot) {
	c.inbox <- subscribe{ID: id, Outbox: outbox}
}

func (c *Controller) Unsubscribe(id string) { c.inbox <- unsubscribe{ID: id} }

// Inbox exposes the loop's mailbox for tests.
func (c *Controller) Inbox() chan<- Msg { return c.inbox }

// Shutdown tears everything down, including the loop goroutine.
func (c *Controller) Shutdown() { c.inbox <- shutdown{} }

func (c *Controller) await(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.teardown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case createSession:
				msg.Reply <- c.handleCreate(msg.Ctx, msg.GameType)
				c.broadcast()

			case joinSession:
				msg.Reply <- c.handleJoin(msg.Ctx, msg.SessionID, "", false)
				c.broadcast()

			case startGame:
				c.send(protocol.StartGame())

			case sendChat:
				c.send(protocol.Chat(c.self.Username, msg.Content, time.Now()))

			case resetGame:
				// Re-entrant transition: back to the waiting room for a new
				// round without leaving the session.
				if c.stage == StageGame {
					c.send(protocol.ResetGame())
					if c.reducer != nil {
						c.reducer.Reset()
					}
					c.stage = StageWaiting
					c.broadcast()
				}

			case dispatchAction:
				c.send(protocol.GameAction(msg.Type, msg.Payload))

			case leave:
				c.teardown()
				c.broadcast()

			case inboundFrame:
				if msg.Ch != c.channel {
					break // stale pump from a previous session
				}
				c.handleInbound(msg.Raw)
				c.broadcast()

			case channelClosed:
				if msg.Ch != c.channel {
					break
				}
				if msg.Err != nil {
					c.log.Warn("session channel failed", zap.Error(msg.Err))
					c.lastErr = msg.Err
				}
				c.teardown()
				c.broadcast()

			case subscribe:
				c.observers[msg.ID] = msg.Outbox
				msg.Outbox <- c.snapshot()

			case unsubscribe:
				delete(c.observers, msg.ID)

			case getState:
				msg.Reply <- View{Snapshot: c.snapshot(), NumObservers: len(c.observers)}

			case shutdown:
				c.teardown()
				for id, ch := range c.observers {
					close(ch)
					delete(c.observers, id)
				}
				c.cancel()
				return
			}
		}
	}
}

func (c *Controller) handleCreate(ctx context.Context, gameType string) error {
	if c.stage != StageLobby {
		return ErrAlreadyInSession
	}
	sessionID, err := c.api.CreateSession(ctx, gameType)
	if err != nil {
		return err
	}
	return c.handleJoin(ctx, sessionID, gameType, true)
}

func (c *Controller) handleJoin(ctx context.Context, sessionID, gameType string, asHost bool) error {
	if c.stage != StageLobby {
		return ErrAlreadyInSession
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolve credential: %w", err)
	}
	ch, err := c.dial(ctx, sessionID, token)
	if err != nil {
		return err
	}

	c.channel = ch
	c.isHost = asHost
	c.lastErr = nil
	c.sess = Session{SessionID: sessionID, GameType: gameType}
	c.players = nil
	c.messages = nil
	c.reducer = nil
	if gameType != "" {
		if err := c.attachReducer(gameType); err != nil {
			ch.Close()
			c.channel = nil
			return err
		}
	}
	c.stage = StageWaiting

	go c.pump(ch)

	c.send(protocol.JoinRoom(c.self.Username, c.self.UserID, c.isHost))
	return nil
}

// pump forwards the channel's inbound stream into the loop, one frame at a
// time. Once the controller shuts down there is no consumer left, so every
// send races the loop context instead of parking on a full mailbox.
func (c *Controller) pump(ch Channel) {
	for raw := range ch.Messages() {
		select {
		case <-c.ctx.Done():
			return
		default:
		}
		select {
		case c.inbox <- inboundFrame{Ch: ch, Raw: raw}:
		case <-c.ctx.Done():
			return
		}
	}
	select {
	case c.inbox <- channelClosed{Ch: ch, Err: ch.Err()}:
	case <-c.ctx.Done():
	}
}

func (c *Controller) handleInbound(raw json.RawMessage) {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.log.Warn("dropping undecodable envelope", zap.Error(err))
		return
	}

	switch env.Action {
	case protocol.ActionJoinRoom:
		// First ack carries the session metadata a deep-link joiner lacks.
		if env.GameType != "" {
			c.sess.GameType = env.GameType
			c.sess.HostUsername = env.HostUsername
			if c.reducer == nil {
				if err := c.attachReducer(env.GameType); err != nil {
					c.log.Warn("unknown game type in join ack", zap.String("gameType", env.GameType))
				}
			}
		}
		c.appendMessage(fmt.Sprintf("%s joined the room", env.Username))

	case protocol.ActionUpdatePlayerList:
		// Roster is replaced wholesale, never patched.
		c.players = env.Players
		for _, p := range env.Players {
			if p.IsHost {
				c.sess.HostID = p.ID
			}
		}

	case protocol.ActionStartGame:
		c.stage = StageGame
		c.appendMessage("game started")

	case protocol.ActionChat:
		c.appendMessage(fmt.Sprintf("%s: %s", env.Sender, env.Content))

	case protocol.ActionActionRequest:
		if c.reducer != nil {
			c.reducer.ApplyPrompt(env.Content)
		}

	case protocol.ActionGameUpdate:
		if c.reducer == nil {
			c.log.Warn("game_update before game type known")
			return
		}
		if err := c.reducer.Apply(env.GameState); err != nil {
			c.log.Warn("dropping unreconcilable game_update", zap.Error(err))
			return
		}
		// A client joining mid-game never sees the explicit start_game
		// envelope; a running game forces the stage forward.
		var started struct {
			GameStarted bool `json:"gameStarted"`
		}
		if json.Unmarshal(env.GameState, &started) == nil && started.GameStarted {
			c.stage = StageGame
		}

	default:
		c.log.Debug("ignoring unknown envelope kind", zap.String("action", env.Action))
	}
}

func (c *Controller) attachReducer(gameType string) error {
	red, err := game.NewReducer(c.registry, gameType)
	if err != nil {
		return err
	}
	c.reducer = red
	return nil
}

func (c *Controller) send(envelope any) {
	if c.channel == nil {
		return
	}
	if err := c.channel.Send(c.ctx, envelope); err != nil {
		c.log.Warn("send failed", zap.Error(err))
	}
}

// teardown closes the channel and clears everything session-scoped. Stage
// falls back to the lobby.
func (c *Controller) teardown() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	c.stage = StageLobby
	c.sess = Session{}
	c.isHost = false
	c.players = nil
	c.messages = nil
	c.reducer = nil
}

// appendMessage prepends: the chat log is unbounded, newest-first.
func (c *Controller) appendMessage(line string) {
	c.messages = append([]string{line}, c.messages...)
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		Stage:    c.stage,
		Session:  c.sess,
		Players:  append([]protocol.Player(nil), c.players...),
		Messages: append([]string(nil), c.messages...),
		Err:      c.lastErr,
	}
	if c.reducer != nil {
		snap.Game = c.reducer.State()
	}
	return snap
}

func (c *Controller) broadcast() {
	snap := c.snapshot()
	for id, ch := range c.observers {
		select {
		case ch <- snap:
		default:
			// Observer is slow/full - drop them.
			close(ch)
			delete(c.observers, id)
		}
	}
}
