package protocol

import (
	"encoding/json"
	"time"
)

// Envelope kinds carried in the "action" field. The same field names both
// directions; which of the optional fields are present depends on the kind.
const (
	ActionJoinRoom         = "join_room"
	ActionUpdatePlayerList = "update_player_list"
	ActionStartGame        = "start_game"
	ActionChat             = "chat"
	ActionActionRequest    = "action_request"
	ActionGameUpdate       = "game_update"
	ActionResetGame        = "reset_game"
)

type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsHost   bool   `json:"isHost"`
}

// PublicSession is one row of the lobby-browser listing. Best-effort
// snapshot at request time, no consistency guarantee.
type PublicSession struct {
	SessionID    string `json:"sessionId"`
	GameType     string `json:"gameType"`
	HostID       string `json:"hostId"`
	HostUsername string `json:"hostUsername"`
	PlayerCount  int    `json:"playerCount"`
}

// Envelope is the single wire shape for both directions: {"action": ...}
// plus kind-specific fields. Unknown fields are ignored on decode.
type Envelope struct {
	Action string `json:"action"`

	// join_room
	Username     string `json:"username,omitempty"`
	UserID       string `json:"userId,omitempty"`
	IsHost       bool   `json:"isHost,omitempty"`
	GameType     string `json:"gameType,omitempty"`
	HostUsername string `json:"hostUsername,omitempty"`

	// update_player_list
	Players []Player `json:"players,omitempty"`

	// chat / action_request
	Sender    string `json:"sender,omitempty"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`

	// game_update
	GameState json.RawMessage `json:"gameState,omitempty"`
}

// Decode parses a raw frame into an Envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}

// Outbound constructors. All sends are fire-and-forget; nothing here waits
// for an acknowledgment.

func JoinRoom(username, userID string, isHost bool) Envelope {
	return Envelope{Action: ActionJoinRoom, Username: username, UserID: userID, IsHost: isHost}
}

func StartGame() Envelope {
	return Envelope{Action: ActionStartGame}
}

func Chat(sender, content string, ts time.Time) Envelope {
	return Envelope{Action: ActionChat, Sender: sender, Content: content, Timestamp: ts.Format(time.RFC3339)}
}

func ResetGame() Envelope {
	return Envelope{Action: ActionResetGame}
}

// GameAction builds a flat game-action envelope: {"action": <type>} merged
// with the payload fields, e.g. {"action":"choose_buddy","chosen_buddie_id":"p2"}.
func GameAction(actionType string, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["action"] = actionType
	return out
}
