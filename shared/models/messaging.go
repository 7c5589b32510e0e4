package models

import "encoding/json"

// ClientSessionUpdate - сообщение для очереди client_updates: свежий снимок
// состояния сессии, который websocket-слой доставляет владельцу.
type ClientSessionUpdate struct {
	SessionID  string          `json:"session_id"`
	UserID     string          `json:"user_id"`
	GameKind   GameKind        `json:"game_kind"`
	Phase      string          `json:"phase"`
	IsTerminal bool            `json:"is_terminal"`
	State      json.RawMessage `json:"state"` // снимок состояния конкретной игры
}
