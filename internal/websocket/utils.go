package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/curricuforge/internal/view"
)

const (
	writeWait = 10 * time.Second

	// PongWait is how long a connection may stay silent before it is dropped.
	PongWait = 60 * time.Second

	// PingPeriod must be shorter than PongWait.
	PingPeriod = (PongWait * 9) / 10
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteState sends a StateResponse for snap.
func WriteState(conn *websocket.Conn, snap view.Snapshot) error {
	return WriteTyped(conn, StateResponse{Event: EventState, State: snap})
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// WritePing sends a control ping frame.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// KeepAlive extends the read deadline whenever the peer answers a ping.
func KeepAlive(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
}
