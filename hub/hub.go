// Package hub maintains the set of active websocket connections per
// room and fans server events out to them.
package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Dispatcher handles traffic coming off the connections. Dispatch is
// called once per inbound frame from the connection's read pump.
// Disconnected is called once when a room-bound connection goes away.
type Dispatcher interface {
	Dispatch(c *Conn, msg []byte)
	Disconnected(room, playerID string)
}

// Hub routes messages to the connections subscribed to each room.
type Hub struct {
	// Registered connections, keyed by room name.
	connections map[string][]*Conn

	// Messages to send to everyone in a room.
	broadcast chan *roomMsg

	// Messages to send to a single player in a room.
	player chan *playerMsg

	// Register requests from the connections.
	register chan *Conn

	// Unregister requests from connections.
	unregister chan *Conn

	upgrader websocket.Upgrader
	disp     Dispatcher
	log      *zap.Logger
}

// New creates a new Hub and starts it in a background Go routine.
func New(disp Dispatcher, log *zap.Logger) *Hub {
	h := &Hub{
		connections: make(map[string][]*Conn),
		broadcast:   make(chan *roomMsg),
		player:      make(chan *playerMsg),
		register:    make(chan *Conn),
		unregister:  make(chan *Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Rooms are join-by-name with no auth, cross-origin pages
			// are expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		disp: disp,
		log:  log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			conns := h.connections[c.room]
			h.connections[c.room] = append(conns, c)
		case c := <-h.unregister:
			h.deleteConn(c)
		case m := <-h.broadcast:
			// deleteConn rewrites the room's slice, so stalled
			// connections are collected and evicted after the range.
			var stalled []*Conn
			for _, c := range h.connections[m.room] {
				if m.exceptID != "" && c.playerID == m.exceptID {
					continue
				}
				select {
				case c.send <- m.msg:
				default:
					stalled = append(stalled, c)
				}
			}
			for _, c := range stalled {
				h.deleteConn(c)
			}
		case m := <-h.player:
			var stalled []*Conn
			for _, c := range h.connections[m.room] {
				if c.playerID != m.playerID {
					continue
				}
				select {
				case c.send <- m.msg:
				default:
					stalled = append(stalled, c)
				}
			}
			for _, c := range stalled {
				h.deleteConn(c)
			}
		}
	}
}

func (h *Hub) deleteConn(c *Conn) {
	rconns := h.connections[c.room]
	for i, rconn := range rconns {
		if rconn.id == c.id {
			c.shutdown()
			copy(rconns[i:], rconns[i+1:])
			rconns[len(rconns)-1] = nil
			h.connections[c.room] = rconns[:len(rconns)-1]
			return
		}
	}
}

type roomMsg struct {
	room string
	// exceptID is a player to skip, e.g. the sender of the action that
	// caused the broadcast.
	exceptID string
	msg      []byte
}

type playerMsg struct {
	room     string
	playerID string
	msg      []byte
}

// ToRoom sends a message to everyone in a room.
func (h *Hub) ToRoom(room string, msg interface{}) error {
	return h.toRoom(room, "" /* exceptID */, msg)
}

// ToOthers sends a message to everyone in a room except one player.
func (h *Hub) ToOthers(room, exceptID string, msg interface{}) error {
	return h.toRoom(room, exceptID, msg)
}

func (h *Hub) toRoom(room, exceptID string, msg interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(msg); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	h.broadcast <- &roomMsg{
		room:     room,
		exceptID: exceptID,
		msg:      buf.Bytes(),
	}

	return nil
}

// ToPlayer sends a message to a single player in a room.
func (h *Hub) ToPlayer(room, playerID string, msg interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(msg); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	h.player <- &playerMsg{
		room:     room,
		playerID: playerID,
		msg:      buf.Bytes(),
	}

	return nil
}
