package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Steady-state actions allowed per second, and the burst on top.
	msgsPerSecond = 10
	msgBurst      = 20
)

// Conn is one websocket connection. It starts unbound, and becomes
// addressable for room broadcasts once the dispatcher binds it to a
// (room, player) pair after a successful join.
type Conn struct {
	id string
	h  *Hub
	ws *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once

	limiter *rate.Limiter

	// sessionPlayerID is the player ID recovered from the signed
	// session cookie, if the client presented one.
	sessionPlayerID string

	// room and playerID are set by Bind, before the connection is
	// registered with the hub.
	room     string
	playerID string
	bound    bool
}

// ServeWS upgrades the request and pumps the connection until it
// drops. sessionPlayerID may be empty.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionPlayerID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Conn{
		id:              uuid.NewString(),
		h:               h,
		ws:              ws,
		send:            make(chan []byte, 256),
		closed:          make(chan struct{}),
		limiter:         rate.NewLimiter(rate.Limit(msgsPerSecond), msgBurst),
		sessionPlayerID: sessionPlayerID,
	}
	go c.writePump()
	c.readPump()
	return nil
}

// Bind associates the connection with a room and player and registers
// it for that room's broadcasts. Called by the dispatcher once a join
// succeeds, from the read pump goroutine.
func (c *Conn) Bind(room, playerID string) {
	c.room = room
	c.playerID = playerID
	c.bound = true
	c.h.register <- c
}

// Room returns the room the connection is bound to, or "".
func (c *Conn) Room() string {
	return c.room
}

// PlayerID returns the player the connection is bound to, or "".
func (c *Conn) PlayerID() string {
	return c.playerID
}

// SessionPlayerID returns the player ID from the session cookie, or "".
func (c *Conn) SessionPlayerID() string {
	return c.sessionPlayerID
}

// Send queues a message for just this connection, e.g. an error reply
// before the connection has joined a room. Messages to stalled
// connections are dropped.
func (c *Conn) Send(msg interface{}) error {
	dat, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- dat:
	case <-c.closed:
	default:
		c.h.log.Warn("dropping message to stalled connection", zap.String("conn_id", c.id))
	}
	return nil
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Conn) readPump() {
	defer func() {
		c.shutdown()
		if c.bound {
			c.h.unregister <- c
			c.h.disp.Disconnected(c.room, c.playerID)
		}
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.h.log.Info("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if !c.limiter.Allow() {
			c.h.log.Warn("rate limit exceeded, dropping frame",
				zap.String("conn_id", c.id),
				zap.String("room", c.room))
			continue
		}
		c.h.disp.Dispatch(c, msg)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
