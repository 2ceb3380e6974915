// Package web is the I/O boundary: a small HTTP surface for
// out-of-band room creation/lookup, and the websocket action
// dispatcher that drives everything else. All game rules live behind
// the registry, this layer only decodes requests, delegates, and
// pushes the resulting events.
package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"spywords"
	"spywords/hub"
	"spywords/registry"
)

// DefaultGracePeriod is how long a disconnected player keeps their
// seat before being removed from the room.
const DefaultGracePeriod = 30 * time.Second

const sessionCookie = "session"

type Srv struct {
	sc    *securecookie.SecureCookie
	h     *hub.Hub
	reg   *registry.Registry
	mux   *mux.Router
	log   *zap.Logger
	grace time.Duration
}

// New returns an initialized server. A grace of zero means
// DefaultGracePeriod.
func New(reg *registry.Registry, sc *securecookie.SecureCookie, log *zap.Logger, grace time.Duration) *Srv {
	if grace == 0 {
		grace = DefaultGracePeriod
	}

	s := &Srv{
		sc:    sc,
		reg:   reg,
		log:   log,
		grace: grace,
	}
	s.h = hub.New(s, log)
	s.mux = s.initMux()

	return s
}

func (s *Srv) initMux() *mux.Router {
	m := mux.NewRouter()
	// New room.
	m.HandleFunc("/api/game", s.serveCreateGame).Methods("POST")
	// Room lookup.
	m.HandleFunc("/api/game/{name}", s.serveGame).Methods("GET")
	// Player session, for reconnect support.
	m.HandleFunc("/api/session", s.serveCreateSession).Methods("POST")
	// Websocket channel for room actions and events.
	m.HandleFunc("/api/ws", s.serveWS).Methods("GET")
	return m
}

func (s *Srv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Srv) serveCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "No room name given", http.StatusBadRequest)
		return
	}

	g, err := s.reg.Create(name)
	if err != nil {
		if ge, ok := spywords.AsGameError(err); ok {
			jsonError(w, ge, http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(g)
}

func (s *Srv) serveGame(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	g, ok := s.reg.Find(name)
	if !ok {
		jsonError(w, spywords.NewGameError(spywords.GameNotFound, "no game named %q", name), http.StatusNotFound)
		return
	}

	jsonResp(w, g)
}

// serveCreateSession mints a player ID and hands it back both in the
// body and in a signed cookie, so a client that reconnects can present
// the same identity and pick up its old seat.
func (s *Srv) serveCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "No name given", http.StatusBadRequest)
		return
	}

	p := spywords.NewPlayer(name, spywords.NoTeam)

	encoded, err := s.sc.Encode(sessionCookie, p.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:  sessionCookie,
		Value: encoded,
		Path:  "/",
	})

	jsonResp(w, p)
}

func (s *Srv) serveWS(w http.ResponseWriter, r *http.Request) {
	if err := s.h.ServeWS(w, r, s.sessionPlayerID(r)); err != nil {
		s.log.Info("websocket upgrade failed", zap.Error(err))
	}
}

// sessionPlayerID recovers the player ID from the session cookie. An
// absent or unparseable cookie just means no session.
func (s *Srv) sessionPlayerID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	var id string
	if err := s.sc.Decode(sessionCookie, c.Value, &id); err != nil {
		return ""
	}
	return id
}

// Dispatch handles one inbound action frame. Rule violations go back
// to the requester only, never to the room.
func (s *Srv) Dispatch(c *hub.Conn, msg []byte) {
	var act Action
	if err := json.Unmarshal(msg, &act); err != nil {
		s.log.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	switch act.Action {
	case "create":
		s.handleCreate(c, act.Payload)
	case "join":
		s.handleJoin(c, act.Payload)
	case "startGame":
		s.handleStartGame(c)
	case "reveal":
		s.handleReveal(c, act.Payload)
	case "assignSpymaster":
		s.handleAssignSpymaster(c)
	case "switchTeam":
		s.handleSwitchTeam(c)
	case "endTurn":
		s.handleEndTurn(c)
	case "reset":
		s.handleReset(c)
	case "leaveGame":
		s.handleLeaveGame(c)
	default:
		s.log.Warn("unknown action", zap.String("action", act.Action))
	}
}

func (s *Srv) handleCreate(c *hub.Conn, payload []byte) {
	var req createPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		s.log.Warn("bad create payload", zap.Error(err))
		return
	}

	g, err := s.reg.Create(req.Name)
	if err != nil {
		s.sendErr(c, err)
		return
	}
	c.Send(Event{Event: "gameFound", Payload: GameFound{Name: g.Name}})
}

func (s *Srv) handleJoin(c *hub.Conn, payload []byte) {
	var req joinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		s.log.Warn("bad join payload", zap.Error(err))
		return
	}

	id := req.Player.ID
	if id == "" {
		id = c.SessionPlayerID()
	}

	g, joined, err := s.reg.Join(req.Room, &spywords.Player{
		ID:   id,
		Name: req.Player.Name,
		Team: req.Player.Team,
	})
	if err != nil {
		s.sendErr(c, err)
		return
	}

	c.Bind(req.Room, joined.ID)
	c.Send(Event{Event: "gameJoined", Payload: GameJoined{Game: g, Player: joined}})
	s.h.ToOthers(req.Room, joined.ID, Event{Event: "newUserJoined", Payload: PlayerUpdate{Player: joined}})

	s.log.Info("player joined",
		zap.String("room", req.Room),
		zap.String("player_id", joined.ID),
		zap.String("player_name", joined.Name))
}

func (s *Srv) handleStartGame(c *hub.Conn) {
	if _, err := s.reg.StartGame(c.Room()); err != nil {
		s.sendErr(c, err)
		return
	}
	s.h.ToRoom(c.Room(), Event{Event: "gameStarted"})
}

func (s *Srv) handleReveal(c *hub.Conn, payload []byte) {
	var req revealPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		s.log.Warn("bad reveal payload", zap.Error(err))
		return
	}

	g, _, err := s.reg.Reveal(c.Room(), req.Card.Word)
	if err != nil {
		s.sendErr(c, err)
		return
	}
	s.h.ToRoom(c.Room(), Event{Event: "updateGame", Payload: GameUpdate{Game: g}})
}

func (s *Srv) handleAssignSpymaster(c *hub.Conn) {
	p, err := s.reg.AssignSpymaster(c.Room(), c.PlayerID())
	if err != nil {
		s.sendErr(c, err)
		return
	}
	s.h.ToRoom(c.Room(), Event{Event: "spymasterAssigned", Payload: PlayerUpdate{Player: p}})
}

func (s *Srv) handleSwitchTeam(c *hub.Conn) {
	p, err := s.reg.SwitchTeam(c.Room(), c.PlayerID())
	if err != nil {
		s.sendErr(c, err)
		return
	}
	s.h.ToRoom(c.Room(), Event{Event: "teamSwitched", Payload: PlayerUpdate{Player: p}})
}

func (s *Srv) handleEndTurn(c *hub.Conn) {
	if _, err := s.reg.EndTurn(c.Room()); err != nil {
		s.sendErr(c, err)
		return
	}
	s.h.ToRoom(c.Room(), Event{Event: "turnEnded"})
}

func (s *Srv) handleReset(c *hub.Conn) {
	g, err := s.reg.Reset(c.Room())
	if err != nil {
		s.sendErr(c, err)
		return
	}
	s.h.ToRoom(c.Room(), Event{Event: "newGame", Payload: GameUpdate{Game: g}})
}

func (s *Srv) handleLeaveGame(c *hub.Conn) {
	p, err := s.reg.RemovePlayer(c.Room(), c.PlayerID())
	if err != nil {
		s.sendErr(c, err)
		return
	}
	s.h.ToOthers(c.Room(), p.ID, Event{Event: "playerLeft", Payload: PlayerUpdate{Player: p}})
}

// Disconnected marks the player as gone and schedules the hard
// removal. The timer callback re-reads current state through the
// registry, so a reconnect in the meantime wins the race and the
// callback does nothing.
func (s *Srv) Disconnected(room, playerID string) {
	p, err := s.reg.DisconnectPlayer(room, playerID)
	if err != nil {
		// The player already left, or the room is gone.
		return
	}
	s.h.ToRoom(room, Event{Event: "playerDisconnected", Payload: PlayerUpdate{Player: p}})

	time.AfterFunc(s.grace, func() {
		p, ok := s.reg.RemoveDisconnected(room, playerID)
		if !ok {
			return
		}
		s.h.ToRoom(room, Event{Event: "playerLeft", Payload: PlayerUpdate{Player: p}})
		s.log.Info("removed player after grace period",
			zap.String("room", room),
			zap.String("player_id", playerID))
	})
}

func (s *Srv) sendErr(c *hub.Conn, err error) {
	ge, ok := spywords.AsGameError(err)
	if !ok {
		s.log.Error("unexpected non-game error", zap.Error(err))
		return
	}
	c.Send(errEvent(ge))
}

func jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func jsonError(w http.ResponseWriter, ge *spywords.GameError, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ge)
}
