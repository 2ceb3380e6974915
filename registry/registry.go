// Package registry owns the set of live rooms. It is the only
// component that creates, looks up, updates, or deletes a room.
//
// NOTE: All access is funneled through a single goroutine via a channel
// of closures, so mutations on a room are strictly serialized in
// receipt order and no caller can ever observe a half-updated room.
// Rooms are stored as immutable values: each mutation works on a clone
// and atomically swaps it in, and everything handed back to callers is
// a further clone.
package registry

import (
	"math/rand"

	"spywords"
	"spywords/game"
)

type rooms map[string]*game.Game

// Registry is a keyed store of rooms by name.
type Registry struct {
	ops  chan func(rooms)
	done chan struct{}
	r    *rand.Rand
}

// New creates a Registry and starts its loop in a background Go
// routine. The *rand.Rand is only ever touched from that goroutine.
func New(r *rand.Rand) *Registry {
	reg := &Registry{
		ops:  make(chan func(rooms)),
		done: make(chan struct{}),
		r:    r,
	}
	go reg.run()
	return reg
}

func (reg *Registry) run() {
	games := make(rooms)
	for {
		select {
		case op := <-reg.ops:
			op(games)
		case <-reg.done:
			return
		}
	}
}

// Close stops the loop. Any later call will block forever, Close is
// for process teardown only.
func (reg *Registry) Close() {
	close(reg.done)
}

// do runs fn on the loop goroutine and waits for it to finish.
func (reg *Registry) do(fn func(rooms)) {
	ran := make(chan struct{})
	reg.ops <- func(games rooms) {
		defer close(ran)
		fn(games)
	}
	<-ran
}

// update clones the named room, applies fn, and swaps the clone in only
// if fn succeeds. A failed mutation leaves the stored room untouched.
// The returned room is a snapshot, mutating it affects nothing.
func (reg *Registry) update(name string, fn func(*game.Game) error) (*game.Game, error) {
	return reg.apply(name, false, fn)
}

// updateRemoval is update for the player-removal paths: a mutation
// that empties the room tears it down. Rooms with no players are
// otherwise legal, a freshly created room sits in the lobby waiting
// for joins.
func (reg *Registry) updateRemoval(name string, fn func(*game.Game) error) (*game.Game, error) {
	return reg.apply(name, true, fn)
}

func (reg *Registry) apply(name string, reapIfEmpty bool, fn func(*game.Game) error) (*game.Game, error) {
	var (
		out    *game.Game
		outErr error
	)
	reg.do(func(games rooms) {
		cur, ok := games[name]
		if !ok {
			outErr = spywords.NewGameError(spywords.GameNotFound, "no game named %q", name)
			return
		}

		next := cur.Clone()
		if err := fn(next); err != nil {
			outErr = err
			return
		}

		if reapIfEmpty && next.Empty() {
			// The last player left, tear the room down.
			delete(games, name)
		} else {
			games[name] = next
		}
		out = next.Clone()
	})
	return out, outErr
}

// Create makes a new empty room. Room names are unique.
func (reg *Registry) Create(name string) (*game.Game, error) {
	var (
		out    *game.Game
		outErr error
	)
	reg.do(func(games rooms) {
		if _, ok := games[name]; ok {
			outErr = spywords.NewGameError(spywords.GameNameTaken, "game name %q is already taken", name)
			return
		}
		g := game.New(name, reg.r)
		games[name] = g
		out = g.Clone()
	})
	return out, outErr
}

// Find returns a snapshot of the named room, or false if it doesn't
// exist.
func (reg *Registry) Find(name string) (*game.Game, bool) {
	var out *game.Game
	reg.do(func(games rooms) {
		if g, ok := games[name]; ok {
			out = g.Clone()
		}
	})
	return out, out != nil
}

// Remove deletes the named room and reports whether it existed.
func (reg *Registry) Remove(name string) bool {
	var existed bool
	reg.do(func(games rooms) {
		_, existed = games[name]
		delete(games, name)
	})
	return existed
}

// Join adds the player to the room. If the player's ID is already in
// the room this is a reconnect: the disconnected flag is cleared and
// the display name refreshed. Otherwise the player is added, with team
// auto-assignment if they didn't pick one. Returns the updated room and
// the resolved player.
func (reg *Registry) Join(name string, p *spywords.Player) (*game.Game, *spywords.Player, error) {
	var joined *spywords.Player
	g, err := reg.update(name, func(g *game.Game) error {
		if existing, ok := g.Player(p.ID); ok {
			existing.Disconnected = false
			if p.Name != "" {
				existing.Name = p.Name
			}
			joined = existing.Clone()
			return nil
		}

		np := p.Clone()
		if np.ID == "" {
			np = spywords.NewPlayer(p.Name, p.Team)
		}
		g.AddPlayer(np, reg.r)
		joined = np.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, joined, nil
}

// StartGame begins the named room's round.
func (reg *Registry) StartGame(name string) (*game.Game, error) {
	return reg.update(name, func(g *game.Game) error {
		return g.Start()
	})
}

// Reveal flips a card and returns the updated room and card.
func (reg *Registry) Reveal(name, word string) (*game.Game, spywords.Card, error) {
	var card spywords.Card
	g, err := reg.update(name, func(g *game.Game) error {
		var err error
		card, err = g.Reveal(word)
		return err
	})
	if err != nil {
		return nil, spywords.Card{}, err
	}
	return g, card, nil
}

// AssignSpymaster makes the player their team's spymaster.
func (reg *Registry) AssignSpymaster(name, playerID string) (*spywords.Player, error) {
	var out *spywords.Player
	_, err := reg.update(name, func(g *game.Game) error {
		p, err := g.AssignSpymaster(playerID)
		if err != nil {
			return err
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// SwitchTeam flips the player to the other team.
func (reg *Registry) SwitchTeam(name, playerID string) (*spywords.Player, error) {
	var out *spywords.Player
	_, err := reg.update(name, func(g *game.Game) error {
		p, err := g.SwitchTeam(playerID)
		if err != nil {
			return err
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// EndTurn passes the turn to the other team.
func (reg *Registry) EndTurn(name string) (*game.Game, error) {
	return reg.update(name, func(g *game.Game) error {
		g.EndTurn()
		return nil
	})
}

// Reset returns the room to the lobby with a fresh board and the other
// team starting.
func (reg *Registry) Reset(name string) (*game.Game, error) {
	return reg.update(name, func(g *game.Game) error {
		g.Reset(reg.r)
		return nil
	})
}

// RemovePlayer takes the player out of the room. Removing the last
// player deletes the room.
func (reg *Registry) RemovePlayer(name, playerID string) (*spywords.Player, error) {
	var out *spywords.Player
	_, err := reg.updateRemoval(name, func(g *game.Game) error {
		p, err := g.RemovePlayer(playerID)
		if err != nil {
			return err
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// DisconnectPlayer flags the player as disconnected, keeping their
// seat for the grace period.
func (reg *Registry) DisconnectPlayer(name, playerID string) (*spywords.Player, error) {
	var out *spywords.Player
	_, err := reg.update(name, func(g *game.Game) error {
		p, err := g.DisconnectPlayer(playerID)
		if err != nil {
			return err
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// RemoveDisconnected hard-removes the player only if they are still
// flagged disconnected. It is the grace-period callback: state is
// re-read here, so a reconnect that happened in the meantime makes
// this a no-op. Removing the last player deletes the room.
func (reg *Registry) RemoveDisconnected(name, playerID string) (*spywords.Player, bool) {
	var out *spywords.Player
	_, err := reg.updateRemoval(name, func(g *game.Game) error {
		p, ok := g.Player(playerID)
		if !ok || !p.Disconnected {
			return spywords.NewGameError(spywords.PlayerNotFound, "no disconnected player %q in game %q", playerID, name)
		}
		removed, err := g.RemovePlayer(playerID)
		if err != nil {
			return err
		}
		out = removed.Clone()
		return nil
	})
	return out, err == nil
}
