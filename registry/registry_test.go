package registry

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spywords"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := New(rand.New(rand.NewSource(0)))
	t.Cleanup(reg.Close)
	return reg
}

func kindOf(t *testing.T, err error) spywords.ErrorKind {
	t.Helper()
	ge, ok := spywords.AsGameError(err)
	require.True(t, ok, "error %v is not a *GameError", err)
	return ge.Kind
}

// seatFour fills the room with two players per team and returns them
// in join order.
func seatFour(t *testing.T, reg *Registry, room string) []*spywords.Player {
	t.Helper()
	var players []*spywords.Player
	for i, team := range []spywords.Team{spywords.Red, spywords.Red, spywords.Blue, spywords.Blue} {
		_, p, err := reg.Join(room, &spywords.Player{Name: fmt.Sprintf("p%d", i), Team: team})
		require.NoError(t, err)
		players = append(players, p)
	}
	return players
}

func TestCreate(t *testing.T) {
	reg := newTestRegistry(t)

	g, err := reg.Create("lunch")
	require.NoError(t, err)
	assert.Equal(t, "lunch", g.Name)
	assert.Empty(t, g.Players)
	assert.Len(t, g.Cards, spywords.BoardSize)

	_, err = reg.Create("lunch")
	assert.Equal(t, spywords.GameNameTaken, kindOf(t, err))
}

func TestFindAndRemove(t *testing.T) {
	reg := newTestRegistry(t)

	_, ok := reg.Find("lunch")
	assert.False(t, ok)

	_, err := reg.Create("lunch")
	require.NoError(t, err)

	g, ok := reg.Find("lunch")
	require.True(t, ok)
	assert.Equal(t, "lunch", g.Name)

	assert.True(t, reg.Remove("lunch"))
	assert.False(t, reg.Remove("lunch"))
	_, ok = reg.Find("lunch")
	assert.False(t, ok)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	reg := newTestRegistry(t)

	g, err := reg.Create("lunch")
	require.NoError(t, err)

	// Mutating a returned snapshot must never leak into the registry.
	g.Cards[0].Revealed = true
	g.Players = append(g.Players, &spywords.Player{ID: "intruder"})
	g.Scores[spywords.Red] = 7

	fresh, ok := reg.Find("lunch")
	require.True(t, ok)
	assert.False(t, fresh.Cards[0].Revealed)
	assert.Empty(t, fresh.Players)
	assert.Equal(t, 0, fresh.Scores[spywords.Red])
}

func TestJoinUnknownRoom(t *testing.T) {
	reg := newTestRegistry(t)

	_, _, err := reg.Join("nowhere", &spywords.Player{Name: "ann"})
	assert.Equal(t, spywords.GameNotFound, kindOf(t, err))
}

func TestJoinAssignsIDAndBalances(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("lunch")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		g, p, err := reg.Join("lunch", &spywords.Player{Name: fmt.Sprintf("p%d", i)})
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.NotEqual(t, spywords.NoTeam, p.Team)

		var red, blue int
		for _, gp := range g.Players {
			if gp.Team == spywords.Red {
				red++
			} else {
				blue++
			}
		}
		diff := red - blue
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 1)
	}
}

func TestJoinReconnect(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("lunch")
	require.NoError(t, err)

	_, p, err := reg.Join("lunch", &spywords.Player{Name: "ann"})
	require.NoError(t, err)

	_, err = reg.DisconnectPlayer("lunch", p.ID)
	require.NoError(t, err)

	g, back, err := reg.Join("lunch", &spywords.Player{ID: p.ID, Name: "ann again"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, back.ID)
	assert.False(t, back.Disconnected)
	assert.Equal(t, "ann again", back.Name)
	assert.Equal(t, p.Team, back.Team, "reconnect keeps the old seat's team")
	assert.Len(t, g.Players, 1, "reconnect must not add a second seat")
}

func TestFailedMutationLeavesRoomUntouched(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("lunch")
	require.NoError(t, err)

	_, _, err = reg.Join("lunch", &spywords.Player{Name: "ann"})
	require.NoError(t, err)

	_, err = reg.StartGame("lunch")
	assert.Equal(t, spywords.NotEnoughPlayers, kindOf(t, err))

	g, ok := reg.Find("lunch")
	require.True(t, ok)
	assert.False(t, g.Started)
	assert.Len(t, g.Players, 1)
}

func TestStartGameFlow(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("lunch")
	require.NoError(t, err)
	players := seatFour(t, reg, "lunch")

	_, err = reg.AssignSpymaster("lunch", players[0].ID)
	require.NoError(t, err)
	_, err = reg.AssignSpymaster("lunch", players[2].ID)
	require.NoError(t, err)

	g, err := reg.StartGame("lunch")
	require.NoError(t, err)
	assert.True(t, g.Started)

	_, err = reg.StartGame("lunch")
	assert.Equal(t, spywords.GameAlreadyStarted, kindOf(t, err))
}

func TestRevealAndEndTurn(t *testing.T) {
	reg := newTestRegistry(t)
	created, err := reg.Create("lunch")
	require.NoError(t, err)

	// Pick an unrevealed card of the non-active team off the snapshot.
	var word string
	for _, c := range created.Cards {
		if !c.Assassin && c.Team == created.ActiveTeam.Opposite() {
			word = c.Word
			break
		}
	}
	require.NotEmpty(t, word)

	g, card, err := reg.Reveal("lunch", word)
	require.NoError(t, err)
	assert.True(t, card.Revealed)
	assert.Equal(t, created.ActiveTeam.Opposite(), g.ActiveTeam)

	g, err = reg.EndTurn("lunch")
	require.NoError(t, err)
	assert.Equal(t, created.ActiveTeam, g.ActiveTeam)
}

func TestResetAlternatesStartingTeam(t *testing.T) {
	reg := newTestRegistry(t)
	created, err := reg.Create("lunch")
	require.NoError(t, err)

	g, err := reg.Reset("lunch")
	require.NoError(t, err)
	assert.Equal(t, created.StartingTeam.Opposite(), g.StartingTeam)
	assert.Equal(t, g.StartingTeam, g.ActiveTeam)
}

// Regression: only the player-removal paths may tear a room down. A
// created-but-unjoined room has zero players, and board actions on it
// must leave it in place.
func TestMutatingEmptyRoomKeepsIt(t *testing.T) {
	reg := newTestRegistry(t)
	created, err := reg.Create("lunch")
	require.NoError(t, err)

	_, err = reg.EndTurn("lunch")
	require.NoError(t, err)

	_, _, err = reg.Reveal("lunch", created.Cards[0].Word)
	require.NoError(t, err)

	_, err = reg.Reset("lunch")
	require.NoError(t, err)

	g, ok := reg.Find("lunch")
	require.True(t, ok, "board actions on an empty room must not delete it")
	assert.Empty(t, g.Players)
}

func TestRemovePlayerDeletesEmptyRoom(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("lunch")
	require.NoError(t, err)

	_, p, err := reg.Join("lunch", &spywords.Player{Name: "ann"})
	require.NoError(t, err)

	removed, err := reg.RemovePlayer("lunch", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, removed.ID)

	_, ok := reg.Find("lunch")
	assert.False(t, ok, "emptied room should be torn down")
}

func TestRemoveDisconnected(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("lunch")
	require.NoError(t, err)
	players := seatFour(t, reg, "lunch")

	// Still connected: the reaper must not touch them.
	_, ok := reg.RemoveDisconnected("lunch", players[0].ID)
	assert.False(t, ok)

	_, err = reg.DisconnectPlayer("lunch", players[0].ID)
	require.NoError(t, err)

	// Reconnected in time: also a no-op.
	_, _, err = reg.Join("lunch", &spywords.Player{ID: players[0].ID})
	require.NoError(t, err)
	_, ok = reg.RemoveDisconnected("lunch", players[0].ID)
	assert.False(t, ok)

	// Gone for good.
	_, err = reg.DisconnectPlayer("lunch", players[0].ID)
	require.NoError(t, err)
	removed, ok := reg.RemoveDisconnected("lunch", players[0].ID)
	require.True(t, ok)
	assert.Equal(t, players[0].ID, removed.ID)

	g, found := reg.Find("lunch")
	require.True(t, found)
	assert.Len(t, g.Players, 3)
}

func TestRoomsAreIndependent(t *testing.T) {
	reg := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		room := fmt.Sprintf("room%d", i)
		_, err := reg.Create(room)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j, team := range []spywords.Team{spywords.Red, spywords.Red, spywords.Blue, spywords.Blue} {
				p := &spywords.Player{Name: fmt.Sprintf("p%d", j), Team: team}
				if _, _, err := reg.Join(room, p); err != nil {
					t.Errorf("Join(%q): %v", room, err)
					return
				}
			}
			if _, err := reg.EndTurn(room); err != nil {
				t.Errorf("EndTurn(%q): %v", room, err)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		g, ok := reg.Find(fmt.Sprintf("room%d", i))
		require.True(t, ok)
		assert.Len(t, g.Players, 4)
		assert.Equal(t, g.StartingTeam.Opposite(), g.ActiveTeam)
	}
}

// Regression: a snapshot returned from one mutation must not alias the
// stored room state seen by the next.
func TestSequentialMutationsSeeSettledState(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("lunch")
	require.NoError(t, err)

	players := seatFour(t, reg, "lunch")
	g1, err := reg.EndTurn("lunch")
	require.NoError(t, err)
	g1.Players[0].Name = "tampered"

	g2, _, err := reg.Reveal("lunch", g1.Cards[0].Word)
	require.NoError(t, err)
	assert.Equal(t, players[0].Name, g2.Players[0].Name)
}
