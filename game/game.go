// Package game implements one room's state machine: teams, score,
// board, players, turn order, and win detection. Every mutation either
// fully applies or returns a *spywords.GameError and leaves the room
// untouched. The package does no synchronization of its own, callers
// are expected to serialize access (see the registry package).
package game

import (
	"encoding/json"
	"math/rand"
	"strings"

	"spywords"
	"spywords/deck"
)

// MinPlayers is the number of players a room needs before it can start.
const MinPlayers = 4

// Game is the aggregate for a single named room.
type Game struct {
	Name         string             `json:"name"`
	StartingTeam spywords.Team      `json:"startingTeam"`
	ActiveTeam   spywords.Team      `json:"activeTeam"`
	Scores       spywords.Scores    `json:"scores"`
	Players      []*spywords.Player `json:"players"`
	Cards        []spywords.Card    `json:"cards"`
	Started      bool               `json:"started"`
	GameOver     bool               `json:"gameOver"`
}

// New creates an empty room. The starting team is chosen at random and
// gets the nine-card advantage for going first.
func New(name string, r *rand.Rand) *Game {
	starting := spywords.Red
	if r.Intn(2) == 0 {
		starting = spywords.Blue
	}

	return &Game{
		Name:         name,
		StartingTeam: starting,
		ActiveTeam:   starting,
		Scores:       spywords.NewScores(),
		Cards:        deck.New(starting, r),
	}
}

// Clone deep-copies the room so callers can hand out snapshots without
// exposing a mutable handle.
func (g *Game) Clone() *Game {
	players := make([]*spywords.Player, len(g.Players))
	for i, p := range g.Players {
		players[i] = p.Clone()
	}
	cards := make([]spywords.Card, len(g.Cards))
	copy(cards, g.Cards)

	return &Game{
		Name:         g.Name,
		StartingTeam: g.StartingTeam,
		ActiveTeam:   g.ActiveTeam,
		Scores:       g.Scores.Clone(),
		Players:      players,
		Cards:        cards,
		Started:      g.Started,
		GameOver:     g.GameOver,
	}
}

// Player finds a player by ID.
func (g *Game) Player(id string) (*spywords.Player, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Empty reports whether nobody is left in the room.
func (g *Game) Empty() bool {
	return len(g.Players) == 0
}

// AddPlayer appends a player to the room, auto-assigning the smaller
// team (ties broken at random) when the player has none. Insertion
// order is preserved. Duplicate names are fine, identity is by ID.
func (g *Game) AddPlayer(p *spywords.Player, r *rand.Rand) {
	if p.Team == spywords.NoTeam {
		p.Team = g.autoAssignTeam(r)
	}
	g.Players = append(g.Players, p)
}

func (g *Game) autoAssignTeam(r *rand.Rand) spywords.Team {
	var red, blue int
	for _, p := range g.Players {
		switch p.Team {
		case spywords.Red:
			red++
		case spywords.Blue:
			blue++
		}
	}

	switch {
	case red == blue:
		if r.Intn(2) == 0 {
			return spywords.Blue
		}
		return spywords.Red
	case red > blue:
		return spywords.Blue
	default:
		return spywords.Red
	}
}

// RemovePlayer removes a player by ID, keeping the order of everyone
// else. The caller decides what to do with an emptied room.
func (g *Game) RemovePlayer(id string) (*spywords.Player, error) {
	for i, p := range g.Players {
		if p.ID == id {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return p, nil
		}
	}
	return nil, spywords.NewGameError(spywords.PlayerNotFound, "no player %q in game %q", id, g.Name)
}

// DisconnectPlayer flags a player as disconnected without removing
// them, so a grace period can decide whether they come back.
func (g *Game) DisconnectPlayer(id string) (*spywords.Player, error) {
	p, ok := g.Player(id)
	if !ok {
		return nil, spywords.NewGameError(spywords.PlayerNotFound, "no player %q in game %q", id, g.Name)
	}
	p.Disconnected = true
	return p, nil
}

// ReconnectPlayer clears the disconnected flag.
func (g *Game) ReconnectPlayer(id string) (*spywords.Player, error) {
	p, ok := g.Player(id)
	if !ok {
		return nil, spywords.NewGameError(spywords.PlayerNotFound, "no player %q in game %q", id, g.Name)
	}
	p.Disconnected = false
	return p, nil
}

// Spymasters returns the current spymaster of each team, nil for a
// team that has none.
func (g *Game) Spymasters() (red, blue *spywords.Player) {
	for _, p := range g.Players {
		if !p.Spymaster {
			continue
		}
		switch p.Team {
		case spywords.Red:
			red = p
		case spywords.Blue:
			blue = p
		}
	}
	return red, blue
}

// Start begins the round. It requires at least MinPlayers players and a
// spymaster on each team, and fails if the round is already underway.
// These are preconditions only, removing a spymaster afterwards does
// not un-start the game.
func (g *Game) Start() error {
	if g.Started {
		return spywords.NewGameError(spywords.GameAlreadyStarted, "game %q has already started", g.Name)
	}
	if len(g.Players) < MinPlayers {
		return spywords.NewGameError(spywords.NotEnoughPlayers, "game %q has %d of %d needed players", g.Name, len(g.Players), MinPlayers)
	}
	if red, blue := g.Spymasters(); red == nil || blue == nil {
		return spywords.NewGameError(spywords.NoSpymaster, "both teams need a spymaster")
	}
	g.Started = true
	return nil
}

// AssignSpymaster makes the player their team's spymaster. Each team
// has at most one, the error names the incumbent.
func (g *Game) AssignSpymaster(id string) (*spywords.Player, error) {
	p, ok := g.Player(id)
	if !ok {
		return nil, spywords.NewGameError(spywords.PlayerNotFound, "no player %q in game %q", id, g.Name)
	}

	red, blue := g.Spymasters()
	incumbent := red
	if p.Team == spywords.Blue {
		incumbent = blue
	}
	if incumbent != nil {
		return nil, spywords.NewGameError(spywords.SpymasterAlreadyAssigned, "%s is already spymaster", incumbent.Name)
	}

	p.Spymaster = true
	return p, nil
}

// SwitchTeam flips the player to the other team. Spymasters can't
// switch, that would leave their team without one.
func (g *Game) SwitchTeam(id string) (*spywords.Player, error) {
	p, ok := g.Player(id)
	if !ok {
		return nil, spywords.NewGameError(spywords.PlayerNotFound, "no player %q in game %q", id, g.Name)
	}
	if p.Spymaster {
		return nil, spywords.NewGameError(spywords.SpymasterCannotSwitch, "spymasters cannot switch teams")
	}
	p.Team = p.Team.Opposite()
	return p, nil
}

// Reveal flips the card with the given word face-up. Revealing a card
// that doesn't belong to the active team ends the turn. Revealing an
// already-revealed card is a no-op.
//
// The win check runs after any turn flip caused by this same reveal:
// revealing the opposing team's last card both ends the turn and
// immediately wins by exhaustion for the new active team. On any win
// the point goes to the team that was active when the card was
// revealed, and the whole board is turned face-up.
func (g *Game) Reveal(word string) (spywords.Card, error) {
	idx := -1
	for i, c := range g.Cards {
		if strings.EqualFold(c.Word, word) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return spywords.Card{}, spywords.NewGameError(spywords.CardNotFound, "no card %q in game %q", word, g.Name)
	}
	if g.Cards[idx].Revealed {
		return g.Cards[idx], nil
	}

	g.Cards[idx].Revealed = true

	revealer := g.ActiveTeam
	if g.Cards[idx].Team != g.ActiveTeam {
		g.EndTurn()
	}

	if g.won() {
		g.Scores[revealer]++
		g.GameOver = true
		g.RevealAll()
	}

	return g.Cards[idx], nil
}

// won checks both win conditions against the post-flip active team.
func (g *Game) won() bool {
	for _, c := range g.Cards {
		if c.Assassin && c.Revealed {
			return true
		}
	}
	return g.Remaining(g.ActiveTeam) == 0
}

// EndTurn hands the turn to the other team. Also used directly for a
// voluntary pass.
func (g *Game) EndTurn() {
	g.ActiveTeam = g.ActiveTeam.Opposite()
}

// RevealAll turns the whole board face-up without touching turn order
// or score.
func (g *Game) RevealAll() {
	for i := range g.Cards {
		g.Cards[i].Revealed = true
	}
}

// Remaining counts the unrevealed cards still belonging to team.
func (g *Game) Remaining(team spywords.Team) int {
	var n int
	for _, c := range g.Cards {
		if !c.Revealed && c.Team == team {
			n++
		}
	}
	return n
}

// Reset returns the room to the lobby with a fresh board. The team
// that went second last round starts the next one. Players stay, but
// nobody keeps the spymaster role. Scores carry across rounds.
func (g *Game) Reset(r *rand.Rand) {
	g.StartingTeam = g.StartingTeam.Opposite()
	g.ActiveTeam = g.StartingTeam
	g.Started = false
	g.GameOver = false
	for _, p := range g.Players {
		p.Spymaster = false
	}
	g.Cards = deck.New(g.StartingTeam, r)
}

// MarshalJSON includes the per-team unrevealed counts clients render in
// the scoreboard.
func (g *Game) MarshalJSON() ([]byte, error) {
	type alias Game
	return json.Marshal(struct {
		*alias
		RemainingRed  int `json:"remainingRed"`
		RemainingBlue int `json:"remainingBlue"`
	}{(*alias)(g), g.Remaining(spywords.Red), g.Remaining(spywords.Blue)})
}
