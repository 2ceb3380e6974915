// Package spywords holds the shared types for a room-based word-guessing
// game: two teams take turns revealing cards on a 5x5 board, trying to
// find their own team's words while avoiding the assassin.
package spywords

import "github.com/google/uuid"

const (
	// Rows is the number of rows of cards on a board.
	Rows = 5
	// Columns is the number of columns of cards on a board.
	Columns = 5
	// BoardSize is the total number of cards on a board.
	BoardSize = Rows * Columns
)

// Team is one of the two sides in a room. The zero value means "no
// team", which is only valid transiently for a player before
// auto-assignment, and permanently for neutral and assassin cards.
type Team string

const (
	NoTeam = Team("")
	Red    = Team("RED")
	Blue   = Team("BLUE")
)

// Opposite returns the other team, or NoTeam for NoTeam.
func (t Team) Opposite() Team {
	switch t {
	case Red:
		return Blue
	case Blue:
		return Red
	}
	return NoTeam
}

func (t Team) String() string {
	switch t {
	case Red:
		return "Red Team"
	case Blue:
		return "Blue Team"
	}
	return "No Team"
}

// Card is a single board card. Team is NoTeam for both neutral cards
// and the assassin. Once a card is revealed it stays revealed until the
// room's deck is regenerated by a reset.
type Card struct {
	Word     string `json:"word"`
	Team     Team   `json:"team"`
	Revealed bool   `json:"isRevealed"`
	Assassin bool   `json:"isAssassin"`
}

// Player is one participant in a room. Identity is by ID, not name, so
// duplicate display names are allowed.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Team         Team   `json:"team"`
	Spymaster    bool   `json:"isSpymaster"`
	Disconnected bool   `json:"disconnected"`
}

// NewPlayer creates a player with a fresh ID. Pass NoTeam to have the
// room auto-assign a team on join.
func NewPlayer(name string, team Team) *Player {
	return &Player{
		ID:   uuid.NewString(),
		Name: name,
		Team: team,
	}
}

func (p *Player) Clone() *Player {
	pc := *p
	return &pc
}

// Scores is the per-team win count for a room. It survives resets, only
// creating a new room zeroes it.
type Scores map[Team]int

func NewScores() Scores {
	return Scores{Red: 0, Blue: 0}
}

func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for t, n := range s {
		out[t] = n
	}
	return out
}
