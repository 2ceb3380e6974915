// Package deck generates shuffled boards with the fixed team
// distribution: one assassin, nine cards for the starting team, eight
// for the other team, and seven neutral cards.
package deck

import (
	"math/rand"

	"spywords"
)

const (
	assassinSlot      = 0
	startingTeamCards = 9
	opposingTeamCards = 8
)

// New draws spywords.BoardSize distinct words from the corpus and deals
// them out for a round where starting goes first. The returned order is
// uniformly shuffled, card positions carry no information.
func New(starting spywords.Team, r *rand.Rand) []spywords.Card {
	used := make(map[string]struct{}, spywords.BoardSize)
	for len(used) < spywords.BoardSize {
		used[spywords.Words[r.Intn(len(spywords.Words))]] = struct{}{}
	}

	var selected []string
	for word := range used {
		selected = append(selected, word)
	}

	cards := make([]spywords.Card, len(selected))
	for slot, word := range selected {
		cards[slot] = spywords.Card{
			Word:     word,
			Team:     teamForSlot(starting, slot),
			Assassin: slot == assassinSlot,
		}
	}

	shuffled := make([]spywords.Card, len(cards))
	for i, idx := range r.Perm(len(cards)) {
		shuffled[i] = cards[idx]
	}
	return shuffled
}

// teamForSlot deals teams by fixed ranges over the draw order: slot 0
// is the assassin, the next nine belong to the starting team, the eight
// after that to the opposing team, and the rest are neutral.
func teamForSlot(starting spywords.Team, slot int) spywords.Team {
	switch {
	case slot == assassinSlot:
		return spywords.NoTeam
	case slot <= assassinSlot+startingTeamCards:
		return starting
	case slot <= assassinSlot+startingTeamCards+opposingTeamCards:
		return starting.Opposite()
	default:
		return spywords.NoTeam
	}
}

// Counts tallies cards by team, with the assassin counted separately
// from the neutral cards.
func Counts(cards []spywords.Card) (red, blue, neutral, assassin int) {
	for _, c := range cards {
		switch {
		case c.Assassin:
			assassin++
		case c.Team == spywords.Red:
			red++
		case c.Team == spywords.Blue:
			blue++
		default:
			neutral++
		}
	}
	return red, blue, neutral, assassin
}
