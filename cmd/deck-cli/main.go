// Command deck-cli generates a board and prints the 5x5 grid with team
// colors, for eyeballing deck distribution.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"spywords"
	"spywords/deck"
)

func main() {
	var (
		team = flag.String("team", "red", "Which team goes first, 'red' or 'blue'")
		seed = flag.Int64("seed", 0, "Random seed, 0 means time-based")
	)
	flag.Parse()

	starting := spywords.Red
	if *team == "blue" {
		starting = spywords.Blue
	}

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}

	cards := deck.New(starting, rand.New(rand.NewSource(s)))
	printBoard(cards)

	red, blue, neutral, assassin := deck.Counts(cards)
	fmt.Printf("%s starts: %d red, %d blue, %d neutral, %d assassin\n", starting, red, blue, neutral, assassin)
}

func printBoard(cards []spywords.Card) {
	table := tablewriter.NewWriter(os.Stdout)

	for i := 0; i < spywords.Rows; i++ {
		var row []string
		var colors []tablewriter.Colors
		for j := 0; j < spywords.Columns; j++ {
			card := cards[i*spywords.Columns+j]
			var c tablewriter.Colors
			switch {
			case card.Assassin:
				c = append(c, tablewriter.BgHiRedColor)
			case card.Team == spywords.Blue:
				c = append(c, tablewriter.FgBlueColor)
			case card.Team == spywords.Red:
				c = append(c, tablewriter.FgHiRedColor)
			}
			colors = append(colors, c)
			row = append(row, card.Word)
		}
		table.Rich(row, colors)
	}

	table.Render()
}
