package deck

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spywords"
)

func TestNew(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		for _, starting := range []spywords.Team{spywords.Red, spywords.Blue} {
			cards := New(starting, rand.New(rand.NewSource(seed)))
			require.Len(t, cards, spywords.BoardSize)

			red, blue, neutral, assassin := Counts(cards)
			wantStarter, wantOther := 9, 8
			if starting == spywords.Red {
				assert.Equal(t, wantStarter, red, "seed %d", seed)
				assert.Equal(t, wantOther, blue, "seed %d", seed)
			} else {
				assert.Equal(t, wantStarter, blue, "seed %d", seed)
				assert.Equal(t, wantOther, red, "seed %d", seed)
			}
			assert.Equal(t, 7, neutral, "seed %d", seed)
			assert.Equal(t, 1, assassin, "seed %d", seed)
		}
	}
}

func TestNewAssassinHasNoTeam(t *testing.T) {
	cards := New(spywords.Red, rand.New(rand.NewSource(1)))

	var found bool
	for _, c := range cards {
		if !c.Assassin {
			continue
		}
		found = true
		assert.Equal(t, spywords.NoTeam, c.Team)
	}
	require.True(t, found, "board has no assassin")
}

func TestNewWordsAreDistinct(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		cards := New(spywords.Blue, rand.New(rand.NewSource(seed)))

		seen := make(map[string]struct{})
		for _, c := range cards {
			_, dup := seen[c.Word]
			require.False(t, dup, "seed %d: word %q drawn twice", seed, c.Word)
			seen[c.Word] = struct{}{}
		}
	}
}

func TestNewStartsFaceDown(t *testing.T) {
	cards := New(spywords.Red, rand.New(rand.NewSource(2)))
	for _, c := range cards {
		assert.False(t, c.Revealed, "card %q generated revealed", c.Word)
	}
}
