package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		guess string
		word  string
		want  Result
	}{
		{"exact match", "apple", "apple", Correct},
		{"one deletion", "aple", "apple", Close},
		{"one insertion", "appple", "apple", Close},
		{"one substitution", "apgle", "apple", Close},
		{"unrelated", "banana", "apple", Incorrect},
		{"two edits", "aple", "applet", Incorrect},
		{"case and punctuation ignored", "Apple!", " apple ", Correct},
		{"quoted guess", `"dog"`, "dog", Correct},
		{"hyphenated", "jack-o-lantern", "jackolantern", Correct},
		{"empty guess vs short word", "", "a", Close},
		{"both empty", "", "", Correct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.guess, tt.word))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "trash can", Normalize("  Trash Can! "))
	assert.Equal(t, "youre close", Normalize("You're close?"))
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("apple", "apple"))
	assert.Equal(t, 1, editDistance("apple", "appl"))
	assert.Equal(t, 5, editDistance("apple", "banana"))
	assert.Equal(t, 3, editDistance("", "dog"))
}

func TestPointsForGuess(t *testing.T) {
	// First correct guess: floor((100 + secondsRemaining) * 2).
	assert.Equal(t, 200, PointsForGuess(0, 0))
	assert.Equal(t, 260, PointsForGuess(0, 30))
	assert.Equal(t, 380, PointsForGuess(0, 90))

	// Later guesses drop 25 per previous correct guess, floored at 50.
	assert.Equal(t, 75, PointsForGuess(1, 30))
	assert.Equal(t, 50, PointsForGuess(2, 30))
	assert.Equal(t, 50, PointsForGuess(5, 120))
}

func TestPointsMonotonicity(t *testing.T) {
	for _, secs := range []int{0, 1, 15, 60, 179} {
		first := PointsForGuess(0, secs)
		prev := first
		for k := 1; k <= 8; k++ {
			p := PointsForGuess(k, secs)
			assert.Greater(t, first, p, "first guesser must out-earn guesser %d at %ds", k, secs)
			assert.LessOrEqual(t, p, prev, "points must be non-increasing in position")
			assert.GreaterOrEqual(t, p, 50)
			prev = p
		}
	}
}
