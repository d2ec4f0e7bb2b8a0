// Package scoring holds the pure guess-evaluation functions: normalization,
// the closeness classifier, and the point curve. No state, no I/O.
package scoring

import "strings"

// Result classifies a single guess against the secret word.
type Result string

const (
	Correct   Result = "correct"
	Close     Result = "close"
	Incorrect Result = "incorrect"
)

const (
	basePoints         = 100
	firstBonusFactor   = 2
	pointsDropPerGuess = 25
	minPoints          = 50

	// DrawerBonus is the flat amount the drawer earns per distinct
	// correct guesser in a round.
	DrawerBonus = 50
)

var punctuationReplacer = strings.NewReplacer(
	".", "", ",", "", "!", "", "?", "", "'", "", `"`, "", "-", "",
)

// Normalize lowercases, trims, and strips basic punctuation so guesses and
// the secret word compare on equal footing. Applied identically to both
// sides of every comparison.
func Normalize(text string) string {
	return punctuationReplacer.Replace(strings.TrimSpace(strings.ToLower(text)))
}

// Classify normalizes both inputs and reports whether the guess is an exact
// match, one single-character edit away, or neither.
func Classify(guess, word string) Result {
	g := Normalize(guess)
	w := Normalize(word)

	if g == w {
		return Correct
	}
	if editDistance(g, w) == 1 {
		return Close
	}
	return Incorrect
}

// PointsForGuess computes the award for a correct guess. The first correct
// guesser of a round gets a time bonus; later guessers get a flat score
// that drops per previous correct guess, floored at 50.
func PointsForGuess(guessesSoFar, secondsRemaining int) int {
	if guessesSoFar == 0 {
		return (basePoints + secondsRemaining) * firstBonusFactor
	}

	points := basePoints - pointsDropPerGuess*guessesSoFar
	if points < minPoints {
		return minPoints
	}
	return points
}

// editDistance is the classic Levenshtein distance: the number of
// single-character insertions, deletions, and substitutions needed to turn
// a into b.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
