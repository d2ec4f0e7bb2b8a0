// Package words manages the difficulty-tiered word pools the drawer picks
// from each turn.
package words

import (
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"
)

// Difficulty selects which word tier a room draws from.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps arbitrary input to a known tier, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return Difficulty(s)
	default:
		return Medium
	}
}

const (
	MinOptionCount = 3
	MaxOptionCount = 6
)

// ClampOptionCount bounds the number of word options offered to the drawer.
func ClampOptionCount(n int) int {
	return max(MinOptionCount, min(n, MaxOptionCount))
}

// Bank is a set of difficulty tiers to draw from. The zero value is not
// usable; construct with NewBank or NewBankWithTiers.
type Bank struct {
	tiers map[Difficulty][]string
}

// NewBank returns a Bank backed by the built-in word lists.
func NewBank() *Bank {
	return NewBankWithTiers(defaultTiers)
}

// NewBankWithTiers builds a Bank from caller-supplied tiers. Unknown
// difficulties fall back to the medium tier on draw.
func NewBankWithTiers(tiers map[Difficulty][]string) *Bank {
	copied := make(map[Difficulty][]string, len(tiers))
	for d, list := range tiers {
		copied[d] = slices.Clone(list)
	}
	return &Bank{tiers: copied}
}

// TierSize reports how many words a tier holds.
func (b *Bank) TierSize(difficulty Difficulty) int {
	return len(b.tier(difficulty))
}

// Draw selects count random words from the tier, skipping any word in
// excluding. If the exclusions leave fewer than count candidates, the full
// tier is used instead so a long session never starves the drawer of
// options. Count is clamped to [MinOptionCount, MaxOptionCount].
func (b *Bank) Draw(count int, difficulty Difficulty, excluding []string) []string {
	pool := b.tier(difficulty)
	count = ClampOptionCount(count)

	available := lo.Filter(pool, func(word string, _ int) bool {
		return !slices.Contains(excluding, word)
	})
	shuffle(available)

	// Not enough unused words left: allow reuse for this draw, still
	// preferring whatever unused words remain.
	if len(available) < count {
		used := lo.Filter(pool, func(word string, _ int) bool {
			return slices.Contains(excluding, word)
		})
		shuffle(used)
		available = append(available, used...)
	}

	if count > len(available) {
		count = len(available)
	}
	return available[:count]
}

func shuffle(words []string) {
	rand.Shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})
}

func (b *Bank) tier(difficulty Difficulty) []string {
	if list, ok := b.tiers[difficulty]; ok {
		return list
	}
	return b.tiers[Medium]
}

var defaultTiers = map[Difficulty][]string{
	Easy: {
		"Shoe", "Door", "Trash Can", "Christmas Tree", "Television", "Moon",
		"Eyes", "Spider", "Snow", "Drum", "Shirt", "Sad", "Doll", "Cup",
		"Fish", "Sandwich", "Cookie", "Socks", "Book", "Pants", "Happy",
		"Roof", "Candy", "Skateboard", "Sun", "Water", "Bed", "Hat",
		"Rooster", "Dress", "Airplane", "Bubbles", "Ocean", "Ball", "Banana",
		"Butterfly", "Cupcake", "Rainbow", "Grapes", "Pizza", "House",
		"Sleep", "Egg", "Bird", "Octopus", "Star", "Coffee", "Apple",
		"Mailbox", "Nose", "Tree", "Cat", "Leg", "Lips", "Cloud", "Orange",
	},
	Medium: {
		"List", "Firefighter", "Sunglasses", "Pancakes", "Wing",
		"Gummy Bears", "Storm", "Garbage", "Vacation", "Pillowcase",
		"Police", "Sleeping Bag", "Elbow", "Desk", "Winter", "Rice",
		"Laptop", "Turkey", "Flag", "Bookshelf", "Hair Tie", "Farm", "Sand",
		"Watch", "Toaster", "Recess", "Braces", "Internet", "Subway",
		"Teacher", "Jack-O-Lantern", "Heaven", "Tent", "Clock", "Student",
		"Mermaid", "Hamburger", "City", "Chef",
	},
	Hard: {
		"Detention", "Comfy", "Peace", "Sleepover", "Laugh", "Boring",
		"Morning", "Calendar", "Panda", "Afraid", "Far", "Ice Skating",
		"Homerun", "Team Captain", "Communication", "Eraser", "Imagination",
		"Panic", "Gum Under The Desk", "Sunscreen", "Dictionary", "Alarm",
		"Parents", "Closet", "Falling", "Street Sweeper", "Dripping", "Pain",
		"Glue", "Hibernation", "Hot", "Hair", "Famished", "Toilet Paper",
		"Drinking Fountain", "Magic", "Shrimp", "Group", "Dark", "Homeless",
		"Exhausted", "Bake Sale",
	},
}
