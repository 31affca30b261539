package poker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Card packs the rank in the high nibble and the suit in the low nibble.
// Ranks run 0 (deuce) to 12 (ace).
type Card uint8

const NumRanks = 13

const (
	Spade uint8 = iota
	Heart
	Diamond
	Club
)

var (
	strRanks = "23456789TJQKA"
	strSuits = "shdc"

	prettySuits = [...]string{
		"♠", // spades
		"❤", // hearts
		"♦", // diamonds
		"♣", // clubs
	}
)

// NewCard parses a two character card such as "As" or "Td".
func NewCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card [%s]", s)
	}
	rank := strings.IndexByte(strRanks, strings.ToUpper(s[:1])[0])
	suit := strings.IndexByte(strSuits, strings.ToLower(s[1:])[0])
	if rank < 0 || suit < 0 {
		return 0, fmt.Errorf("invalid card [%s]", s)
	}
	return MakeCard(uint8(rank), uint8(suit)), nil
}

// MustCard is NewCard for literals in tests and scripts.
func MustCard(s string) Card {
	c, err := NewCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

func MakeCard(rank uint8, suit uint8) Card {
	return Card(rank<<4 | suit&0xF)
}

func ParseCards(cards []string) ([]Card, error) {
	ret := make([]Card, 0, len(cards))
	for _, s := range cards {
		c, err := NewCard(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing cards %v", cards)
		}
		ret = append(ret, c)
	}
	return ret, nil
}

func (c Card) Rank() uint8 {
	return uint8(c) >> 4
}

func (c Card) Suit() uint8 {
	return uint8(c) & 0xF
}

func (c Card) String() string {
	if c.Rank() >= NumRanks || int(c.Suit()) >= len(strSuits) {
		return "??"
	}
	return string(strRanks[c.Rank()]) + string(strSuits[c.Suit()])
}

func (c Card) Pretty() string {
	if c.Rank() >= NumRanks || int(c.Suit()) >= len(prettySuits) {
		return "??"
	}
	return string(strRanks[c.Rank()]) + prettySuits[c.Suit()]
}

func (c Card) MarshalJSON() ([]byte, error) {
	return []byte("\"" + c.String() + "\""), nil
}

func (c *Card) UnmarshalJSON(b []byte) error {
	if len(b) != 4 {
		return fmt.Errorf("invalid card json %s", string(b))
	}
	parsed, err := NewCard(string(b[1:3]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func CardsToStrings(cards []Card) []string {
	ret := make([]string, len(cards))
	for i, c := range cards {
		ret[i] = c.String()
	}
	return ret
}

func CardsToString(cards []Card) string {
	var b strings.Builder
	b.Grow(32)
	fmt.Fprintf(&b, "[")
	for _, c := range cards {
		fmt.Fprintf(&b, " %s ", c.Pretty())
	}
	fmt.Fprintf(&b, "]")
	return b.String()
}
