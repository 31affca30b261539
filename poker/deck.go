package poker

import (
	"fmt"
	"math/rand"

	"voyager.com/tableserver/util/random"
)

var fullDeck []Card

func init() {
	fullDeck = initializeFullCards()
}

type Deck struct {
	cards []Card
}

// Shuffler produces freshly shuffled decks from one random source.
// A Shuffler is not safe for concurrent use; give each table its own.
type Shuffler struct {
	randGen *rand.Rand
}

func NewShuffler(source rand.Source) *Shuffler {
	if source == nil {
		source = rand.NewSource(random.NewSeed())
	}
	return &Shuffler{randGen: rand.New(source)}
}

// NewDeck returns a Fisher-Yates shuffled 52 card deck.
func (s *Shuffler) NewDeck() *Deck {
	deck := NewDeckNoShuffle()
	for i := len(deck.cards) - 1; i > 0; i-- {
		j := s.randGen.Intn(i + 1)
		deck.cards[i], deck.cards[j] = deck.cards[j], deck.cards[i]
	}
	return deck
}

// NewDeckNoShuffle returns the deck in canonical order: deuces first, suits s h d c.
func NewDeckNoShuffle() *Deck {
	deck := &Deck{}
	deck.cards = make([]Card, len(fullDeck))
	copy(deck.cards, fullDeck)
	return deck
}

func (deck *Deck) Draw(n int) ([]Card, error) {
	if n > len(deck.cards) {
		return nil, fmt.Errorf("cannot draw %d cards from a deck of %d", n, len(deck.cards))
	}
	cards := make([]Card, n)
	copy(cards, deck.cards[:n])
	deck.cards = deck.cards[n:]
	return cards, nil
}

func (deck *Deck) Remaining() int {
	return len(deck.cards)
}

func (deck *Deck) Empty() bool {
	return len(deck.cards) == 0
}

func (deck *Deck) PrettyPrint() string {
	return CardsToString(deck.cards)
}

func initializeFullCards() []Card {
	cards := make([]Card, 0, NumRanks*len(strSuits))
	for rank := 0; rank < NumRanks; rank++ {
		for suit := 0; suit < len(strSuits); suit++ {
			cards = append(cards, MakeCard(uint8(rank), uint8(suit)))
		}
	}
	return cards
}

// DeckFromScript stacks the deck for a scripted hand. playerCards are listed in
// dealing order (first seat left of the dealer first) and are interleaved the way
// hole cards are dealt, one card per player per pass. board follows the hole cards.
// The remaining cards keep canonical order.
func DeckFromScript(playerCards [][]string, board []string) (*Deck, error) {
	deck := NewDeckNoShuffle()
	placed := make(map[int]bool)
	noOfPlayers := len(playerCards)
	for i, cards := range playerCards {
		for j, cardStr := range cards {
			if err := deck.place(placed, i+j*noOfPlayers, cardStr); err != nil {
				return nil, err
			}
		}
	}

	deckIndex := 0
	for _, cards := range playerCards {
		deckIndex += len(cards)
	}
	for _, cardStr := range board {
		if err := deck.place(placed, deckIndex, cardStr); err != nil {
			return nil, err
		}
		deckIndex++
	}
	return deck, nil
}

func (deck *Deck) place(placed map[int]bool, deckIndex int, cardStr string) error {
	card, err := NewCard(cardStr)
	if err != nil {
		return err
	}
	if deckIndex >= len(deck.cards) {
		return fmt.Errorf("script uses more than %d cards", len(deck.cards))
	}
	cardLoc := deck.getCardLoc(card)
	if placed[cardLoc] {
		return fmt.Errorf("card %s is used twice in the script", cardStr)
	}
	deck.cards[deckIndex], deck.cards[cardLoc] = deck.cards[cardLoc], deck.cards[deckIndex]
	placed[deckIndex] = true
	return nil
}

func (deck *Deck) getCardLoc(cardToLocate Card) int {
	for i, card := range deck.cards {
		if card == cardToLocate {
			return i
		}
	}
	return -1
}
