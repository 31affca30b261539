package poker

import (
	"fmt"

	ph "github.com/paulhankin/poker"
)

type HandCategory int

const (
	HighCard HandCategory = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	"High Card",
	"Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
}

func (c HandCategory) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// RankedHand is the best five card hand found for a set of cards.
// Tag is an opaque caller value (the table uses the seat index) carried through Winners.
type RankedHand struct {
	Tag         int
	Score       int16
	Category    HandCategory
	Description string
	Best        [5]Card
}

// HandEvaluator ranks hands. Higher scores win.
type HandEvaluator interface {
	// Solve ranks the best five of 5 to 7 cards.
	Solve(cards []Card) (RankedHand, error)
	// SolveOmaha ranks the best hand using exactly two hole cards and three board cards.
	SolveOmaha(hole []Card, board []Card) (RankedHand, error)
	// Winners returns every hand that ties for the best score.
	Winners(hands []RankedHand) []RankedHand
}

// Evaluator scores hands with github.com/paulhankin/poker.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

func (e *Evaluator) Solve(cards []Card) (RankedHand, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return RankedHand{}, fmt.Errorf("cannot evaluate %d cards", len(cards))
	}
	if err := checkDistinct(cards); err != nil {
		return RankedHand{}, err
	}

	var best RankedHand
	found := false
	var five [5]Card
	var visit func(start int, depth int) error
	visit = func(start int, depth int) error {
		if depth == 5 {
			score, err := eval5(five)
			if err != nil {
				return err
			}
			if !found || score > best.Score {
				best = RankedHand{Score: score, Best: five}
				found = true
			}
			return nil
		}
		for i := start; i <= len(cards)-(5-depth); i++ {
			five[depth] = cards[i]
			if err := visit(i+1, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(0, 0); err != nil {
		return RankedHand{}, err
	}
	describe(&best)
	return best, nil
}

func (e *Evaluator) SolveOmaha(hole []Card, board []Card) (RankedHand, error) {
	if len(hole) < 2 || len(board) < 3 || len(board) > 5 {
		return RankedHand{}, fmt.Errorf("cannot evaluate omaha hand with %d hole and %d board cards", len(hole), len(board))
	}
	all := make([]Card, 0, len(hole)+len(board))
	all = append(all, hole...)
	all = append(all, board...)
	if err := checkDistinct(all); err != nil {
		return RankedHand{}, err
	}

	var best RankedHand
	found := false
	for h1 := 0; h1 < len(hole); h1++ {
		for h2 := h1 + 1; h2 < len(hole); h2++ {
			for b1 := 0; b1 < len(board); b1++ {
				for b2 := b1 + 1; b2 < len(board); b2++ {
					for b3 := b2 + 1; b3 < len(board); b3++ {
						five := [5]Card{hole[h1], hole[h2], board[b1], board[b2], board[b3]}
						score, err := eval5(five)
						if err != nil {
							return RankedHand{}, err
						}
						if !found || score > best.Score {
							best = RankedHand{Score: score, Best: five}
							found = true
						}
					}
				}
			}
		}
	}
	describe(&best)
	return best, nil
}

func (e *Evaluator) Winners(hands []RankedHand) []RankedHand {
	if len(hands) == 0 {
		return nil
	}
	top := hands[0].Score
	for _, h := range hands[1:] {
		if h.Score > top {
			top = h.Score
		}
	}
	winners := make([]RankedHand, 0, 1)
	for _, h := range hands {
		if h.Score == top {
			winners = append(winners, h)
		}
	}
	return winners
}

func checkDistinct(cards []Card) error {
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if c.Rank() >= NumRanks || int(c.Suit()) >= len(strSuits) {
			return fmt.Errorf("invalid card value %d", uint8(c))
		}
		if seen[c] {
			return fmt.Errorf("duplicate card %s", c.String())
		}
		seen[c] = true
	}
	return nil
}

func toEvalCard(c Card) (ph.Card, error) {
	// evaluator suits: club 0, diamond 1, heart 2, spade 3
	var suit ph.Suit
	switch c.Suit() {
	case Spade:
		suit = ph.Suit(3)
	case Heart:
		suit = ph.Suit(2)
	case Diamond:
		suit = ph.Suit(1)
	case Club:
		suit = ph.Suit(0)
	default:
		var none ph.Card
		return none, fmt.Errorf("invalid suit in card %d", uint8(c))
	}
	// the evaluator counts the ace as rank 1
	rank := int(c.Rank()) + 2
	if rank == 14 {
		rank = 1
	}
	return ph.MakeCard(suit, ph.Rank(rank))
}

func eval5(five [5]Card) (int16, error) {
	var hand [5]ph.Card
	for i, c := range five {
		ec, err := toEvalCard(c)
		if err != nil {
			return 0, err
		}
		hand[i] = ec
	}
	return ph.Eval5(&hand), nil
}

func describe(h *RankedHand) {
	h.Category = categorize(h.Best)
	var hand [5]ph.Card
	for i, c := range h.Best {
		ec, err := toEvalCard(c)
		if err != nil {
			h.Description = h.Category.String()
			return
		}
		hand[i] = ec
	}
	desc, err := ph.Describe(hand[:])
	if err != nil || desc == "" {
		h.Description = h.Category.String()
		return
	}
	h.Description = desc
}

func categorize(five [5]Card) HandCategory {
	var rankCount [NumRanks]int
	flush := true
	for i, c := range five {
		rankCount[c.Rank()]++
		if i > 0 && c.Suit() != five[0].Suit() {
			flush = false
		}
	}

	pairs, trips, quads := 0, 0, 0
	for _, n := range rankCount {
		switch n {
		case 2:
			pairs++
		case 3:
			trips++
		case 4:
			quads++
		}
	}

	straight := false
	run := 0
	for r := 0; r < NumRanks; r++ {
		if rankCount[r] == 1 {
			run++
			if run == 5 {
				straight = true
			}
		} else {
			run = 0
		}
	}
	// wheel: A 2 3 4 5
	if rankCount[12] == 1 && rankCount[0] == 1 && rankCount[1] == 1 && rankCount[2] == 1 && rankCount[3] == 1 {
		straight = true
	}

	switch {
	case straight && flush:
		return StraightFlush
	case quads == 1:
		return FourOfAKind
	case trips == 1 && pairs == 1:
		return FullHouse
	case flush:
		return Flush
	case straight:
		return Straight
	case trips == 1:
		return ThreeOfAKind
	case pairs == 2:
		return TwoPair
	case pairs == 1:
		return OnePair
	}
	return HighCard
}
