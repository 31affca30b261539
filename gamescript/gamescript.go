package gamescript

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Script contains game script YAML content.
type Script struct {
	Table         Table          `yaml:"table"`
	StartingSeats []StartingSeat `yaml:"starting-seats"`
	Hands         []Hand         `yaml:"hands"`
}

// Table contains table configuration in the game script.
type Table struct {
	Title      string `yaml:"title"`
	GameType   string `yaml:"game-type"`
	SmallBlind int64  `yaml:"small-blind"`
	BigBlind   int64  `yaml:"big-blind"`
}

// StartingSeat contains an entry in the StartingSeats array in the game script.
type StartingSeat struct {
	Seat   uint32 `yaml:"seat"`
	Player string `yaml:"player"`
	BuyIn  int64  `yaml:"buy-in"`
	Bot    bool   `yaml:"bot"`
}

// Hand contains an entry in the hands array in the game script.
type Hand struct {
	Num     uint32       `yaml:"num"`
	Setup   HandSetup    `yaml:"setup"`
	Preflop BettingRound `yaml:"preflop"`
	Flop    BettingRound `yaml:"flop"`
	Turn    BettingRound `yaml:"turn"`
	River   BettingRound `yaml:"river"`
	Result  HandResult   `yaml:"result"`
}

type HandSetup struct {
	ButtonPos uint32               `yaml:"button-pos"`
	Board     []string             `yaml:"board"`
	SeatCards []SeatCards          `yaml:"seat-cards"`
	Verify    HandSetupVerfication `yaml:"verify"`
}

type SeatCards struct {
	Seat  uint32   `yaml:"seat"`
	Cards []string `yaml:"cards"`
}

type HandSetupVerfication struct {
	SBPos         *uint32 `yaml:"sb-pos"`
	BBPos         *uint32 `yaml:"bb-pos"`
	NextActionPos *uint32 `yaml:"next-action-pos"`
	Pot           *int64  `yaml:"pot"`
}

type BettingRound struct {
	SeatActions []SeatAction             `yaml:"seat-actions"`
	Verify      BettingRoundVerification `yaml:"verify"`
}

type SeatAction struct {
	Action Action        `yaml:"action"`
	Verify *VerifyAction `yaml:"verify"`
}

type Action struct {
	Seat   uint32
	Action string
	Amount int64
}

// Custom unmarshaller for action expression.
// 1, FOLD
// 1, RAISE, 60
func (a *Action) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	var err error
	err = unmarshal(&v)
	if err != nil {
		return err
	}
	actionExpr, ok := v.(string)
	if !ok {
		return fmt.Errorf("Cannot parse action expression [%v] as string", v)
	}
	tokens := strings.Split(actionExpr, ",")
	if len(tokens) != 2 && len(tokens) != 3 {
		return fmt.Errorf("Invalid action expression string [%v]. Need 2 or 3 comma-separated tokens", v)
	}

	// Parse seat number token
	trimmed := strings.Trim(tokens[0], " ")
	seatNo, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return errors.Wrapf(err, "Cannot convert first token [%s] to seat number", trimmed)
	}

	// Parse amount token
	var amount int64
	if len(tokens) == 3 {
		trimmed := strings.Trim(tokens[2], " ")
		amount, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "Cannot convert third token [%s] to amount", trimmed)
		}
	}
	a.Seat = uint32(seatNo)
	a.Action = strings.ToLower(strings.Trim(tokens[1], " "))
	a.Amount = amount
	return nil
}

// VerifyAction is checked right after the action is applied.
type VerifyAction struct {
	Stack *int64 `yaml:"stack"`
	Pot   *int64 `yaml:"pot"`
}

type BettingRoundVerification struct {
	State string   `yaml:"state"`
	Board []string `yaml:"board"`
	Pot   *int64   `yaml:"pot"`
}

type HandResult struct {
	Winners       []HandWinner   `yaml:"winners"`
	ActionEndedAt string         `yaml:"action-ended"`
	Pots          []Pot          `yaml:"pots"`
	Players       []ResultPlayer `yaml:"players"`
}

type HandWinner struct {
	Seat    uint32 `yaml:"seat"`
	Receive int64  `yaml:"receive"`
}

type Pot struct {
	Pot        int64    `yaml:"pot"`
	SeatsInPot []uint32 `yaml:"seats"`
}

type ResultPlayer struct {
	Seat  uint32 `yaml:"seat"`
	Stack int64  `yaml:"stack"`
}

// ReadGameScript reads and validates a script file.
func ReadGameScript(fileName string) (*Script, error) {
	bytes, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "Error reading game script file [%s]", fileName)
	}

	var script Script
	err = yaml.Unmarshal(bytes, &script)
	if err != nil {
		return nil, errors.Wrapf(err, "Error parsing YAML file [%s]", fileName)
	}

	err = script.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "Error validating script [%s]", fileName)
	}

	return &script, nil
}

func (s *Script) Validate() error {
	startingSeats := mapset.NewSet()
	playerNames := mapset.NewSet()

	// Check starting seat numbers and player names are unique.
	for _, seat := range s.StartingSeats {
		if startingSeats.Contains(seat.Seat) {
			return fmt.Errorf("Duplicate seat number [%d] in starting-seats", seat.Seat)
		}
		startingSeats.Add(seat.Seat)
		if playerNames.Contains(seat.Player) {
			return fmt.Errorf("Duplicate player name [%s] in starting-seats", seat.Player)
		}
		playerNames.Add(seat.Player)
	}

	// Validate each hand seat numbers and cards.
	for i, hand := range s.Hands {
		seatCardSeats := mapset.NewSet()
		usedCards := mapset.NewSet()
		handNum := i + 1

		if !startingSeats.Contains(hand.Setup.ButtonPos) {
			return fmt.Errorf("Button position [%d] is not a starting seat in hand %d", hand.Setup.ButtonPos, handNum)
		}

		// Check card setup has no duplicate seat number or card.
		for _, seatCards := range hand.Setup.SeatCards {
			if seatCardSeats.Contains(seatCards.Seat) {
				return fmt.Errorf("Duplicate seat number [%d] in hand %d seat-cards", seatCards.Seat, handNum)
			}
			if !startingSeats.Contains(seatCards.Seat) {
				return fmt.Errorf("Seat number [%d] is not valid for hand %d seat-cards", seatCards.Seat, handNum)
			}
			seatCardSeats.Add(seatCards.Seat)
			for _, c := range seatCards.Cards {
				if usedCards.Contains(c) {
					return fmt.Errorf("Card [%s] is used twice in hand %d", c, handNum)
				}
				usedCards.Add(c)
			}
		}
		for _, c := range hand.Setup.Board {
			if usedCards.Contains(c) {
				return fmt.Errorf("Card [%s] is used twice in hand %d", c, handNum)
			}
			usedCards.Add(c)
		}

		rounds := []struct {
			name  string
			round BettingRound
		}{
			{"preflop", hand.Preflop},
			{"flop", hand.Flop},
			{"turn", hand.Turn},
			{"river", hand.River},
		}
		for _, r := range rounds {
			for _, seatAction := range r.round.SeatActions {
				if !startingSeats.Contains(seatAction.Action.Seat) {
					return fmt.Errorf("Seat number [%d] is not valid for hand %d %s", seatAction.Action.Seat, handNum, r.name)
				}
			}
		}
	}

	return nil
}

// DealOrder returns the scripted hole cards in the order the dealer hands them
// out: clockwise starting with the seat after the button.
func (h *Hand) DealOrder(numSeats uint32) [][]string {
	bySeat := make(map[uint32][]string, len(h.Setup.SeatCards))
	for _, sc := range h.Setup.SeatCards {
		bySeat[sc.Seat] = sc.Cards
	}
	order := make([][]string, 0, len(bySeat))
	for i := uint32(1); i <= numSeats; i++ {
		seat := (h.Setup.ButtonPos + i) % numSeats
		if cards, ok := bySeat[seat]; ok {
			order = append(order, cards)
		}
	}
	return order
}

func (s *Script) GetSeatNoByPlayerName(playerName string) uint32 {
	for _, startingSeat := range s.StartingSeats {
		if startingSeat.Player == playerName {
			return startingSeat.Seat
		}
	}
	return 0
}

func (s *Script) GetHand(handNum uint32) Hand {
	return s.Hands[handNum-1]
}
