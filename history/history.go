package history

import (
	"time"

	"github.com/pkg/errors"
)

var (
	ErrHandNotFound = errors.New("hand history not found")
	ErrHandExists   = errors.New("hand history already open")
	ErrHandClosed   = errors.New("hand history is closed")
)

type EntryType string

const (
	EntryBlind     EntryType = "blind"
	EntryAction    EntryType = "action"
	EntryCommunity EntryType = "community"
	EntryShowdown  EntryType = "showdown"
	EntryState     EntryType = "state"
)

// PlayerRecord is a seat as it stood when the hand was dealt.
type PlayerRecord struct {
	Seat      int      `json:"seat"`
	PlayerID  string   `json:"playerId"`
	Name      string   `json:"name"`
	IsBot     bool     `json:"isBot"`
	Chips     int64    `json:"chips"`
	HoleCards []string `json:"holeCards"`
}

type Award struct {
	Pot      int    `json:"pot"`
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Amount   int64  `json:"amount"`
	Hand     string `json:"hand,omitempty"`
}

type SeatStack struct {
	Seat  int   `json:"seat"`
	Chips int64 `json:"chips"`
	Bet   int64 `json:"bet"`
}

type Entry struct {
	Seq      int         `json:"seq"`
	At       time.Time   `json:"at"`
	Type     EntryType   `json:"type"`
	Phase    string      `json:"phase"`
	Seat     int         `json:"seat"`
	PlayerID string      `json:"playerId,omitempty"`
	Action   string      `json:"action,omitempty"`
	Amount   int64       `json:"amount,omitempty"`
	Cards    []string    `json:"cards,omitempty"`
	Pot      int64       `json:"pot"`
	Awards   []Award     `json:"awards,omitempty"`
	Stacks   []SeatStack `json:"stacks,omitempty"`
	Note     string      `json:"note,omitempty"`
}

type HandHistory struct {
	HandID     string         `json:"handId"`
	TableID    string         `json:"tableId"`
	HandNum    uint32         `json:"handNum"`
	GameType   string         `json:"gameType"`
	SmallBlind int64          `json:"smallBlind"`
	BigBlind   int64          `json:"bigBlind"`
	DealerSeat int            `json:"dealerSeat"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
	Players    []PlayerRecord `json:"players"`
	Board      []string       `json:"board"`
	Entries    []Entry        `json:"entries"`
}

func (h *HandHistory) copy() *HandHistory {
	c := *h
	c.Players = append([]PlayerRecord(nil), h.Players...)
	c.Board = append([]string(nil), h.Board...)
	c.Entries = append([]Entry(nil), h.Entries...)
	return &c
}

// Store persists closed hands.
type Store interface {
	Save(h *HandHistory) error
	Load(handID string) (*HandHistory, error)
	// TableHands lists the most recent hand ids of a table, newest first.
	TableHands(tableID string, limit int) ([]string, error)
}
