package game

import (
	"voyager.com/tableserver/poker"
)

type SeatView struct {
	Seat       int      `json:"seat"`
	PlayerID   string   `json:"playerId"`
	Name       string   `json:"name"`
	IsBot      bool     `json:"isBot"`
	Chips      int64    `json:"chips"`
	CurrentBet int64    `json:"currentBet"`
	TotalBet   int64    `json:"totalBet"`
	HasFolded  bool     `json:"hasFolded"`
	IsAllIn    bool     `json:"isAllIn"`
	HasActed   bool     `json:"hasActed"`
	InHand     bool     `json:"inHand"`
	Status     string   `json:"status"`
	IsDealer   bool     `json:"isDealer"`
	IsWinner   bool     `json:"isWinner"`
	CardCount  int      `json:"cardCount"`
	HoleCards  []string `json:"holeCards,omitempty"`
}

type LegalActions struct {
	Seat     int   `json:"seat"`
	ToCall   int64 `json:"toCall"`
	CanCheck bool  `json:"canCheck"`
	CanRaise bool  `json:"canRaise"`
	// raise amounts are raise-to totals
	MinRaiseTo int64 `json:"minRaiseTo"`
	MaxRaiseTo int64 `json:"maxRaiseTo"`
}

// TableSnapshot is the table as seen by one viewer. Other players' hole cards
// are hidden unless the hand went to a contested showdown.
type TableSnapshot struct {
	TableID         string        `json:"tableId"`
	Name            string        `json:"name"`
	GameType        GameType      `json:"gameType"`
	Phase           string        `json:"phase"`
	HandID          string        `json:"handId"`
	HandNum         uint32        `json:"handNum"`
	Seats           []*SeatView   `json:"seats"`
	Community       []string      `json:"community"`
	Pot             int64         `json:"pot"`
	CenterPot       int64         `json:"centerPot"`
	CurrentBet      int64         `json:"currentBet"`
	MinRaise        int64         `json:"minRaise"`
	SmallBlind      int64         `json:"smallBlind"`
	BigBlind        int64         `json:"bigBlind"`
	DealerIndex     int           `json:"dealerIndex"`
	ActiveSeatIndex int           `json:"activeSeatIndex"`
	Tournament      bool          `json:"tournament"`
	Settlement      *Settlement   `json:"settlement,omitempty"`
	Legal           *LegalActions `json:"legal,omitempty"`
}

// Snapshot returns the table from viewerID's point of view. An empty viewer
// sees only public information.
func (t *Table) Snapshot(viewerID string) TableSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(viewerID)
}

func (t *Table) snapshot(viewerID string) TableSnapshot {
	s := TableSnapshot{
		TableID:         t.id,
		Name:            t.opts.Name,
		GameType:        t.opts.GameType,
		Phase:           t.phase.String(),
		HandID:          t.handID,
		HandNum:         t.handNum,
		Seats:           make([]*SeatView, NumSeats),
		Community:       poker.CardsToStrings(t.community),
		Pot:             t.pot,
		CurrentBet:      t.currentBet,
		MinRaise:        t.minRaise,
		SmallBlind:      t.smallBlind,
		BigBlind:        t.bigBlind,
		DealerIndex:     t.dealerIndex,
		ActiveSeatIndex: t.activeSeat,
		Tournament:      t.opts.Tournament,
		Settlement:      t.settlement,
	}
	s.CenterPot = t.pot
	for i, p := range t.seats {
		if p == nil {
			continue
		}
		s.CenterPot -= p.CurrentBet
		v := &SeatView{
			Seat:       i,
			PlayerID:   p.ID(),
			Name:       p.Identity.Name,
			IsBot:      p.Identity.IsBot,
			Chips:      p.Chips,
			CurrentBet: p.CurrentBet,
			TotalBet:   p.TotalBet,
			HasFolded:  p.HasFolded,
			IsAllIn:    p.IsAllIn,
			HasActed:   p.HasActed,
			InHand:     p.InHand,
			Status:     string(p.Status),
			IsDealer:   p.IsDealer,
			IsWinner:   p.IsWinner,
			CardCount:  len(p.HoleCards),
		}
		showCards := p.ID() == viewerID || (t.phase == Showdown && t.revealed && p.live())
		if showCards && len(p.HoleCards) > 0 {
			v.HoleCards = poker.CardsToStrings(p.HoleCards)
		}
		s.Seats[i] = v

		if p.ID() == viewerID && i == t.activeSeat && t.phase.Betting() {
			s.Legal = t.legalActions(p)
		}
	}
	return s
}

func (t *Table) legalActions(p *Player) *LegalActions {
	toCall := t.currentBet - p.CurrentBet
	if toCall < 0 {
		toCall = 0
	}
	if toCall > p.Chips {
		toCall = p.Chips
	}
	la := &LegalActions{
		Seat:     p.SeatIndex,
		ToCall:   toCall,
		CanCheck: p.CurrentBet == t.currentBet,
	}
	la.MinRaiseTo, la.MaxRaiseTo, la.CanRaise = t.raiseBounds(p)
	return la
}

// DecisionView is what a bot sees on its turn.
type DecisionView struct {
	TableID     string
	HandID      string
	Seat        int
	Phase       Phase
	GameType    GameType
	Hole        []poker.Card
	Community   []poker.Card
	Chips       int64
	PlayerBet   int64
	TableBet    int64
	ToCall      int64
	CanRaise    bool
	MinRaiseTo  int64
	MaxRaiseTo  int64
	BigBlind    int64
	Pot         int64
	LivePlayers int
}

func (t *Table) decisionView(seat int) DecisionView {
	p := t.seats[seat]
	la := t.legalActions(p)
	return DecisionView{
		TableID:     t.id,
		HandID:      t.handID,
		Seat:        seat,
		Phase:       t.phase,
		GameType:    t.opts.GameType,
		Hole:        append([]poker.Card(nil), p.HoleCards...),
		Community:   append([]poker.Card(nil), t.community...),
		Chips:       p.Chips,
		PlayerBet:   p.CurrentBet,
		TableBet:    t.currentBet,
		ToCall:      la.ToCall,
		CanRaise:    la.CanRaise,
		MinRaiseTo:  la.MinRaiseTo,
		MaxRaiseTo:  la.MaxRaiseTo,
		BigBlind:    t.bigBlind,
		Pot:         t.pot,
		LivePlayers: t.count((*Player).live),
	}
}

// CommunityCount is the number of board cards dealt.
func (t *Table) CommunityCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.community)
}

// ExpectedCommunity is how many board cards a phase should show.
func ExpectedCommunity(p Phase) int {
	return p.communityCards()
}
