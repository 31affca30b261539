package gamescript

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func getInt64Pointer(v int64) *int64 {
	return &v
}

func getUint32Pointer(v uint32) *uint32 {
	return &v
}

func TestReadGameScript(t *testing.T) {
	script, err := ReadGameScript("test_scripts/script1.yaml")
	if err != nil {
		t.Fatalf("ReadGameScript returned error [%s]", err)
	}
	if script == nil {
		t.Fatal("ReadGameScript returned nil data")
	}

	expectedScript := Script{
		Table: Table{
			Title:      "NLH heads up",
			GameType:   "NLH",
			SmallBlind: 10,
			BigBlind:   20,
		},
		StartingSeats: []StartingSeat{
			{Seat: 0, Player: "yong", BuyIn: 1000},
			{Seat: 1, Player: "brian", BuyIn: 1000, Bot: true},
		},
		Hands: []Hand{
			{
				Num: 1,
				Setup: HandSetup{
					ButtonPos: 0,
					Board:     []string{"2s", "7h", "9d", "Jc", "3s"},
					SeatCards: []SeatCards{
						{Seat: 1, Cards: []string{"As", "Kd"}},
						{Seat: 0, Cards: []string{"Qh", "Qc"}},
					},
					Verify: HandSetupVerfication{
						SBPos:         getUint32Pointer(1),
						BBPos:         getUint32Pointer(0),
						NextActionPos: getUint32Pointer(1),
						Pot:           getInt64Pointer(30),
					},
				},
				Preflop: BettingRound{
					SeatActions: []SeatAction{
						{
							Action: Action{Seat: 1, Action: "call"},
							Verify: &VerifyAction{Stack: getInt64Pointer(980)},
						},
						{
							Action: Action{Seat: 0, Action: "check"},
						},
					},
					Verify: BettingRoundVerification{
						State: "FLOP",
						Board: []string{"2s", "7h", "9d"},
						Pot:   getInt64Pointer(40),
					},
				},
				Result: HandResult{
					Winners: []HandWinner{{Seat: 0, Receive: 40}},
				},
			},
		},
	}

	if diff := cmp.Diff(expectedScript, *script); diff != "" {
		t.Errorf("Script is different from expected\n%s", diff)
	}
}

func TestReadGameScriptRejectsDuplicateCards(t *testing.T) {
	_, err := ReadGameScript("test_scripts/duplicate_card.yaml")
	if err == nil {
		t.Fatal("ReadGameScript accepted a script that deals As twice")
	}
	if !strings.Contains(err.Error(), "used twice") {
		t.Errorf("Unexpected error [%s]", err)
	}
}

func TestValidateSeats(t *testing.T) {
	script := Script{
		StartingSeats: []StartingSeat{
			{Seat: 0, Player: "yong"},
			{Seat: 0, Player: "brian"},
		},
	}
	if err := script.Validate(); err == nil {
		t.Error("Validate accepted duplicate starting seats")
	}

	script = Script{
		StartingSeats: []StartingSeat{
			{Seat: 0, Player: "yong"},
			{Seat: 1, Player: "brian"},
		},
		Hands: []Hand{{
			Setup:   HandSetup{ButtonPos: 0},
			Preflop: BettingRound{SeatActions: []SeatAction{{Action: Action{Seat: 4, Action: "fold"}}}},
		}},
	}
	if err := script.Validate(); err == nil {
		t.Error("Validate accepted an action from an empty seat")
	}
}

func TestDealOrder(t *testing.T) {
	hand := Hand{
		Setup: HandSetup{
			ButtonPos: 3,
			SeatCards: []SeatCards{
				{Seat: 0, Cards: []string{"As", "Ad"}},
				{Seat: 3, Cards: []string{"Ks", "Kd"}},
				{Seat: 5, Cards: []string{"Qs", "Qd"}},
			},
		},
	}
	expected := [][]string{
		{"Qs", "Qd"},
		{"As", "Ad"},
		{"Ks", "Kd"},
	}
	if diff := cmp.Diff(expected, hand.DealOrder(6)); diff != "" {
		t.Errorf("DealOrder is different from expected\n%s", diff)
	}
}
