package history

import "math"

// PlayerStats are running totals across every closed hand a player was dealt into.
type PlayerStats struct {
	PlayerID    string  `json:"playerId"`
	HandsPlayed int     `json:"handsPlayed"`
	HandsWon    int     `json:"handsWon"`
	VPIPHands   int     `json:"vpipHands"`
	PFRHands    int     `json:"pfrHands"`
	VPIP        float64 `json:"vpip"`
	PFR         float64 `json:"pfr"`
}

const preflopPhase = "PREFLOP"

func (s *PlayerStats) computePercentages() {
	if s.HandsPlayed == 0 {
		s.VPIP, s.PFR = 0, 0
		return
	}
	s.VPIP = roundOne(100 * float64(s.VPIPHands) / float64(s.HandsPlayed))
	s.PFR = roundOne(100 * float64(s.PFRHands) / float64(s.HandsPlayed))
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// updateStats is called with r.mu held.
func (r *Recorder) updateStats(h *HandHistory) {
	vpip := make(map[string]bool)
	pfr := make(map[string]bool)
	won := make(map[string]bool)
	for _, e := range h.Entries {
		switch e.Type {
		case EntryAction:
			if e.Phase != preflopPhase {
				continue
			}
			switch e.Action {
			case "call":
				if e.Amount > 0 {
					vpip[e.PlayerID] = true
				}
			case "raise":
				vpip[e.PlayerID] = true
				pfr[e.PlayerID] = true
			}
		case EntryShowdown:
			for _, a := range e.Awards {
				if a.Amount > 0 {
					won[a.PlayerID] = true
				}
			}
		}
	}

	for _, p := range h.Players {
		s := r.statsFor(p.PlayerID)
		s.HandsPlayed++
		if vpip[p.PlayerID] {
			s.VPIPHands++
		}
		if pfr[p.PlayerID] {
			s.PFRHands++
		}
		if won[p.PlayerID] {
			s.HandsWon++
		}
	}
}
