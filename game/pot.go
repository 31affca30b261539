package game

import "sort"

type contribution struct {
	seat   int
	amount int64
	live   bool
}

type sidePot struct {
	amount   int64
	eligible []int
}

// buildPots splits hand contributions into a main pot and side pots. Every
// distinct live contribution level caps a pot; a pot is contested by the live
// players who reached its level. Folded and departed chips fill the pots but
// never make a player eligible. Chips above the highest live level stay in the
// last pot. The top pot may have a single eligible seat, which is the uncalled
// part of a bet going back to its owner.
func buildPots(contribs []contribution) []sidePot {
	var levels []int64
	seenLevel := make(map[int64]bool)
	for _, c := range contribs {
		if c.live && c.amount > 0 && !seenLevel[c.amount] {
			seenLevel[c.amount] = true
			levels = append(levels, c.amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []sidePot
	prev := int64(0)
	for _, level := range levels {
		pot := sidePot{}
		for _, c := range contribs {
			pot.amount += min64(c.amount, level) - min64(c.amount, prev)
			if c.live && c.amount >= level {
				pot.eligible = append(pot.eligible, c.seat)
			}
		}
		sort.Ints(pot.eligible)
		pots = append(pots, pot)
		prev = level
	}

	var excess int64
	for _, c := range contribs {
		if c.amount > prev {
			excess += c.amount - prev
		}
	}
	if excess > 0 {
		if len(pots) == 0 {
			var everyone []int
			for _, c := range contribs {
				if c.live {
					everyone = append(everyone, c.seat)
				}
			}
			sort.Ints(everyone)
			pots = append(pots, sidePot{eligible: everyone})
		}
		pots[len(pots)-1].amount += excess
	}
	return pots
}

// splitPot divides amount between the winners. Odd chips go one at a time to
// the winners closest to the dealer's left.
func splitPot(amount int64, winners []int, dealer int) []int64 {
	if len(winners) == 0 {
		return nil
	}
	ordered := clockwiseFrom(winners, dealer)
	share := amount / int64(len(ordered))
	rem := amount % int64(len(ordered))
	shares := make([]int64, len(ordered))
	for i := range ordered {
		shares[i] = share
		if int64(i) < rem {
			shares[i]++
		}
	}
	// report shares in the order of the winners given
	bySeat := make(map[int]int64, len(ordered))
	for i, seat := range ordered {
		bySeat[seat] = shares[i]
	}
	ret := make([]int64, len(winners))
	for i, seat := range winners {
		ret[i] = bySeat[seat]
	}
	return ret
}

// clockwiseFrom orders seats by distance clockwise from the seat after dealer.
func clockwiseFrom(seats []int, dealer int) []int {
	ordered := append([]int(nil), seats...)
	dist := func(seat int) int {
		return ((seat-dealer-1)%NumSeats + NumSeats) % NumSeats
	}
	sort.Slice(ordered, func(i, j int) bool { return dist(ordered[i]) < dist(ordered[j]) })
	return ordered
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
