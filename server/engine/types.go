package engine

import "errors"

// Seat is a table position at a 6-max table.
type Seat string

const (
	UTG Seat = "UTG"
	HJ  Seat = "HJ"
	CO  Seat = "CO"
	BTN Seat = "BTN"
	SB  Seat = "SB"
	BB  Seat = "BB"
)

// Seats lists every seat in table order.
var Seats = []Seat{UTG, HJ, CO, BTN, SB, BB}

func (s Seat) Valid() bool {
	for _, x := range Seats {
		if s == x {
			return true
		}
	}
	return false
}

type Card struct {
	Rank int
	Suit byte
} // e.g. "As" => rank 14, suit 's'

// Combo is one concrete two-card starting hand. A always sorts before B by
// canonical text; build combos with NewCombo.
type Combo struct {
	A, B Card
}

var (
	ErrInvalidCard   = errors.New("invalid card")
	ErrDuplicateCard = errors.New("duplicate card on board")
)
