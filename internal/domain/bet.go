package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetType is the stored bet_type value.
type BetType string

const (
	BetTypeSimple   BetType = "simple"
	BetTypeCombined BetType = "combine"
	BetTypeSystem   BetType = "systeme"
)

// BetStatus is the resolution state of a bet. Any status may follow any other.
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCancelled BetStatus = "cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s BetStatus) Valid() bool {
	switch s {
	case BetStatusPending, BetStatusWon, BetStatusLost, BetStatusCancelled:
		return true
	}
	return false
}

// Bet represents a bets row.
type Bet struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	MatchName       string    `json:"match_name"`
	Sport           string    `json:"sport"`
	Competition     *string   `json:"competition"`
	BetType         BetType   `json:"bet_type"`
	Prediction      string    `json:"prediction"`
	Odds            float64   `json:"odds"`
	Stake           float64   `json:"stake"`
	PotentialWin    *float64  `json:"potential_win"`
	ActualWin       *float64  `json:"actual_win"`
	MatchDate       *string   `json:"match_date"`
	MatchTime       *string   `json:"match_time"`
	Bookmaker       *string   `json:"bookmaker"`
	TicketID        *string   `json:"ticket_id"`
	Status          BetStatus `json:"status"`
	ConfidenceScore *float64  `json:"confidence_score"`
	IsOCRExtracted  bool      `json:"is_ocr_extracted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ComputePayout derives actual_win from the bet's status. Every write path
// goes through it: won pays odds x stake, cancelled refunds the stake, lost
// and pending have no payout.
func ComputePayout(status BetStatus, stake, odds float64) *float64 {
	switch status {
	case BetStatusWon:
		v := multiply(odds, stake)
		return &v
	case BetStatusCancelled:
		v := stake
		return &v
	default:
		return nil
	}
}

// PotentialWin is odds x stake rounded to cents.
func PotentialWin(odds, stake float64) float64 {
	return multiply(odds, stake)
}

// Column precision: odds numeric(10,3), stake numeric(12,2) and payouts
// numeric(14,2). MaxOdds x MaxStake stays inside the payout column.
const (
	OddsPlaces  = 3
	MoneyPlaces = 2

	MaxOdds         = 1000
	MaxStake        = 999999999.99
	MaxPotentialWin = 999999999999.99
)

// Round rounds v half away from zero to places decimals, the way Postgres
// stores it in a numeric column.
func Round(v float64, places int32) float64 {
	r, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return r
}

func roundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v, places)
	return &r
}

func multiply(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).Float64()
	return v
}

// CreateBetInput holds the fields a client may set when logging a bet.
// actual_win is absent on purpose: it is always derived from status.
type CreateBetInput struct {
	MatchName       string    `json:"match_name" validate:"required,notblank,max=200"`
	Sport           string    `json:"sport" validate:"required,notblank,max=100"`
	Competition     *string   `json:"competition" validate:"omitempty,max=200"`
	BetType         BetType   `json:"bet_type" validate:"required,oneof=simple combine systeme"`
	Prediction      string    `json:"prediction" validate:"required,notblank,max=500"`
	Odds            float64   `json:"odds" validate:"gte=0.001,lte=1000"`
	Stake           float64   `json:"stake" validate:"gte=0.01,lte=999999999.99"`
	PotentialWin    *float64  `json:"potential_win" validate:"omitempty,gte=0,lte=999999999999.99"`
	MatchDate       *string   `json:"match_date" validate:"omitempty,datetime=2006-01-02"`
	MatchTime       *string   `json:"match_time" validate:"omitempty,datetime=15:04"`
	Bookmaker       *string   `json:"bookmaker" validate:"omitempty,max=100"`
	TicketID        *string   `json:"ticket_id" validate:"omitempty,max=100"`
	Status          BetStatus `json:"status" validate:"omitempty,oneof=pending won lost cancelled"`
	ConfidenceScore *float64  `json:"confidence_score" validate:"omitempty,gte=0,lte=1"`
	IsOCRExtracted  bool      `json:"is_ocr_extracted"`
}

// NewBet builds a bet owned by userID from a validated input. Numbers are
// rounded to their column precision before payouts are derived, so the
// returned bet matches the stored row.
func NewBet(userID uuid.UUID, in CreateBetInput, now time.Time) *Bet {
	status := in.Status
	if status == "" {
		status = BetStatusPending
	}
	odds := Round(in.Odds, OddsPlaces)
	stake := Round(in.Stake, MoneyPlaces)
	potential := roundPtr(in.PotentialWin, MoneyPlaces)
	if potential == nil {
		v := PotentialWin(odds, stake)
		potential = &v
	}
	return &Bet{
		ID:              uuid.New(),
		UserID:          userID,
		MatchName:       strings.TrimSpace(in.MatchName),
		Sport:           strings.TrimSpace(in.Sport),
		Competition:     blankToNil(in.Competition),
		BetType:         in.BetType,
		Prediction:      strings.TrimSpace(in.Prediction),
		Odds:            odds,
		Stake:           stake,
		PotentialWin:    potential,
		ActualWin:       ComputePayout(status, stake, odds),
		MatchDate:       blankToNil(in.MatchDate),
		MatchTime:       blankToNil(in.MatchTime),
		Bookmaker:       blankToNil(in.Bookmaker),
		TicketID:        blankToNil(in.TicketID),
		Status:          status,
		ConfidenceScore: roundPtr(in.ConfidenceScore, MoneyPlaces),
		IsOCRExtracted:  in.IsOCRExtracted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// BetPatch is a partial update. Nil fields are left untouched; an empty
// string clears an optional text field.
type BetPatch struct {
	MatchName       *string    `json:"match_name" validate:"omitempty,notblank,max=200"`
	Sport           *string    `json:"sport" validate:"omitempty,notblank,max=100"`
	Competition     *string    `json:"competition" validate:"omitempty,max=200"`
	BetType         *BetType   `json:"bet_type" validate:"omitempty,oneof=simple combine systeme"`
	Prediction      *string    `json:"prediction" validate:"omitempty,notblank,max=500"`
	Odds            *float64   `json:"odds" validate:"omitempty,gte=0.001,lte=1000"`
	Stake           *float64   `json:"stake" validate:"omitempty,gte=0.01,lte=999999999.99"`
	PotentialWin    *float64   `json:"potential_win" validate:"omitempty,gte=0,lte=999999999999.99"`
	MatchDate       *string    `json:"match_date" validate:"omitempty,datetime=2006-01-02"`
	MatchTime       *string    `json:"match_time" validate:"omitempty,datetime=15:04"`
	Bookmaker       *string    `json:"bookmaker" validate:"omitempty,max=100"`
	TicketID        *string    `json:"ticket_id" validate:"omitempty,max=100"`
	Status          *BetStatus `json:"status" validate:"omitempty,oneof=pending won lost cancelled"`
	ConfidenceScore *float64   `json:"confidence_score" validate:"omitempty,gte=0,lte=1"`
}

// IsEmpty reports whether the patch changes nothing.
func (p BetPatch) IsEmpty() bool {
	return p == BetPatch{}
}

// Apply mutates b with the patch and re-derives actual_win. potential_win
// follows odds and stake unless the patch sets it explicitly.
func (p BetPatch) Apply(b *Bet, now time.Time) {
	if p.MatchName != nil {
		b.MatchName = strings.TrimSpace(*p.MatchName)
	}
	if p.Sport != nil {
		b.Sport = strings.TrimSpace(*p.Sport)
	}
	if p.Competition != nil {
		b.Competition = blankToNil(p.Competition)
	}
	if p.BetType != nil {
		b.BetType = *p.BetType
	}
	if p.Prediction != nil {
		b.Prediction = strings.TrimSpace(*p.Prediction)
	}
	if p.Odds != nil {
		b.Odds = Round(*p.Odds, OddsPlaces)
	}
	if p.Stake != nil {
		b.Stake = Round(*p.Stake, MoneyPlaces)
	}
	switch {
	case p.PotentialWin != nil:
		b.PotentialWin = roundPtr(p.PotentialWin, MoneyPlaces)
	case p.Odds != nil || p.Stake != nil:
		v := PotentialWin(b.Odds, b.Stake)
		b.PotentialWin = &v
	}
	if p.MatchDate != nil {
		b.MatchDate = blankToNil(p.MatchDate)
	}
	if p.MatchTime != nil {
		b.MatchTime = blankToNil(p.MatchTime)
	}
	if p.Bookmaker != nil {
		b.Bookmaker = blankToNil(p.Bookmaker)
	}
	if p.TicketID != nil {
		b.TicketID = blankToNil(p.TicketID)
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.ConfidenceScore != nil {
		b.ConfidenceScore = roundPtr(p.ConfidenceScore, MoneyPlaces)
	}
	b.ActualWin = ComputePayout(b.Status, b.Stake, b.Odds)
	b.UpdatedAt = now
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
