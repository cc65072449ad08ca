// Package stats reduces a user's bets into dashboard aggregates. Every
// function here is pure: callers load the bets and pass the clock.
package stats

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// Summary is the headline statistics block.
type Summary struct {
	TotalBets      int     `json:"totalBets"`
	WonBets        int     `json:"wonBets"`
	LostBets       int     `json:"lostBets"`
	PendingBets    int     `json:"pendingBets"`
	CancelledBets  int     `json:"cancelledBets"`
	SettledBets    int     `json:"settledBets"`
	TotalStaked    float64 `json:"totalStaked"`
	TotalWon       float64 `json:"totalWon"`
	TotalLost      float64 `json:"totalLost"`
	NetProfit      float64 `json:"netProfit"`
	SuccessRate    float64 `json:"successRate"`
	InvestedAmount float64 `json:"investedAmount"`
	ROI            float64 `json:"roi"`
}

// Summarize aggregates bets. Only won bets contribute to TotalWon, so a
// cancelled refund is not counted as winnings. Cancelled stakes are left out
// of InvestedAmount.
func Summarize(bets []domain.Bet) Summary {
	var s Summary
	var staked, won, lost, invested decimal.Decimal
	for i := range bets {
		b := &bets[i]
		stake := decimal.NewFromFloat(b.Stake)
		staked = staked.Add(stake)

		switch b.Status {
		case domain.BetStatusWon:
			s.WonBets++
			won = won.Add(decimal.NewFromFloat(payout(b)))
		case domain.BetStatusLost:
			s.LostBets++
			lost = lost.Add(stake)
		case domain.BetStatusPending:
			s.PendingBets++
		case domain.BetStatusCancelled:
			s.CancelledBets++
		}
		if b.Status != domain.BetStatusCancelled {
			invested = invested.Add(stake)
		}
	}

	net := won.Sub(lost)
	s.TotalBets = len(bets)
	s.SettledBets = s.WonBets + s.LostBets
	s.TotalStaked = staked.InexactFloat64()
	s.TotalWon = won.InexactFloat64()
	s.TotalLost = lost.InexactFloat64()
	s.NetProfit = net.InexactFloat64()
	s.InvestedAmount = invested.InexactFloat64()

	if s.SettledBets > 0 {
		s.SuccessRate = finite(float64(s.WonBets) / float64(s.SettledBets) * 100)
	}
	if !invested.IsZero() {
		s.ROI = finite(net.Div(invested).Mul(decimal.NewFromInt(100)).InexactFloat64())
	}
	return s
}

// payout is the recorded actual_win, or the derived one for rows written
// before the payout was stored.
func payout(b *domain.Bet) float64 {
	if b.ActualWin != nil {
		return *b.ActualWin
	}
	if p := domain.ComputePayout(b.Status, b.Stake, b.Odds); p != nil {
		return *p
	}
	return 0
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
