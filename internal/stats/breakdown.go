package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// Range selects how far back the analysis breakdown looks.
type Range string

const (
	Range1Month  Range = "1month"
	Range3Months Range = "3months"
	Range6Months Range = "6months"
	Range1Year   Range = "1year"
	RangeAll     Range = "all"
)

// ParseRange validates a breakdown range. An empty string means all.
func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case "":
		return RangeAll, nil
	case Range1Month, Range3Months, Range6Months, Range1Year, RangeAll:
		return r, nil
	}
	return "", domain.ErrValidation(fmt.Sprintf("période inconnue: %q", s))
}

// Cutoff returns the earliest creation time kept for r, or the zero time
// for RangeAll.
func (r Range) Cutoff(now time.Time) time.Time {
	switch r {
	case Range1Month:
		return now.AddDate(0, -1, 0)
	case Range3Months:
		return now.AddDate(0, -3, 0)
	case Range6Months:
		return now.AddDate(0, -6, 0)
	case Range1Year:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

// MonthPoint is a month's won payouts against lost stakes.
type MonthPoint struct {
	Start  time.Time `json:"start"`
	Name   string    `json:"name"`
	Profit float64   `json:"profit"`
	Loss   float64   `json:"loss"`
	Value  float64   `json:"value"`
}

// Share is one slice of a distribution.
type Share struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Percentage int    `json:"value"`
}

// BreakdownReport feeds the analysis dashboard.
type BreakdownReport struct {
	Range    Range        `json:"range"`
	Total    int          `json:"total"`
	Monthly  []MonthPoint `json:"monthly"`
	BetTypes []Share      `json:"betTypes"`
	Sports   []Share      `json:"sports"`
	Markets  []Share      `json:"markets"`
}

// Breakdown computes monthly results and distributions by bet type, sport and
// market category for bets created in r.
func Breakdown(bets []domain.Bet, r Range, now time.Time, loc *time.Location) BreakdownReport {
	if loc == nil {
		loc = time.UTC
	}
	cutoff := r.Cutoff(now)

	type month struct {
		point        MonthPoint
		profit, loss decimal.Decimal
	}
	months := make(map[int64]*month)
	types := make(map[string]int)
	sports := make(map[string]int)
	markets := make(map[string]int)
	total := 0

	for i := range bets {
		b := &bets[i]
		if !cutoff.IsZero() && b.CreatedAt.Before(cutoff) {
			continue
		}
		total++

		start := startOfMonth(b.CreatedAt.In(loc))
		m, ok := months[start.Unix()]
		if !ok {
			m = &month{point: MonthPoint{Start: start, Name: monthLabel(start)}}
			months[start.Unix()] = m
		}
		switch b.Status {
		case domain.BetStatusWon:
			m.profit = m.profit.Add(decimal.NewFromFloat(payout(b)))
		case domain.BetStatusLost:
			m.loss = m.loss.Add(decimal.NewFromFloat(b.Stake))
		}

		types[betTypeName(b.BetType)]++
		sports[b.Sport]++
		markets[MarketCategory(b.Prediction)]++
	}

	report := BreakdownReport{
		Range:    r,
		Total:    total,
		Monthly:  make([]MonthPoint, 0, len(months)),
		BetTypes: shares(types, total),
		Sports:   shares(sports, total),
		Markets:  shares(markets, total),
	}
	for _, m := range months {
		m.point.Profit = m.profit.Round(2).InexactFloat64()
		m.point.Loss = m.loss.Round(2).InexactFloat64()
		m.point.Value = m.profit.Sub(m.loss).Round(2).InexactFloat64()
		report.Monthly = append(report.Monthly, m.point)
	}
	sort.Slice(report.Monthly, func(i, j int) bool {
		return report.Monthly[i].Start.Before(report.Monthly[j].Start)
	})
	return report
}

// Market categories derived from prediction text.
const (
	MarketWin      = "Victoire"
	MarketGoals    = "Buts/Total"
	MarketHandicap = "Handicap"
	MarketScore    = "Score exact"
	MarketCards    = "Cartons"
	MarketOther    = "Autres"
)

var marketKeywords = []struct {
	category string
	words    []string
}{
	{MarketWin, []string{"victoire", "win", "1x2"}},
	{MarketGoals, []string{"but", "goal", "total"}},
	{MarketHandicap, []string{"handicap"}},
	{MarketScore, []string{"score", "exact"}},
	{MarketCards, []string{"carton", "card"}},
}

// MarketCategory classifies a prediction by the first keyword group it
// contains, case-insensitively.
func MarketCategory(prediction string) string {
	p := strings.ToLower(prediction)
	for _, k := range marketKeywords {
		for _, w := range k.words {
			if strings.Contains(p, w) {
				return k.category
			}
		}
	}
	return MarketOther
}

func betTypeName(t domain.BetType) string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shares(counts map[string]int, total int) []Share {
	out := make([]Share, 0, len(counts))
	for name, n := range counts {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(n) / float64(total) * 100))
		}
		out = append(out, Share{Name: name, Count: n, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
