package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// Period is a performance window in days.
type Period int

const (
	PeriodWeek    Period = 7
	PeriodMonth   Period = 30
	PeriodQuarter Period = 90
	PeriodYear    Period = 365
)

// ParsePeriod accepts "7", "30", "90" or "365". An empty string means 30.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "":
		return PeriodMonth, nil
	case "7":
		return PeriodWeek, nil
	case "30":
		return PeriodMonth, nil
	case "90":
		return PeriodQuarter, nil
	case "365":
		return PeriodYear, nil
	}
	return 0, domain.ErrValidation(fmt.Sprintf("période inconnue: %q", s))
}

// Granularity is the bucket width for a period.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Granularity returns day up to 30 days, ISO week for 90 and month for 365.
func (p Period) Granularity() Granularity {
	switch {
	case p <= PeriodMonth:
		return GranularityDay
	case p <= PeriodQuarter:
		return GranularityWeek
	default:
		return GranularityMonth
	}
}

// emptyBuckets is how many zero buckets are synthesized when no bet falls
// in the window.
func (p Period) emptyBuckets() int {
	switch p.Granularity() {
	case GranularityDay:
		return int(p)
	case GranularityWeek:
		return 13
	default:
		return 12
	}
}

// Bucket is one chart point.
type Bucket struct {
	Start     time.Time `json:"start"`
	Label     string    `json:"date"`
	Profit    float64   `json:"profit"`
	Bets      int       `json:"bets"`
	Won       int       `json:"won"`
	Lost      int       `json:"lost"`
	Pending   int       `json:"pending"`
	Cancelled int       `json:"cancelled"`
}

// PerformanceReport is the response for a performance request.
type PerformanceReport struct {
	Period      Period      `json:"period"`
	Granularity Granularity `json:"granularity"`
	From        time.Time   `json:"from"`
	Buckets     []Bucket    `json:"buckets"`
}

// Performance buckets bets created since the start of day (now - period) in
// loc. Buckets are returned in chronological order. When nothing falls in
// range, zero buckets covering the period are synthesized instead.
func Performance(bets []domain.Bet, period Period, now time.Time, loc *time.Location) PerformanceReport {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	cutoff := startOfDay(now.AddDate(0, 0, -int(period)))
	gran := period.Granularity()

	type acc struct {
		bucket Bucket
		profit decimal.Decimal
	}
	byStart := make(map[int64]*acc)

	for i := range bets {
		b := &bets[i]
		created := b.CreatedAt.In(loc)
		if created.Before(cutoff) {
			continue
		}
		start := bucketStart(created, gran)
		a, ok := byStart[start.Unix()]
		if !ok {
			a = &acc{bucket: Bucket{Start: start, Label: bucketLabel(start, gran)}}
			byStart[start.Unix()] = a
		}
		a.bucket.Bets++
		stake := decimal.NewFromFloat(b.Stake)
		switch b.Status {
		case domain.BetStatusWon:
			a.bucket.Won++
			a.profit = a.profit.Add(decimal.NewFromFloat(payout(b)).Sub(stake))
		case domain.BetStatusLost:
			a.bucket.Lost++
			a.profit = a.profit.Sub(stake)
		case domain.BetStatusPending:
			a.bucket.Pending++
		case domain.BetStatusCancelled:
			a.bucket.Cancelled++
		}
	}

	report := PerformanceReport{Period: period, Granularity: gran, From: cutoff}
	if len(byStart) == 0 {
		report.Buckets = synthesize(period, now)
		return report
	}

	report.Buckets = make([]Bucket, 0, len(byStart))
	for _, a := range byStart {
		a.bucket.Profit = a.profit.Round(2).InexactFloat64()
		report.Buckets = append(report.Buckets, a.bucket)
	}
	sort.Slice(report.Buckets, func(i, j int) bool {
		return report.Buckets[i].Start.Before(report.Buckets[j].Start)
	})
	return report
}

// synthesize returns the zero buckets ending at now's bucket.
func synthesize(period Period, now time.Time) []Bucket {
	gran := period.Granularity()
	n := period.emptyBuckets()
	last := bucketStart(now, gran)
	out := make([]Bucket, n)
	for i := 0; i < n; i++ {
		start := step(last, gran, i-(n-1))
		out[i] = Bucket{Start: start, Label: bucketLabel(start, gran)}
	}
	return out
}

func bucketStart(t time.Time, gran Granularity) time.Time {
	switch gran {
	case GranularityWeek:
		return startOfWeek(t)
	case GranularityMonth:
		return startOfMonth(t)
	default:
		return startOfDay(t)
	}
}

func step(t time.Time, gran Granularity, n int) time.Time {
	switch gran {
	case GranularityWeek:
		return t.AddDate(0, 0, 7*n)
	case GranularityMonth:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

func bucketLabel(start time.Time, gran Granularity) string {
	if gran == GranularityMonth {
		return monthLabel(start)
	}
	return dayLabel(start)
}
