// Package export filters bet history and renders it as CSV.
package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// All disables the sport or status filter.
const All = "all"

// Filter narrows a bet history. Empty fields match everything.
type Filter struct {
	Search string
	Sport  string
	Status string
}

func (f Filter) matches(b *domain.Bet) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(b.MatchName), q) &&
			!strings.Contains(strings.ToLower(b.Prediction), q) &&
			!strings.Contains(strings.ToLower(b.Sport), q) {
			return false
		}
	}
	if f.Sport != "" && f.Sport != All && !strings.EqualFold(b.Sport, f.Sport) {
		return false
	}
	if f.Status != "" && f.Status != All && string(b.Status) != f.Status {
		return false
	}
	return true
}

// Apply returns the bets matching f, preserving order.
func (f Filter) Apply(bets []domain.Bet) []domain.Bet {
	out := make([]domain.Bet, 0, len(bets))
	for i := range bets {
		if f.matches(&bets[i]) {
			out = append(out, bets[i])
		}
	}
	return out
}

// Header is the first CSV row.
var Header = []string{"Date", "Match", "Sport", "Type", "Prédiction", "Cote", "Mise", "Statut", "Gain/Perte"}

// Filename is the download name for an export produced at now.
func Filename(now time.Time) string {
	return "paris_" + now.Format("2006-01-02") + ".csv"
}

// WriteCSV writes the header and one row per bet. Every cell is quoted and
// rows are separated by a bare newline.
func WriteCSV(w io.Writer, bets []domain.Bet, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder
	writeRow(&sb, Header)
	for i := range bets {
		b := &bets[i]
		sb.WriteByte('\n')
		writeRow(&sb, []string{
			b.CreatedAt.In(loc).Format("02/01/2006"),
			b.MatchName,
			b.Sport,
			string(b.BetType),
			b.Prediction,
			number(b.Odds),
			number(b.Stake),
			string(b.Status),
			number(Gain(b)),
		})
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Gain is the signed result of a bet: the payout when won, minus the stake
// when lost, zero otherwise.
func Gain(b *domain.Bet) float64 {
	switch b.Status {
	case domain.BetStatusWon:
		if b.ActualWin != nil {
			return *b.ActualWin
		}
		return 0
	case domain.BetStatusLost:
		return -b.Stake
	}
	return 0
}

func writeRow(sb *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(c, `"`, `""`))
		sb.WriteByte('"')
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
