package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bettingtipspro/tracker/internal/domain"
)

func sampleBets() []domain.Bet {
	created := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	won := 25.0
	return []domain.Bet{
		{MatchName: "PSG vs OM", Sport: "Football", BetType: domain.BetTypeSimple, Prediction: "Victoire PSG",
			Odds: 2.5, Stake: 10, Status: domain.BetStatusWon, ActualWin: &won, CreatedAt: created},
		{MatchName: "Nadal, Rafael vs \"Djoko\"", Sport: "Tennis", BetType: domain.BetTypeCombined, Prediction: "Handicap",
			Odds: 1.8, Stake: 20, Status: domain.BetStatusLost, CreatedAt: created},
		{MatchName: "Lakers vs Celtics", Sport: "Basketball", BetType: domain.BetTypeSimple, Prediction: "Total plus 210",
			Odds: 1.9, Stake: 5, Status: domain.BetStatusPending, CreatedAt: created},
	}
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"empty filter keeps all", Filter{}, 3},
		{"all keeps all", Filter{Sport: All, Status: All}, 3},
		{"search match name", Filter{Search: "psg"}, 1},
		{"search prediction", Filter{Search: "TOTAL"}, 1},
		{"search sport", Filter{Search: "tenn"}, 1},
		{"sport is case insensitive", Filter{Sport: "football"}, 1},
		{"status", Filter{Status: "lost"}, 1},
		{"combined no match", Filter{Sport: "Tennis", Status: "won"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.filter.Apply(sampleBets()), tt.want)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBets(), time.UTC))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"Date","Match","Sport","Type","Prédiction","Cote","Mise","Statut","Gain/Perte"`, lines[0])
	assert.Equal(t, `"02/01/2026","PSG vs OM","Football","simple","Victoire PSG","2.5","10","won","25"`, lines[1])
	assert.Equal(t, `"02/01/2026","Nadal, Rafael vs ""Djoko""","Tennis","combine","Handicap","1.8","20","lost","-20"`, lines[2])
	assert.Equal(t, `"02/01/2026","Lakers vs Celtics","Basketball","simple","Total plus 210","1.9","5","pending","0"`, lines[3])
}

func TestWriteCSV_RowCountMatchesFilter(t *testing.T) {
	filtered := Filter{Status: "won"}.Apply(sampleBets())
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, filtered, nil))

	assert.Equal(t, len(filtered)+1, strings.Count(buf.String(), "\n")+1)
}

func TestWriteCSV_UsesLocationForDate(t *testing.T) {
	b := sampleBets()[:1]
	b[0].CreatedAt = time.Date(2026, 1, 2, 23, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, b, time.FixedZone("CET", 3600)))

	assert.Contains(t, buf.String(), `"03/01/2026"`)
}

func TestGain(t *testing.T) {
	cancelled := domain.Bet{Stake: 5, Status: domain.BetStatusCancelled}
	assert.Zero(t, Gain(&cancelled))

	wonNoPayout := domain.Bet{Stake: 5, Status: domain.BetStatusWon}
	assert.Zero(t, Gain(&wonNoPayout))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "paris_2026-10-15.csv", Filename(time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)))
}
