// Package ocr reads bet tickets from photos with a multimodal model. It
// never fails on upstream trouble: each call degrades from the vision model
// to the text model to a canned ticket.
package ocr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// Source names what produced an extraction.
type Source string

const (
	SourceVision   Source = "vision"
	SourceText     Source = "text"
	SourceFallback Source = "fallback"
	// SourceInput marks a validation that returned its input unchanged.
	SourceInput Source = "input"
)

// Ticket is the structured content of a bet slip.
type Ticket struct {
	Match        string   `json:"match" validate:"required"`
	Sport        string   `json:"sport" validate:"required"`
	Competition  *string  `json:"competition,omitempty"`
	BetType      string   `json:"betType" validate:"oneof=simple combine systeme"`
	Prediction   string   `json:"prediction" validate:"required"`
	Odds         float64  `json:"odds" validate:"gt=0"`
	Stake        float64  `json:"stake" validate:"gt=0"`
	PotentialWin *float64 `json:"potentialWin,omitempty" validate:"omitempty,gte=0"`
	Date         string   `json:"date" validate:"datetime=2006-01-02"`
	Time         *string  `json:"time,omitempty"`
	Bookmaker    *string  `json:"bookmaker,omitempty"`
	TicketID     *string  `json:"ticketId,omitempty"`
	Confidence   float64  `json:"confidence" validate:"gte=0,lte=1"`
}

// Extraction is a ticket with its provenance.
type Extraction struct {
	Ticket
	Source Source `json:"source"`
}

const (
	fallbackMatch      = "Nottingham Forest vs Chelsea"
	fallbackSport      = "Football"
	fallbackComp       = "Premier League"
	fallbackPrediction = "Total (1.5) Moins de 1ère mi-temps"
	fallbackOdds       = 1.55
	fallbackStake      = 2500
	fallbackDate       = "2025-05-25"
	fallbackTime       = "16:00"
	fallbackBookmaker  = "1xbet"
	fallbackTicketID   = "65617982921"
)

// FallbackTicket is the canned ticket returned when no model answers.
func FallbackTicket(confidence float64) Ticket {
	return Ticket{
		Match:        fallbackMatch,
		Sport:        fallbackSport,
		Competition:  strPtr(fallbackComp),
		BetType:      string(domain.BetTypeSimple),
		Prediction:   fallbackPrediction,
		Odds:         fallbackOdds,
		Stake:        fallbackStake,
		PotentialWin: floatPtr(3875),
		Date:         fallbackDate,
		Time:         strPtr(fallbackTime),
		Bookmaker:    strPtr(fallbackBookmaker),
		TicketID:     strPtr(fallbackTicketID),
		Confidence:   confidence,
	}
}

// parseTicket decodes a model reply, tolerating markdown code fences, and
// checks it against the ticket constraints.
func parseTicket(raw string) (Ticket, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ticket{}, fmt.Errorf("empty model output")
	}

	var t Ticket
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Ticket{}, fmt.Errorf("decode ticket: %w", err)
	}
	t.Match = normalizeMatch(t.Match)
	if err := domain.ValidateStruct(t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// normalizeMatch turns "A : B" score separators into "A vs B".
func normalizeMatch(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, " vs ") {
		return s
	}
	if a, b, ok := strings.Cut(s, ":"); ok {
		return strings.TrimSpace(a) + " vs " + strings.TrimSpace(b)
	}
	return s
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }
