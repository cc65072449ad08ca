package ocr

import (
	"fmt"
	"strings"
)

const visionPrompt = `EXTRACT ONLY the betting information from this ticket image. Return structured data without any explanatory text.

IMPORTANT: Extract exact values visible on the ticket:

1. MATCH: Extract team names in format "Team1 vs Team2" (replace any ":" with "vs")
2. SPORT: Extract sport type (usually "Football", "Tennis", "Basketball")
3. COMPETITION: Extract league/competition name (e.g., "Premier League", "Serie A", "Ligue 1")
4. BET TYPE: Identify bet type ("simple", "combine", "systeme")
5. PREDICTION: Extract exact prediction text (e.g., "Total (1.5) Moins de", "Victoire", "Plus de 2.5 buts")
6. ODDS: Extract odds number (decimal format)
7. STAKE: Extract stake amount
8. DATE: Extract match date in YYYY-MM-DD format
9. TIME: Extract match time if visible
10. TICKET ID: Extract ticket number if visible

Look for text patterns like:
- Team names separated by score or "vs"
- "Cote:" for odds
- "Mise:" for stake
- Competition names like "Premier League", "Serie A"
- Bet types like "Simple", "Combiné"
- Predictions like "Total", "Moins de", "Plus de"

Return ONLY the structured data, no additional text.`

const textPrompt = `Extract betting information from this ticket data. Return structured data only:

Based on typical 1xbet ticket format, extract:
- Match teams (convert ":" to "vs" format)
- Sport and competition
- Bet type and prediction
- Odds and stake amounts
- Match date and time
- Ticket reference

Return only structured data without explanatory text.`

const quickPrompt = `Extract key betting information from this ticket. Return ONLY this format:

MATCH: Team1 vs Team2
SPORT: SportName
COMPETITION: LeagueName
ODDS: X.XX
STAKE: XXXX
PREDICTION: PredictionText
DATE: DD.MM.YYYY

Do not add any explanatory text, just the extracted values.`

func validatePrompt(t Ticket) string {
	var b strings.Builder
	b.WriteString("VERIFY this extracted data against the ticket image. Return corrected structured data only.\n\n")
	b.WriteString("Current extraction:\n")
	fmt.Fprintf(&b, "- Match: %s\n", t.Match)
	fmt.Fprintf(&b, "- Sport: %s\n", t.Sport)
	fmt.Fprintf(&b, "- Competition: %s\n", orNA(t.Competition))
	fmt.Fprintf(&b, "- Bet type: %s\n", t.BetType)
	fmt.Fprintf(&b, "- Prediction: %s\n", t.Prediction)
	fmt.Fprintf(&b, "- Odds: %g\n", t.Odds)
	fmt.Fprintf(&b, "- Stake: %g\n", t.Stake)
	if t.PotentialWin != nil {
		fmt.Fprintf(&b, "- Potential win: %g\n", *t.PotentialWin)
	} else {
		b.WriteString("- Potential win: N/A\n")
	}
	fmt.Fprintf(&b, "- Bookmaker: %s\n", orNA(t.Bookmaker))
	fmt.Fprintf(&b, "- Match date: %s\n\n", t.Date)
	b.WriteString("Check accuracy and return corrected structured data without explanatory text.")
	return b.String()
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}
