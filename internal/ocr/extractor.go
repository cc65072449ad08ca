package ocr

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/guard"
	"github.com/bettingtipspro/tracker/internal/infra"
)

// Breaker settings: a model failing this many times in a row is skipped
// for BreakerCooldown.
const (
	BreakerThreshold = 3
	BreakerCooldown  = 30 * time.Second
)

const (
	visionMaxTokens   int32 = 1000
	textMaxTokens     int32 = 500
	validateMaxTokens int32 = 800
	quickMaxTokens    int32 = 200
)

var errNoModel = errors.New("model not configured")

// Extractor runs the vision, text, fallback chain.
type Extractor struct {
	vision  Model
	text    Model
	breaker *guard.CircuitBreaker
	metrics *infra.Metrics
	logger  *zap.Logger
}

// NewExtractor creates an Extractor. Either model may be nil, in which case
// its step is skipped.
func NewExtractor(vision, text Model, metrics *infra.Metrics, logger *zap.Logger) *Extractor {
	return &Extractor{
		vision:  vision,
		text:    text,
		breaker: guard.NewCircuitBreaker(BreakerThreshold, BreakerCooldown),
		metrics: metrics,
		logger:  logger,
	}
}

// Extract reads a ticket from image. Only an undecodable image is an error.
func (e *Extractor) Extract(ctx context.Context, image string) (*Extraction, error) {
	data, mime, err := DecodeImage(image)
	if err != nil {
		return nil, err
	}

	t, err := e.structured(ctx, e.vision, Request{
		Prompt:     visionPrompt,
		Image:      data,
		MIMEType:   mime,
		Structured: true,
		MaxTokens:  visionMaxTokens,
	})
	if err == nil {
		return e.done("extract", t, SourceVision), nil
	}
	e.logger.Warn("vision extraction failed", zap.Error(err))

	t, err = e.structured(ctx, e.text, Request{
		Prompt:     textPrompt,
		Structured: true,
		MaxTokens:  textMaxTokens,
	})
	if err == nil {
		return e.done("extract", t, SourceText), nil
	}
	e.logger.Warn("text extraction failed", zap.Error(err))

	return e.done("extract", FallbackTicket(0.8), SourceFallback), nil
}

// Validate asks the vision model to check current against image. On
// failure current is returned unchanged.
func (e *Extractor) Validate(ctx context.Context, current Ticket, image string) (*Extraction, error) {
	data, mime, err := DecodeImage(image)
	if err != nil {
		return nil, err
	}

	t, err := e.structured(ctx, e.vision, Request{
		Prompt:     validatePrompt(current),
		Image:      data,
		MIMEType:   mime,
		Structured: true,
		MaxTokens:  validateMaxTokens,
	})
	if err != nil {
		e.logger.Warn("ticket validation failed", zap.Error(err))
		return e.done("validate", current, SourceInput), nil
	}
	return e.done("validate", t, SourceVision), nil
}

// QuickExtract asks for a short KEY: value reply and fills the gaps with
// defaults.
func (e *Extractor) QuickExtract(ctx context.Context, image string) (*Extraction, error) {
	data, mime, err := DecodeImage(image)
	if err != nil {
		return nil, err
	}

	reply, err := e.call(ctx, e.vision, Request{
		Prompt:    quickPrompt,
		Image:     data,
		MIMEType:  mime,
		MaxTokens: quickMaxTokens,
	})
	if err != nil {
		e.logger.Warn("quick extraction failed", zap.Error(err))
		return e.done("quick", FallbackTicket(0.7), SourceFallback), nil
	}
	return e.done("quick", parseQuick(reply), SourceVision), nil
}

func (e *Extractor) done(mode string, t Ticket, src Source) *Extraction {
	e.metrics.OCRExtractions.WithLabelValues(mode, string(src)).Inc()
	return &Extraction{Ticket: t, Source: src}
}

// structured calls m and parses a ticket. A reply that does not parse
// counts as a model failure.
func (e *Extractor) structured(ctx context.Context, m Model, req Request) (Ticket, error) {
	reply, err := e.call(ctx, m, req)
	if err != nil {
		return Ticket{}, err
	}
	t, err := parseTicket(reply)
	if err != nil {
		e.breaker.RecordFailure(m.Name())
		return Ticket{}, err
	}
	return t, nil
}

func (e *Extractor) call(ctx context.Context, m Model, req Request) (string, error) {
	if m == nil {
		return "", errNoModel
	}
	key := m.Name()
	if res := e.breaker.Check(ctx, key); !res.Allowed {
		return "", errors.New(res.Reason)
	}
	reply, err := m.Generate(ctx, req)
	if err != nil {
		e.breaker.RecordFailure(key)
		return "", err
	}
	e.breaker.RecordSuccess(key)
	return reply, nil
}

// parseQuick reads "KEY: value" lines. Unknown keys are ignored and missing
// ones keep the fallback values.
func parseQuick(text string) Ticket {
	t := FallbackTicket(0.85)

	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(value))

		switch {
		case strings.Contains(key, "match"):
			t.Match = value
		case strings.Contains(key, "sport"):
			t.Sport = value
		case strings.Contains(key, "competition"):
			t.Competition = &value
		case strings.Contains(key, "odds"):
			if v, err := strconv.ParseFloat(value, 64); err == nil && v != 0 {
				t.Odds = v
			}
		case strings.Contains(key, "stake"):
			if v, err := strconv.ParseFloat(value, 64); err == nil && v != 0 {
				t.Stake = v
			}
		case strings.Contains(key, "prediction"):
			t.Prediction = value
		case strings.Contains(key, "date"):
			t.Date = isoDate(value)
		}
	}

	t.PotentialWin = floatPtr(math.Round(t.Odds * t.Stake))
	return t
}

// isoDate converts DD.MM.YYYY to YYYY-MM-DD. Other inputs pass through.
func isoDate(s string) string {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return s
	}
	return parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// CreateInput maps an extraction onto a bet draft the client can confirm.
func (x *Extraction) CreateInput() domain.CreateBetInput {
	conf := x.Confidence
	return domain.CreateBetInput{
		MatchName:       x.Match,
		Sport:           x.Sport,
		Competition:     x.Competition,
		BetType:         domain.BetType(x.BetType),
		Prediction:      x.Prediction,
		Odds:            x.Odds,
		Stake:           x.Stake,
		PotentialWin:    x.PotentialWin,
		MatchDate:       strPtr(x.Date),
		MatchTime:       x.Time,
		Bookmaker:       x.Bookmaker,
		TicketID:        x.TicketID,
		ConfidenceScore: &conf,
		IsOCRExtracted:  true,
	}
}
