package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// GeminiModel adapts a named Gemini model to Model.
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel binds name to client.
func NewGeminiModel(client *genai.Client, name string) *GeminiModel {
	return &GeminiModel{client: client, name: name}
}

func (m *GeminiModel) Name() string { return m.name }

func (m *GeminiModel) Generate(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, req.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{MaxOutputTokens: req.MaxTokens}
	if req.Structured {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = ticketSchema()
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", m.name, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New(m.name + ": empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New(m.name + ": no text in response")
	}
	return sb.String(), nil
}

func ticketSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	num := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc}
	}
	zero, one := 0.0, 1.0

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"match":        str(`Teams or players competing in format "Team1 vs Team2"`),
			"sport":        str(`Sport type (e.g., "Football", "Tennis", "Basketball")`),
			"competition":  str("Competition or league name"),
			"betType":      {Type: genai.TypeString, Enum: []string{"simple", "combine", "systeme"}, Description: "Type of bet"},
			"prediction":   str(`Specific prediction made (e.g., "Victoire PSG")`),
			"odds":         num("The odds for this bet"),
			"stake":        num("Amount wagered"),
			"potentialWin": num("Potential winnings amount"),
			"date":         str("Match date in YYYY-MM-DD format"),
			"time":         str("Match time if available"),
			"bookmaker":    str("Betting company name"),
			"ticketId":     str("Ticket reference number if visible"),
			"confidence":   {Type: genai.TypeNumber, Minimum: &zero, Maximum: &one, Description: "Confidence level of extraction (0-1)"},
		},
		Required: []string{"match", "sport", "betType", "prediction", "odds", "stake", "date", "confidence"},
	}
}
