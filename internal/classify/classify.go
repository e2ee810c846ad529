// Package classify scores enriched leads against the job's targeting
// criteria using Claude.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/leadlist-cli/internal/model"
	"github.com/scoutline/leadlist-cli/internal/resilience"
	"github.com/scoutline/leadlist-cli/pkg/anthropic"
)

const systemPrompt = `You grade B2B sales leads. For each lead you receive, judge how well the
person's title and company match the stated targeting criteria. Respond with a
JSON array only, one object per lead, in the same order as the input:
[{"index": 0, "score": 0.85, "reason": "short explanation"}, ...]
Scores are between 0 and 1. Do not include any other text.`

// Scorer assigns quality scores to enriched leads.
type Scorer struct {
	ai    anthropic.Client
	model string
	retry resilience.RetryConfig
}

// NewScorer creates a Scorer using the given Anthropic client and model ID.
func NewScorer(ai anthropic.Client, modelID string) *Scorer {
	return &Scorer{
		ai:    ai,
		model: modelID,
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     10 * time.Second,
			Multiplier:     1.0,
			ShouldRetry: func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			},
			OnRetry: resilience.RetryLogger("anthropic", "score leads"),
		},
	}
}

// scoreItem is one element of the model's JSON response.
type scoreItem struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// ScoreLeads fills in QualityScore and QualityReason on each record.
// Records the model does not return a score for are left untouched.
func (s *Scorer) ScoreLeads(ctx context.Context, cfg model.JobConfig, records []model.EnrichmentRecord) error {
	if len(records) == 0 {
		return nil
	}

	prompt := buildPrompt(cfg, records)

	var resp *anthropic.MessageResponse
	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		var reqErr error
		resp, reqErr = s.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: 4096,
			System:    []anthropic.SystemBlock{{Text: systemPrompt}},
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
		return reqErr
	})
	if err != nil {
		return eris.Wrap(err, "classify: score request")
	}

	items, err := parseScores(resp.Text())
	if err != nil {
		return err
	}

	applied := 0
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(records) {
			continue
		}
		records[item.Index].QualityScore = clamp(item.Score)
		records[item.Index].QualityReason = item.Reason
		applied++
	}

	zap.L().Debug("classify: scored leads",
		zap.Int("requested", len(records)),
		zap.Int("scored", applied),
	)
	return nil
}

// buildPrompt renders targeting criteria and the lead roster as the user message.
func buildPrompt(cfg model.JobConfig, records []model.EnrichmentRecord) string {
	var b strings.Builder
	b.WriteString("Targeting criteria:\n")
	if len(cfg.TargetTitles) > 0 {
		fmt.Fprintf(&b, "- Titles: %s\n", strings.Join(cfg.TargetTitles, ", "))
	}
	if len(cfg.JobKeywords) > 0 {
		fmt.Fprintf(&b, "- Company keywords: %s\n", strings.Join(cfg.JobKeywords, ", "))
	}
	if len(cfg.CompanySizeRanges) > 0 {
		fmt.Fprintf(&b, "- Company sizes: %s\n", strings.Join(cfg.CompanySizeRanges, ", "))
	}
	if len(cfg.CompanyLocations) > 0 {
		fmt.Fprintf(&b, "- Locations: %s\n", strings.Join(cfg.CompanyLocations, ", "))
	}

	b.WriteString("\nLeads:\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s %s, %s at %s (%s, %s employees, %s)\n",
			i, r.FirstName, r.LastName, r.Title, r.CompanyName,
			r.CompanyIndustry, r.CompanySize, r.CompanyLocation)
	}
	return b.String()
}

// parseScores extracts the JSON array from the model's reply. The reply may
// carry surrounding text, so slice from the first '[' to the last ']'.
func parseScores(text string) ([]scoreItem, error) {
	if text == "" {
		return nil, eris.New("classify: empty model response")
	}

	jsonStart := strings.Index(text, "[")
	jsonEnd := strings.LastIndex(text, "]")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, eris.Errorf("classify: no JSON array in response: %s", text)
	}

	var items []scoreItem
	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &items); err != nil {
		return nil, eris.Wrap(err, "classify: parse response JSON")
	}
	return items, nil
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
