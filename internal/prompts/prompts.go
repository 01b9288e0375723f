// Package prompts holds the system prompts sent to chat and voice models.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/pscheid92/coachpulse/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var catalogYAML []byte

// Prompt is a system prompt with its sampling settings.
type Prompt struct {
	System      string  `yaml:"system"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type Catalog struct {
	Coach    Prompt `yaml:"coach"`
	Demo     Prompt `yaml:"demo"`
	Realtime struct {
		Instructions string `yaml:"instructions"`
	} `yaml:"realtime"`
	Summary struct {
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		Daily       string  `yaml:"daily"`
		Weekly      string  `yaml:"weekly"`
		Monthly     string  `yaml:"monthly"`
	} `yaml:"summary"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse decodes a catalog and checks that every prompt is present.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}

	required := map[string]string{
		"coach.system":          c.Coach.System,
		"demo.system":           c.Demo.System,
		"realtime.instructions": c.Realtime.Instructions,
		"summary.daily":         c.Summary.Daily,
		"summary.weekly":        c.Summary.Weekly,
		"summary.monthly":       c.Summary.Monthly,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("prompt catalog: %s is empty", key)
		}
	}

	return &c, nil
}

// SummaryPrompt returns the summary prompt for a period.
func (c *Catalog) SummaryPrompt(p domain.Period) Prompt {
	prompt := Prompt{Temperature: c.Summary.Temperature, MaxTokens: c.Summary.MaxTokens}
	switch p {
	case domain.PeriodWeekly:
		prompt.System = c.Summary.Weekly
	case domain.PeriodMonthly:
		prompt.System = c.Summary.Monthly
	default:
		prompt.System = c.Summary.Daily
	}
	return prompt
}
