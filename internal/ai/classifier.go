package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrNoAnalysis signals that the model responded but no JSON object
// could be extracted or parsed from its reply.
var ErrNoAnalysis = errors.New("no parseable analysis in model response")

const defaultNotes = "AI could not generate notes."

const systemPrompt = `You are an AI assistant that triages technical support tickets.

Your job is to:
1. Summarize the issue.
2. Estimate its priority: "LOW", "MEDIUM", "HIGH", or "URGENT".
3. Suggest a relevant category based on the issue.
4. Provide helpful notes a human moderator can use.
5. Extract relevant technical skills required to solve the issue.

Look at the ticket title and description carefully to identify specific domains and required expertise.
Be as specific as possible when extracting skills, and include both general domain knowledge and specific technical skills.

Return ONLY a raw JSON object using this format:
{
  "priority": "LOW" | "MEDIUM" | "HIGH" | "URGENT",
  "category": "Issue category based on the content",
  "notes": "Brief explanation to help moderators",
  "relatedSkills": ["skill1", "skill2", "domain knowledge", "etc"]
}

Do NOT include any extra text, comments, or markdown. Only output the JSON object.`

// Analysis is the validated classification of one ticket. RelatedSkills
// is raw model output; keyword normalization happens in the triage
// package.
type Analysis struct {
	Priority      domain.TicketPriority
	Category      string
	Notes         string
	RelatedSkills []string
}

// Classifier produces a structured classification for a ticket.
type Classifier interface {
	Classify(ctx context.Context, title, description string) (*Analysis, error)
}

// Client calls the OpenAI chat completions API. Retry policy belongs
// to the workflow layer; the client makes exactly one attempt bounded
// by the configured timeout.
type Client struct {
	key     string
	model   string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs the classification client.
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) *Client {
	return &Client{
		key:     cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

// Classify sends the ticket text to the model and parses the reply.
// All failure modes (transport error, timeout, no JSON in the reply,
// parse error) surface as hard errors; field-level deviations in a
// successfully parsed object are coerced to safe defaults instead.
func (c *Client) Classify(ctx context.Context, title, description string) (*Analysis, error) {
	if strings.TrimSpace(c.key) == "" {
		return nil, errors.New("openai: missing key")
	}

	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage(title, description)},
		},
		"temperature": 0.2,
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status=%d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("openai: no choices")
	}

	content := out.Choices[len(out.Choices)-1].Message.Content
	analysis, err := ParseAnalysis(content)
	if err != nil {
		c.logger.Warn("classification response not parseable", zap.String("content", content))
		return nil, err
	}
	return analysis, nil
}

func userMessage(title, description string) string {
	return fmt.Sprintf("Analyze this support ticket:\n\nTitle: %s\nDescription: %s", title, description)
}

// ParseAnalysis extracts the first top-level JSON object from the raw
// model reply, tolerant of surrounding prose or markdown, and coerces
// each field independently. The model output is an untrusted payload:
// a missing or malformed field falls back to its default rather than
// failing the parse.
func ParseAnalysis(content string) (*Analysis, error) {
	obj := extractJSONObject(content)
	if obj == "" {
		return nil, ErrNoAnalysis
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAnalysis, err)
	}

	analysis := &Analysis{
		Priority:      domain.TicketPriorityMedium,
		Category:      "Other",
		Notes:         defaultNotes,
		RelatedSkills: []string{},
	}

	if p, ok := raw["priority"].(string); ok && domain.ValidPriority(domain.TicketPriority(p)) {
		analysis.Priority = domain.TicketPriority(p)
	}
	if cat, ok := raw["category"].(string); ok && cat != "" {
		analysis.Category = cat
	}
	if notes, ok := raw["notes"].(string); ok && notes != "" {
		analysis.Notes = notes
	}
	if skills, ok := raw["relatedSkills"].([]any); ok {
		for _, s := range skills {
			if str, ok := s.(string); ok {
				analysis.RelatedSkills = append(analysis.RelatedSkills, str)
			}
		}
	}

	return analysis, nil
}

// extractJSONObject returns the first balanced top-level {...} block
// in s, or the empty string when none exists. Brace counting skips
// string literals so embedded braces do not unbalance the scan.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
