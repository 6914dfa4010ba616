// Package jobs turns scraped careers-page text into structured job postings.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/cold-emailer/internal/ai"
	"github.com/spigell/cold-emailer/internal/utils"
)

// ErrUnparseableResponse means the model output could not be read as job postings,
// usually because the page was too big or the output was malformed.
var ErrUnparseableResponse = errors.New("context too big: unable to parse jobs")

const defaultMaxLogLength = 200

//go:embed prompt.md
var promptTemplate string

// Posting is one job extracted from a page.
type Posting struct {
	Role        string   `mapstructure:"role" json:"role"`
	Experience  string   `mapstructure:"experience" json:"experience"`
	Skills      []string `mapstructure:"skills" json:"skills"`
	Description string   `mapstructure:"description" json:"description"`
}

type Extractor struct {
	model     ai.LanguageModel
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(model ai.LanguageModel, logger *zap.Logger, maxLogLength int) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Extractor{model: model, logger: logger, maxLogLen: maxLogLength}
}

// Extract sends text to the model once and parses its answer. A single JSON
// object yields one posting; an array yields one posting per element.
func (e *Extractor) Extract(ctx context.Context, text string) ([]Posting, error) {
	prompt := buildPrompt(text)

	e.logger.Debug("extract jobs request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.model.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract jobs: %w", err)
	}

	e.logger.Debug("extract jobs response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	postings, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	e.logger.Info("jobs extracted", zap.Int("count", len(postings)))
	return postings, nil
}

func buildPrompt(text string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Page:\n{{PAGE_DATA}}\n\nReturn job postings as JSON with keys role, experience, skills, description:"
	}
	return strings.ReplaceAll(template, "{{PAGE_DATA}}", text)
}

// Parse reads model output into postings. Every failure wraps ErrUnparseableResponse.
func Parse(raw string) ([]Posting, error) {
	data, err := decodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}

	var items []any
	switch v := data.(type) {
	case []any:
		items = v
	case map[string]any:
		if wrapped, ok := v["jobs"].([]any); ok && len(v) == 1 {
			items = wrapped
		} else {
			items = []any{v}
		}
	default:
		return nil, fmt.Errorf("%w: unexpected json %T", ErrUnparseableResponse, data)
	}

	postings := make([]Posting, 0, len(items))
	for i, item := range items {
		if _, ok := item.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: item %d is %T, not an object", ErrUnparseableResponse, i, item)
		}

		var p Posting
		if err := decodePosting(item, &p); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrUnparseableResponse, i, err)
		}
		postings = append(postings, normalize(p))
	}

	return postings, nil
}

func decodeJSON(raw string) (any, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	var data any
	err := json.Unmarshal([]byte(cleaned), &data)
	if err == nil {
		return data, nil
	}

	// Models sometimes add a preamble; retry with the outermost JSON value.
	if inner := outermostJSON(cleaned); inner != "" && inner != cleaned {
		if innerErr := json.Unmarshal([]byte(inner), &data); innerErr == nil {
			return data, nil
		}
	}
	return nil, err
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func outermostJSON(s string) string {
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func decodePosting(input any, out *Posting) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       looseStrings,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

var (
	stringType      = reflect.TypeOf("")
	stringSliceType = reflect.TypeOf([]string(nil))
)

// looseStrings joins lists into strings and splits comma separated skill strings.
func looseStrings(from, to reflect.Type, data any) (any, error) {
	switch {
	case to == stringType && from.Kind() == reflect.Slice:
		items, ok := data.([]any)
		if !ok {
			return data, nil
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), nil
	case to == stringSliceType && from == stringType:
		return strings.Split(data.(string), ","), nil
	}
	return data, nil
}

func normalize(p Posting) Posting {
	p.Role = strings.TrimSpace(p.Role)
	p.Experience = strings.TrimSpace(p.Experience)
	p.Description = strings.TrimSpace(p.Description)

	skills := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	p.Skills = skills
	return p
}
