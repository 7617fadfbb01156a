package identification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/pkg/errors"
)

const systemPrompt = "You are a helpful and concise assistant."

const (
	queryPromptFormat = "Here is a medicine purpose: '%s'. User's query: '%s'. " +
		"Please provide a clear, knowledgeable, and concise answer strictly based on the provided purpose without relying on any external knowledge. " +
		"Avoid formatting like bold text; use plain text with numbers and decimals as needed."

	defaultPromptFormat = "Here is a medicine purpose: '%s'. Can you briefly explain what condition this medicine is meant to treat and how it helps? " +
		"Please use only the provided content and do not rely on any external knowledge. " +
		"Keep the response concise, clear, and in plain text without special formatting."
)

// ExplanationGenerator turns a label record into a plain-language answer
// grounded only in that record.
type ExplanationGenerator interface {
	Explain(ctx context.Context, record pill.LabelRecord, userQuery string) (string, error)
}

type explanationGeneratorImpl struct {
	generator pill.TextGenerator
	metrics   *prometheus.PillMetrics
	logger    logging.Logger
}

// NewExplanationGenerator builds an ExplanationGenerator over generator.
func NewExplanationGenerator(generator pill.TextGenerator, metrics *prometheus.PillMetrics, log logging.Logger) ExplanationGenerator {
	return &explanationGeneratorImpl{generator: generator, metrics: metrics, logger: log}
}

func (g *explanationGeneratorImpl) Explain(ctx context.Context, record pill.LabelRecord, userQuery string) (string, error) {
	labelContext, err := FlattenLabel(record)
	if err != nil {
		return "", err
	}
	prompt := BuildPrompt(labelContext, userQuery)

	start := time.Now()
	text, err := g.generator.Generate(ctx, systemPrompt, prompt)
	prometheus.RecordUpstream(g.metrics, "generation", err, time.Since(start))
	if err != nil {
		g.logger.Warn("explanation generation failed", logging.Err(err))
		if errors.IsCode(err, errors.ErrCodeExplanationFailed) {
			return "", err
		}
		ee := errors.Wrap(err, errors.ErrCodeExplanationFailed, "explanation unavailable")
		if errors.IsRetryable(err) {
			ee = ee.MarkRetryable()
		}
		return "", ee
	}

	text = StripMarkdown(text)
	if text == "" {
		return "", errors.New(errors.ErrCodeExplanationFailed, "explanation is empty")
	}
	return text, nil
}

// BuildPrompt renders the user prompt. A blank query asks for the default
// what-does-it-treat summary.
func BuildPrompt(labelContext, userQuery string) string {
	if q := strings.TrimSpace(userQuery); q != "" {
		return fmt.Sprintf(queryPromptFormat, labelContext, q)
	}
	return fmt.Sprintf(defaultPromptFormat, labelContext)
}

// FlattenLabel renders every field of results[0] as a "key: value" line in
// document order. Strings are emitted raw, arrays of strings are joined
// with a space and anything else keeps its compact JSON form.
func FlattenLabel(record pill.LabelRecord) (string, error) {
	first, ok := record.FirstResult()
	if !ok {
		return "", errors.New(errors.ErrCodeExplanationFailed, "label record has no result to explain")
	}

	dec := json.NewDecoder(bytes.NewReader(first))
	tok, err := dec.Token()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExplanationFailed, "label result is not valid JSON")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return "", errors.New(errors.ErrCodeExplanationFailed, "label result is not an object")
	}

	var lines []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeExplanationFailed, "label result is not valid JSON")
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil && err != io.EOF {
			return "", errors.Wrap(err, errors.ErrCodeExplanationFailed, "label result is not valid JSON")
		}
		lines = append(lines, key+": "+renderValue(raw))
	}
	return strings.Join(lines, "\n"), nil
}

func renderValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

var (
	headingPattern = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	boldPattern    = regexp.MustCompile(`\*\*([^*\n]+)\*\*|__([^_\n]+)__`)
	italicPattern  = regexp.MustCompile(`\*([^*\s][^*\n]*)\*`)
)

// StripMarkdown removes heading markers and emphasis, leaving the text.
func StripMarkdown(s string) string {
	s = headingPattern.ReplaceAllString(s, "")
	s = boldPattern.ReplaceAllString(s, "$1$2")
	s = italicPattern.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

//Personal.AI order the ending
