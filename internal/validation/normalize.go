package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/invoiceflow/invoice-validator/internal/llm"
)

// NormalizationError means model output could not be coerced into valid JSON
// after the whole repair chain. It keeps enough context to diagnose without
// re-running the expensive remote path.
type NormalizationError struct {
	Err    error  // original strict-parse error
	Offset int64  // byte offset from the parser, -1 when unknown
	Line   string // line containing the offset
	Raw    string // offending text, first 5000 + last 2000 chars when longer
}

func (e *NormalizationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("could not parse model output as JSON: %v (offset %d, line %q)", e.Err, e.Offset, e.Line)
	}
	return fmt.Sprintf("could not parse model output as JSON: %v", e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

var reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)

const repairSystemPrompt = "You are a JSON-only response generator. You MUST respond with ONLY valid JSON, " +
	"no explanations, no markdown, no code blocks. Your response must be parseable by a strict JSON parser " +
	"without any errors. Escape all special characters in strings properly."

// Normalizer turns free-form model output into a Result. Repairs are ordered
// cheapest first; the single remote round trip runs only after every local
// fix has failed.
type Normalizer struct {
	client llm.CompletionClient // nil disables the remote-repair step
	logger *slog.Logger
}

func NewNormalizer(client llm.CompletionClient, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{client: client, logger: logger}
}

// Normalize runs the repair chain:
//  1. strict parse of the raw text
//  2. fence/brace isolation, strict parse
//  3. trailing-comma removal plus re-isolation, strict parse
//  4. trailing-comma removal on the already-isolated text, strict parse
//  5. one remote "return only corrected JSON" request, isolate, strict parse
//  6. NormalizationError with the original parse diagnostics
func (n *Normalizer) Normalize(ctx context.Context, raw string) (*Result, error) {
	text := strings.TrimSpace(raw)

	if res, err := parseStrict(text); err == nil {
		return res, nil
	}

	isolated := isolateBraces(extractFenced(text))
	res, firstErr := parseStrict(isolated)
	if firstErr == nil {
		return res, nil
	}
	n.logger.Warn("normalize.direct_parse_failed", "error", firstErr)

	repaired := isolateBraces(reTrailingComma.ReplaceAllString(isolated, "$1"))
	if res, err := parseStrict(repaired); err == nil {
		n.logger.Info("normalize.repair_parse_ok")
		return res, nil
	}

	cleaned := reTrailingComma.ReplaceAllString(isolated, "$1")
	if res, err := parseStrict(cleaned); err == nil {
		n.logger.Info("normalize.clean_parse_ok")
		return res, nil
	}

	if n.client != nil {
		n.logger.Warn("normalize.local_repairs_exhausted", "retrying_via_model", true)
		if res, err := n.remoteRepair(ctx, isolated); err == nil {
			n.logger.Info("normalize.remote_repair_ok")
			return res, nil
		} else {
			n.logger.Error("normalize.remote_repair_failed", "error", err)
		}
	}

	return nil, newNormalizationError(firstErr, isolated)
}

func (n *Normalizer) remoteRepair(ctx context.Context, broken string) (*Result, error) {
	seed := broken
	if len(seed) > 2000 {
		seed = seed[:2000]
	}
	fixed, err := n.client.Complete(ctx, llm.CompletionRequest{
		System: repairSystemPrompt,
		User: "Please fix this JSON and return ONLY the corrected JSON " +
			"(no explanations, no markdown, no code blocks, just pure JSON):\n\n" + seed,
		JSONMode:    true,
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}
	return parseStrict(isolateBraces(strings.TrimSpace(fixed)))
}

// parseStrict accepts only a JSON object.
func parseStrict(text string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("output is not a JSON object")
	}
	var res Result
	if err := json.Unmarshal([]byte(trimmed), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// extractFenced returns the interior of a fenced code block when one exists,
// otherwise the input unchanged.
func extractFenced(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		rest := s[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	if parts := strings.Split(s, "```"); len(parts) >= 3 {
		inner := strings.TrimSpace(parts[1])
		if strings.HasPrefix(strings.ToLower(inner), "json") {
			inner = strings.TrimSpace(inner[4:])
		}
		return inner
	}
	return s
}

// isolateBraces slices from the first '{' to the last '}' inclusive; when no
// such pair exists the input is returned unchanged.
func isolateBraces(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first >= 0 && last > first {
		return s[first : last+1]
	}
	return s
}

func newNormalizationError(parseErr error, text string) *NormalizationError {
	ne := &NormalizationError{Err: parseErr, Offset: -1, Raw: truncateForDiagnostics(text)}

	var syn *json.SyntaxError
	if errors.As(parseErr, &syn) {
		ne.Offset = syn.Offset
		ne.Line = lineAt(text, syn.Offset)
	}
	return ne
}

func lineAt(text string, offset int64) string {
	if offset < 0 || offset > int64(len(text)) {
		return ""
	}
	pos := int(offset)
	if pos == len(text) && pos > 0 {
		pos--
	}
	start := strings.LastIndex(text[:pos], "\n") + 1
	end := strings.Index(text[pos:], "\n")
	if end == -1 {
		end = len(text)
	} else {
		end += pos
	}
	return text[start:end]
}

func truncateForDiagnostics(text string) string {
	if len(text) <= 5000 {
		return text
	}
	return text[:5000] + "\n…\n" + text[len(text)-2000:]
}
