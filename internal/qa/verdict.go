package qa

import (
	"encoding/json"
	"regexp"
	"strings"

	"ai-judge/internal/schemas"
)

const invalidJSONReasoning = "Invalid JSON returned"

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

type Verdict struct {
	Verdict   schemas.Verdict `json:"verdict"`
	Reasoning string          `json:"reasoning"`
}

// ParseVerdict never fails: unusable replies become inconclusive.
func ParseVerdict(text string) Verdict {
	body := strings.TrimSpace(text)
	body = fenceOpen.ReplaceAllString(body, "")
	body = strings.TrimSpace(fenceClose.ReplaceAllString(body, ""))

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil || obj == nil {
		return Verdict{Verdict: schemas.VerdictInconclusive, Reasoning: invalidJSONReasoning}
	}

	out := Verdict{Verdict: schemas.VerdictInconclusive, Reasoning: text}
	if v, ok := obj["verdict"].(string); ok {
		out.Verdict = schemas.NormalizeVerdict(v)
	}
	if r, ok := obj["reasoning"].(string); ok && r != "" {
		out.Reasoning = r
	}
	return out
}
