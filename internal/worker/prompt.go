package worker

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// SystemPrompt frames every remote analysis.
const SystemPrompt = "You are LEX TRI, a temporal debugging expert specializing in Valid Time, Transaction Time, and Decision Time analysis."

const userPromptTemplate = `Analyze the following temporal data for anomalies and patterns:

Timeline Data: %s

Please provide:
1. Identified temporal anomalies
2. Pattern analysis across VT/TT/DT dimensions
3. Potential causes and remediation steps
4. Confidence assessment (as "Confidence: NN%%")

Focus on tri-temporal relationships and inconsistencies.`

// BuildPrompt renders the user prompt for tl.
func BuildPrompt(tl *temporal.Timeline) (string, error) {
	var buf bytes.Buffer
	if err := temporal.Encode(&buf, tl, nil); err != nil {
		return "", err
	}
	return fmt.Sprintf(userPromptTemplate, bytes.TrimSpace(buf.Bytes())), nil
}

var confidencePattern = regexp.MustCompile(`(?i)confidence[^0-9\n]{0,24}(\d{1,3}(?:\.\d+)?)\s*%`)

// ParseConfidence extracts a "Confidence: NN%" self-assessment from text.
// The last match wins. Values above 100% are rejected.
func ParseConfidence(text string) *float64 {
	matches := confidencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	pct, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil || pct > 100 {
		return nil
	}
	return ConfidencePtr(pct / 100)
}
