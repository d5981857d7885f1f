package synthesis

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// causalEdgeResponse / predictionResponse mirror 4.M's strict JSON response
// shape before validation reduces them to core.CausalEdge/core.Prediction.
type causalEdgeResponse struct {
	Cause   string   `json:"cause"`
	Effect  string   `json:"effect"`
	Type    string   `json:"type"`
	Sources []string `json:"sources"`
}

type predictionResponse struct {
	Prediction  string  `json:"prediction"`
	Probability float64 `json:"probability"`
	Type        string  `json:"type"`
	Timeframe   string  `json:"timeframe"`
	Rationale   string  `json:"rationale"`
}

type timelineEventResponse struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// synthesisResponse is 4.M's strict JSON object shape.
type synthesisResponse struct {
	Title          string                  `json:"title" validate:"required"`
	Introduction   string                  `json:"introduction" validate:"required"`
	Body           string                  `json:"body" validate:"required"`
	KeyPoints      []string                `json:"keyPoints"`
	Analysis       string                  `json:"analysis"`
	CausalChain    []causalEdgeResponse    `json:"causal_chain"`
	Predictions    []predictionResponse    `json:"predictions"`
	Sentiment      string                  `json:"sentiment" validate:"required,oneof=positive negative neutral mixed"`
	TopicIntensity string                  `json:"topic_intensity" validate:"required,oneof=breaking hot developing standard"`
	ReadingTime    int                     `json:"readingTime"`
	Timeline       []timelineEventResponse `json:"timeline,omitempty"`
	NarrativeArc   string                  `json:"narrativeArc,omitempty"`
}

// stripFence removes a single wrapping ```json ... ``` fenced code block,
// if present, leaving the content otherwise untouched.
func stripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// parseResponse strips an optional fence and unmarshals the strict JSON
// shape. The caller is responsible for falling back to a skeleton on error.
func parseResponse(raw string) (synthesisResponse, error) {
	var resp synthesisResponse
	if err := json.Unmarshal([]byte(stripFence(raw)), &resp); err != nil {
		return synthesisResponse{}, err
	}
	return resp, nil
}
