package contracts

import (
	"io"
	"time"
)

// UsageReport is the telemetry derived from one reply's usage counters.
type UsageReport struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	PromptCost       float64
	CompletionCost   float64
	TotalCost        float64
	Elapsed          time.Duration
	TokensPerSecond  float64
	// Truncated is set when the completion reached the output ceiling.
	Truncated bool
	MaxTokens int
}

type ITokenManagement interface {
	CalculateCost(inputToken int, outputToken int) (inputCost float64, outputCost float64)
	CalculateUsage(promptTokens *int, completionTokens *int, elapsed time.Duration) *UsageReport
	DisplayTokenUsage(w io.Writer, modelLabel string, report *UsageReport)
}
