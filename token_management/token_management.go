package token_management

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/00dev-org/llmpal/constants/lipgloss"
	"github.com/00dev-org/llmpal/token_management/contracts"
)

// TokenManager implementation
type tokenManager struct {
	promptCostPerMillion     float64
	completionCostPerMillion float64
	maxOutputTokens          int
}

// NewTokenManager creates a token manager for one model's rates, given in USD
// per million tokens.
func NewTokenManager(promptCostPerMillion float64, completionCostPerMillion float64, maxOutputTokens int) contracts.ITokenManagement {
	return &tokenManager{
		promptCostPerMillion:     promptCostPerMillion,
		completionCostPerMillion: completionCostPerMillion,
		maxOutputTokens:          maxOutputTokens,
	}
}

func (tm *tokenManager) CalculateCost(inputToken int, outputToken int) (float64, float64) {
	inputCost := float64(inputToken) * tm.promptCostPerMillion / 1000000.0
	outputCost := float64(outputToken) * tm.completionCostPerMillion / 1000000.0
	return inputCost, outputCost
}

// CalculateUsage returns nil unless both counters are present.
func (tm *tokenManager) CalculateUsage(promptTokens *int, completionTokens *int, elapsed time.Duration) *contracts.UsageReport {
	if promptTokens == nil || completionTokens == nil {
		return nil
	}

	promptCost, completionCost := tm.CalculateCost(*promptTokens, *completionTokens)
	total := *promptTokens + *completionTokens

	var tokensPerSecond float64
	if elapsed > 0 {
		tokensPerSecond = float64(total) / elapsed.Seconds()
	}

	return &contracts.UsageReport{
		PromptTokens:     *promptTokens,
		CompletionTokens: *completionTokens,
		TotalTokens:      total,
		PromptCost:       promptCost,
		CompletionCost:   completionCost,
		TotalCost:        promptCost + completionCost,
		Elapsed:          elapsed,
		TokensPerSecond:  tokensPerSecond,
		Truncated:        *completionTokens >= tm.maxOutputTokens,
		MaxTokens:        tm.maxOutputTokens,
	}
}

// DisplayTokenUsage prints the usage line and, when the completion hit the
// ceiling, the truncation warning. A nil report prints nothing.
func (tm *tokenManager) DisplayTokenUsage(w io.Writer, modelLabel string, report *contracts.UsageReport) {
	if report == nil {
		return
	}

	fmt.Fprintln(w, FormatUsage(modelLabel, report))

	if report.Truncated {
		fmt.Fprintln(w, lipgloss.Yellow.Render(fmt.Sprintf(
			"Warning: Completion tokens (%d) equal or exceed max token limit (%d). Output might be missing or incomplete.",
			report.CompletionTokens, report.MaxTokens)))
	}
}

// FormatUsage renders the single-line usage summary.
func FormatUsage(modelLabel string, report *contracts.UsageReport) string {
	return fmt.Sprintf(
		"Model: %s | Prompt tokens: %d ($%.4f) | Completion tokens: %d ($%.4f) | Total tokens: %d ($%.4f) | Time: %.2fs | Speed: %.2f tokens/s",
		modelLabel,
		report.PromptTokens, report.PromptCost,
		report.CompletionTokens, report.CompletionCost,
		report.TotalTokens, report.TotalCost,
		report.Elapsed.Seconds(),
		report.TokensPerSecond,
	)
}

// ModelLabel appends the serving provider when the API reported one.
func ModelLabel(model string, provider string) string {
	if provider == "" {
		return model
	}
	return fmt.Sprintf("%s [provider: %s]", model, provider)
}

// EstimateTokens is a rough pre-request estimate of four characters per token.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// FormatRequestSummary renders the line printed before the request is sent.
func FormatRequestSummary(modelLabel string, apiURL string, promptCostPerMillion float64, completionCostPerMillion float64, estimatedInputTokens int) string {
	return fmt.Sprintf("Model: %s | URL: %s | Cost: $%.4f/1M prompt, $%.4f/1M completion | Estimated input tokens: %d",
		modelLabel, apiURL, promptCostPerMillion, completionCostPerMillion, estimatedInputTokens)
}
