package token_management

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCalculateCost(t *testing.T) {
	tm := NewTokenManager(0.60, 2.50, 16384)

	in, out := tm.CalculateCost(1_000_000, 2_000_000)
	assert.InDelta(t, 0.60, in, 1e-12)
	assert.InDelta(t, 5.00, out, 1e-12)
}

func TestCalculateUsage(t *testing.T) {
	tm := NewTokenManager(1.0, 2.0, 100)

	report := tm.CalculateUsage(intPtr(300), intPtr(50), 2*time.Second)
	require.NotNil(t, report)

	assert.Equal(t, 350, report.TotalTokens)
	assert.InDelta(t, 0.0003, report.PromptCost, 1e-12)
	assert.InDelta(t, 0.0001, report.CompletionCost, 1e-12)
	assert.InDelta(t, 0.0004, report.TotalCost, 1e-12)
	assert.InDelta(t, 175.0, report.TokensPerSecond, 1e-9)
	assert.False(t, report.Truncated)
}

func TestCalculateUsage_MissingCounters(t *testing.T) {
	tm := NewTokenManager(1.0, 2.0, 100)

	assert.Nil(t, tm.CalculateUsage(nil, intPtr(1), time.Second))
	assert.Nil(t, tm.CalculateUsage(intPtr(1), nil, time.Second))
	assert.Nil(t, tm.CalculateUsage(nil, nil, time.Second))
}

func TestCalculateUsage_Truncation(t *testing.T) {
	tm := NewTokenManager(1.0, 2.0, 100)

	assert.True(t, tm.CalculateUsage(intPtr(1), intPtr(100), time.Second).Truncated)
	assert.True(t, tm.CalculateUsage(intPtr(1), intPtr(101), time.Second).Truncated)
	assert.False(t, tm.CalculateUsage(intPtr(1), intPtr(99), time.Second).Truncated)
}

func TestCalculateUsage_ZeroElapsed(t *testing.T) {
	report := NewTokenManager(1.0, 2.0, 100).CalculateUsage(intPtr(1), intPtr(1), 0)
	assert.Zero(t, report.TokensPerSecond)
}

func TestDisplayTokenUsage(t *testing.T) {
	tm := NewTokenManager(0.001, 0.001, 50)
	report := tm.CalculateUsage(intPtr(100), intPtr(50), time.Second)

	var buf bytes.Buffer
	tm.DisplayTokenUsage(&buf, ModelLabel("test-model", "Fireworks"), report)

	out := buf.String()
	assert.Contains(t, out, "Model: test-model [provider: Fireworks] | Prompt tokens: 100 ($0.0000) | Completion tokens: 50 ($0.0000) | Total tokens: 150 ($0.0000) | Time: 1.00s | Speed: 150.00 tokens/s")
	assert.Contains(t, out, "Completion tokens (50) equal or exceed max token limit (50)")

	buf.Reset()
	tm.DisplayTokenUsage(&buf, "m", nil)
	assert.Empty(t, buf.String())
}

func TestModelLabel(t *testing.T) {
	assert.Equal(t, "m", ModelLabel("m", ""))
	assert.Equal(t, "m [provider: p]", ModelLabel("m", "p"))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 1, EstimateTokens("żółć"))
}

func TestFormatRequestSummary(t *testing.T) {
	assert.Equal(t,
		"Model: moonshotai/kimi-k2 [provider: groq] | URL: https://openrouter.ai/api/v1/chat/completions | Cost: $0.6000/1M prompt, $2.5000/1M completion | Estimated input tokens: 42",
		FormatRequestSummary(ModelLabel("moonshotai/kimi-k2", "groq"), "https://openrouter.ai/api/v1/chat/completions", 0.60, 2.50, 42))
}
