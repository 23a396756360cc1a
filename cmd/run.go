package cmd

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/00dev-org/llmpal/config"
	"github.com/00dev-org/llmpal/constants/lipgloss"
	"github.com/00dev-org/llmpal/providers/openrouter"
	"github.com/00dev-org/llmpal/response_parser"
	"github.com/00dev-org/llmpal/token_management"
	"github.com/00dev-org/llmpal/utils"
)

const (
	waitingMessage   = "Waiting for LLM response"
	analyzingMessage = "Analyzing LLM response"
)

// runPrompt performs one request/parse/apply cycle. Inputs are read before the
// network call, and nothing is written unless every returned path was allowed.
func runPrompt(ctx context.Context, rootDependencies *RootDependencies, opts *rootOptions, instruction string) error {
	profile := rootDependencies.Profile
	analyzer := rootDependencies.Analyzer
	logger := rootDependencies.Logger

	inputs, err := analyzer.CollectInputs(opts.files, opts.output)
	if err != nil {
		return err
	}

	apiKey, err := config.ResolveAPIKey(profile, rootDependencies.LookupEnv)
	if err != nil {
		return err
	}

	files, err := analyzer.ReadInputFiles(inputs)
	if err != nil {
		return err
	}

	systemPrompt, userPrompt := analyzer.GeneratePrompt(inputs.Allowed, rootDependencies.Config.Rules, instruction, files, inputs.OutputPath)
	logger.Debug("system prompt", zap.String("prompt", systemPrompt))
	logger.Debug("user prompt", zap.String("prompt", userPrompt))

	request := openrouter.BuildRequest(profile.Model, profile.Provider, systemPrompt, userPrompt, profile.MaxOutputTokens(), profile.IsDefaultEndpoint())
	provider := openrouter.NewOpenRouterChatProvider(&openrouter.OpenRouterConfig{
		APIURL: profile.Endpoint(),
		APIKey: apiKey,
		Trace:  opts.trace,
		Logger: logger,
	})

	estimatedTokens := token_management.EstimateTokens(systemPrompt) + token_management.EstimateTokens(userPrompt)
	fmt.Fprintln(rootDependencies.Stderr, lipgloss.Info.Render(token_management.FormatRequestSummary(
		token_management.ModelLabel(profile.Model, profile.Provider),
		profile.Endpoint(), profile.PromptCost, profile.CompletionCost, estimatedTokens)))

	requestCtx, cancel := withDeadline(ctx, rootDependencies.Config.Timeout)
	defer cancel()

	start := time.Now()
	stopSpinner := utils.StartSpinner(requestCtx, rootDependencies.Stderr, waitingMessage)
	response, err := provider.ChatCompletionRequest(requestCtx, request)
	elapsed := time.Since(start)
	stopSpinner()
	if err != nil {
		return err
	}

	reply, _ := response.Content()
	logger.Debug("raw llm output", zap.String("reply", reply))

	stopSpinner = utils.StartSpinner(ctx, rootDependencies.Stderr, analyzingMessage)
	defer stopSpinner()

	parsed, err := response_parser.Parse(reply)
	if err == nil {
		err = analyzer.GuardChanges(reply, parsed.Files, inputs.Allowed)
	}
	stopSpinner()
	if err != nil {
		return err
	}

	if parsed.Trailing != "" {
		logger.Debug("text outside sections", zap.String("trailing", parsed.Trailing))
	}

	if parsed.Explanation != "" {
		var rendered bytes.Buffer
		if err := utils.RenderAndPrintMarkdown(&rendered, parsed.Explanation, rootDependencies.Config.Theme); err != nil {
			logger.Warn("Error rendering markdown", zap.Error(err))
			rendered.Reset()
			rendered.WriteString(parsed.Explanation + "\n")
		}
		_, _ = rootDependencies.Stdout.Write(rendered.Bytes())
	}

	if err := analyzer.ApplyChanges(parsed.Files); err != nil {
		return err
	}
	for _, change := range parsed.Files {
		fmt.Fprintln(rootDependencies.Stderr, lipgloss.Green.Render(fmt.Sprintf("✔️ %s", change.RelativePath)))
	}

	if response.Usage != nil {
		report := rootDependencies.TokenManagement.CalculateUsage(response.Usage.PromptTokens, response.Usage.CompletionTokens, elapsed)
		rootDependencies.TokenManagement.DisplayTokenUsage(rootDependencies.Stderr, token_management.ModelLabel(profile.Model, response.Provider), report)
	}

	return nil
}

// withDeadline applies the configured request timeout; zero disables it.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
