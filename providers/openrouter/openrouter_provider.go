package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/00dev-org/llmpal/app_errors"
	"github.com/00dev-org/llmpal/providers/contracts"
	"github.com/00dev-org/llmpal/providers/models"
)

const (
	DefaultAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	refererHeader = "https://github.com/00dev-org/llmpal"
	titleHeader   = "llmpal"
)

// OpenRouterConfig implements IChatAIProvider for OpenRouter and any
// OpenAI-compatible chat-completion endpoint.
type OpenRouterConfig struct {
	APIURL     string
	APIKey     string
	Trace      bool
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewOpenRouterChatProvider fills in defaults for an empty URL, client or logger.
func NewOpenRouterChatProvider(config *OpenRouterConfig) contracts.IChatAIProvider {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenRouterConfig{
		APIURL:     apiURL,
		APIKey:     config.APIKey,
		Trace:      config.Trace,
		HTTPClient: client,
		Logger:     logger,
	}
}

// BuildRequest assembles the request body. A pinned provider restricts routing
// to exactly that provider; talking to the default endpoint adds a
// data_collection=deny directive.
func BuildRequest(model string, provider string, systemPrompt string, userPrompt string, maxTokens int, isDefaultAPIURL bool) *models.ChatCompletionRequest {
	request := &models.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []models.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	var preferences *models.ProviderPreferences
	if provider != "" {
		preferences = &models.ProviderPreferences{Only: []string{provider}}
	}
	if isDefaultAPIURL {
		if preferences == nil {
			preferences = &models.ProviderPreferences{}
		}
		preferences.DataCollection = "deny"
	}
	request.Provider = preferences

	return request
}

// MarshalRequest serializes the body, classifying failures as serialize errors.
func MarshalRequest(request *models.ChatCompletionRequest) ([]byte, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, app_errors.Wrap(app_errors.KindSerialize, err, "failed to serialize JSON")
	}
	return jsonData, nil
}

func (p *OpenRouterConfig) ChatCompletionRequest(ctx context.Context, request *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	jsonData, err := MarshalRequest(request)
	if err != nil {
		return nil, err
	}

	if p.Trace {
		p.Logger.Debug("raw llm request", zap.String("body", prettyJSON(jsonData)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, app_errors.Wrap(app_errors.KindTransport, err, "error creating request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("HTTP-Referer", refererHeader)
	req.Header.Set("X-Title", titleHeader)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, app_errors.Wrap(app_errors.KindTransport, err, "request timed out")
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, app_errors.Wrap(app_errors.KindTransport, err, "request canceled")
		}
		return nil, app_errors.Wrap(app_errors.KindTransport, err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, app_errors.Wrap(app_errors.KindTransport, err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := app_errors.New(app_errors.KindTransport,
			"API request failed with status %s: %s", resp.Status, strings.TrimSpace(string(body)))
		e.StatusCode = resp.StatusCode
		return nil, e
	}

	if p.Trace {
		p.Logger.Debug("raw llm response", zap.String("body", prettyJSON(body)))
	}

	var response models.ChatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, app_errors.Wrap(app_errors.KindTransport, err, "failed to parse JSON response")
	}

	if _, ok := response.Content(); !ok {
		return nil, app_errors.New(app_errors.KindFormat, "invalid response format from API: missing choices[0].message.content")
	}

	return &response, nil
}

func prettyJSON(data []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return string(data)
	}
	return out.String()
}

