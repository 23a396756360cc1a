package models

// Message is one entry of the chat-completion messages array.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderPreferences restricts OpenRouter routing. Both fields are optional
// and the whole object is omitted when neither is set.
type ProviderPreferences struct {
	Only           []string `json:"only,omitempty"`
	DataCollection string   `json:"data_collection,omitempty"`
}

// ChatCompletionRequest is the outbound JSON body.
type ChatCompletionRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	Messages  []Message            `json:"messages"`
	Provider  *ProviderPreferences `json:"provider,omitempty"`
}

// Usage counters are pointers because the API may omit them.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
}

type Choice struct {
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// ChatCompletionResponse is the inbound JSON body.
type ChatCompletionResponse struct {
	ID       string   `json:"id"`
	Provider string   `json:"provider"`
	Choices  []Choice `json:"choices"`
	Usage    *Usage   `json:"usage"`
}

// Content returns choices[0].message.content.
func (r *ChatCompletionResponse) Content() (string, bool) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message.Content == nil {
		return "", false
	}
	return *r.Choices[0].Message.Content, true
}
