package llm

import "context"

// Message is a minimal chat message passed to the completion service.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Options tune a single completion call. A zero Temperature means fully
// deterministic output (classification/extraction tasks); conversational
// tasks pass something around 0.7.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Completer is the text-completion collaborator consumed by the intake
// controller: system prompt plus message history in, assistant text out.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message, opts Options) (string, error)
}
