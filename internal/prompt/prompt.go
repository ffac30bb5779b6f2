// Package prompt renders the system prompt handed to the chat model.
package prompt

import (
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// FallbackAnswer is what the model is told to say when it cannot answer.
const FallbackAnswer = "I don't have enough information at this time."

const systemTemplate = `You are an intelligent assistant designed to answer user questions. Provide accurate and concise answers to the best of your ability. Use any relevant documents or your own general knowledge to answer the user's question. You should not mention where the information comes from, just provide a seamless and natural response.
- Answer questions clearly and directly.
- Take the previous conversation into account for continuity and context.
- If you don't have enough information to provide an answer, simply respond with: '` + FallbackAnswer + `'

Context:

{context}

Previous Conversation:

{chat_history}

Based on the context, previous conversation, or your own general knowledge, answer the user's question in a natural and engaging way.`

// Builder renders system prompts, optionally trimming retrieved context to a
// token budget.
type Builder struct {
	counter Counter
	budget  int
}

// NewBuilder returns a Builder. A nil counter or a budget <= 0 disables
// trimming.
func NewBuilder(counter Counter, budget int) *Builder {
	return &Builder{counter: counter, budget: budget}
}

// System renders the system prompt for req.
func (b *Builder) System(req domain.GenerationRequest) string {
	context := strings.Join(b.Fit(req.Context), "\n\n")
	r := strings.NewReplacer("{context}", context, "{chat_history}", req.Transcript)
	return r.Replace(systemTemplate)
}

// Fit keeps context passages, best first, while their combined token count
// stays within the budget.
func (b *Builder) Fit(passages []string) []string {
	if b == nil || b.counter == nil || b.budget <= 0 {
		return passages
	}

	used := 0
	for i, p := range passages {
		used += b.counter.Count(p)
		if used > b.budget {
			return passages[:i]
		}
	}
	return passages
}
