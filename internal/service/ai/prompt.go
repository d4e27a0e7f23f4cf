package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/line-relay/backend/internal/model/persona"
)

// BaseDirective is the system directive shared by every persona.
const BaseDirective = "You are a helpful Thai assistant for LINE OA. " +
	"Answer clearly in Thai by default, be concise, and use bullet points when helpful."

// PromptBuilder composes the system directive for a persona.
type PromptBuilder struct {
	base string
}

// NewPromptBuilder returns a builder around base; an empty base uses BaseDirective.
func NewPromptBuilder(base string) *PromptBuilder {
	if strings.TrimSpace(base) == "" {
		base = BaseDirective
	}
	return &PromptBuilder{base: base}
}

// Build pairs the persona directive with the user's text.
func (b *PromptBuilder) Build(p *persona.Persona, userText string) Prompt {
	return Prompt{
		System: b.SystemPrompt(p),
		User:   userText,
	}
}

// SystemPrompt renders the base directive followed by the persona's style.
func (b *PromptBuilder) SystemPrompt(p *persona.Persona) string {
	if p == nil || strings.TrimSpace(p.Style) == "" {
		return b.base
	}

	return fmt.Sprintf(`%s

Persona: %s
Style: %s`,
		b.base,
		p.Name,
		strings.TrimSpace(p.Style),
	)
}
