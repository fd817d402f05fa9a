package session

import (
	"fmt"
	"strings"
)

// AnimalContext is the static record the shell supplies once at session
// creation. It is folded into the system prompt and never mutated.
type AnimalContext struct {
	CommonName     string
	ScientificName string
	Description    string
	Habitat        string
	Diet           string
	FunFact        string
}

// SystemPrompt builds the immutable remote-agent system prompt.
func (a AnimalContext) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a friendly wildlife guide speaking aloud with a curious visitor. ")
	if a.CommonName != "" {
		fmt.Fprintf(&b, "The visitor is looking at a %s", a.CommonName)
		if a.ScientificName != "" {
			fmt.Fprintf(&b, " (%s)", a.ScientificName)
		}
		b.WriteString(". ")
	}
	if a.Description != "" {
		fmt.Fprintf(&b, "About this animal: %s ", strings.TrimSpace(a.Description))
	}
	if a.Habitat != "" {
		fmt.Fprintf(&b, "Habitat: %s. ", strings.TrimSpace(a.Habitat))
	}
	if a.Diet != "" {
		fmt.Fprintf(&b, "Diet: %s. ", strings.TrimSpace(a.Diet))
	}
	if a.FunFact != "" {
		fmt.Fprintf(&b, "Fun fact: %s ", strings.TrimSpace(a.FunFact))
	}
	b.WriteString("Answer questions about this animal in short, conversational speech. " +
		"Do not emit markdown. Expand numbers, symbols, and abbreviations for speech.")
	return b.String()
}
