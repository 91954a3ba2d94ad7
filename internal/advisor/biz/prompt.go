package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/course-advisor/pkg/llm"
)

// systemPersona is the fixed system message for every generation request.
const systemPersona = "Ты — эксперт по IT-курсам."

// instructionTemplate grounds the model in the retrieved catalog entries.
// It embeds the literal user query and the context block.
const instructionTemplate = `Ты — консультант по обучению. Пользователь спрашивает: "%s".
На основе следующих курсов ответь максимально полезно:

%s

Правила ответа:
- Используй только информацию из приведённых курсов, ничего не выдумывай.
- Оформи ответ как структурированный список: название курса и его ключевые особенности.
- Если информации недостаточно, задай пользователю уточняющий вопрос.
- Если подходящего курса нет, предложи альтернативные направления в IT.`

// CatalogEntry is a usable catalog match handed to prompt assembly.
type CatalogEntry struct {
	ID          string
	Title       string
	Description string
	Details     string
	Score       float32
}

// PromptAssembler builds the generation payload from retrieved entries and
// a bounded history window. Assembly is a pure function, it never mutates
// conversation state.
type PromptAssembler struct {
	historyWindow int
}

// NewPromptAssembler creates an assembler. historyWindow caps how many of
// the most recent prior messages are included.
func NewPromptAssembler(historyWindow int) *PromptAssembler {
	return &PromptAssembler{historyWindow: historyWindow}
}

// ContextBlock renders the retrieved entries as the grounding context:
// a two-line template per entry, blank line between entries, in the order
// received.
func ContextBlock(entries []CatalogEntry) string {
	blocks := make([]string, len(entries))
	for i, entry := range entries {
		blocks[i] = fmt.Sprintf("Название: %s\nОписание: %s", entry.Title, entry.Description)
	}
	return strings.Join(blocks, "\n\n")
}

// Assemble builds the full message payload: the persona, at most the last
// historyWindow messages of prior history, and the grounded instruction as
// the final user message.
func (a *PromptAssembler) Assemble(query string, entries []CatalogEntry, history []llm.Message) []llm.Message {
	window := history
	if a.historyWindow >= 0 && len(window) > a.historyWindow {
		window = window[len(window)-a.historyWindow:]
	}

	messages := make([]llm.Message, 0, len(window)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPersona})
	messages = append(messages, window...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(instructionTemplate, query, ContextBlock(entries)),
	})

	return messages
}
