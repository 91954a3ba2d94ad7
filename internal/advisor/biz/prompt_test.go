package biz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/course-advisor/pkg/llm"
)

func TestContextBlock(t *testing.T) {
	entries := []CatalogEntry{
		{Title: "Go с нуля", Description: "Базовый курс по Go."},
		{Title: "Продвинутый Go", Description: "Конкурентность и внутренности рантайма."},
	}

	block := ContextBlock(entries)

	expected := "Название: Go с нуля\nОписание: Базовый курс по Go.\n\n" +
		"Название: Продвинутый Go\nОписание: Конкурентность и внутренности рантайма."
	assert.Equal(t, expected, block)
}

func TestContextBlock_SingleEntry(t *testing.T) {
	block := ContextBlock([]CatalogEntry{{Title: "Курс", Description: "Описание."}})
	assert.Equal(t, "Название: Курс\nОписание: Описание.", block)
}

func TestContextBlock_Empty(t *testing.T) {
	assert.Empty(t, ContextBlock(nil))
}

func TestAssemble_Structure(t *testing.T) {
	a := NewPromptAssembler(10)
	entries := []CatalogEntry{{Title: "Курс", Description: "Описание."}}
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "предыдущий вопрос"},
		{Role: llm.RoleAssistant, Content: "предыдущий ответ"},
	}

	messages := a.Assemble("найди курс по go", entries, history)

	require.Len(t, messages, 4)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, systemPersona, messages[0].Content)
	assert.Equal(t, history[0], messages[1])
	assert.Equal(t, history[1], messages[2])

	final := messages[3]
	assert.Equal(t, llm.RoleUser, final.Role)
	// The instruction embeds the literal query and the context block.
	assert.Contains(t, final.Content, `"найди курс по go"`)
	assert.Contains(t, final.Content, "Название: Курс")
	assert.Contains(t, final.Content, "ничего не выдумывай")
}

func TestAssemble_WindowCapsHistory(t *testing.T) {
	a := NewPromptAssembler(4)

	history := make([]llm.Message, 9)
	for i := range history {
		history[i] = llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("m%d", i)}
	}

	messages := a.Assemble("запрос", nil, history)

	// system + 4 most recent + instruction.
	require.Len(t, messages, 6)
	assert.Equal(t, "m5", messages[1].Content)
	assert.Equal(t, "m8", messages[4].Content)
}

func TestAssemble_NoHistory(t *testing.T) {
	a := NewPromptAssembler(10)

	messages := a.Assemble("запрос", nil, nil)

	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, llm.RoleUser, messages[1].Role)
}
