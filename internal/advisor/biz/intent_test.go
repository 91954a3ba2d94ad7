package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerClassifier_Classify(t *testing.T) {
	c := NewTriggerClassifier(nil)

	tests := []struct {
		name     string
		query    string
		expected Intent
	}{
		{
			name:     "plain search query",
			query:    "посоветуй курс по go",
			expected: IntentFresh,
		},
		{
			name:     "trigger word",
			query:    "подробнее",
			expected: IntentFollowUp,
		},
		{
			name:     "trigger inside a sentence",
			query:    "а можно подробнее про программу?",
			expected: IntentFollowUp,
		},
		{
			name:     "uppercase trigger",
			query:    "РАССКАЖИ БОЛЬШЕ",
			expected: IntentFollowUp,
		},
		{
			name:     "mixed case trigger",
			query:    "Расскажи Ещё про него",
			expected: IntentFollowUp,
		},
		{
			name:     "yo-less spelling",
			query:    "расскажи еще",
			expected: IntentFollowUp,
		},
		{
			name:     "english trigger",
			query:    "tell me more about it",
			expected: IntentFollowUp,
		},
		{
			name:     "course reference trigger",
			query:    "что входит в программу? расскажи про этот курс",
			expected: IntentFollowUp,
		},
		{
			name:     "empty query",
			query:    "",
			expected: IntentFresh,
		},
		{
			name:     "query mentioning courses without trigger",
			query:    "какие курсы по питону есть?",
			expected: IntentFresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.query))
		})
	}
}

func TestTriggerClassifier_CustomTriggers(t *testing.T) {
	c := NewTriggerClassifier([]string{"ДЕТАЛИ"})

	assert.Equal(t, IntentFollowUp, c.Classify("покажи детали"))
	// Default triggers are replaced, not merged.
	assert.Equal(t, IntentFresh, c.Classify("расскажи подробнее"))
}

func TestIntent_String(t *testing.T) {
	assert.Equal(t, "fresh", IntentFresh.String())
	assert.Equal(t, "follow_up", IntentFollowUp.String())
}
