package biz

import (
	"strings"
)

// Intent classifies a user query.
type Intent int

const (
	// IntentFresh starts a new catalog search.
	IntentFresh Intent = iota
	// IntentFollowUp asks for more detail about the previously surfaced course.
	IntentFollowUp
)

// String returns the intent name used in logs.
func (i Intent) String() string {
	if i == IntentFollowUp {
		return "follow_up"
	}
	return "fresh"
}

// Classifier decides whether a query is a follow-up or a fresh search.
// The pipeline only depends on this contract, so the substring heuristic
// below can be swapped for an embedding-based classifier later.
type Classifier interface {
	Classify(query string) Intent
}

// defaultTriggers are the phrases marking a follow-up request. The service
// speaks Russian, the few English variants cover mixed-language users.
var defaultTriggers = []string{
	"подробнее",
	"расскажи больше",
	"расскажи ещё",
	"расскажи еще",
	"об этом курсе",
	"про этот курс",
	"tell me more",
	"more detail",
}

// TriggerClassifier detects follow-ups by case-insensitive substring match
// against a fixed trigger set.
type TriggerClassifier struct {
	triggers []string
}

// NewTriggerClassifier creates a classifier with the given trigger phrases.
// An empty list falls back to the default set.
func NewTriggerClassifier(triggers []string) *TriggerClassifier {
	if len(triggers) == 0 {
		triggers = defaultTriggers
	}
	lowered := make([]string, len(triggers))
	for i, t := range triggers {
		lowered[i] = strings.ToLower(t)
	}
	return &TriggerClassifier{triggers: lowered}
}

var _ Classifier = (*TriggerClassifier)(nil)

// Classify returns IntentFollowUp when the query contains any trigger
// phrase, compared case-insensitively.
func (c *TriggerClassifier) Classify(query string) Intent {
	lowered := strings.ToLower(query)
	for _, trigger := range c.triggers {
		if strings.Contains(lowered, trigger) {
			return IntentFollowUp
		}
	}
	return IntentFresh
}
