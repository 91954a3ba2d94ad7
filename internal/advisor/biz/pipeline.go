package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/course-advisor/internal/advisor/metrics"
	"github.com/kart-io/course-advisor/pkg/llm"
)

// msgClarifyFollowUp is returned when a follow-up arrives before any course
// has been surfaced in the session.
const msgClarifyFollowUp = "Уточните, пожалуйста, о каком курсе вы хотите узнать подробнее. Сначала спросите меня о курсах, которые вас интересуют."

// msgDetailsNotFound is returned when the referenced course has no extended
// description.
const msgDetailsNotFound = "К сожалению, дополнительной информации по курсу «%s» у меня нет."

// PipelineConfig configures the query pipeline.
type PipelineConfig struct {
	// FreshTopK is the candidate count for fresh queries. The default is
	// wide enough for enumeration-style answers.
	FreshTopK int
	// FollowUpTopK is the candidate count for targeted follow-up lookups.
	FollowUpTopK int
	// HistoryWindow caps the prior messages included in the prompt.
	HistoryWindow int
}

// Pipeline resolves one query end to end: classify the intent, retrieve
// catalog entries, assemble the grounded prompt, invoke the chat model and
// update conversation state. HandleQuery always returns a user-facing
// string; failures are converted at this boundary, never propagated.
type Pipeline struct {
	classifier Classifier
	retriever  *Retriever
	assembler  *PromptAssembler
	chat       llm.ChatProvider
	cache      *AnswerCache
	metrics    *metrics.AdvisorMetrics
	config     *PipelineConfig
}

// NewPipeline creates a query pipeline.
func NewPipeline(
	classifier Classifier,
	retriever *Retriever,
	chat llm.ChatProvider,
	cache *AnswerCache,
	config *PipelineConfig,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		retriever:  retriever,
		assembler:  NewPromptAssembler(config.HistoryWindow),
		chat:       chat,
		cache:      cache,
		metrics:    metrics.GetAdvisorMetrics(),
		config:     config,
	}
}

// HandleQuery processes one query on a conversation. Queries on the same
// conversation are serialized; conversations from different sessions run
// in parallel.
func (p *Pipeline) HandleQuery(ctx context.Context, conv *Conversation, query string) string {
	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.touch()

	intent := p.classifier.Classify(query)
	logger.Debugw("classified query",
		"session", conv.id,
		"intent", intent.String(),
	)

	if intent == IntentFollowUp {
		return p.handleFollowUp(ctx, conv)
	}
	return p.handleFresh(ctx, conv, query)
}

// handleFollowUp resolves a detail request about the previously surfaced
// course. It never updates last-referenced state or history.
func (p *Pipeline) handleFollowUp(ctx context.Context, conv *Conversation) string {
	title := conv.lastTitle
	if title == "" {
		p.metrics.RecordQuery(true, false)
		return msgClarifyFollowUp
	}

	result, err := p.retrieveTimed(ctx, title, p.config.FollowUpTopK)
	if err != nil {
		failure := AsFailure(err)
		p.metrics.RecordQuery(true, true)
		if failure.Kind == FailureNoUsableMatches {
			// The course vanished from the index since it was surfaced.
			logger.Warnw("follow-up target not found", "session", conv.id, "title", title)
			return fmt.Sprintf(msgDetailsNotFound, title)
		}
		logger.Errorw("follow-up lookup failed",
			"session", conv.id,
			"title", title,
			"kind", failure.Kind.String(),
			"error", failure.Error(),
		)
		return failure.UserMessage()
	}

	entry := result.Entries[0]
	if strings.TrimSpace(entry.Details) == "" {
		p.metrics.RecordQuery(true, false)
		return fmt.Sprintf(msgDetailsNotFound, title)
	}

	p.metrics.RecordQuery(true, false)
	return entry.Details
}

// handleFresh resolves a new catalog search: retrieval, prompt assembly,
// generation and state update.
func (p *Pipeline) handleFresh(ctx context.Context, conv *Conversation, query string) string {
	if p.cache != nil {
		if cached := p.cache.Get(ctx, query); cached != nil {
			p.metrics.RecordCache(true)
			p.metrics.RecordQuery(false, false)
			// A cache hit still advances conversation state the same way
			// a generated answer would.
			if cached.TopTitle != "" {
				conv.lastTitle = cached.TopTitle
			}
			conv.appendTurn(llm.RoleUser, query)
			conv.appendTurn(llm.RoleAssistant, cached.Answer)
			return cached.Answer
		}
		p.metrics.RecordCache(false)
	}

	result, err := p.retrieveTimed(ctx, query, p.config.FreshTopK)
	if err != nil {
		failure := AsFailure(err)
		p.metrics.RecordQuery(false, true)
		logger.Errorw("retrieval failed",
			"session", conv.id,
			"kind", failure.Kind.String(),
			"error", failure.Error(),
		)
		return failure.UserMessage()
	}

	topTitle := result.Entries[0].Title
	conv.lastTitle = topTitle

	// The window covers history preceding the new user turn.
	window := conv.recentHistory(p.config.HistoryWindow)
	conv.appendTurn(llm.RoleUser, query)

	messages := p.assembler.Assemble(query, result.Entries, window)

	llmStart := time.Now()
	answer, err := p.chat.Chat(ctx, messages)
	p.metrics.RecordLLMCall(time.Since(llmStart), err)

	if err != nil {
		kind := FailureGeneration
		if errors.Is(err, llm.ErrNoCompletion) {
			// A response without a completion is an empty reply, not an
			// outage.
			kind = FailureEmptyGeneration
		}
		failure := NewFailure(kind, err)
		p.metrics.RecordQuery(false, true)
		logger.Errorw("generation failed",
			"session", conv.id,
			"provider", p.chat.Name(),
			"kind", kind.String(),
			"error", err.Error(),
		)
		// The user turn stays in history, no assistant turn is appended.
		return failure.UserMessage()
	}

	if strings.TrimSpace(answer) == "" {
		failure := NewFailure(FailureEmptyGeneration, nil)
		p.metrics.RecordQuery(false, true)
		logger.Errorw("generation returned empty content",
			"session", conv.id,
			"provider", p.chat.Name(),
		)
		return failure.UserMessage()
	}

	conv.appendTurn(llm.RoleAssistant, answer)

	if p.cache != nil {
		p.cache.Set(ctx, query, &CachedAnswer{Answer: answer, TopTitle: topTitle})
	}

	return answer
}

// retrieveTimed wraps retrieval with metrics recording.
func (p *Pipeline) retrieveTimed(ctx context.Context, query string, topK int) (*RetrievalResult, error) {
	start := time.Now()
	result, err := p.retriever.Retrieve(ctx, query, topK)

	dropped := 0
	if result != nil {
		dropped = result.TotalMatches - len(result.Entries)
	}
	p.metrics.RecordRetrieval(time.Since(start), dropped, err)

	return result, err
}
