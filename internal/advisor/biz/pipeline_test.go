package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/course-advisor/internal/advisor/store"
	"github.com/kart-io/course-advisor/pkg/llm"
)

// fakeStore implements store.VectorStore with overridable behavior and
// call counters.
type fakeStore struct {
	mu          sync.Mutex
	statsCount  int64
	statsErr    error
	searchFn    func(collection string, embedding []float32, topK int) ([]*store.SearchResult, error)
	insertErr   error
	statsCalls  int
	searchCalls int
	insertCalls int
	dropCalls   int
	lastTopK    int
}

func (f *fakeStore) CreateCollection(_ context.Context, _ *store.CollectionConfig) error {
	return nil
}

func (f *fakeStore) Insert(_ context.Context, _ string, courses []*store.CourseVector) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.CourseID
	}
	return ids, nil
}

func (f *fakeStore) Search(_ context.Context, collection string, embedding []float32, topK int) ([]*store.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastTopK = topK
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(collection, embedding, topK)
}

func (f *fakeStore) DropCollection(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropCalls++
	return nil
}

func (f *fakeStore) GetStats(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return f.statsCount, f.statsErr
}

func (f *fakeStore) Close(_ context.Context) error { return nil }

// fakeEmbedder implements llm.EmbeddingProvider.
type fakeEmbedder struct {
	mu        sync.Mutex
	embedErr  error
	dimension int
	calls     int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	dim := f.dimension
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dim)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake-embedder" }

// fakeChat implements llm.ChatProvider and records the last payload.
type fakeChat struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	lastMsgs []llm.Message
}

func (f *fakeChat) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMsgs = append([]llm.Message(nil), messages...)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) Name() string { return "fake-chat" }

func courseMatches(titles ...string) []*store.SearchResult {
	out := make([]*store.SearchResult, len(titles))
	for i, title := range titles {
		out[i] = &store.SearchResult{
			CourseID:    fmt.Sprintf("c%d", i),
			Title:       title,
			Description: "Описание курса " + title,
			Details:     "Подробная программа курса " + title,
			Score:       1.0 - float32(i)*0.1,
		}
	}
	return out
}

func newTestPipeline(st *fakeStore, emb *fakeEmbedder, chat *fakeChat) *Pipeline {
	retriever := NewRetriever(st, emb, &RetrieverConfig{Collection: "courses_test"})
	return NewPipeline(NewTriggerClassifier(nil), retriever, chat, nil, &PipelineConfig{
		FreshTopK:     13,
		FollowUpTopK:  1,
		HistoryWindow: 10,
	})
}

func TestHandleQuery_FreshSuccess(t *testing.T) {
	st := &fakeStore{
		statsCount: 42,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Go для начинающих", "Алгоритмы на Go"), nil
		},
	}
	chat := &fakeChat{reply: "Курс Go для начинающих: отличный выбор."}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	query := "расскажи про курсы Go"
	answer := p.HandleQuery(context.Background(), conv, query)

	assert.Equal(t, "Курс Go для начинающих: отличный выбор.", answer)
	assert.Equal(t, "Go для начинающих", conv.LastTitle())

	history := conv.History()
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, query, history[0].Content)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.Equal(t, answer, history[1].Content)

	assert.Equal(t, 13, st.lastTopK)
}

func TestHandleQuery_FreshPromptIsGrounded(t *testing.T) {
	st := &fakeStore{
		statsCount: 2,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Python с нуля", "SQL для аналитиков"), nil
		},
	}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	query := "хочу выучить python"
	p.HandleQuery(context.Background(), conv, query)

	require.NotEmpty(t, chat.lastMsgs)
	assert.Equal(t, llm.RoleSystem, chat.lastMsgs[0].Role)
	assert.Equal(t, "Ты — эксперт по IT-курсам.", chat.lastMsgs[0].Content)

	final := chat.lastMsgs[len(chat.lastMsgs)-1]
	assert.Equal(t, llm.RoleUser, final.Role)
	assert.Contains(t, final.Content, query)
	assert.Contains(t, final.Content, "Название: Python с нуля")
	assert.Contains(t, final.Content, "Название: SQL для аналитиков")

	// Similarity order survives into the context block.
	assert.Less(t,
		strings.Index(final.Content, "Python с нуля"),
		strings.Index(final.Content, "SQL для аналитиков"),
	)
}

func TestHandleQuery_FollowUpWithoutContext(t *testing.T) {
	st := &fakeStore{statsCount: 10}
	emb := &fakeEmbedder{}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, emb, chat)
	conv := NewManager().Create()

	answer := p.HandleQuery(context.Background(), conv, "расскажи подробнее")

	assert.Equal(t, msgClarifyFollowUp, answer)
	assert.Empty(t, conv.History())
	assert.Zero(t, st.statsCalls)
	assert.Zero(t, st.searchCalls)
	assert.Zero(t, emb.calls)
	assert.Zero(t, chat.calls)
}

func TestHandleQuery_FollowUpReturnsDetails(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("DevOps практикум"), nil
		},
	}
	chat := &fakeChat{reply: "Рекомендую DevOps практикум."}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	p.HandleQuery(context.Background(), conv, "какие есть курсы по devops")
	require.Equal(t, "DevOps практикум", conv.LastTitle())
	historyBefore := conv.History()
	chatCallsBefore := chat.calls

	answer := p.HandleQuery(context.Background(), conv, "расскажи подробнее об этом курсе")

	assert.Equal(t, "Подробная программа курса DevOps практикум", answer)
	// A follow-up never touches history, the referenced title or the
	// generation model.
	assert.Equal(t, historyBefore, conv.History())
	assert.Equal(t, "DevOps практикум", conv.LastTitle())
	assert.Equal(t, chatCallsBefore, chat.calls)
	assert.Equal(t, 1, st.lastTopK)
}

func TestHandleQuery_FollowUpWithoutDetails(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			matches := courseMatches("Курс без программы")
			matches[0].Details = "  "
			return matches, nil
		},
	}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	p.HandleQuery(context.Background(), conv, "найди курс")
	answer := p.HandleQuery(context.Background(), conv, "подробнее")

	assert.Equal(t, fmt.Sprintf(msgDetailsNotFound, "Курс без программы"), answer)
}

func TestHandleQuery_EmptyIndex(t *testing.T) {
	st := &fakeStore{statsCount: 0}
	emb := &fakeEmbedder{}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, emb, chat)
	conv := NewManager().Create()

	answer := p.HandleQuery(context.Background(), conv, "посоветуй курс")

	assert.Equal(t, msgEmptyIndex, answer)
	// Short-circuits before any vendor call.
	assert.Zero(t, emb.calls)
	assert.Zero(t, chat.calls)
	assert.Empty(t, conv.History())
	assert.Empty(t, conv.LastTitle())
}

func TestHandleQuery_IndexUnavailable(t *testing.T) {
	st := &fakeStore{statsErr: fmt.Errorf("connection refused")}
	p := newTestPipeline(st, &fakeEmbedder{}, &fakeChat{})
	conv := NewManager().Create()

	answer := p.HandleQuery(context.Background(), conv, "посоветуй курс")

	assert.Equal(t, msgIndexUnavailable, answer)
	assert.Empty(t, conv.History())
}

func TestHandleQuery_EmbeddingUnavailable(t *testing.T) {
	st := &fakeStore{statsCount: 10}
	emb := &fakeEmbedder{embedErr: fmt.Errorf("429 too many requests")}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, emb, chat)
	conv := NewManager().Create()

	answer := p.HandleQuery(context.Background(), conv, "посоветуй курс")

	assert.Equal(t, msgEmbeddingUnavailable, answer)
	assert.Zero(t, chat.calls)
	assert.Empty(t, conv.History())
}

func TestHandleQuery_NoUsableMatches(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			// Every match fails metadata validation.
			return []*store.SearchResult{
				{CourseID: "a", Title: "", Description: "desc"},
				{CourseID: "b", Title: "title", Description: ""},
			}, nil
		},
	}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	answer := p.HandleQuery(context.Background(), conv, "посоветуй курс")

	assert.Equal(t, msgNoUsableMatches, answer)
	assert.Zero(t, chat.calls)
	assert.Empty(t, conv.LastTitle())
}

func TestHandleQuery_GenerationFailure(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Java курс"), nil
		},
	}
	chat := &fakeChat{err: fmt.Errorf("model overloaded")}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	query := "посоветуй курс java"
	answer := p.HandleQuery(context.Background(), conv, query)

	assert.Equal(t, msgGenerationFailed, answer)
	// The user turn stays, no assistant turn is appended.
	history := conv.History()
	require.Len(t, history, 1)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, query, history[0].Content)
}

func TestHandleQuery_EmptyGeneration(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Kotlin курс"), nil
		},
	}
	chat := &fakeChat{reply: "   \n\t "}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	answer := p.HandleQuery(context.Background(), conv, "посоветуй курс kotlin")

	assert.Equal(t, msgEmptyGeneration, answer)
	history := conv.History()
	require.Len(t, history, 1)
	assert.Equal(t, llm.RoleUser, history[0].Role)
}

func TestHandleQuery_NoCompletionTreatedAsEmpty(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Rust курс"), nil
		},
	}
	chat := &fakeChat{err: fmt.Errorf("chat completion: %w", llm.ErrNoCompletion)}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	answer := p.HandleQuery(context.Background(), conv, "посоветуй курс rust")

	assert.Equal(t, msgEmptyGeneration, answer)
	history := conv.History()
	require.Len(t, history, 1)
	assert.Equal(t, llm.RoleUser, history[0].Role)
}

func TestHandleQuery_RefreshesSessionActivity(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Go курс"), nil
		},
	}
	p := newTestPipeline(st, &fakeEmbedder{}, &fakeChat{reply: "Рекомендую Go курс."})
	m := NewManager()
	conv := m.Create()
	conv.lastActive.Store(time.Now().Add(-time.Hour).UnixNano())

	p.HandleQuery(context.Background(), conv, "посоветуй курс go")

	assert.Equal(t, 0, m.Sweep(30*time.Minute))
	assert.Equal(t, 1, m.Count())
}

func TestHandleQuery_HistoryWindowPrecedesNewTurn(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Курс"), nil
		},
	}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	conv := NewManager().Create()

	// Seed 15 prior messages, more than the window of 10.
	for i := 0; i < 15; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		conv.appendTurn(role, fmt.Sprintf("сообщение %d", i))
	}

	p.HandleQuery(context.Background(), conv, "новый запрос")

	// system + 10 window messages + grounded instruction.
	require.Len(t, chat.lastMsgs, 12)
	window := chat.lastMsgs[1:11]
	for i, msg := range window {
		assert.Equal(t, fmt.Sprintf("сообщение %d", i+5), msg.Content)
	}
	// The new user turn is only in the instruction, never in the window.
	for _, msg := range window {
		assert.NotContains(t, msg.Content, "новый запрос")
	}
}

func TestHandleQuery_ParallelSessions(t *testing.T) {
	st := &fakeStore{
		statsCount: 10,
		searchFn: func(_ string, _ []float32, _ int) ([]*store.SearchResult, error) {
			return courseMatches("Курс A", "Курс B"), nil
		},
	}
	chat := &fakeChat{reply: "ответ"}
	p := newTestPipeline(st, &fakeEmbedder{}, chat)
	mgr := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		conv := mgr.Create()
		wg.Add(1)
		go func(conv *Conversation) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				p.HandleQuery(context.Background(), conv, "посоветуй курс")
			}
		}(conv)
	}
	wg.Wait()

	assert.Equal(t, 8, mgr.Count())
}
