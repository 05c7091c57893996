package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sentinel = "No relevant F1 information found."

func TestRuleBased_KeywordAnswers(t *testing.T) {
	g := NewRuleBased(sentinel)
	ctx := context.Background()

	cases := map[string]string{
		"Who won the 2023 championship?": "Max Verstappen took the 2023",
		"Tell me about Mercedes":         "Mercedes-AMG Petronas",
		"How fast is LEWIS HAMILTON?":    "Lewis Hamilton",
		"What is special about Monaco?":  "Monte Carlo",
		"How do points work?":            "top ten finishers",
	}
	for query, want := range cases {
		answer, err := g.Generate(ctx, query, sentinel, nil)
		require.NoError(t, err)
		assert.Contains(t, answer, want, query)
	}
}

func TestRuleBased_QuotesContextWhenNoKeyword(t *testing.T) {
	g := NewRuleBased(sentinel)
	contextText := "[Sprint Format]: Sprint races are shorter races held on Saturdays.\n\n[Other]: ignored"

	answer, err := g.Generate(context.Background(), "what happens on saturday", contextText, nil)
	require.NoError(t, err)
	assert.Equal(t, "Here is what I found: Sprint races are shorter races held on Saturdays.", answer)
}

func TestRuleBased_DefaultHelp(t *testing.T) {
	g := NewRuleBased(sentinel)
	answer, err := g.Generate(context.Background(), "hello", sentinel, nil)
	require.NoError(t, err)
	assert.Equal(t, helpText, answer)
}

func TestRuleBased_StreamReassembles(t *testing.T) {
	g := NewRuleBased(sentinel)
	var parts []string
	answer, err := g.Stream(context.Background(), "Tell me about Ferrari", sentinel, nil, func(c string) error {
		parts = append(parts, c)
		return nil
	})
	require.NoError(t, err)
	assert.Greater(t, len(parts), 1)
	assert.Equal(t, answer, strings.Join(parts, ""))
}

func TestRuleBased_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRuleBased(sentinel).Generate(ctx, "Ferrari", sentinel, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeLLM struct {
	chunks   []string
	err      error
	messages []llm.Message
}

func (f *fakeLLM) StreamChatMessages(_ context.Context, messages []llm.Message, _ *llm.GenerationParams, onChunk llm.ChunkHandler) error {
	f.messages = messages
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return f.err
}

func TestLLM_UsesBackendAnswer(t *testing.T) {
	client := &fakeLLM{chunks: []string{"Mercedes ", "is fast."}}
	g := NewLLM(client, config.LLMPromptConfig{Rules: "Be brief."}, nil, sentinel, NewRuleBased(sentinel))

	answer, err := g.Generate(context.Background(), "Tell me about Mercedes", "[Mercedes F1 Team]: Based in Brackley.", nil)
	require.NoError(t, err)
	assert.Equal(t, "Mercedes is fast.", answer)

	require.Len(t, client.messages, 2)
	assert.Equal(t, "system", client.messages[0].Role)
	assert.Contains(t, client.messages[0].Content, "Be brief.")
	assert.Contains(t, client.messages[0].Content, "<<REF>>\n[Mercedes F1 Team]: Based in Brackley.\n<<END>>")
	assert.Equal(t, llm.Message{Role: "user", Content: "Tell me about Mercedes"}, client.messages[1])
}

func TestLLM_SendsHistoryInOrder(t *testing.T) {
	client := &fakeLLM{chunks: []string{"He drives for Ferrari."}}
	g := NewLLM(client, config.LLMPromptConfig{}, nil, sentinel, NewRuleBased(sentinel))
	history := []model.ConversationTurn{
		{User: "Who is Charles Leclerc?", Bot: "A Ferrari driver from Monaco."},
		{User: "When did he debut?", Bot: "In 2018 with Sauber."},
	}

	_, err := g.Generate(context.Background(), "Which team is he with now?", sentinel, history)
	require.NoError(t, err)

	require.Len(t, client.messages, 6)
	assert.Equal(t, "system", client.messages[0].Role)
	assert.Equal(t, []llm.Message{
		{Role: "user", Content: "Who is Charles Leclerc?"},
		{Role: "assistant", Content: "A Ferrari driver from Monaco."},
		{Role: "user", Content: "When did he debut?"},
		{Role: "assistant", Content: "In 2018 with Sauber."},
		{Role: "user", Content: "Which team is he with now?"},
	}, client.messages[1:])
}

func TestRuleBased_IgnoresHistory(t *testing.T) {
	g := NewRuleBased(sentinel)
	history := []model.ConversationTurn{{User: "Tell me about Ferrari", Bot: "Scuderia Ferrari"}}
	answer, err := g.Generate(context.Background(), "hello", sentinel, history)
	require.NoError(t, err)
	assert.Equal(t, helpText, answer)
}

func TestLLM_FallsBackOnError(t *testing.T) {
	client := &fakeLLM{err: errors.New("connection refused")}
	g := NewLLM(client, config.LLMPromptConfig{}, nil, sentinel, NewRuleBased(sentinel))

	answer, err := g.Generate(context.Background(), "Tell me about Ferrari", sentinel, nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "Scuderia Ferrari")
}

func TestLLM_KeepsPartialAnswer(t *testing.T) {
	client := &fakeLLM{chunks: []string{"Partial"}, err: errors.New("stream reset")}
	g := NewLLM(client, config.LLMPromptConfig{}, nil, sentinel, NewRuleBased(sentinel))

	answer, err := g.Generate(context.Background(), "Ferrari", sentinel, nil)
	require.NoError(t, err)
	assert.Equal(t, "Partial", answer)
}

func TestNewFromConfig_DefaultsToRules(t *testing.T) {
	g := NewFromConfig(config.GeneratorConfig{Strategy: "llm"}, config.LLMConfig{}, sentinel)
	_, ok := g.(*RuleBased)
	assert.True(t, ok, "llm strategy without api key should use rules")
}
