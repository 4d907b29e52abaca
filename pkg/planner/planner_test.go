package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/entrhq/browserguard/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply    string
	err      error
	received []*llm.Message
}

func (f *fakeProvider) Complete(_ context.Context, messages []*llm.Message) (*llm.Message, error) {
	f.received = messages
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewAssistantMessage(f.reply), nil
}

func (f *fakeProvider) GetModel() string { return "fake-model" }

func TestLLMPlanner_Plan(t *testing.T) {
	provider := &fakeProvider{reply: "\n  [{\"action\":\"wait\"}]  \n"}
	p := NewLLMPlanner(provider)

	text, err := p.Plan(context.Background(), Request{
		PageURL:  "https://example.com",
		PageText: "Example Domain",
		Task:     "wait a bit",
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"action":"wait"}]`, text)

	require.Len(t, provider.received, 2)
	assert.Equal(t, llm.RoleSystem, provider.received[0].Role)
	assert.Equal(t, SystemPrompt, provider.received[0].Content)

	user := provider.received[1].Content
	assert.Equal(t, llm.RoleUser, provider.received[1].Role)
	assert.Contains(t, user, "Page URL: https://example.com")
	assert.Contains(t, user, "Example Domain")
	assert.Contains(t, user, "User task: wait a bit")
	assert.Contains(t, user, ExampleOutput)
}

func TestLLMPlanner_ProviderError(t *testing.T) {
	boom := errors.New("connection refused")
	p := NewLLMPlanner(&fakeProvider{err: boom})

	text, err := p.Plan(context.Background(), Request{Task: "anything"})
	assert.Empty(t, text)
	assert.ErrorIs(t, err, ErrPlannerUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestLLMPlanner_NoProvider(t *testing.T) {
	_, err := NewLLMPlanner(nil).Plan(context.Background(), Request{Task: "x"})
	assert.ErrorIs(t, err, ErrPlannerUnavailable)
}

func TestBuildMessages_TruncatesPageText(t *testing.T) {
	page := strings.Repeat("é", 50) + "TAIL"
	msgs := BuildMessages(Request{PageText: page, Task: "t"}, 50)

	user := msgs[1].Content
	assert.Contains(t, user, strings.Repeat("é", 50))
	assert.NotContains(t, user, "TAIL")
}

func TestWithMaxPageChars(t *testing.T) {
	provider := &fakeProvider{reply: "[]"}
	p := NewLLMPlanner(provider, WithMaxPageChars(4))

	_, err := p.Plan(context.Background(), Request{PageText: "abcdefgh", Task: "t"})
	require.NoError(t, err)
	assert.Contains(t, provider.received[1].Content, "abcd\n")
	assert.NotContains(t, provider.received[1].Content, "abcde")
}

func TestFunc(t *testing.T) {
	var got Request
	p := Func(func(_ context.Context, req Request) (string, error) {
		got = req
		return "[]", nil
	})
	text, err := p.Plan(context.Background(), Request{Task: "go"})
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, "go", got.Task)
}
