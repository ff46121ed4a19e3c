package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, status int, body string, inspect func(r *http.Request, req chatCompletionRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req), "请求体应为JSON")
		if inspect != nil {
			inspect(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIChatModelGenerate(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest
	srv := newChatServer(t, http.StatusOK,
		`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
		func(r *http.Request, req chatCompletionRequest) {
			gotAuth = r.Header.Get("Authorization")
			gotReq = req
		})

	chat, err := NewOpenAIChatModel(ChatConfig{APIKey: "sk-test", APIURL: srv.URL})
	require.NoError(t, err)

	msg, err := chat.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("你是评估专家"),
		schema.UserMessage("评估这份简历"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, defaultChatModel, gotReq.Model)
	assert.InDelta(t, 0.2, gotReq.Temperature, 1e-6)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Empty(t, gotReq.Tools)

	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, `{"ok":true}`, msg.Content)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, "stop", msg.ResponseMeta.FinishReason)
	require.NotNil(t, msg.ResponseMeta.Usage)
	assert.Equal(t, 5, msg.ResponseMeta.Usage.TotalTokens)
}

func TestOpenAIChatModelOptionsOverride(t *testing.T) {
	var gotReq chatCompletionRequest
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`,
		func(_ *http.Request, req chatCompletionRequest) { gotReq = req })

	chat, err := NewOpenAIChatModel(ChatConfig{APIKey: "k", APIURL: srv.URL, Model: "openai/gpt-4o-mini"})
	require.NoError(t, err)

	_, err = chat.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")},
		model.WithTemperature(0.7), model.WithMaxTokens(128))
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", gotReq.Model)
	assert.InDelta(t, 0.7, gotReq.Temperature, 1e-6)
	assert.Equal(t, 128, gotReq.MaxTokens)
}

func TestOpenAIChatModelErrors(t *testing.T) {
	_, err := NewOpenAIChatModel(ChatConfig{APIKey: "  "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cases := map[string]struct {
		status int
		body   string
	}{
		"非200状态": {http.StatusTooManyRequests, `{"error":{"message":"rate limit"}}`},
		"空选项":   {http.StatusOK, `{"choices":[]}`},
		"错误字段":  {http.StatusOK, `{"error":{"message":"model not found"}}`},
		"非JSON":  {http.StatusOK, `<html>`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newChatServer(t, tc.status, tc.body, nil)
			chat, err := NewOpenAIChatModel(ChatConfig{APIKey: "k", APIURL: srv.URL})
			require.NoError(t, err)
			_, err = chat.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
			assert.Error(t, err)
		})
	}
}

func TestOpenAIChatModelWithToolsDoesNotMutate(t *testing.T) {
	var gotReq chatCompletionRequest
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`,
		func(_ *http.Request, req chatCompletionRequest) { gotReq = req })

	chat, err := NewOpenAIChatModel(ChatConfig{APIKey: "k", APIURL: srv.URL})
	require.NoError(t, err)

	withTools, err := chat.WithTools([]*schema.ToolInfo{{Name: "lookup_skill", Desc: "查询技能"}})
	require.NoError(t, err)

	_, err = withTools.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.NoError(t, err)
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "lookup_skill", gotReq.Tools[0].Function.Name)

	_, err = chat.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.NoError(t, err)
	assert.Empty(t, gotReq.Tools, "原实例不应绑定工具")
}

func TestOpenAIChatModelStream(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"片段"}}]}`, nil)
	chat, err := NewOpenAIChatModel(ChatConfig{APIKey: "k", APIURL: srv.URL})
	require.NoError(t, err)

	sr, err := chat.Stream(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.NoError(t, err)
	defer sr.Close()
	msg, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, "片段", msg.Content)
}

func TestMockChatClientSequential(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockChatClientSequential(MockResponse{Content: "first"}, MockResponse{Error: boom})

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("a")})
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Content)

	_, err = m.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, boom)

	_, err = m.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMockExhausted)
	assert.Equal(t, 3, m.Calls())
}

func TestMockChatClientRepeatAndPanic(t *testing.T) {
	m := NewMockChatClient("same", nil)
	for i := 0; i < 3; i++ {
		msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("q")})
		require.NoError(t, err)
		assert.Equal(t, "same", msg.Content)
	}
	require.Len(t, m.LastMessages(), 1)
	assert.Equal(t, "q", m.LastMessages()[0].Content)

	p := NewMockChatClientSequential(MockResponse{Panic: "模型崩溃"})
	assert.Panics(t, func() { _, _ = p.Generate(context.Background(), nil) })
}
