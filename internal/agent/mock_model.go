package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrMockExhausted 预设响应已用完
var ErrMockExhausted = errors.New("mock client has run out of sequential responses")

// MockResponse MockChatClient 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
	// Panic 非空时 Generate 直接 panic，用于验证调用方的兜底逻辑
	Panic any
}

// MockChatClient 用于测试的 model.ToolCallingChatModel 实现，可并发调用
type MockChatClient struct {
	mu sync.Mutex

	responses []MockResponse
	index     int
	repeat    bool // 只有一个响应时重复返回

	received [][]*schema.Message
	tools    []*schema.ToolInfo
}

var _ model.ToolCallingChatModel = (*MockChatClient)(nil)

// NewMockChatClient 创建一个总是返回同一响应的 MockChatClient
func NewMockChatClient(content string, err error) *MockChatClient {
	return &MockChatClient{
		responses: []MockResponse{{Content: content, Error: err}},
		repeat:    true,
	}
}

// NewMockChatClientSequential 创建一个按顺序返回不同响应的 MockChatClient
func NewMockChatClientSequential(responses ...MockResponse) *MockChatClient {
	return &MockChatClient{responses: responses}
}

// Generate 实现 model.ChatModel
func (m *MockChatClient) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.received = append(m.received, append([]*schema.Message(nil), input...))

	var resp MockResponse
	switch {
	case m.repeat && len(m.responses) > 0:
		resp = m.responses[0]
	case m.index < len(m.responses):
		resp = m.responses[m.index]
		m.index++
	default:
		m.mu.Unlock()
		return nil, ErrMockExhausted
	}
	m.mu.Unlock()

	if resp.Panic != nil {
		panic(resp.Panic)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 以单个分片返回 Generate 的结果
func (m *MockChatClient) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 记录工具并返回自身
func (m *MockChatClient) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return m, nil
}

// Calls 已收到的调用次数
func (m *MockChatClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// LastMessages 最近一次调用收到的消息
func (m *MockChatClient) LastMessages() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.received) == 0 {
		return nil
	}
	return m.received[len(m.received)-1]
}
