package embedding

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	// MockDimension mock 模式维度
	MockDimension = 32
	// SimplifiedDimension 简化词频模式维度
	SimplifiedDimension = 128
)

// Mock 基于字符编码的确定性伪向量
// 第i个UTF-16码元累加到 i%32 维，值为 码元/100，最后归一化
type Mock struct{}

// NewMock 创建 mock 嵌入策略
func NewMock() *Mock { return &Mock{} }

// Mode 实现 Provider
func (m *Mock) Mode() Mode { return ModeMock }

// Embed 实现 Provider，除上下文取消外不会失败
func (m *Mock) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return Vector{}, err
	}
	return Vector{Values: MockEmbedding(text), Source: ModeMock}, nil
}

// MockEmbedding 计算 mock 向量，空文本返回零向量
func MockEmbedding(text string) []float64 {
	v := make([]float64, MockDimension)
	for i, code := range utf16.Encode([]rune(text)) {
		v[i%MockDimension] += float64(code) / 100
	}
	return normalize(v)
}

// Simplified 词频向量，单词经字符串哈希分桶
type Simplified struct{}

// NewSimplified 创建简化嵌入策略
func NewSimplified() *Simplified { return &Simplified{} }

// Mode 实现 Provider
func (s *Simplified) Mode() Mode { return ModeSimplified }

// Embed 实现 Provider
func (s *Simplified) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return Vector{}, err
	}
	return Vector{Values: SimplifiedEmbedding(text), Source: ModeSimplified}, nil
}

// SimplifiedEmbedding 小写后按非单词字符切分，统计词频并分桶到128维
func SimplifiedEmbedding(text string) []float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}

	v := make([]float64, SimplifiedDimension)
	for w, count := range freq {
		idx := int(stringHash(w) % SimplifiedDimension)
		if idx < 0 {
			idx = -idx
		}
		v[idx] += float64(count)
	}
	return normalize(v)
}

// stringHash 32位字符串哈希 h = h*31 + c，按UTF-16码元计算并在int32上溢出回绕
func stringHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	return h
}
