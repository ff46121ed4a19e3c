package knowledge

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch 两个向量维度不同
	ErrDimensionMismatch = errors.New("向量维度不匹配")
	// ErrInvalidChunkSize 分块大小必须大于重叠长度
	ErrInvalidChunkSize = errors.New("分块大小必须大于重叠长度")
)

// CosineSimilarity 余弦相似度，任一向量为零向量时返回0
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// ChunkText 按字符(rune)切分为重叠窗口，步长为 size-overlap
// 最后一个窗口到达文本末尾即停止
func ChunkText(text string, size, overlap int) ([]string, error) {
	if size <= overlap || size <= 0 || overlap < 0 {
		return nil, fmt.Errorf("%w: size=%d, overlap=%d", ErrInvalidChunkSize, size, overlap)
	}
	if text == "" {
		return []string{}, nil
	}

	runes := []rune(text)

	step := size - overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
