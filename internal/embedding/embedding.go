// Package embedding 提供文本向量化策略：远程API、mock、简化词频三种实现，
// 以及按配置组合的降级链与缓存。
package embedding

import (
	"context"
	"errors"
	"math"
)

// Mode 嵌入模式
type Mode string

const (
	ModeRemote     Mode = "remote"
	ModeMock       Mode = "mock"
	ModeSimplified Mode = "simplified"
)

var (
	// ErrMissingCredential 远程模式未配置凭证，调用方应降级
	ErrMissingCredential = errors.New("嵌入服务未配置API密钥")
	// ErrUnsupportedMode 链路中不存在请求的嵌入模式
	ErrUnsupportedMode = errors.New("不支持的嵌入模式")
	// ErrEmptyResponse 远程服务返回空数据
	ErrEmptyResponse = errors.New("嵌入服务返回空结果")
)

// ParseMode 将配置字符串转换为 Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRemote, ModeMock, ModeSimplified:
		return Mode(s), nil
	}
	return "", ErrUnsupportedMode
}

// Vector 嵌入向量及其来源模式
// 不同来源的向量维度和分布不同，不能直接比较
type Vector struct {
	Values []float64 `json:"values"`
	Source Mode      `json:"source"`
}

// Dimension 向量维度
func (v Vector) Dimension() int {
	return len(v.Values)
}

// Comparable 两个向量是否由同一模式产生且维度一致
func (v Vector) Comparable(other Vector) bool {
	return v.Source == other.Source && len(v.Values) == len(other.Values)
}

// Provider 单一嵌入策略
type Provider interface {
	Mode() Mode
	Embed(ctx context.Context, text string) (Vector, error)
}

// normalize 原地做L2归一化，零向量保持不变
func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	mag := math.Sqrt(sum)
	for i := range v {
		v[i] /= mag
	}
	return v
}
