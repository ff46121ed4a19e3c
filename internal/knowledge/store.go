package knowledge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"web3-resume-rag/internal/types"
)

var (
	// ErrKnowledgeBaseNotFound 知识库ID未知
	ErrKnowledgeBaseNotFound = errors.New("知识库不存在")
	// ErrNoKnowledgeBaseLoaded 尚未载入任何知识库
	ErrNoKnowledgeBaseLoaded = errors.New("知识库未加载")
)

// Store 进程内知识库注册表，知识库一经创建不会删除，分块只追加
type Store struct {
	mu     sync.RWMutex
	bases  map[string]*types.KnowledgeBase
	chunks map[string][]types.EmbeddingResult
	order  []string
}

// NewStore 创建空注册表
func NewStore() *Store {
	return &Store{
		bases:  make(map[string]*types.KnowledgeBase),
		chunks: make(map[string][]types.EmbeddingResult),
	}
}

// Put 注册知识库，ID为空时分配新ID；已存在的ID会被覆盖元数据，分块保留
func (s *Store) Put(kb *types.KnowledgeBase) *types.KnowledgeBase {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneKnowledgeBase(kb)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := s.bases[stored.ID]; !exists {
		s.order = append(s.order, stored.ID)
	}
	s.bases[stored.ID] = stored
	return cloneKnowledgeBase(stored)
}

// Get 返回知识库快照
func (s *Store) Get(id string) (*types.KnowledgeBase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kb, ok := s.bases[id]
	if !ok {
		return nil, false
	}
	return cloneKnowledgeBase(kb), true
}

// Exists 知识库是否存在
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bases[id]
	return ok
}

// List 按创建顺序返回所有知识库快照
func (s *Store) List() []types.KnowledgeBase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.KnowledgeBase, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *cloneKnowledgeBase(s.bases[id]))
	}
	return out
}

// Append 追加分块并刷新 UpdatedAt
func (s *Store) Append(id string, results []types.EmbeddingResult, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kb, ok := s.bases[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrKnowledgeBaseNotFound, id)
	}
	s.chunks[id] = append(s.chunks[id], results...)
	kb.UpdatedAt = now
	return nil
}

// Chunks 返回分块列表的只读视图
func (s *Store) Chunks(id string) []types.EmbeddingResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.chunks[id]
	return c[:len(c):len(c)]
}

// ChunkCount 分块数量
func (s *Store) ChunkCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[id])
}

func cloneKnowledgeBase(kb *types.KnowledgeBase) *types.KnowledgeBase {
	out := *kb
	out.Skills = append([]types.Skill(nil), kb.Skills...)
	out.Resources = append([]types.Resource(nil), kb.Resources...)
	if out.Skills == nil {
		out.Skills = []types.Skill{}
	}
	if out.Resources == nil {
		out.Resources = []types.Resource{}
	}
	return &out
}
