package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"web3-resume-rag/internal/knowledge"
)

// ListKnowledgeBases GET /knowledge
func (h *Handler) ListKnowledgeBases(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"success": true, "knowledgeBases": h.knowledge.ListKnowledgeBases()})
}

type createKnowledgeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateKnowledgeBase POST /knowledge
func (h *Handler) CreateKnowledgeBase(ctx context.Context, c *app.RequestContext) {
	var req createKnowledgeRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, consts.StatusBadRequest, "请求体不是合法的JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		fail(c, consts.StatusBadRequest, "知识库名称不能为空")
		return
	}
	kb := h.knowledge.CreateKnowledgeBase(req.Name, req.Description)
	c.JSON(consts.StatusCreated, utils.H{"success": true, "knowledgeBase": kb})
}

// GetKnowledgeBase GET /knowledge/:id
func (h *Handler) GetKnowledgeBase(ctx context.Context, c *app.RequestContext) {
	kb, err := h.knowledge.GetKnowledgeBase(c.Param("id"))
	if err != nil {
		fail(c, consts.StatusNotFound, err.Error())
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"success":       true,
		"knowledgeBase": kb,
		"chunks":        h.knowledge.ChunkCount(kb.ID),
	})
}

type addDocumentRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// AddDocument POST /knowledge/:id/documents
func (h *Handler) AddDocument(ctx context.Context, c *app.RequestContext) {
	var req addDocumentRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, consts.StatusBadRequest, "请求体不是合法的JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		fail(c, consts.StatusBadRequest, "文档内容不能为空")
		return
	}

	chunks, err := h.knowledge.AddToKnowledgeBase(ctx, c.Param("id"), req.Text, req.Metadata)
	if errors.Is(err, knowledge.ErrKnowledgeBaseNotFound) {
		fail(c, consts.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("kb_id", c.Param("id")).Int("added", len(chunks)).Msg("添加文档失败")
		fail(c, consts.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true, "chunks": len(chunks)})
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

// QueryKnowledgeBase POST /knowledge/:id/query
func (h *Handler) QueryKnowledgeBase(ctx context.Context, c *app.RequestContext) {
	var req queryRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, consts.StatusBadRequest, "请求体不是合法的JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		fail(c, consts.StatusBadRequest, "查询内容不能为空")
		return
	}

	results, err := h.knowledge.QueryKnowledgeBase(ctx, c.Param("id"), req.Query, req.TopK)
	if err != nil {
		h.logger.Error().Err(err).Msg("查询知识库失败")
		fail(c, consts.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true, "results": results})
}

type contextRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

// KnowledgeContext POST /knowledge/context
func (h *Handler) KnowledgeContext(ctx context.Context, c *app.RequestContext) {
	var req contextRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, consts.StatusBadRequest, "请求体不是合法的JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		fail(c, consts.StatusBadRequest, "查询内容不能为空")
		return
	}

	text, err := h.knowledge.GetKnowledgeContext(ctx, req.Query, req.MaxResults)
	if errors.Is(err, knowledge.ErrNoKnowledgeBaseLoaded) {
		fail(c, consts.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("检索知识库上下文失败")
		fail(c, consts.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true, "context": text})
}
