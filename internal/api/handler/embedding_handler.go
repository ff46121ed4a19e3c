package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

type embeddingRequest struct {
	Text *string `json:"text"`
}

// Embeddings POST /embeddings
func (h *Handler) Embeddings(ctx context.Context, c *app.RequestContext) {
	var req embeddingRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, consts.StatusBadRequest, "请求体不是合法的JSON")
		return
	}
	if req.Text == nil {
		fail(c, consts.StatusBadRequest, "缺少文本内容")
		return
	}

	v, err := h.embedder.Embed(ctx, *req.Text)
	if err != nil {
		h.logger.Error().Err(err).Msg("生成向量失败")
		fail(c, consts.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"success":   true,
		"embedding": v.Values,
		"source":    v.Source,
		"dimension": v.Dimension(),
	})
}
