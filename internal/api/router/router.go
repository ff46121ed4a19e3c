package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"web3-resume-rag/internal/api/handler"
)

// APIKeyHeader 写操作使用的认证头
const APIKeyHeader = "X-API-Key"

// RegisterRoutes 注册 /api/v1 路由。apiKeys 非空时写操作需要认证
func RegisterRoutes(h *server.Hertz, hd *handler.Handler, apiKeys []string) {
	api := h.Group("/api/v1")

	var auth app.HandlerFunc
	if len(apiKeys) > 0 {
		auth = apiKeyAuth(apiKeys)
	}
	guard := func(hf app.HandlerFunc) []app.HandlerFunc {
		if auth == nil {
			return []app.HandlerFunc{hf}
		}
		return []app.HandlerFunc{auth, hf}
	}

	api.GET("/health", hd.Health)

	api.POST("/resume/parse", hd.ParseResume)
	api.POST("/resume/evaluate", hd.EvaluateResume)
	api.POST("/resume/screen", hd.ScreenResume)

	api.GET("/evaluations", hd.ListEvaluations)
	api.GET("/evaluations/:id", hd.GetEvaluation)

	api.GET("/knowledge", hd.ListKnowledgeBases)
	api.POST("/knowledge", guard(hd.CreateKnowledgeBase)...)
	api.POST("/knowledge/context", hd.KnowledgeContext)
	api.GET("/knowledge/:id", hd.GetKnowledgeBase)
	api.POST("/knowledge/:id/documents", guard(hd.AddDocument)...)
	api.POST("/knowledge/:id/query", hd.QueryKnowledgeBase)

	api.POST("/embeddings", hd.Embeddings)
}

func apiKeyAuth(keys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			_, ok := allowed[key]
			return ok, nil
		}),
		keyauth.WithErrorHandler(func(_ context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"success": false, "error": "未授权访问"})
		}),
	)
}
