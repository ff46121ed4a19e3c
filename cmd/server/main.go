package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"web3-resume-rag/internal/agent"
	"web3-resume-rag/internal/api/handler"
	"web3-resume-rag/internal/api/router"
	"web3-resume-rag/internal/config"
	"web3-resume-rag/internal/embedding"
	"web3-resume-rag/internal/evaluator"
	"web3-resume-rag/internal/knowledge"
	"web3-resume-rag/internal/logger"
	"web3-resume-rag/internal/outbox"
	"web3-resume-rag/internal/parser"
	"web3-resume-rag/internal/processor"
	"web3-resume-rag/internal/skills"
	"web3-resume-rag/internal/storage"
	"web3-resume-rag/internal/tracing"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时自动查找")
	pflag.Parse()

	if err := run(configPath); err != nil {
		logger.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	hlog.SetLogger(hertzzerolog.From(logger.Component("hertz")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		logger.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	store, err := storage.NewStorage(ctx, cfg, logger.Component("storage"))
	if err != nil {
		return fmt.Errorf("初始化存储失败: %w", err)
	}
	defer store.Close(logger.Logger)

	chain, err := embedding.NewFromConfig(cfg, embeddingCache(cfg, store), logger.Component("embedding"))
	if err != nil {
		return fmt.Errorf("初始化嵌入策略失败: %w", err)
	}

	km := knowledge.NewManager(chain,
		knowledge.WithThresholds(knowledge.ThresholdsFromConfig(cfg.Knowledge)),
		knowledge.WithLogger(logger.Component("knowledge")),
	)
	if cfg.Knowledge.SeedOnStartup {
		kb, err := knowledge.SeedDefault(ctx, km)
		if err != nil {
			return err
		}
		logger.Info().Str("kb_id", kb.ID).Int("skills", len(kb.Skills)).Int("chunks", km.ChunkCount(kb.ID)).Msg("内置知识库已载入")
	}

	extractor := skills.NewExtractor(
		skills.WithSubstringPenalty(cfg.Knowledge.SubstringPenalty),
		skills.WithSemanticMatcher(km),
		skills.WithLogger(logger.Component("skills")),
	)

	var chat model.ToolCallingChatModel
	chat, err = agent.NewChatModelFromConfig(cfg, logger.Component("llm"))
	if errors.Is(err, agent.ErrMissingAPIKey) {
		logger.Warn().Msg("未配置LLM凭证，评估将使用确定性兜底结果")
		chat = nil
	} else if err != nil {
		return fmt.Errorf("初始化聊天模型失败: %w", err)
	}

	eval := evaluator.New(
		evaluator.WithChatModel(chat),
		evaluator.WithKnowledge(km),
		evaluator.WithExtractor(extractor),
		evaluator.WithTimeout(config.GetDuration(cfg.LLM.TimeoutSeconds, 60*time.Second)),
		evaluator.WithContextResults(cfg.Knowledge.SkillContextResults),
		evaluator.WithLogger(logger.Component("evaluator")),
	)

	maxUpload := int64(cfg.Server.MaxUploadMB) << 20
	parserOpts := []parser.Option{
		parser.WithExtractor(extractor),
		parser.WithMaxFileSize(maxUpload),
		parser.WithLogger(logger.Component("parser")),
	}
	if chat != nil && !cfg.LLM.DisableResumeExtraction {
		llmTimeout := config.GetDuration(cfg.LLM.TimeoutSeconds, 60*time.Second)
		parserOpts = append(parserOpts, parser.WithLLMExtractor(parser.NewLLMExtractor(chat, llmTimeout, logger.Component("parser"))))
	}
	docParser, err := parser.New(ctx, parserOpts...)
	if err != nil {
		return fmt.Errorf("初始化文档解析器失败: %w", err)
	}

	svcOpts := []processor.Option{processor.WithLogger(logger.Component("processor"))}
	handlerOpts := []handler.Option{handler.WithMaxUpload(maxUpload), handler.WithLogger(logger.Component("api"))}
	if store.MinIO != nil {
		svcOpts = append(svcOpts, processor.WithArchiver(store.MinIO))
		handlerOpts = append(handlerOpts, handler.WithArchiver(store.MinIO))
	}
	if store.MySQL != nil {
		repo := storage.NewEvaluationRepository(store.MySQL.DB())
		svcOpts = append(svcOpts, processor.WithRepository(repo, cfg.RabbitMQ.EvaluationExchange, cfg.RabbitMQ.EvaluatedRouting))
	}
	if store.Redis != nil {
		svcOpts = append(svcOpts, processor.WithResultCache(store.Redis))
	}
	svc := processor.NewService(docParser, eval, svcOpts...)

	serverTracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(int(maxUpload)+1<<20),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		hlog.CtxInfof(c, "%s %s -> %d (%s)", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start))
	})
	router.RegisterRoutes(h, handler.New(km, svc, chain, handlerOpts...), cfg.Server.APIKeys)

	g, gctx := errgroup.WithContext(ctx)

	if store.MySQL != nil && store.RabbitMQ != nil {
		relay := outbox.NewMessageRelay(store.MySQL.DB(), store.RabbitMQ, logger.Component("outbox"),
			outbox.WithPollingInterval(time.Duration(cfg.RabbitMQ.RelayIntervalMS)*time.Millisecond),
			outbox.WithBatchSize(cfg.RabbitMQ.RelayBatchSize),
		)
		g.Go(func() error { return relay.Run(gctx) })
	}

	g.Go(func() error {
		logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务启动")
		if err := h.Run(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("HTTP服务异常: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("接收到终止信号，正在优雅退出...")
		grace := config.GetDuration(cfg.Server.ShutdownGrace, 5*time.Second)
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return h.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("优雅退出完成")
	return nil
}

// embeddingCache 按 embedding.cache 选择缓存，redis 不可用时退回进程内缓存
func embeddingCache(cfg *config.Config, store *storage.Storage) embedding.Cache {
	switch cfg.Embedding.Cache {
	case "none":
		return nil
	case "redis":
		if store.Redis != nil {
			return embedding.NewRedisCache(store.Redis.Client)
		}
		logger.Warn().Msg("Redis不可用，向量缓存使用进程内缓存")
	}
	return embedding.NewMemoryCache()
}
