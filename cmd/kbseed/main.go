// kbseed 初始化内置Web3知识库并运行检索测试
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"web3-resume-rag/internal/config"
	"web3-resume-rag/internal/embedding"
	"web3-resume-rag/internal/knowledge"
	"web3-resume-rag/internal/logger"
	"web3-resume-rag/internal/types"
)

var defaultQueries = []string{
	"以太坊智能合约开发",
	"DeFi协议与流动性",
	"NFT标准与市场",
	"Solidity安全审计",
	"Web3前端开发",
}

type queryReport struct {
	query   string
	results []types.QueryResult
	context string
	err     error
}

func main() {
	var (
		configPath string
		queries    []string
		topK       int
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.StringArrayVarP(&queries, "query", "q", nil, "测试查询，可重复指定")
	pflag.IntVarP(&topK, "top-k", "k", 3, "每个查询返回的条数")
	pflag.Parse()

	if len(queries) == 0 {
		queries = defaultQueries
	}
	if err := run(configPath, queries, topK); err != nil {
		fmt.Fprintf(os.Stderr, "kbseed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, queries []string, topK int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format, TimeFormat: cfg.Logger.TimeFormat})

	ctx := context.Background()
	chain, err := embedding.NewFromConfig(cfg, embedding.NewMemoryCache(), logger.Component("embedding"))
	if err != nil {
		return err
	}
	km := knowledge.NewManager(chain,
		knowledge.WithThresholds(knowledge.ThresholdsFromConfig(cfg.Knowledge)),
		knowledge.WithLogger(logger.Component("knowledge")),
	)

	kb, err := knowledge.SeedDefault(ctx, km)
	if err != nil {
		return err
	}
	fmt.Printf("知识库: %s (%s)\n技能: %d  资源: %d  分块: %d  嵌入模式: %s\n\n",
		kb.Name, kb.ID, len(kb.Skills), len(kb.Resources), km.ChunkCount(kb.ID), chain.Mode())

	reports := make([]queryReport, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, q := range queries {
		g.Go(func() error {
			r := queryReport{query: q}
			r.results, r.err = km.QueryKnowledgeBase(gctx, kb.ID, q, topK)
			if r.err == nil {
				r.context, r.err = km.GetKnowledgeContext(gctx, q, topK)
			}
			reports[i] = r
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range reports {
		fmt.Printf("查询: %s\n", r.query)
		if r.err != nil {
			fmt.Printf("  失败: %v\n\n", r.err)
			continue
		}
		for j, res := range r.results {
			fmt.Printf("  %d. [%.4f] %s\n", j+1, res.Similarity, preview(res.Text, 60))
		}
		if r.context != "" {
			fmt.Printf("  上下文:\n    %s\n", strings.ReplaceAll(r.context, "\n\n", "\n    "))
		}
		fmt.Println()
	}
	return nil
}

func preview(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
