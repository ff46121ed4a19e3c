package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web3-resume-rag/internal/agent"
	"web3-resume-rag/internal/embedding"
	"web3-resume-rag/internal/knowledge"
	"web3-resume-rag/internal/types"
)

const validResponse = `{
  "skillMatches": [{"skill": "Solidity", "category": "blockchain", "relevance": 9, "level": "expert", "description": "主力语言"}],
  "missingSkills": ["React"],
  "strengthAreas": ["智能合约开发"],
  "improvementAreas": ["前端经验"],
  "careerSuggestions": ["补充React项目"],
  "learningResources": [{"skill": "React", "resources": [{"title": "React文档", "url": "https://react.dev", "type": "文档"}]}]
}`

func sampleResume() *types.ResumeData {
	return &types.ResumeData{
		PersonalInfo: types.PersonalInfo{Name: "张三"},
		Skills:       []string{"solidity", "TypeScript"},
		WorkExperience: []types.WorkExperience{{
			Company:     "某DeFi协议",
			Position:    "智能合约工程师",
			Description: "使用Hardhat开发借贷协议合约，负责Gas优化",
		}},
		Projects: []types.Project{{
			Name:        "NFT市场",
			Description: "基于ERC-721的NFT交易市场",
		}},
		Education: []types.Education{{Institution: "某大学", Degree: "本科", Field: "计算机"}},
	}
}

func sampleJob() *types.JobRequirement {
	return &types.JobRequirement{
		Title:  "智能合约工程师",
		Level:  "高级",
		Skills: types.SkillRequirements{Required: []string{"Solidity", "React"}, Preferred: []string{"Hardhat"}},
		Experience: types.ExperienceRequirement{
			MinYears: 3,
		},
	}
}

func seededManager(t *testing.T) *knowledge.Manager {
	t.Helper()
	m := knowledge.NewManager(embedding.NewChain(embedding.NewMock()))
	_, err := knowledge.SeedDefault(context.Background(), m)
	require.NoError(t, err)
	return m
}

func assertFallbackShape(t *testing.T, r *types.EvaluationResult) {
	t.Helper()
	require.NotNil(t, r, "评估结果不能为nil")
	assert.Equal(t, types.EvaluationSourceFallback, r.Source)
	assert.NotNil(t, r.SkillMatches)
	assert.NotNil(t, r.MatchingSkills)
	assert.NotNil(t, r.MissingSkills)
	assert.Equal(t, []string{"技术能力", "区块链知识"}, r.StrengthAreas)
	assert.Equal(t, []string{"需要补充缺失的必要技能"}, r.ImprovementAreas)
	assert.Equal(t, []string{"建议继续Web3领域的发展"}, r.CareerSuggestions)
	require.Len(t, r.LearningResources, 1)
	assert.Equal(t, "Web3", r.LearningResources[0].Skill)
	assert.Equal(t, "Web3开发文档", r.LearningResources[0].Resources[0].Title)
}

func TestEvaluateFallbackWithoutCredential(t *testing.T) {
	e := New(WithKnowledge(seededManager(t)))
	r := e.Evaluate(context.Background(), sampleResume(), sampleJob())

	assertFallbackShape(t, r)
	assert.Equal(t, []string{"Solidity"}, r.MatchingSkills, "应保留岗位原有写法")
	assert.Equal(t, []string{"React"}, r.MissingSkills)
	require.Len(t, r.SkillMatches, 1)
	assert.Equal(t, types.SkillMatch{Skill: "Solidity", Category: "programming", Relevance: 8}, r.SkillMatches[0])
}

func TestEvaluateFallbackMarshalsEmptyArrays(t *testing.T) {
	e := New()
	r := e.Evaluate(context.Background(), &types.ResumeData{}, &types.JobRequirement{})
	assertFallbackShape(t, r)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"skillMatches":[]`)
	assert.Contains(t, string(raw), `"missingSkills":[]`)
	assert.NotContains(t, string(raw), "null")
}

func TestEvaluateNilInputs(t *testing.T) {
	r := New().Evaluate(context.Background(), nil, nil)
	assertFallbackShape(t, r)
}

func TestEvaluateLLMSuccess(t *testing.T) {
	chat := agent.NewMockChatClient("评估如下:\n```json\n"+validResponse+"\n```\n以上。", nil)
	e := New(WithChatModel(chat), WithKnowledge(seededManager(t)))

	r := e.Evaluate(context.Background(), sampleResume(), sampleJob())
	require.NotNil(t, r)
	assert.Equal(t, types.EvaluationSourceLLM, r.Source)
	require.Len(t, r.SkillMatches, 1)
	assert.Equal(t, 9, r.SkillMatches[0].Relevance)
	assert.Equal(t, []string{"React"}, r.MissingSkills)
	assert.Equal(t, []string{"Solidity"}, r.MatchingSkills, "模型未返回时应使用预先计算的匹配技能")

	msgs := chat.LastMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	prompt := msgs[1].Content
	assert.Contains(t, prompt, "- 职位名称: 智能合约工程师")
	assert.Contains(t, prompt, "以下是相关Web3技能的背景知识:")
	assert.Contains(t, prompt, "- Solidity: Solidity是一种面向合约的")
	assert.Contains(t, prompt, "相关技术: Ethereum")
	assert.Contains(t, prompt, "- 必要技能匹配: Solidity\n")
	assert.Contains(t, prompt, "- 加分技能匹配: Hardhat\n", "经历描述中的技能应参与匹配")
	assert.Contains(t, prompt, "学校: 某大学, 学位: 本科, 专业: 计算机")
	assert.Contains(t, prompt, `"skillMatches"`)
}

func TestEvaluateIsTotal(t *testing.T) {
	cases := map[string]*agent.MockChatClient{
		"模型返回错误":    agent.NewMockChatClient("", errors.New("connection refused")),
		"非JSON响应":   agent.NewMockChatClient("抱歉，我无法完成评估", nil),
		"空响应":       agent.NewMockChatClient("   ", nil),
		"相关度越界":     agent.NewMockChatClient(strings.Replace(validResponse, `"relevance": 9`, `"relevance": 11`, 1), nil),
		"缺少必需数组":    agent.NewMockChatClient(`{"skillMatches": [], "missingSkills": []}`, nil),
		"数组为null":   agent.NewMockChatClient(strings.Replace(validResponse, `"missingSkills": ["React"]`, `"missingSkills": null`, 1), nil),
		"技能名为空":     agent.NewMockChatClient(strings.Replace(validResponse, `"skill": "Solidity"`, `"skill": ""`, 1), nil),
		"模型panic":   agent.NewMockChatClientSequential(agent.MockResponse{Panic: "unexpected"}),
		"截断的JSON":   agent.NewMockChatClient(validResponse[:40], nil),
	}
	for name, chat := range cases {
		t.Run(name, func(t *testing.T) {
			e := New(WithChatModel(chat))
			r := e.Evaluate(context.Background(), sampleResume(), sampleJob())
			assertFallbackShape(t, r)
			assert.Equal(t, []string{"Solidity"}, r.MatchingSkills)
			assert.Equal(t, []string{"React"}, r.MissingSkills)
		})
	}
}

// blockingChat 阻塞直到上下文结束
type blockingChat struct{ agent.MockChatClient }

func (b *blockingChat) Generate(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEvaluateTimeoutFallsBack(t *testing.T) {
	e := New(WithChatModel(&blockingChat{}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	r := e.Evaluate(context.Background(), sampleResume(), sampleJob())
	assertFallbackShape(t, r)
	assert.Less(t, time.Since(start), 5*time.Second, "超时后应立即返回兜底结果")
}

func TestEvaluateKnowledgeNotLoaded(t *testing.T) {
	m := knowledge.NewManager(embedding.NewChain(embedding.NewMock()))
	chat := agent.NewMockChatClient(validResponse, nil)
	e := New(WithChatModel(chat), WithKnowledge(m))

	r := e.Evaluate(context.Background(), sampleResume(), sampleJob())
	assert.Equal(t, types.EvaluationSourceLLM, r.Source, "知识库不可用不应影响评估")
	assert.NotContains(t, chat.LastMessages()[1].Content, "从知识库中检索到的相关信息")
}

func TestParseEvaluation(t *testing.T) {
	r, err := ParseEvaluation(validResponse)
	require.NoError(t, err)
	assert.Equal(t, "React文档", r.LearningResources[0].Resources[0].Title)

	_, err = ParseEvaluation("没有JSON")
	assert.ErrorIs(t, err, ErrNoJSONFound)

	_, err = ParseEvaluation(`{"skillMatches": "none"}`)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestParseEvaluationLenientNumbersAndDefaults(t *testing.T) {
	doc := strings.Replace(validResponse, `"relevance": 9`, `"relevance": 7.0`, 1)
	doc = strings.Replace(doc, `"category": "blockchain", `, "", 1)
	r, err := ParseEvaluation("\uFEFF" + doc)
	require.NoError(t, err)
	assert.Equal(t, 7, r.SkillMatches[0].Relevance)
	assert.Equal(t, "programming", r.SkillMatches[0].Category, "缺少分类时按技能名归类")
}

func TestParseEvaluationSkipsProseBraces(t *testing.T) {
	r, err := ParseEvaluation("请按格式 {skill} 返回。结果: " + validResponse)
	require.NoError(t, err, "正文中的占位符不应挡住后面的JSON")
	require.Len(t, r.SkillMatches, 1)
	assert.Equal(t, "Solidity", r.SkillMatches[0].Skill)

	_, err = ParseEvaluation("只有占位符 {skill} 和 {level}")
	assert.ErrorIs(t, err, ErrNoJSONFound)
}

func TestParseEvaluationCoercesRelevance(t *testing.T) {
	cases := map[string]int{`"8"`: 8, `" 6.6 "`: 7, `9.4`: 9}
	for raw, want := range cases {
		doc := strings.Replace(validResponse, `"relevance": 9`, `"relevance": `+raw, 1)
		r, err := ParseEvaluation(doc)
		require.NoError(t, err, "relevance=%s 应被接受", raw)
		assert.Equal(t, want, r.SkillMatches[0].Relevance, "relevance=%s", raw)
	}

	_, err := ParseEvaluation(strings.Replace(validResponse, `"relevance": 9`, `"relevance": "高"`, 1))
	assert.ErrorIs(t, err, ErrSchemaViolation, "非数字字符串仍应校验失败")

	_, err = ParseEvaluation(strings.Replace(validResponse, `"relevance": 9`, `"relevance": "12"`, 1))
	assert.ErrorIs(t, err, ErrSchemaViolation, "转换后仍需满足取值范围")
}

func TestParseEvaluationBracesInsideStrings(t *testing.T) {
	doc := strings.Replace(validResponse, `"智能合约开发"`, `"熟悉 mapping{address => uint} 等结构"`, 1)
	r, err := ParseEvaluation("前缀 " + doc + " 后缀 {无关}")
	require.NoError(t, err)
	assert.Equal(t, []string{"熟悉 mapping{address => uint} 等结构"}, r.StrengthAreas)
}

func TestParseEvaluationRepairsUnescapedQuotes(t *testing.T) {
	doc := strings.Replace(validResponse, `"智能合约开发"`, `"擅长"创意"设计"`, 1)
	r, err := ParseEvaluation(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{`擅长"创意"设计`}, r.StrengthAreas)
}

func TestSplitMatches(t *testing.T) {
	matched, missing := splitMatches([]string{"Solidity", "React", "Rust", ""}, []string{"solidity developer", "Django"})
	assert.Equal(t, []string{"Solidity"}, matched)
	assert.Equal(t, []string{"React", "Rust", ""}, missing)

	matched, missing = splitMatches([]string{"React Native"}, []string{"React"})
	assert.Empty(t, matched, "只判断简历技能包含岗位技能")
	assert.Equal(t, []string{"React Native"}, missing)
}

func TestEvaluateFallbackSubstringMatch(t *testing.T) {
	resume := &types.ResumeData{Skills: []string{"ReactJS", "Golang", "NodeJS"}}
	job := &types.JobRequirement{Skills: types.SkillRequirements{Required: []string{"React", "Go", "Node", "Solidity"}}}

	r := New().Evaluate(context.Background(), resume, job)
	assertFallbackShape(t, r)
	assert.Equal(t, []string{"React", "Go", "Node"}, r.MatchingSkills, "简历技能包含岗位技能即视为具备")
	assert.Equal(t, []string{"Solidity"}, r.MissingSkills)
	assert.Len(t, r.SkillMatches, 3)
}

func TestAnalyzePrecomputedMatches(t *testing.T) {
	resume := &types.ResumeData{Skills: []string{"ReactJS", "Golang"}}
	job := &types.JobRequirement{Skills: types.SkillRequirements{
		Required:  []string{"React"},
		Preferred: []string{"Go", "Rust"},
	}}

	a := New().analyze(context.Background(), resume, job)
	assert.Equal(t, []string{"React"}, a.requiredMatched)
	assert.Equal(t, []string{"Go"}, a.preferredMatched, "提示词中的预匹配与兜底使用同一规则")
}
