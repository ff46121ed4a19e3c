package parser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"web3-resume-rag/internal/tracing"
	"web3-resume-rag/internal/types"
)

var (
	// ErrNoStructuredResume 模型响应中没有可用的简历结构
	ErrNoStructuredResume = errors.New("模型未返回有效的简历结构")
)

const (
	defaultLLMTimeout = 60 * time.Second
	// maxLLMInputRunes 送入模型的简历文本上限
	maxLLMInputRunes = 12000
)

const resumeExtractionPrompt = `你是一个专业的简历解析专家，负责从简历文本中提取结构化信息，特别注意Web3和区块链相关的内容，例如区块链项目经验、智能合约开发、DeFi、NFT、DAO等。

提取以下内容:
1. 个人信息: 姓名、电子邮件、电话号码、所在城市、个人链接(GitHub、LinkedIn等)
2. 个人简介
3. 技能: 区块链平台(Ethereum、Solana等)、智能合约语言(Solidity、Vyper、Rust等)、Web3库和框架(web3.js、ethers.js、Hardhat等)、DeFi/NFT/DAO相关经验、通用编程语言和框架
4. 工作经历: 公司、职位、起止日期、工作描述、使用的技术
5. 教育经历: 学校、学位、专业、起止日期
6. 项目经历: 项目名称、描述、使用的技术、角色、链接
7. 证书与语言能力

严格按以下JSON格式输出，不要包含解释性文字:
{
  "personal": {"name": "", "email": "", "phone": "", "location": "", "links": [""]},
  "summary": "",
  "skills": [""],
  "workExperience": [{"company": "", "position": "", "startDate": "", "endDate": "", "description": "", "technologies": [""]}],
  "education": [{"school": "", "degree": "", "major": "", "startDate": "", "endDate": ""}],
  "projects": [{"name": "", "description": "", "technologies": [""], "role": "", "url": ""}],
  "certifications": [""],
  "languages": [""]
}

某项信息不存在时使用null或空字符串，请勿编造信息。`

// llmResume 模型返回的简历结构，null 字段按零值处理
type llmResume struct {
	Personal struct {
		Name     string   `json:"name"`
		Email    string   `json:"email"`
		Phone    string   `json:"phone"`
		Location string   `json:"location"`
		Links    []string `json:"links"`
	} `json:"personal"`
	Summary        string   `json:"summary"`
	Skills         []string `json:"skills"`
	WorkExperience []struct {
		Company      string   `json:"company"`
		Position     string   `json:"position"`
		StartDate    string   `json:"startDate"`
		EndDate      string   `json:"endDate"`
		Description  string   `json:"description"`
		Technologies []string `json:"technologies"`
	} `json:"workExperience"`
	Education []struct {
		School    string `json:"school"`
		Degree    string `json:"degree"`
		Major     string `json:"major"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"education"`
	Projects []struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		Technologies []string `json:"technologies"`
		Role         string   `json:"role"`
		URL          string   `json:"url"`
	} `json:"projects"`
	Certifications []string `json:"certifications"`
	Languages      []string `json:"languages"`
}

// LLMExtractor 使用聊天模型从简历文本中提取结构化信息
type LLMExtractor struct {
	chat    model.BaseChatModel
	timeout time.Duration
	logger  zerolog.Logger
}

// NewLLMExtractor 创建模型简历提取器，timeout<=0 时使用默认值
func NewLLMExtractor(chat model.BaseChatModel, timeout time.Duration, logger zerolog.Logger) *LLMExtractor {
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	return &LLMExtractor{chat: chat, timeout: timeout, logger: logger}
}

// Extract 调用模型提取简历结构
// 模型调用失败、响应中没有JSON或提取不到任何有效字段时返回错误
func (x *LLMExtractor) Extract(ctx context.Context, text string) (*types.ResumeData, error) {
	ctx, span := tracer.Start(ctx, "parser.LLMExtract")
	defer span.End()

	if runes := []rune(text); len(runes) > maxLLMInputRunes {
		text = string(runes[:maxLLMInputRunes])
	}

	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(resumeExtractionPrompt),
		schema.UserMessage("以下是简历的完整内容:\n" + text),
	}
	resp, err := x.chat.Generate(callCtx, messages)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("模型提取简历失败: %w", err)
	}
	if resp == nil {
		return nil, ErrNoStructuredResume
	}
	x.logger.Debug().Str("response", tracing.SafePrompt(resp.Content)).Msg("模型简历提取响应")

	resume, err := decodeLLMResume(resp.Content)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	return resume, nil
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// extractJSON 优先取 ```json 代码块，否则取第一个 '{' 到最后一个 '}' 之间的内容
func extractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func decodeLLMResume(content string) (*types.ResumeData, error) {
	doc := extractJSON(content)
	if doc == "" {
		return nil, ErrNoStructuredResume
	}
	var raw llmResume
	if err := sonic.UnmarshalString(doc, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoStructuredResume, err)
	}

	resume := &types.ResumeData{
		PersonalInfo: types.PersonalInfo{
			Name:     strings.TrimSpace(raw.Personal.Name),
			Email:    strings.TrimSpace(raw.Personal.Email),
			Phone:    strings.TrimSpace(raw.Personal.Phone),
			Location: strings.TrimSpace(raw.Personal.Location),
		},
		Summary:        strings.TrimSpace(raw.Summary),
		Skills:         dedupe(nonEmpty(raw.Skills)),
		WorkExperience: []types.WorkExperience{},
		Education:      []types.Education{},
		Projects:       []types.Project{},
		Certifications: nonEmpty(raw.Certifications),
		Languages:      nonEmpty(raw.Languages),
	}
	for _, link := range nonEmpty(raw.Personal.Links) {
		resume.PersonalInfo.Links = append(resume.PersonalInfo.Links, types.Link{Label: "Link", URL: link})
	}
	for _, w := range raw.WorkExperience {
		if w.Company == "" && w.Position == "" {
			continue
		}
		resume.WorkExperience = append(resume.WorkExperience, types.WorkExperience{
			Company:      w.Company,
			Position:     w.Position,
			StartDate:    w.StartDate,
			EndDate:      w.EndDate,
			Description:  w.Description,
			Technologies: nonEmpty(w.Technologies),
		})
	}
	for _, e := range raw.Education {
		if e.School == "" {
			continue
		}
		resume.Education = append(resume.Education, types.Education{
			Institution: e.School,
			Degree:      e.Degree,
			Field:       e.Major,
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
		})
	}
	for _, p := range raw.Projects {
		if p.Name == "" {
			continue
		}
		resume.Projects = append(resume.Projects, types.Project{
			Name:         p.Name,
			Description:  p.Description,
			Technologies: nonEmpty(p.Technologies),
			Role:         p.Role,
			URL:          p.URL,
		})
	}

	if resume.PersonalInfo.Name == "" && len(resume.Skills) == 0 &&
		len(resume.WorkExperience) == 0 && len(resume.Education) == 0 && len(resume.Projects) == 0 {
		return nil, ErrNoStructuredResume
	}
	return resume, nil
}

// mergeHeuristic 用启发式结果补齐模型遗漏的联系方式与技能
func mergeHeuristic(resume, heuristic *types.ResumeData) {
	p := &resume.PersonalInfo
	if p.Name == "" {
		p.Name = heuristic.PersonalInfo.Name
	}
	if p.Email == "" {
		p.Email = heuristic.PersonalInfo.Email
	}
	if p.Phone == "" {
		p.Phone = heuristic.PersonalInfo.Phone
	}
	if len(resume.Skills) == 0 {
		resume.Skills = heuristic.Skills
	}
	if resume.Summary == "" {
		resume.Summary = heuristic.Summary
	}
	resume.RawText = heuristic.RawText
}

func nonEmpty(items []string) []string {
	out := []string{}
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
