package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"web3-resume-rag/internal/skills"
	"web3-resume-rag/internal/types"
)

var (
	// ErrNoJSONFound 响应中没有完整的JSON对象
	ErrNoJSONFound = errors.New("返回内容中未找到JSON")
	// ErrSchemaViolation 响应不符合评估结果的结构约束
	ErrSchemaViolation = errors.New("评估结果不符合约定结构")
	// ErrEmptyResponse 模型返回空内容
	ErrEmptyResponse = errors.New("API返回内容为空")
)

// EvaluationSchema 模型响应必须满足的JSON Schema
const EvaluationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["skillMatches", "missingSkills", "strengthAreas", "improvementAreas", "careerSuggestions", "learningResources"],
  "properties": {
    "skillMatches": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["skill", "relevance"],
        "properties": {
          "skill": {"type": "string", "minLength": 1},
          "category": {"type": "string"},
          "relevance": {"type": "integer", "minimum": 0, "maximum": 10},
          "level": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "matchingSkills": {"type": "array", "items": {"type": "string"}},
    "missingSkills": {"type": "array", "items": {"type": "string"}},
    "strengthAreas": {"type": "array", "items": {"type": "string"}},
    "improvementAreas": {"type": "array", "items": {"type": "string"}},
    "careerSuggestions": {"type": "array", "items": {"type": "string"}},
    "learningResources": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["skill", "resources"],
        "properties": {
          "skill": {"type": "string"},
          "resources": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["title"],
              "properties": {
                "title": {"type": "string"},
                "url": {"type": "string"},
                "type": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var evaluationSchema = mustCompileSchema(EvaluationSchema)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("编译评估结果schema失败: %v", err))
	}
	return schema
}

type rawSkillMatch struct {
	Skill       string  `json:"skill"`
	Category    string  `json:"category"`
	Relevance   float64 `json:"relevance"`
	Level       string  `json:"level"`
	Description string  `json:"description"`
}

type rawEvaluation struct {
	SkillMatches      []rawSkillMatch          `json:"skillMatches"`
	MatchingSkills    []string                 `json:"matchingSkills"`
	MissingSkills     []string                 `json:"missingSkills"`
	StrengthAreas     []string                 `json:"strengthAreas"`
	ImprovementAreas  []string                 `json:"improvementAreas"`
	CareerSuggestions []string                 `json:"careerSuggestions"`
	LearningResources []types.LearningResource `json:"learningResources"`
}

// ParseEvaluation 从模型响应中找出第一个合法的JSON对象，按 EvaluationSchema 校验后转换为评估结果
// 字符串内未转义的双引号会尝试修复一次
func ParseEvaluation(content string) (*types.EvaluationResult, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
	}

	doc, err := firstJSONObject(content)
	if err != nil {
		return nil, err
	}

	var tree map[string]any
	decoder := json.NewDecoder(strings.NewReader(doc))
	decoder.UseNumber()
	if err := decoder.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSONFound, err)
	}
	coerceRelevance(tree)

	res, err := evaluationSchema.Validate(gojsonschema.NewGoLoader(tree))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}

	normalized, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	var raw rawEvaluation
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	result := &types.EvaluationResult{
		SkillMatches:      make([]types.SkillMatch, 0, len(raw.SkillMatches)),
		MatchingSkills:    raw.MatchingSkills,
		MissingSkills:     raw.MissingSkills,
		StrengthAreas:     raw.StrengthAreas,
		ImprovementAreas:  raw.ImprovementAreas,
		CareerSuggestions: raw.CareerSuggestions,
		LearningResources: raw.LearningResources,
	}
	for _, m := range raw.SkillMatches {
		category := strings.TrimSpace(m.Category)
		if category == "" {
			category = string(skills.Categorize(m.Skill))
		}
		result.SkillMatches = append(result.SkillMatches, types.SkillMatch{
			Skill:       m.Skill,
			Category:    category,
			Relevance:   int(math.Round(m.Relevance)),
			Level:       m.Level,
			Description: m.Description,
		})
	}
	return result, nil
}

// firstJSONObject 依次尝试每个 '{'，返回第一个能解析为JSON对象的片段
// 正文中的 {skill} 这类占位符会被跳过
func firstJSONObject(text string) (string, error) {
	var lastErr error
	for offset := 0; offset < len(text); {
		i := strings.IndexByte(text[offset:], '{')
		if i < 0 {
			break
		}
		start := offset + i
		offset = start + 1

		for _, candidate := range []string{balancedObjectAt(text, start), naiveObjectAt(text, start)} {
			if candidate == "" {
				continue
			}
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
			if fixed := sanitizeJSON(candidate); json.Valid([]byte(fixed)) {
				return fixed, nil
			}
			var v any
			lastErr = json.Unmarshal([]byte(candidate), &v)
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: 无法解析JSON: %v", ErrNoJSONFound, lastErr)
	}
	return "", ErrNoJSONFound
}

// balancedObjectAt 返回从 start 处 '{' 开始的平衡对象，字符串内的括号不计入层级
func balancedObjectAt(text string, start int) string {
	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// naiveObjectAt 不区分字符串的括号计数，用于字符串内含未转义引号的响应
func naiveObjectAt(text string, start int) string {
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// coerceRelevance 将 skillMatches[].relevance 的数字字符串与小数统一为整数
// 无法解析的值保持原样，交给 schema 校验
func coerceRelevance(tree map[string]any) {
	matches, ok := tree["skillMatches"].([]any)
	if !ok {
		return
	}
	for _, item := range matches {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var f float64
		var err error
		switch v := m["relevance"].(type) {
		case json.Number:
			f, err = v.Float64()
		case string:
			f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		default:
			continue
		}
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		m["relevance"] = int(math.Round(f))
	}
}

// sanitizeJSON 将字符串字面量内部并非真正结束的双引号转义为 \"
// 引号后的下一个非空白字符为 : , ] } 时才视为字符串结束
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
				break
			}
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
				inStr = false
				b.WriteByte(c)
			} else {
				b.WriteString("\\\"")
			}
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
			continue
		default:
			b.WriteByte(c)
		}
		escaped = false
	}
	return b.String()
}
