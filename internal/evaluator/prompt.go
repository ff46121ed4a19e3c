package evaluator

import (
	"fmt"
	"strings"

	"web3-resume-rag/internal/types"
)

const systemPrompt = "你是一个专业的Web3人才评估专家，擅长评估候选人的技能、经验与职位要求的匹配度。请以JSON格式返回评估结果。"

const responseFormat = `{
  "skillMatches": [
    {
      "skill": "技能名称",
      "category": "技能类别(如blockchain, web3, defi等)",
      "relevance": 相关性评分(0-10的整数),
      "level": "技能水平(beginner/intermediate/expert)",
      "description": "技能描述"
    }
  ],
  "matchingSkills": ["候选人具备的职位必要技能1", "技能2"],
  "missingSkills": ["职位要求但候选人缺乏的技能1", "技能2"],
  "strengthAreas": ["候选人的优势领域1", "优势2"],
  "improvementAreas": ["需要提升的领域1", "领域2"],
  "careerSuggestions": ["职业发展建议1", "建议2"],
  "learningResources": [
    {
      "skill": "技能名称",
      "resources": [
        {
          "title": "资源标题",
          "url": "资源链接",
          "type": "资源类型(文档/课程/教程)"
        }
      ]
    }
  ]
}`

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

// buildPrompt 组装评估提示词
func buildPrompt(resume *types.ResumeData, job *types.JobRequirement, knowledgeContext string, a analysis) string {
	var work strings.Builder
	for i, exp := range resume.WorkExperience {
		if i > 0 {
			work.WriteString("\n")
		}
		fmt.Fprintf(&work, "公司: %s, 职位: %s, 时间: %s 至 %s, 技术: %s\n描述: %s\n",
			orDefault(exp.Company, "未知"),
			orDefault(exp.Position, "未知"),
			orDefault(exp.StartDate, "?"),
			orDefault(exp.EndDate, "现在"),
			joinOr(exp.Technologies, "未提及"),
			orDefault(exp.Description, "无描述"),
		)
	}
	if work.Len() == 0 {
		work.WriteString("简历中未包含工作经验")
	}

	var projects strings.Builder
	for i, p := range resume.Projects {
		if i > 0 {
			projects.WriteString("\n")
		}
		fmt.Fprintf(&projects, "项目名称: %s, 角色: %s\n技术: %s\n描述: %s\n",
			orDefault(p.Name, "未知项目"),
			orDefault(p.Role, "未知"),
			joinOr(p.Technologies, "未提及"),
			orDefault(p.Description, "无描述"),
		)
	}
	if projects.Len() == 0 {
		projects.WriteString("简历中未包含项目经验")
	}

	var education strings.Builder
	for i, edu := range resume.Education {
		if i > 0 {
			education.WriteString("\n")
		}
		fmt.Fprintf(&education, "学校: %s, 学位: %s, 专业: %s, 时间: %s 至 %s",
			orDefault(edu.Institution, "未知"),
			orDefault(edu.Degree, "未知"),
			orDefault(edu.Field, "未知"),
			orDefault(edu.StartDate, "?"),
			orDefault(edu.EndDate, "?"),
		)
	}
	if education.Len() == 0 {
		education.WriteString("简历中未包含教育背景")
	}

	var sb strings.Builder
	sb.WriteString("请基于以下信息评估候选人简历与Web3职位的匹配度:\n\n")

	sb.WriteString("## 职位信息:\n")
	fmt.Fprintf(&sb, "- 职位名称: %s\n", orDefault(job.Title, "未知职位"))
	fmt.Fprintf(&sb, "- 职位级别: %s\n", orDefault(job.Level, "未指定级别"))
	fmt.Fprintf(&sb, "- 必要技能: %s\n", joinOr(a.requiredSkills, "未指定必要技能"))
	fmt.Fprintf(&sb, "- 加分技能: %s\n", joinOr(a.preferredSkills, "未指定加分技能"))
	fmt.Fprintf(&sb, "- 经验要求: %d年以上 %s 经验\n\n", a.experienceYears, joinOr(a.experienceFields, "相关领域"))

	sb.WriteString("## 候选人简历:\n")
	fmt.Fprintf(&sb, "### 技能:\n%s\n\n", joinOr(resume.Skills, "无技能信息"))
	fmt.Fprintf(&sb, "### 工作经验:\n%s\n\n", work.String())
	fmt.Fprintf(&sb, "### 项目经验:\n%s\n\n", projects.String())
	fmt.Fprintf(&sb, "### 教育背景:\n%s\n\n", education.String())

	fmt.Fprintf(&sb, "## Web3知识与上下文:\n%s\n\n", knowledgeContext)

	sb.WriteString("## 技能匹配分析:\n")
	fmt.Fprintf(&sb, "- 候选人技能: %s\n", strings.Join(a.allSkills, ", "))
	fmt.Fprintf(&sb, "- 必要技能匹配: %s\n", strings.Join(a.requiredMatched, ", "))
	fmt.Fprintf(&sb, "- 加分技能匹配: %s\n\n", strings.Join(a.preferredMatched, ", "))

	sb.WriteString("请根据上述信息进行全面评估，并以JSON格式返回以下内容:\n")
	sb.WriteString(responseFormat)
	sb.WriteString("\n\n仅返回JSON内容，不需要任何其他说明或解释。\n")
	return sb.String()
}
