package evaluator

import (
	"web3-resume-rag/internal/skills"
	"web3-resume-rag/internal/types"
)

const fallbackRelevance = 8

// fallback 确定性兜底评估，只依赖简历声明的技能与岗位必要技能
func (e *Evaluator) fallback(resume *types.ResumeData, job *types.JobRequirement) *types.EvaluationResult {
	matching, missing := splitMatches(job.Skills.Required, resume.Skills)

	matches := make([]types.SkillMatch, 0, len(matching))
	for _, s := range matching {
		matches = append(matches, types.SkillMatch{
			Skill:     s,
			Category:  string(skills.Categorize(s)),
			Relevance: fallbackRelevance,
		})
	}

	result := &types.EvaluationResult{
		SkillMatches:      matches,
		MatchingSkills:    matching,
		MissingSkills:     missing,
		StrengthAreas:     []string{"技术能力", "区块链知识"},
		ImprovementAreas:  []string{"需要补充缺失的必要技能"},
		CareerSuggestions: []string{"建议继续Web3领域的发展"},
		LearningResources: []types.LearningResource{
			{
				Skill: "Web3",
				Resources: []types.ResourceLink{
					{Title: "Web3开发文档", URL: "https://web3js.readthedocs.io/", Type: "文档"},
				},
			},
		},
		Source: types.EvaluationSourceFallback,
	}
	result.Normalize()
	return result
}
