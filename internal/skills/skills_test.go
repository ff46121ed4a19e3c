package skills

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"web3-resume-rag/internal/types"
)

func TestDefaultTaxonomyShape(t *testing.T) {
	groups := DefaultTaxonomy()
	require.Len(t, groups, 6)

	order := []types.SkillCategory{
		types.CategoryBlockchain, types.CategoryWeb3, types.CategoryDeFi,
		types.CategoryNFT, types.CategoryDAO, types.CategoryProgramming,
	}
	total := 0
	seen := map[string]bool{}
	for i, g := range groups {
		assert.Equal(t, order[i], g.Category, "分类顺序应固定")
		for _, e := range g.Entries {
			assert.False(t, seen[e.Name], "技能名应唯一: %s", e.Name)
			seen[e.Name] = true
			assert.True(t, e.Relevance >= 1 && e.Relevance <= 10, "相关度应在1-10之间: %s", e.Name)
		}
		total += len(g.Entries)
	}
	assert.Equal(t, 50, total)
}

func TestExtractSkillsExactAndAlias(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractSkills([]string{"solidity", "Golang", "小狐狸钱包"}, "")
	require.Len(t, got, 3)

	assert.Equal(t, types.SkillMatch{
		Skill: "Solidity", Category: "blockchain", Relevance: 10, Description: "以太坊智能合约开发的主要编程语言",
	}, got[0])
	assert.Equal(t, "Go", got[1].Skill)
	assert.Equal(t, 8, got[1].Relevance)
	assert.Equal(t, "MetaMask", got[2].Skill)
	assert.Equal(t, "web3", got[2].Category)
}

func TestExtractSkillsContainment(t *testing.T) {
	e := NewExtractor()

	got := e.ExtractSkills([]string{"Solidity Developer"}, "")
	require.Len(t, got, 1)
	assert.Equal(t, "Solidity", got[0].Skill)
	assert.Equal(t, 8, got[0].Relevance, "包含匹配应扣减2")

	got = e.ExtractSkills([]string{"react native"}, "")
	require.Len(t, got, 1)
	assert.Equal(t, "React", got[0].Skill)
	assert.Equal(t, 5, got[0].Relevance)

	// 反向包含: 技能名包含候选文本
	got = e.ExtractSkills([]string{"Optimization"}, "")
	require.Len(t, got, 1)
	assert.Equal(t, "Gas Optimization", got[0].Skill)
	assert.Equal(t, 7, got[0].Relevance)
}

func TestExtractSkillsWordBoundary(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractSkills([]string{"smart contract auditing"}, "")
	assert.Empty(t, got, "短别名不应在单词内部命中")

	got = e.ExtractSkills([]string{"Go语言"}, "")
	require.Len(t, got, 1)
	assert.Equal(t, "Go", got[0].Skill)
}

func TestExtractSkillsPenaltyFloor(t *testing.T) {
	e := NewExtractor(WithSubstringPenalty(100))
	got := e.ExtractSkills([]string{"Solidity Developer"}, "")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Relevance, "相关度最低为1")
}

func TestExtractSkillsDedupAndOrder(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractSkills([]string{"Solidity Developer", "solidity", "React", "TypeScript"}, "")
	assert.Equal(t, []string{"Solidity", "TypeScript", "React"}, Names(got))
	assert.Equal(t, 10, got[0].Relevance, "重复时保留相关度较高者")
}

func TestExtractSkillsEmpty(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractSkills(nil, "")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = e.ExtractSkills([]string{"  ", "烹饪"}, "")
	assert.Empty(t, got)
}

func TestExtractSkillsIdempotent(t *testing.T) {
	e := NewExtractor()
	var vocab []string
	for _, g := range DefaultTaxonomy() {
		for _, entry := range g.Entries {
			vocab = append(vocab, entry.Name)
			vocab = append(vocab, entry.Aliases...)
		}
	}
	vocab = append(vocab, "solidity developer", "react native", "智能合约开发", "defi", "web3", "chain", "烹饪")

	rapid.Check(t, func(rt *rapid.T) {
		candidates := rapid.SliceOfN(rapid.SampledFrom(vocab), 0, 6).Draw(rt, "candidates")

		first := e.ExtractSkills(candidates, "")
		second := e.ExtractSkills(Names(first), "")
		third := e.ExtractSkills(Names(second), "")

		assert.Equal(rt, Names(first), Names(second), "对结果再次提取应得到相同技能")
		assert.Equal(rt, second, third)
		assert.Equal(rt, first, e.ExtractSkills(candidates, ""), "相同输入应得到相同输出")
	})
}

func TestInferLevel(t *testing.T) {
	e := NewExtractor()
	text := "工作经历\n精通 Solidity 智能合约开发\n熟练使用 React\n了解 Rust"

	got := e.ExtractSkills([]string{"Solidity"}, text)
	require.Len(t, got, 1)
	assert.Equal(t, LevelExpert, got[0].Level)

	got = e.ExtractSkills([]string{"Python"}, text)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Level, "文本中未出现的技能不推断熟练度")

	long := "I have basic knowledge of Rust. " + strings.Repeat("x", 150) + " Solidity"
	got = e.ExtractSkills([]string{"Solidity"}, long)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Level, "窗口之外的指示词不应生效")

	got = e.ExtractSkills([]string{"Rust"}, "Senior engineer, Rust")
	require.Len(t, got, 1)
	assert.Equal(t, LevelExpert, got[0].Level)
}

func TestCategorize(t *testing.T) {
	cases := map[string]types.SkillCategory{
		"Ethereum":        types.CategoryBlockchain,
		"Web3.js":         types.CategoryWeb3,
		"Uniswap V3":      types.CategoryDeFi,
		"ERC721":          types.CategoryNFT,
		"DAO governance":  types.CategoryDAO,
		"Solidity":        types.CategoryProgramming,
		"React":           types.CategoryProgramming,
		"Go":              types.CategoryProgramming,
		"Photoshop":       types.CategoryOther,
		"":                types.CategoryOther,
		"blockchain defi": types.CategoryBlockchain,
	}
	for input, want := range cases {
		assert.Equal(t, want, Categorize(input), "输入: %q", input)
	}
	assert.Equal(t, types.CategoryOther, Categorize("MongoDB"), "go 不应在单词内部命中")
}

func TestExtractCandidatesSection(t *testing.T) {
	e := NewExtractor()
	text := `张三
专业技能：
Solidity, Hardhat，Ethers.js
- React
• TypeScript；Node.js

工作经历：
在某交易所负责合约开发`
	got := e.ExtractCandidates(text)
	assert.Equal(t, []string{"Solidity", "Hardhat", "Ethers.js", "React", "TypeScript", "Node.js"}, got)
}

func TestExtractCandidatesInlineHeading(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractCandidates("Skills: Go, Rust; Docker")
	assert.Equal(t, []string{"Go", "Rust; Docker"}, got, "逗号优先于分号拆分")
}

func TestExtractCandidatesFallbackScan(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractCandidates("负责基于Solidity的智能合约开发，使用The Graph做数据索引，前端使用React")
	assert.Equal(t, []string{"Solidity", "Smart Contracts", "The Graph", "React"}, got)

	assert.Empty(t, e.ExtractCandidates("会计与财务管理"))
}

type stubSemantic struct {
	hits map[string][]string
	err  error
}

func (s stubSemantic) ExtractSkillsFromText(_ context.Context, text string, _ float64) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits[text], nil
}

func TestExtractSkillsContextSemanticFallback(t *testing.T) {
	e := NewExtractor(WithSemanticMatcher(stubSemantic{hits: map[string][]string{
		"以太坊链上开发": {"Solidity", "NFT开发"},
	}}))
	got := e.ExtractSkillsContext(context.Background(), []string{"以太坊链上开发", "React"}, "")

	bySkill := map[string]types.SkillMatch{}
	for _, m := range got {
		bySkill[m.Skill] = m
	}
	require.Contains(t, bySkill, "Solidity")
	assert.Equal(t, 8, bySkill["Solidity"].Relevance, "语义命中技能表条目时按包含匹配计分")
	require.Contains(t, bySkill, "NFT开发")
	assert.Equal(t, "nft", bySkill["NFT开发"].Category)
	assert.Equal(t, 3, bySkill["NFT开发"].Relevance)
	assert.Contains(t, bySkill, "React")
}

func TestExtractSkillsContextSemanticError(t *testing.T) {
	e := NewExtractor(WithSemanticMatcher(stubSemantic{err: errors.New("知识库未加载")}))
	got := e.ExtractSkillsContext(context.Background(), []string{"烹饪", "Solidity"}, "")
	assert.Equal(t, []string{"Solidity"}, Names(got), "语义匹配失败不影响词表结果")
}
