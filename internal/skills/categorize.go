package skills

import (
	"strings"

	"web3-resume-rag/internal/types"
)

type categoryKeywords struct {
	category types.SkillCategory
	keywords []string
}

// 按优先级排列，先命中者生效
var categoryRules = []categoryKeywords{
	{types.CategoryBlockchain, []string{"ethereum", "bitcoin", "consensus", "mining", "node", "blockchain", "区块链", "共识"}},
	{types.CategoryWeb3, []string{"web3", "web3.js", "ethers.js", "dapp", "钱包"}},
	{types.CategoryDeFi, []string{"defi", "lending", "yield", "swap", "amm", "uniswap", "借贷", "流动性"}},
	{types.CategoryNFT, []string{"nft", "erc721", "erc-721", "erc1155", "erc-1155", "collectible"}},
	{types.CategoryDAO, []string{"dao", "governance", "voting", "治理", "投票"}},
	{types.CategoryProgramming, []string{"javascript", "typescript", "rust", "go", "golang", "solidity", "react", "python"}},
}

// Categorize 按关键词归类技能文本，均未命中时为 other
func Categorize(text string) types.SkillCategory {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return types.CategoryOther
	}
	for _, rule := range categoryRules {
		if containsAny(lower, rule.keywords) {
			return rule.category
		}
	}
	return types.CategoryOther
}
