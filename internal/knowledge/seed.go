package knowledge

import (
	"context"
	"fmt"

	"web3-resume-rag/internal/types"
)

const (
	// DefaultKnowledgeBaseName 内置知识库名称
	DefaultKnowledgeBaseName = "Web3技能知识库"
	// DefaultKnowledgeBaseDescription 内置知识库描述
	DefaultKnowledgeBaseDescription = "Web3和区块链相关技能和知识的集合"
)

// Passage 带标题的知识文本
type Passage struct {
	Title   string
	Content string
}

// DefaultSkills 内置的Web3技能条目
func DefaultSkills() []types.Skill {
	return []types.Skill{
		{
			Name:                "Solidity",
			Description:         "Solidity是一种面向合约的、为实现智能合约而创建的高级编程语言。它的设计目标是针对以太坊虚拟机(EVM)，是最流行的智能合约开发语言。",
			Category:            "智能合约开发",
			RelatedTechnologies: []string{"Ethereum", "Binance Smart Chain", "EVM", "Remix", "Truffle", "Hardhat"},
		},
		{
			Name:                "Web3.js",
			Description:         "Web3.js是一个JavaScript库，允许开发者与以太坊区块链交互。它可以用于前端应用程序，允许用户查询区块链数据、发送交易和与智能合约交互。",
			Category:            "前端开发",
			RelatedTechnologies: []string{"JavaScript", "Ethereum", "MetaMask", "React", "Vue.js"},
		},
		{
			Name:                "Ethers.js",
			Description:         "Ethers.js是一个完整而紧凑的开源库，用于与以太坊区块链及其生态系统进行交互。相比Web3.js，它更轻量、更安全、更模块化。",
			Category:            "前端开发",
			RelatedTechnologies: []string{"JavaScript", "TypeScript", "Ethereum", "React", "Vue.js"},
		},
		{
			Name:                "Hardhat",
			Description:         "Hardhat是一个以太坊开发环境，用于编译、部署、测试和调试以太坊软件。它内置了Hardhat Network，一个为开发而设计的本地以太坊网络。",
			Category:            "开发工具",
			RelatedTechnologies: []string{"Ethereum", "Solidity", "JavaScript", "TypeScript", "Node.js"},
		},
		{
			Name:                "Truffle",
			Description:         "Truffle是一个开发环境、测试框架和资产管道，用于基于以太坊的区块链开发。它提供了合约编译、链接、部署和二进制管理的功能。",
			Category:            "开发工具",
			RelatedTechnologies: []string{"Ethereum", "Solidity", "JavaScript", "Ganache"},
		},
		{
			Name:                "MetaMask",
			Description:         "MetaMask是一个浏览器扩展和移动应用，充当以太坊钱包和网关，允许用户与去中心化应用(dApps)交互，而无需运行完整的以太坊节点。",
			Category:            "钱包与交互",
			RelatedTechnologies: []string{"Ethereum", "Web3.js", "Ethers.js", "DApps"},
		},
		{
			Name:                "IPFS",
			Description:         "IPFS(InterPlanetary File System)是一种点对点的分布式文件系统，旨在使网络更快、更安全、更开放。在Web3开发中常用于存储不可变的、去中心化的内容。",
			Category:            "去中心化存储",
			RelatedTechnologies: []string{"Filecoin", "NFT", "Pinata", "Infura"},
		},
		{
			Name:                "NFT开发",
			Description:         "NFT(非同质化代币)开发涉及创建和管理遵循ERC-721或ERC-1155等标准的唯一数字资产。这些资产可以代表艺术品、收藏品、游戏内物品等。",
			Category:            "区块链应用",
			RelatedTechnologies: []string{"Solidity", "ERC-721", "ERC-1155", "OpenSea", "IPFS"},
		},
		{
			Name:                "DeFi开发",
			Description:         "DeFi(去中心化金融)开发涉及构建不依赖传统中心化金融中介的金融应用。这包括借贷平台、去中心化交易所、稳定币等。",
			Category:            "区块链应用",
			RelatedTechnologies: []string{"Solidity", "Uniswap", "Aave", "Compound", "MakerDAO"},
		},
		{
			Name:                "Rust",
			Description:         "Rust是一种系统编程语言，在Web3领域用于开发高性能的区块链节点、智能合约(如用于Solana)和其他需要安全性和性能的组件。",
			Category:            "区块链开发",
			RelatedTechnologies: []string{"Solana", "Near", "Polkadot", "WebAssembly"},
		},
		{
			Name:                "Polkadot",
			Description:         "Polkadot是一个多链网络，允许不同的区块链在安全的、信任最小化的环境中进行互操作。开发者可以创建自定义区块链(称为平行链)并将其连接到Polkadot网络。",
			Category:            "区块链平台",
			RelatedTechnologies: []string{"Substrate", "Rust", "Kusama", "Parachains"},
		},
		{
			Name:                "ZK-Rollups",
			Description:         "ZK-Rollups是一种第2层扩展解决方案，通过将多个交易捆绑成一个零知识证明，从而提高以太坊等区块链的吞吐量。这允许更高的交易吞吐量和更低的费用。",
			Category:            "扩展解决方案",
			RelatedTechnologies: []string{"zkSync", "StarkNet", "Polygon zkEVM", "Zero-Knowledge Proofs"},
		},
		{
			Name:                "DAO开发",
			Description:         "DAO(去中心化自治组织)开发涉及创建能够自主运行、由代码控制的组织，其治理规则通过智能合约实施，决策通过成员投票做出。",
			Category:            "区块链应用",
			RelatedTechnologies: []string{"Solidity", "Aragon", "Compound Governance", "Snapshot"},
		},
		{
			Name:                "Remix IDE",
			Description:         "Remix IDE是一个开源的Web和桌面应用程序，用于以太坊智能合约开发。它集成了编译、部署、事务调试和测试功能，特别适合Solidity开发。",
			Category:            "开发工具",
			RelatedTechnologies: []string{"Solidity", "Ethereum", "JavaScript", "Web3.js"},
		},
	}
}

// DefaultResources 内置学习资源
func DefaultResources() []types.Resource {
	return []types.Resource{
		{Title: "Solidity官方文档", Description: "Solidity语言规范、合约结构与安全注意事项", URL: "https://docs.soliditylang.org/", Type: "文档"},
		{Title: "Web3开发文档", Description: "Web3.js API参考与以太坊交互示例", URL: "https://web3js.readthedocs.io/", Type: "文档"},
		{Title: "Ethers.js文档", Description: "Ethers.js钱包、Provider与合约交互指南", URL: "https://docs.ethers.org/", Type: "文档"},
		{Title: "Hardhat教程", Description: "使用Hardhat编译、测试和部署智能合约", URL: "https://hardhat.org/tutorial", Type: "教程"},
		{Title: "OpenZeppelin合约库", Description: "经过审计的ERC-20、ERC-721与治理合约实现", URL: "https://docs.openzeppelin.com/contracts", Type: "文档"},
	}
}

// DefaultPassages 内置知识文本，载入时分块嵌入
func DefaultPassages() []Passage {
	return []Passage{
		{
			Title: "Solidity基础概念",
			Content: `Solidity是一种面向对象的高级编程语言，用于实现智能合约。智能合约是在区块链上运行的程序，
控制数字资产的行为。Solidity受C++、Python和JavaScript影响，专为以太坊虚拟机(EVM)设计。

主要特点:
- 静态类型
- 支持继承
- 库调用
- 复杂的用户自定义类型

Solidity开发者需要了解合约结构、数据类型、函数、事件、修饰器、错误处理、安全最佳实践等。
专家级Solidity开发者需精通合约安全性审计、gas优化、高级设计模式和EVM细节。`,
		},
		{
			Title: "Web3.js与前端开发",
			Content: `Web3.js是以太坊生态系统中的JavaScript库，允许开发者与以太坊区块链交互。它提供了API来操作
以太坊对象，如账户、合约、交易等。

核心功能:
- 连接到以太坊节点
- 账户管理
- 智能合约交互
- 交易创建和发送
- 事件监听

Web3前端开发者需要掌握JavaScript/TypeScript、React等现代前端框架、MetaMask集成、交易签名、
状态管理等技能。高级开发者还需了解ENS集成、IPFS存储、多链支持和去中心化身份解决方案。`,
		},
		{
			Title: "DeFi协议与开发",
			Content: `去中心化金融(DeFi)是建立在区块链上的金融应用生态系统，无需中央权威或中介机构。DeFi应用包括
稳定币、借贷平台、去中心化交易所、资产管理工具等。

主要DeFi概念:
- 自动做市商(AMM)
- 流动性挖矿
- 收益聚合
- 闪电贷
- 抵押债仓

DeFi开发者需要深入理解金融产品、安全审计、预言机集成、流动性管理和风险控制。专家级DeFi开发者
还需掌握经济激励机制设计、高效交易执行和复杂金融模型实现。`,
		},
		{
			Title: "NFT标准与实现",
			Content: `非同质化代币(NFT)是区块链上唯一的数字资产，可代表艺术品、收藏品、虚拟地产等。主要NFT标准包括
以太坊的ERC-721和ERC-1155。

NFT开发要点:
- 元数据设计与存储
- 铸造机制
- 版税实现
- 市场整合
- 媒体渲染

NFT开发者需掌握合约编写、元数据处理、IPFS/Arweave存储、身份验证和媒体处理。高级NFT开发人员
还需了解跨链NFT、动态NFT、分数化NFT和大规模铸造优化。`,
		},
		{
			Title: "DAO治理与实现",
			Content: `去中心化自治组织(DAO)是由代码执行的规则组织和管理的实体，成员通常持有治理代币参与决策。
DAO可用于投资、社区管理、协议治理等。

DAO核心组件:
- 投票系统
- 提案机制
- 代币分配
- 资金管理
- 争议解决

DAO开发者需掌握治理合约、投票机制、分布式决策、加密经济学和社区激励。专家级DAO开发者还需了解
二次方投票、代表民主、声誉系统和链下治理协调。`,
		},
	}
}

// SeedDefault 创建并载入内置知识库，随后写入内置知识文本
// 文本写入失败只影响对应分块，知识库仍可用
func SeedDefault(ctx context.Context, m *Manager) (*types.KnowledgeBase, error) {
	kb := m.CreateKnowledgeBase(
		DefaultKnowledgeBaseName,
		DefaultKnowledgeBaseDescription,
		WithSkills(DefaultSkills()...),
		WithResources(DefaultResources()...),
	)
	if err := m.LoadKnowledgeBase(ctx, kb); err != nil {
		return nil, fmt.Errorf("载入内置知识库失败: %w", err)
	}

	for _, p := range DefaultPassages() {
		if _, err := m.AddToKnowledgeBase(ctx, kb.ID, p.Content, map[string]any{"title": p.Title}); err != nil {
			m.logger.Warn().Err(err).Str("title", p.Title).Msg("写入内置知识文本失败")
			if ctx.Err() != nil {
				return nil, fmt.Errorf("写入内置知识文本被中断: %w", ctx.Err())
			}
		}
	}
	return m.GetKnowledgeBase(kb.ID)
}
