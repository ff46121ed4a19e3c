package skills

import "web3-resume-rag/internal/types"

// Entry 技能表中的一项
type Entry struct {
	Name        string
	Aliases     []string
	Relevance   int // 1-10，在Web3领域的重要性
	Description string
}

// Group 同一分类下的技能
type Group struct {
	Category types.SkillCategory
	Entries  []Entry
}

// DefaultTaxonomy 内置技能表，分类顺序即匹配顺序
func DefaultTaxonomy() []Group {
	return []Group{
		{
			// 区块链核心技术
			Category: types.CategoryBlockchain,
			Entries: []Entry{
				{Name: "Solidity", Aliases: []string{"智能合约编程语言", "ETH编程语言"}, Relevance: 10, Description: "以太坊智能合约开发的主要编程语言"},
				{Name: "Rust", Aliases: []string{"Substrate开发"}, Relevance: 9, Description: "用于开发高性能区块链和智能合约的系统编程语言"},
				{Name: "Go", Aliases: []string{"Golang"}, Relevance: 8, Description: "许多区块链节点和协议的开发语言"},
				{Name: "EVM", Aliases: []string{"以太坊虚拟机", "Ethereum Virtual Machine"}, Relevance: 9, Description: "以太坊智能合约的运行环境"},
				{Name: "Consensus Mechanisms", Aliases: []string{"共识机制", "PoW", "PoS", "权益证明", "工作量证明"}, Relevance: 8, Description: "区块链网络达成共识的算法机制"},
				{Name: "Smart Contracts", Aliases: []string{"智能合约", "自动执行合约"}, Relevance: 10, Description: "在区块链上自动执行的程序"},
				{Name: "Cryptography", Aliases: []string{"密码学", "加密算法", "数字签名"}, Relevance: 8, Description: "保障区块链安全的密码学原理和技术"},
				{Name: "Gas Optimization", Aliases: []string{"gas优化", "以太坊费用优化"}, Relevance: 9, Description: "优化智能合约以降低交易费用"},
				{Name: "Chain Development", Aliases: []string{"公链开发", "区块链开发"}, Relevance: 9, Description: "开发区块链协议和网络"},
				{Name: "Layer 2", Aliases: []string{"二层扩容", "L2", "Rollups", "State Channels"}, Relevance: 9, Description: "构建在主链之上的扩容解决方案"},
			},
		},
		{
			// Web3生态工具
			Category: types.CategoryWeb3,
			Entries: []Entry{
				{Name: "Web3.js", Aliases: []string{"以太坊JavaScript API"}, Relevance: 8, Description: "与以太坊区块链交互的JavaScript库"},
				{Name: "Ethers.js", Aliases: []string{"ethers"}, Relevance: 9, Description: "完整的以太坊库和钱包实现"},
				{Name: "Hardhat", Aliases: []string{"以太坊开发环境"}, Relevance: 9, Description: "以太坊智能合约开发工具"},
				{Name: "Truffle", Aliases: []string{"松露框架"}, Relevance: 7, Description: "智能合约开发框架"},
				{Name: "Remix", Aliases: []string{"Remix IDE"}, Relevance: 6, Description: "基于浏览器的Solidity IDE"},
				{Name: "MetaMask", Aliases: []string{"小狐狸钱包", "以太坊钱包"}, Relevance: 7, Description: "流行的以太坊浏览器钱包"},
				{Name: "IPFS", Aliases: []string{"星际文件系统", "分布式存储"}, Relevance: 8, Description: "分布式文件存储系统"},
				{Name: "The Graph", Aliases: []string{"Graph Protocol", "区块链数据索引"}, Relevance: 8, Description: "区块链数据索引协议"},
				{Name: "Substrate", Aliases: []string{"波卡开发框架"}, Relevance: 8, Description: "Polkadot生态的区块链开发框架"},
				{Name: "WalletConnect", Aliases: []string{"钱包连接协议"}, Relevance: 7, Description: "开源协议，用于连接去中心化应用和钱包"},
			},
		},
		{
			// DeFi
			Category: types.CategoryDeFi,
			Entries: []Entry{
				{Name: "AMM", Aliases: []string{"自动做市商", "Automated Market Maker"}, Relevance: 8, Description: "自动化交易协议"},
				{Name: "Yield Farming", Aliases: []string{"流动性挖矿", "收益耕作"}, Relevance: 7, Description: "通过提供流动性获取收益的策略"},
				{Name: "Lending Protocols", Aliases: []string{"借贷协议", "DeFi借贷"}, Relevance: 8, Description: "去中心化金融中的借贷平台"},
				{Name: "DEX", Aliases: []string{"去中心化交易所"}, Relevance: 9, Description: "点对点交易加密资产的平台"},
				{Name: "Staking", Aliases: []string{"质押", "权益质押"}, Relevance: 7, Description: "锁定加密资产参与网络验证并获得奖励"},
				{Name: "Liquidity Pools", Aliases: []string{"流动性池"}, Relevance: 8, Description: "DeFi中用户锁定资产的资金池"},
				{Name: "Oracles", Aliases: []string{"预言机", "链下数据服务"}, Relevance: 8, Description: "为区块链提供外部数据的服务"},
				{Name: "Synthetic Assets", Aliases: []string{"合成资产"}, Relevance: 7, Description: "追踪其他资产价值的代币"},
				{Name: "Flash Loans", Aliases: []string{"闪电贷"}, Relevance: 6, Description: "无抵押借贷，在单个交易中完成借贷"},
				{Name: "Impermanent Loss", Aliases: []string{"无常损失"}, Relevance: 7, Description: "流动性提供者因资产价格变化可能面临的损失"},
			},
		},
		{
			// NFT
			Category: types.CategoryNFT,
			Entries: []Entry{
				{Name: "ERC-721", Aliases: []string{"非同质化代币标准"}, Relevance: 9, Description: "以太坊上的非同质化代币标准"},
				{Name: "ERC-1155", Aliases: []string{"多代币标准"}, Relevance: 8, Description: "同时支持同质化和非同质化代币的标准"},
				{Name: "NFT Marketplaces", Aliases: []string{"NFT交易市场", "NFT平台"}, Relevance: 7, Description: "NFT买卖和拍卖的平台"},
				{Name: "Metadata", Aliases: []string{"元数据", "NFT元数据"}, Relevance: 7, Description: "NFT的描述性数据"},
				{Name: "Digital Art", Aliases: []string{"数字艺术", "NFT艺术"}, Relevance: 6, Description: "区块链上的数字艺术作品"},
				{Name: "Gaming NFTs", Aliases: []string{"游戏NFT", "区块链游戏资产"}, Relevance: 7, Description: "游戏中的NFT资产"},
				{Name: "NFT Royalties", Aliases: []string{"版税", "创作者收益"}, Relevance: 6, Description: "NFT二次销售时原创作者获得的收益"},
			},
		},
		{
			// DAO治理
			Category: types.CategoryDAO,
			Entries: []Entry{
				{Name: "Governance", Aliases: []string{"治理", "链上治理"}, Relevance: 8, Description: "去中心化组织的决策机制"},
				{Name: "Voting Systems", Aliases: []string{"投票系统", "链上投票", "治理投票"}, Relevance: 7, Description: "DAO中的投票协议"},
				{Name: "Treasury Management", Aliases: []string{"财库管理", "DAO资金管理"}, Relevance: 7, Description: "管理DAO资产的策略和工具"},
				{Name: "Tokenomics", Aliases: []string{"代币经济学", "通证经济"}, Relevance: 8, Description: "代币供应、分配和激励设计"},
				{Name: "Quadratic Voting", Aliases: []string{"二次方投票"}, Relevance: 6, Description: "基于偏好强度的投票系统"},
				{Name: "Multisig", Aliases: []string{"多重签名", "多签钱包"}, Relevance: 8, Description: "需要多个密钥持有者授权的钱包"},
			},
		},
		{
			// 通用编程与Web开发
			Category: types.CategoryProgramming,
			Entries: []Entry{
				{Name: "JavaScript", Aliases: []string{"JS"}, Relevance: 7, Description: "Web开发的主要语言"},
				{Name: "TypeScript", Aliases: []string{"TS"}, Relevance: 8, Description: "JavaScript的超集，具有类型系统"},
				{Name: "React", Aliases: []string{"React.js"}, Relevance: 7, Description: "流行的前端JavaScript库"},
				{Name: "Node.js", Aliases: []string{"Node"}, Relevance: 7, Description: "服务器端JavaScript运行环境"},
				{Name: "Python", Aliases: []string{"py"}, Relevance: 6, Description: "多用途编程语言，常用于区块链分析"},
				{Name: "RESTful API", Aliases: []string{"REST", "API"}, Relevance: 6, Description: "Web服务设计风格"},
				{Name: "GraphQL", Aliases: []string{"GQL"}, Relevance: 7, Description: "API查询语言和运行时"},
			},
		},
	}
}
