package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644), "无法写入临时配置文件")
	return configPath
}

// TestLoadConfigAppliesDefaults 验证未出现在YAML中的字段会被默认值填充
func TestLoadConfigAppliesDefaults(t *testing.T) {
	configPath := writeTempConfig(t, `
llm:
  model: "openai/gpt-4o-mini"
knowledge:
  context_floor: 0.5
`)
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("EMBEDDING_MODE", "")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载配置不应返回错误")
	require.NotNil(t, config)

	assert.Equal(t, "openai/gpt-4o-mini", config.LLM.Model, "显式配置应保留")
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", config.LLM.APIURL)
	assert.InDelta(t, 0.2, config.LLM.Temperature, 1e-9)
	assert.InDelta(t, 0.5, config.Knowledge.ContextFloor, 1e-9, "显式阈值应保留")
	assert.InDelta(t, 0.75, config.Knowledge.ExtractThreshold, 1e-9)
	assert.Equal(t, 2, config.Knowledge.SubstringPenalty)
	assert.Equal(t, 1000, config.Knowledge.ChunkSize)
	assert.Equal(t, 200, config.Knowledge.ChunkOverlap)
	assert.Equal(t, EmbeddingModeRemote, config.Embedding.Mode)
	assert.Equal(t, ":8080", config.Server.Address)
}

// TestLoadConfigEnvOverrides 验证环境变量优先于文件
func TestLoadConfigEnvOverrides(t *testing.T) {
	configPath := writeTempConfig(t, `
llm:
  api_key: "from-file"
embedding:
  mode: remote
`)
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("EMBEDDING_MODE", "MOCK")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.LLM.APIKey)
	assert.Equal(t, EmbeddingModeMock, config.Embedding.Mode)
	assert.Equal(t, "from-env", config.EmbeddingAPIKey(), "嵌入凭证应沿用LLM凭证")
}

func TestLoadConfigInvalidMode(t *testing.T) {
	configPath := writeTempConfig(t, `
embedding:
  mode: "quantum"
`)
	t.Setenv("EMBEDDING_MODE", "")

	_, err := LoadConfig(configPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "不存在的配置文件应返回错误")
}

func TestValidateChunkSize(t *testing.T) {
	config := DefaultConfig()
	config.Knowledge.ChunkSize = 100
	config.Knowledge.ChunkOverlap = 100
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig, "chunk_size 等于 overlap 应校验失败")

	config.Knowledge.ChunkSize = 101
	assert.NoError(t, config.Validate())
}

func TestEmbeddingAPIKeyOverride(t *testing.T) {
	config := DefaultConfig()
	config.LLM.APIKey = "shared"
	assert.Equal(t, "shared", config.EmbeddingAPIKey())
	config.Embedding.APIKey = "dedicated"
	assert.Equal(t, "dedicated", config.EmbeddingAPIKey())
}

func TestQPMForModel(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 500, config.QPMForModel("openai/gpt-4o"))
	assert.Equal(t, 0, config.QPMForModel("unknown"))

	config.LLM.QPM = 42
	assert.Equal(t, 42, config.QPMForModel(config.LLM.Model), "llm.qpm 优先于 model_qpm_limits")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, GetDuration(3, time.Minute))
	assert.Equal(t, time.Minute, GetDuration(0, time.Minute))
}
