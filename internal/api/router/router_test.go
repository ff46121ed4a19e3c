package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web3-resume-rag/internal/api/handler"
	"web3-resume-rag/internal/embedding"
	"web3-resume-rag/internal/evaluator"
	"web3-resume-rag/internal/knowledge"
	"web3-resume-rag/internal/parser"
	"web3-resume-rag/internal/processor"
	"web3-resume-rag/internal/skills"
)

const testAPIKey = "test-secret"

type testServer struct {
	h  *server.Hertz
	km *knowledge.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	chain := embedding.NewChain(embedding.NewMock())
	km := knowledge.NewManager(chain)
	_, err := knowledge.SeedDefault(ctx, km)
	require.NoError(t, err, "载入内置知识库失败")

	ext := skills.NewExtractor()
	p, err := parser.New(ctx, parser.WithExtractor(ext))
	require.NoError(t, err)
	ev := evaluator.New(evaluator.WithKnowledge(km), evaluator.WithExtractor(ext))
	svc := processor.NewService(p, ev)

	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	RegisterRoutes(h, handler.New(km, svc, chain), []string{testAPIKey})
	return &testServer{h: h, km: km}
}

func (s *testServer) postJSON(path string, body any, headers ...ut.Header) *ut.ResponseRecorder {
	raw, _ := json.Marshal(body)
	headers = append(headers, ut.Header{Key: "Content-Type", Value: "application/json"})
	return ut.PerformRequest(s.h.Engine, http.MethodPost, path, &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}, headers...)
}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "响应应为JSON: %s", w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := ut.PerformRequest(s.h.Engine, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, knowledge.DefaultKnowledgeBaseName, body["knowledgeBase"])
}

func TestEmbeddings(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/v1/embeddings", map[string]any{"text": "Solidity"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "mock", body["source"])
	assert.EqualValues(t, 32, body["dimension"])

	w = s.postJSON("/api/v1/embeddings", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少text应返回400")
}

func TestKnowledgeRoutesRequireAPIKey(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/v1/knowledge", map[string]any{"name": "DeFi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "未携带API Key的写操作应被拒绝")

	w = s.postJSON("/api/v1/knowledge", map[string]any{"name": "DeFi"}, ut.Header{Key: APIKeyHeader, Value: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.postJSON("/api/v1/knowledge", map[string]any{"name": "DeFi", "description": "协议知识"}, ut.Header{Key: APIKeyHeader, Value: testAPIKey})
	require.Equal(t, http.StatusCreated, w.Code)
	kb := decode(t, w)["knowledgeBase"].(map[string]any)
	id := kb["id"].(string)
	require.NotEmpty(t, id)

	w = s.postJSON("/api/v1/knowledge/"+id+"/documents",
		map[string]any{"text": "Uniswap 是基于恒定乘积做市商的去中心化交易所。", "metadata": map[string]any{"title": "AMM"}},
		ut.Header{Key: APIKeyHeader, Value: testAPIKey})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["chunks"])

	w = s.postJSON("/api/v1/knowledge/"+id+"/query", map[string]any{"query": "去中心化交易所", "topK": 3})
	require.Equal(t, http.StatusOK, w.Code)
	results := decode(t, w)["results"].([]any)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].(map[string]any)["text"], "Uniswap")

	w = ut.PerformRequest(s.h.Engine, http.MethodGet, "/api/v1/knowledge/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["chunks"])
}

func TestKnowledgeNotFoundAndValidation(t *testing.T) {
	s := newTestServer(t)
	auth := ut.Header{Key: APIKeyHeader, Value: testAPIKey}

	w := ut.PerformRequest(s.h.Engine, http.MethodGet, "/api/v1/knowledge/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.postJSON("/api/v1/knowledge/unknown/documents", map[string]any{"text": "内容"}, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	kb := s.km.ActiveKnowledgeBase()
	require.NotNil(t, kb)
	w = s.postJSON("/api/v1/knowledge/"+kb.ID+"/documents", map[string]any{"text": "  "}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code, "空文本应返回400")

	w = s.postJSON("/api/v1/knowledge/unknown/query", map[string]any{"query": "DeFi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["results"], "未知知识库查询应返回空结果")
}

func TestKnowledgeList(t *testing.T) {
	s := newTestServer(t)
	w := ut.PerformRequest(s.h.Engine, http.MethodGet, "/api/v1/knowledge", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["knowledgeBases"], 1)
}

func TestKnowledgeContext(t *testing.T) {
	s := newTestServer(t)
	w := s.postJSON("/api/v1/knowledge/context", map[string]any{"query": "Solidity", "maxResults": 2})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.IsType(t, "", body["context"])
}

func TestEvaluateResume(t *testing.T) {
	s := newTestServer(t)

	w := s.postJSON("/api/v1/resume/evaluate", map[string]any{
		"resumeData": map[string]any{
			"personalInfo": map[string]any{"name": "王五"},
			"skills":       []string{"Solidity", "Go"},
		},
		"jobRequirements": map[string]any{
			"title":  "区块链后端工程师",
			"skills": map[string]any{"required": []string{"Solidity", "Rust"}, "preferred": []string{}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	eval := body["evaluation"].(map[string]any)
	assert.Equal(t, "fallback", eval["source"], "未配置模型时应使用兜底评估")
	assert.Equal(t, []any{"Solidity"}, eval["matchingSkills"])
	assert.Equal(t, []any{"Rust"}, eval["missingSkills"])
	assert.NotContains(t, body, "recordId", "未启用持久化时不返回记录ID")

	w = s.postJSON("/api/v1/resume/evaluate", map[string]any{"resumeData": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少职位要求应返回400")
}

func multipartFile(t *testing.T, filename, contentType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

const textResume = `赵六
邮箱: zhaoliu@example.com

技能
Solidity, Go, Hardhat
`

func TestParseResumeUpload(t *testing.T) {
	s := newTestServer(t)

	body, ct := multipartFile(t, "resume.txt", "text/plain", []byte(textResume), nil)
	w := ut.PerformRequest(s.h.Engine, http.MethodPost, "/api/v1/resume/parse",
		&ut.Body{Body: body, Len: body.Len()}, ut.Header{Key: "Content-Type", Value: ct})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "赵六", data["personalInfo"].(map[string]any)["name"])
	assert.Equal(t, []any{"Solidity", "Go", "Hardhat"}, data["skills"])

	body, ct = multipartFile(t, "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'}, nil)
	w = ut.PerformRequest(s.h.Engine, http.MethodPost, "/api/v1/resume/parse",
		&ut.Body{Body: body, Len: body.Len()}, ut.Header{Key: "Content-Type", Value: ct})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "不支持的文件类型")
}

func TestScreenResumeUpload(t *testing.T) {
	s := newTestServer(t)

	job := `{"title":"合约工程师","skills":{"required":["Solidity","Rust"],"preferred":["Hardhat"]}}`
	body, ct := multipartFile(t, "resume.txt", "text/plain", []byte(textResume), map[string]string{"job": job})
	w := ut.PerformRequest(s.h.Engine, http.MethodPost, "/api/v1/resume/screen",
		&ut.Body{Body: body, Len: body.Len()}, ut.Header{Key: "Content-Type", Value: ct})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode(t, w)["result"].(map[string]any)["result"].(map[string]any)
	assert.Equal(t, []any{"Rust"}, result["missingSkills"])

	body, ct = multipartFile(t, "resume.txt", "text/plain", []byte(textResume), nil)
	w = ut.PerformRequest(s.h.Engine, http.MethodPost, "/api/v1/resume/screen",
		&ut.Body{Body: body, Len: body.Len()}, ut.Header{Key: "Content-Type", Value: ct})
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少职位要求应返回400")
}

func TestEvaluationsWithoutPersistence(t *testing.T) {
	s := newTestServer(t)

	w := ut.PerformRequest(s.h.Engine, http.MethodGet, "/api/v1/evaluations/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ut.PerformRequest(s.h.Engine, http.MethodGet, "/api/v1/evaluations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["evaluations"])
}
