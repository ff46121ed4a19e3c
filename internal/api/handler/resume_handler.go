package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"web3-resume-rag/internal/processor"
	"web3-resume-rag/internal/types"
)

func (h *Handler) readUpload(c *app.RequestContext) (filename, mimeType string, data []byte, status int, err error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, consts.StatusBadRequest, errors.New("文件未找到")
	}
	if fileHeader.Size > h.maxUpload {
		return "", "", nil, consts.StatusRequestEntityTooLarge, fmt.Errorf("文件过大: %d 字节，上限 %d 字节", fileHeader.Size, h.maxUpload)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", "", nil, consts.StatusInternalServerError, errors.New("打开文件失败")
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return "", "", nil, consts.StatusInternalServerError, errors.New("读取文件失败")
	}
	return fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, 0, nil
}

// ParseResume POST /resume/parse
func (h *Handler) ParseResume(ctx context.Context, c *app.RequestContext) {
	filename, mimeType, data, status, err := h.readUpload(c)
	if err != nil {
		fail(c, status, err.Error())
		return
	}

	res := h.screening.ParseResume(ctx, filename, mimeType, data)
	if res.Error != "" {
		fail(c, consts.StatusBadRequest, res.Error)
		return
	}

	resp := utils.H{"success": true, "data": res.Data}
	if h.archive != nil {
		key, err := h.archive.ArchiveResume(ctx, filename, mimeType, data)
		if err != nil {
			h.logger.Warn().Err(err).Str("file", filename).Msg("归档简历原件失败")
		} else {
			resp["archiveKey"] = key
		}
	}
	c.JSON(consts.StatusOK, resp)
}

type evaluateRequest struct {
	ResumeData      *types.ResumeData     `json:"resumeData"`
	JobRequirements *types.JobRequirement `json:"jobRequirements"`
}

// EvaluateResume POST /resume/evaluate
func (h *Handler) EvaluateResume(ctx context.Context, c *app.RequestContext) {
	var req evaluateRequest
	if err := c.BindJSON(&req); err != nil {
		fail(c, consts.StatusBadRequest, "请求体不是合法的JSON")
		return
	}
	if req.ResumeData == nil || req.JobRequirements == nil {
		fail(c, consts.StatusBadRequest, "缺少简历数据或职位要求")
		return
	}

	out, err := h.screening.EvaluateResume(ctx, req.ResumeData, req.JobRequirements)
	if err != nil {
		fail(c, consts.StatusBadRequest, err.Error())
		return
	}
	resp := utils.H{"success": true, "evaluation": out.Result}
	if out.RecordID != "" {
		resp["recordId"] = out.RecordID
	}
	c.JSON(consts.StatusOK, resp)
}

// ScreenResume POST /resume/screen，multipart: file + job(JSON)
func (h *Handler) ScreenResume(ctx context.Context, c *app.RequestContext) {
	var job types.JobRequirement
	raw := c.PostForm("job")
	if raw == "" {
		fail(c, consts.StatusBadRequest, "缺少职位要求")
		return
	}
	if err := sonic.Unmarshal([]byte(raw), &job); err != nil {
		fail(c, consts.StatusBadRequest, "职位要求不是合法的JSON")
		return
	}

	filename, mimeType, data, status, err := h.readUpload(c)
	if err != nil {
		fail(c, status, err.Error())
		return
	}

	out, err := h.screening.ScreenFile(ctx, filename, mimeType, data, &job)
	if errors.Is(err, processor.ErrParseFailed) {
		fail(c, consts.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("file", filename).Msg("筛选简历失败")
		fail(c, consts.StatusInternalServerError, "筛选简历失败")
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true, "result": out})
}

// GetEvaluation GET /evaluations/:id
func (h *Handler) GetEvaluation(ctx context.Context, c *app.RequestContext) {
	result, err := h.screening.GetEvaluation(ctx, c.Param("id"))
	if errors.Is(err, processor.ErrEvaluationNotFound) {
		fail(c, consts.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("查询评估记录失败")
		fail(c, consts.StatusInternalServerError, "查询评估记录失败")
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true, "evaluation": result})
}

// ListEvaluations GET /evaluations?limit=N
func (h *Handler) ListEvaluations(ctx context.Context, c *app.RequestContext) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := h.screening.ListEvaluations(ctx, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("查询评估记录失败")
		fail(c, consts.StatusInternalServerError, "查询评估记录失败")
		return
	}
	c.JSON(consts.StatusOK, utils.H{"success": true, "evaluations": list})
}
