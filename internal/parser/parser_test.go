package parser

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `张三
电子邮件: zhangsan@example.com
电话: 13800138000

个人简介
五年Web3开发经验

专业技能
Solidity, Go, React
• Hardhat

工作经历
某DeFi协议 2021.03 - 至今
高级智能合约工程师
负责借贷协议开发
• 使用Hardhat进行开发
技术栈: Solidity, Ethers.js

教育背景
某大学 2014.09 - 2018.06
本科, 计算机科学

项目经验
NFT市场
基于ERC-721的交易市场
技术栈: Solidity, IPFS

证书
CKA, AWS SAA
`

// stubPDF 返回固定文档的PDF解析器
type stubPDF struct {
	docs    []*schema.Document
	err     error
	gotURI  string
	gotData string
}

func (s *stubPDF) Parse(_ context.Context, reader io.Reader, opts ...einoparser.Option) ([]*schema.Document, error) {
	data, _ := io.ReadAll(reader)
	s.gotData = string(data)
	s.gotURI = einoparser.GetCommonOptions(&einoparser.Options{}, opts...).URI
	return s.docs, s.err
}

func newTestParser(t *testing.T, pdf einoparser.Parser, opts ...Option) *Parser {
	t.Helper()
	if pdf == nil {
		pdf = &stubPDF{}
	}
	p, err := New(context.Background(), append([]Option{WithPDFParser(pdf)}, opts...)...)
	require.NoError(t, err)
	return p
}

func TestParseTextSections(t *testing.T) {
	r := newTestParser(t, nil).ParseText(sampleResume)

	assert.Equal(t, "张三", r.PersonalInfo.Name, "第一行应作为姓名")
	assert.Equal(t, "zhangsan@example.com", r.PersonalInfo.Email)
	assert.Equal(t, "13800138000", r.PersonalInfo.Phone)
	assert.Equal(t, "五年Web3开发经验", r.Summary)
	assert.Equal(t, []string{"Solidity", "Go", "React", "Hardhat"}, r.Skills)

	require.Len(t, r.WorkExperience, 1, "应识别出一段工作经历")
	w := r.WorkExperience[0]
	assert.Equal(t, "某DeFi协议", w.Company)
	assert.Equal(t, "2021.03", w.StartDate)
	assert.Equal(t, "至今", w.EndDate)
	assert.Equal(t, "高级智能合约工程师", w.Position)
	assert.Equal(t, []string{"使用Hardhat进行开发"}, w.Highlights)
	assert.Equal(t, []string{"Hardhat", "Solidity", "Ethers.js"}, w.Technologies)
	assert.True(t, strings.HasPrefix(w.Description, "负责借贷协议开发"))

	require.Len(t, r.Education, 1)
	assert.Equal(t, "某大学", r.Education[0].Institution)
	assert.Equal(t, "本科", r.Education[0].Degree)
	assert.Equal(t, "计算机科学", r.Education[0].Field)
	assert.Equal(t, "2018.06", r.Education[0].EndDate)

	require.Len(t, r.Projects, 1)
	assert.Equal(t, "NFT市场", r.Projects[0].Name)
	assert.Equal(t, "基于ERC-721的交易市场", r.Projects[0].Description)
	assert.Equal(t, []string{"Solidity", "IPFS"}, r.Projects[0].Technologies)

	assert.Equal(t, []string{"CKA", "AWS SAA"}, r.Certifications)
	assert.Equal(t, sampleResume, r.RawText)
}

func TestParseTextInlineSkillsHeading(t *testing.T) {
	r := newTestParser(t, nil).ParseText("李四\nSkills: Rust, Solidity\n")
	assert.Equal(t, "李四", r.PersonalInfo.Name)
	assert.Equal(t, []string{"Rust", "Solidity"}, r.Skills)
}

func TestParseTextScansKnownSkillsWithoutSection(t *testing.T) {
	r := newTestParser(t, nil).ParseText("王五\n熟悉Solidity和Hardhat，做过DeFi项目")
	assert.Contains(t, r.Skills, "Solidity")
	assert.Contains(t, r.Skills, "Hardhat")
	assert.NotNil(t, r.WorkExperience, "没有经历时应为空切片")
	assert.Empty(t, r.WorkExperience)
}

func TestParseTextUSPhone(t *testing.T) {
	r := newTestParser(t, nil).ParseText("John Doe\nPhone: (415) 555-0123\n")
	assert.Equal(t, "(415) 555-0123", r.PersonalInfo.Phone)
}

func TestDetectKind(t *testing.T) {
	cases := []struct {
		filename, mime string
		want           Kind
	}{
		{"cv.pdf", "", KindPDF},
		{"cv", "application/pdf; charset=binary", KindPDF},
		{"CV.DOCX", "application/octet-stream", KindDOCX},
		{"cv", MimeDOCX, KindDOCX},
		{"cv.txt", "", KindText},
		{"cv", "text/plain", KindText},
		{"cv.doc", "application/msword", KindUnsupported},
		{"photo.png", "image/png", KindUnsupported},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DetectKind(c.filename, c.mime), "%s (%s)", c.filename, c.mime)
	}
}

func TestParseDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("不支持的类型", func(t *testing.T) {
		res := newTestParser(t, nil).Parse(ctx, "photo.png", "image/png", []byte("xx"))
		assert.Nil(t, res.Data)
		assert.Equal(t, "不支持的文件类型: image/png", res.Error)
	})

	t.Run("纯文本", func(t *testing.T) {
		res := newTestParser(t, nil).Parse(ctx, "resume.txt", "", []byte(sampleResume))
		require.Empty(t, res.Error)
		require.NotNil(t, res.Data)
		assert.Equal(t, "张三", res.Data.PersonalInfo.Name)
	})

	t.Run("空文本", func(t *testing.T) {
		res := newTestParser(t, nil).Parse(ctx, "resume.txt", MimeText, []byte(" \n\n\t"))
		assert.Nil(t, res.Data)
		assert.Equal(t, "未能从文件中提取文本", res.Error)
	})

	t.Run("文件过大", func(t *testing.T) {
		res := newTestParser(t, nil, WithMaxFileSize(4)).Parse(ctx, "resume.txt", MimeText, []byte("12345"))
		assert.Contains(t, res.Error, "文件过大")
	})

	t.Run("PDF", func(t *testing.T) {
		stub := &stubPDF{docs: []*schema.Document{{Content: "赵六\n\n\n\n技能\nSolidity"}}}
		res := newTestParser(t, stub).Parse(ctx, "cv.pdf", MimePDF, []byte("%PDF-1.4"))
		require.Empty(t, res.Error)
		assert.Equal(t, "cv.pdf", stub.gotURI)
		assert.Equal(t, "%PDF-1.4", stub.gotData)
		assert.Equal(t, "赵六", res.Data.PersonalInfo.Name)
		assert.Equal(t, []string{"Solidity"}, res.Data.Skills)
		assert.Equal(t, "赵六\n\n技能\nSolidity", res.Data.RawText, "多余空行应被压缩")
	})

	t.Run("PDF解析失败", func(t *testing.T) {
		stub := &stubPDF{err: errors.New("malformed xref")}
		res := newTestParser(t, stub).Parse(ctx, "cv.pdf", MimePDF, []byte("bad"))
		assert.Nil(t, res.Data)
		assert.Equal(t, "PDF解析失败: malformed xref", res.Error)
	})

	t.Run("PDF无内容", func(t *testing.T) {
		res := newTestParser(t, &stubPDF{}).Parse(ctx, "cv.pdf", MimePDF, []byte("%PDF"))
		assert.Contains(t, res.Error, "PDF解析失败")
	})

	t.Run("损坏的DOCX", func(t *testing.T) {
		res := newTestParser(t, nil).Parse(ctx, "cv.docx", MimeDOCX, []byte("not a zip"))
		assert.Nil(t, res.Data)
		assert.True(t, strings.HasPrefix(res.Error, "DOCX解析失败"), res.Error)
	})
}

func TestDocxXMLToText(t *testing.T) {
	xml := `<w:document><w:body>` +
		`<w:p><w:r><w:t>张三</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>技能</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Solidity</w:t><w:tab/><w:t>R&amp;D</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	assert.Equal(t, "张三\n技能\nSolidity\tR&D", docxXMLToText(xml))
}
