package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoparser "github.com/cloudwego/eino/components/document/parser"
)

var errNoDocuments = errors.New("PDF中没有可读取的内容")

// newPDFParser 不按页拆分，整份PDF输出为一个文档
func newPDFParser(ctx context.Context) (*pdf.PDFParser, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("创建PDF解析器失败: %w", err)
	}
	return p, nil
}

// extractPDF 多个文档时以空行拼接
func extractPDF(ctx context.Context, p einoparser.Parser, uri string, data []byte) (string, error) {
	docs, err := p.Parse(ctx, bytes.NewReader(data),
		einoparser.WithURI(uri),
		einoparser.WithExtraMeta(map[string]any{"source_file": uri}),
	)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", errNoDocuments
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		parts = append(parts, strings.TrimSpace(doc.Content))
	}
	return strings.Join(parts, "\n\n"), nil
}
