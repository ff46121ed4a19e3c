package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类，写入 span 的 error.type 属性
type ErrorType string

const (
	ErrorTypeHTTP       ErrorType = "http"
	ErrorTypeDB         ErrorType = "db"
	ErrorTypeRedis      ErrorType = "redis"
	ErrorTypeRabbitMQ   ErrorType = "rabbitmq"
	ErrorTypeObject     ErrorType = "object_storage"
	ErrorTypeEmbedding  ErrorType = "embedding"
	ErrorTypeLLM        ErrorType = "llm"
	ErrorTypeKnowledge  ErrorType = "knowledge"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// RecordError 记录错误并把 span 状态置为 Error
func RecordError(span trace.Span, err error, errorType ErrorType) {
	RecordErrorWithInfo(span, err, errorType)
}

// RecordErrorWithInfo 记录错误并附加额外属性
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPError 记录外部HTTP调用(LLM/嵌入服务)的错误
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	if span == nil || err == nil {
		return
	}

	var category string
	switch {
	case statusCode >= 400 && statusCode < 500:
		category = "client_error"
	case statusCode >= 500:
		category = "server_error"
	default:
		category = "unknown"
	}

	RecordErrorWithInfo(span, err, ErrorTypeHTTP,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", category),
	)
}

// RecordDegradation 记录一次降级(例如嵌入回退到mock，评估回退到规则)，span 状态不置为错误
func RecordDegradation(span trace.Span, from, to string, cause error) {
	if span == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("degrade.from", from),
		attribute.String("degrade.to", to),
	}
	if cause != nil {
		attrs = append(attrs, attribute.String("degrade.cause", TruncateString(cause.Error(), DefaultMaxLength)))
	}
	span.AddEvent("degraded", trace.WithAttributes(attrs...))
}
