package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"web3-resume-rag/internal/config"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp
}

func TestRecordErrorSetsStatus(t *testing.T) {
	sr, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("boom"), ErrorTypeEmbedding)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "embedding", attrs["error.type"])
	assert.Equal(t, "boom", attrs["error.message"])
}

func TestRecordErrorNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("x"), ErrorTypeInternal)
		RecordHTTPError(nil, nil, 500)
		RecordDegradation(nil, "remote", "mock", nil)
	})
}

func TestRecordDegradationKeepsStatusUnset(t *testing.T) {
	sr, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordDegradation(span, "llm", "fallback", errors.New("timeout"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code, "降级不是错误")
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "degraded", spans[0].Events()[0].Name)
}

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("张"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

func TestSafeAttributeValue(t *testing.T) {
	assert.Equal(t, "ab***yz", SafeAttributeValue("candidate.email", "abcdxyz", 100))
	assert.Equal(t, "abc", SafeAttributeValue("job.title", "abc", 100))
	assert.Len(t, []rune(SafeAttributeValue("prompt", string(make([]rune, 500)), 50)), 49)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
