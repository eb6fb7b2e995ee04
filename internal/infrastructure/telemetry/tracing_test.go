package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestStartServiceSpan_NamesAndAttributes(t *testing.T) {
	recorder := setupRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "sentinel", "run",
		WithAttribute(SpanAttrAgentName, "sentinel"))
	assert.Equal(t, span, SpanFromContext(ctx))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "sentinel.run", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(),
		attribute.String(SpanAttrAgentName, "sentinel"))
}

func TestSetAttributes_SkipsNonStringKeys(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "attrs")
	SetAttributes(span,
		SpanAttrCompanyID, "abc",
		42, "dropped",
		"entities", 7,
	)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := ended[0].Attributes()
	assert.Contains(t, attrs, attribute.String(SpanAttrCompanyID, "abc"))
	assert.Contains(t, attrs, attribute.Int("entities", 7))
	assert.Len(t, attrs, 2)
}

func TestRecordError_SetsErrorStatus(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "failing")
	RecordError(span, errors.New("document unreadable"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "document unreadable", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestRecordError_NilErrorIsNoop(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "clean")
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Empty(t, ended[0].Events())
}

func TestGetTraceID(t *testing.T) {
	setupRecorder(t)

	assert.Empty(t, GetTraceID(context.Background()))

	ctx, span := StartSpan(context.Background(), "traced")
	defer span.End()
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
}

func TestToAttribute_StringerAndFallback(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, attribute.String("id", id.String()), toAttribute("id", id))
	assert.Equal(t, attribute.Bool("flag", true), toAttribute("flag", true))
	assert.Equal(t, attribute.String("other", "[1 2]"), toAttribute("other", []int{1, 2}))
}
