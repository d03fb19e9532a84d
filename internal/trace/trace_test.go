package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func TestStartSpanDisabledIsSafe(t *testing.T) {
	enabled = false

	ctx, span := StartSpan(context.Background(), "noop")
	span.End()

	assert.NotNil(t, ctx)
	assert.False(t, oteltrace.SpanContextFromContext(ctx).IsValid())
}

func TestInitWithWriterExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(&buf))
	t.Cleanup(func() {
		enabled = false
		tracer = nil
		tracerProvider = nil
	})
	assert.True(t, Enabled())

	ctx, span := StartSpan(context.Background(), "revision.RunOnce")
	sc := oteltrace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.Len(t, sc.TraceID().String(), 32)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "revision.RunOnce")
	assert.Contains(t, buf.String(), "estimate-revision-model")
}
