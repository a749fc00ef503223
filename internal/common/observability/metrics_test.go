package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsUsable(t *testing.T) {
	var o Observability

	ctx, span := o.StartSpan(context.Background(), "apply.test")
	o.RecordOperation(ctx, "apply", "ok", time.Millisecond)
	EndSpan(span, stderrors.New("boom"))

	assert.Empty(t, TraceID(ctx))
	o.Shutdown()
}

func TestNew_SpansCarryTraceID(t *testing.T) {
	o := New("devhive-workers-test")
	defer o.Shutdown()

	ctx, span := o.StartSpan(context.Background(), "apply.apply")
	defer EndSpan(span, nil)

	assert.Len(t, TraceID(ctx), 32)
	o.RecordOperation(ctx, "apply", "ok", 3*time.Millisecond)
}
