package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookChain_ThreadsContextAndData(t *testing.T) {
	var after []string
	upper := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, append(data, '!'), nil
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { after = append(after, "first") },
	}
	second := HookFuncs{
		After: func(context.Context, string, kafka.Message, []byte, error) { after = append(after, "second") },
	}
	chain := NewHookChain(TraceHook(), upper, nil, second)

	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, data, err := chain.BeforeHandle(context.Background(), "snapshots", km, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x!"), data)
	assert.Equal(t, "abc", ctx.Value(CtxTraceID))
	assert.NotNil(t, ctx.Value(CtxStartTime))

	chain.AfterHandle(ctx, "snapshots", km, data, nil)
	assert.Equal(t, []string{"second", "first"}, after)
}

func TestHookChain_BeforeErrorNotifiesAll(t *testing.T) {
	var notified int
	counter := HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { notified++ }}
	chain := NewHookChain(counter, RejectEmptyHook(), counter)

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	require.Error(t, err)
	var he *HookError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "ERR_VALIDATION", he.Code)
	assert.Equal(t, 2, notified)
}

func TestHookChain_RecoversPanics(t *testing.T) {
	boom := HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { panic("boom") },
	}
	chain := NewHookChain(boom)

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	var he *HookError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "ERR_PANIC", he.Code)
	assert.NotPanics(t, func() { chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil) })
}

func TestLoggingHook_NilLoggerSafe(t *testing.T) {
	h := LoggingHook(nil)
	assert.NotPanics(t, func() {
		h.OnError(context.Background(), "t", kafka.Message{Key: []byte("m1")}, nil, errors.New("x"))
	})
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(0, 0, attempt)
		assert.Greater(t, int64(d), int64(0))
		assert.LessOrEqual(t, int64(d), int64(50e6))
	}
}
