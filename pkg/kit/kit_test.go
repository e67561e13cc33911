package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(name string, trace *[]string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			*trace = append(*trace, name)
			return next(ctx, req)
		}
	}
}

func TestChain_Order(t *testing.T) {
	var trace []string
	ep := Chain(tag("a", &trace), tag("b", &trace), tag("c", &trace))(func(context.Context, any) (any, error) {
		trace = append(trace, "endpoint")
		return "ok", nil
	})

	resp, err := ep(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, []string{"a", "b", "c", "endpoint"}, trace)
}

func TestChain_SingleAndNop(t *testing.T) {
	var trace []string
	ep := Chain(Nop)(func(context.Context, any) (any, error) {
		trace = append(trace, "endpoint")
		return nil, nil
	})
	_, _ = ep(context.Background(), nil)
	assert.Equal(t, []string{"endpoint"}, trace)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := Logging(logger, "resolve")(func(context.Context, any) (any, error) { return 1, nil })
	ctx := WithRequestID(WithTransport(context.Background(), TransportMCP), "req-7")
	_, err := ok(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "endpoint served")
	assert.Contains(t, buf.String(), "transport=mcp")
	assert.Contains(t, buf.String(), "request_id=req-7")

	buf.Reset()
	boom := errors.New("boom")
	failing := Logging(logger, "resolve")(func(context.Context, any) (any, error) { return nil, boom })
	_, err = failing(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "transport=http")
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, TransportHTTP, GetTransport(ctx))
	assert.Empty(t, GetRequestID(ctx))
}
