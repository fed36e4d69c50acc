package grpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/encoding"
)

func TestPool_GetConnection(t *testing.T) {
	p := NewPool(WithInterceptor(LoggingClientInterceptor(zap.NewNop().Sugar())))

	a, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	b, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.GetConnection("localhost:50052")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, p.Len())

	require.NoError(t, p.Close())
	assert.Zero(t, p.Len())

	// 關閉後重新取得會建立新連線
	d, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotSame(t, a, d)
	require.NoError(t, p.Close())
}

func TestPool_Options(t *testing.T) {
	p := NewPool(WithKeepalive(30*time.Second, 0))
	assert.Equal(t, 30*time.Second, p.keepalive.Time)
	assert.Equal(t, DefaultKeepaliveTimeout, p.keepalive.Timeout)
	assert.True(t, p.keepalive.PermitWithoutStream)
}

func TestJSONCodec(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)

	type msg struct {
		Amount string `json:"amount"`
	}
	data, err := codec.Marshal(&msg{Amount: "10.00"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"10.00"}`, string(data))

	var out msg
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, "10.00", out.Amount)
}
