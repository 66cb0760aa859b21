package membuffer

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/bufferio-go/pkg/metrics"
)

func TestIndex(t *testing.T) {
	assert.Equal(t, 0, index(0))
	assert.Equal(t, 0, index(1))
	assert.Equal(t, 0, index(64))
	assert.Equal(t, 1, index(65))
	assert.Equal(t, 1, index(128))
	assert.Equal(t, 2, index(129))
	assert.Equal(t, steps-1, index(1<<30))
}

func TestGetPutReset(t *testing.T) {
	var p Pool
	b := p.Get()
	require.NotNil(t, b)
	_, err := b.Write([]byte("payload"))
	require.NoError(t, err)
	p.Put(b)

	b = p.Get()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(0), b.Position())

	// nil is ignored
	p.Put(nil)
}

func TestCalibrate(t *testing.T) {
	before := testutil.ToFloat64(metrics.PoolCalibrations)

	var p Pool
	for i := 0; i < calibrateCallsThreshold+1; i++ {
		b := p.Get()
		_, _ = b.Write(make([]byte, 100))
		p.Put(b)
	}

	assert.Equal(t, 128, p.DefaultSize())
	assert.Equal(t, 128, p.MaxSize())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PoolCalibrations))

	// 超过 maxSize 的缓冲区不会被回收
	big := p.Get()
	_, _ = big.Write(make([]byte, 4096))
	p.Put(big)
	got := p.Get()
	assert.NotSame(t, big, got)
}

func TestBuiltinPool(t *testing.T) {
	b := Get()
	_, _ = b.Write([]byte{1, 2, 3})
	Put(b)
	assert.Equal(t, 0, Get().Len())
}
