package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/torua/internal/membership"
)

func TestFakePushOK(t *testing.T) {
	f := NewFake()
	id := membership.NewServerId(1, 0)
	result, err := f.Push(context.Background(), id, membership.WireMessage{VersionNumber: 1})
	require.NoError(t, err)
	require.Equal(t, membership.PushOK, result)
	require.Len(t, f.Calls(), 1)
}

func TestFakePushNotUp(t *testing.T) {
	f := NewFake()
	id := membership.NewServerId(1, 0)
	f.SetNotUp(id, true)

	result, err := f.Push(context.Background(), id, membership.WireMessage{})
	require.NoError(t, err)
	require.Equal(t, membership.PushNotUp, result)
}

func TestFakePushHangRespectsCancellation(t *testing.T) {
	f := NewFake()
	id := membership.NewServerId(1, 0)
	f.SetHang(id, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Push(ctx, id, membership.WireMessage{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFakePushLatency(t *testing.T) {
	f := NewFake()
	id := membership.NewServerId(1, 0)
	f.SetLatency(id, 20*time.Millisecond)

	start := time.Now()
	_, err := f.Push(context.Background(), id, membership.WireMessage{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
