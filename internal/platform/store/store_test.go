package store

import (
	"context"
	"testing"
	"time"

	perr "tubelytics/internal/platform/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestOpenDisabledIsNoop(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	require.Nil(t, s.RDS)
	require.False(t, s.Enabled())
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close(context.Background()))
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := Open(context.Background(), Config{RDS: RedisConfig{Enabled: true, URL: "redis://" + mr.Addr() + "/0"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	require.True(t, s.Enabled())
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.RDS.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestPingReportsOutage(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := Open(context.Background(), Config{RDS: RedisConfig{Enabled: true, URL: "redis://" + mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	mr.Close()
	err = s.Ping(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis:")
}

func TestOpenBadURL(t *testing.T) {
	_, err := Open(context.Background(), Config{RDS: RedisConfig{Enabled: true, URL: "http://nope"}})
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}

func TestOpenGivesUpAfterRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	_, err := Open(context.Background(), Config{RDS: RedisConfig{
		Enabled:        true,
		URL:            "redis://" + addr,
		ConnectRetries: 2,
		PingTimeout:    200 * time.Millisecond,
		RetryBase:      10 * time.Millisecond,
	}})
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeUnavailable))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestOpenHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, Config{RDS: RedisConfig{Enabled: true, URL: "redis://127.0.0.1:1"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNilStore(t *testing.T) {
	var s *Store
	require.Error(t, s.Ping(context.Background()))
	require.False(t, s.Enabled())
	require.NoError(t, s.Close(context.Background()))
}
