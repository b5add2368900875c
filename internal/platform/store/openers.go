package store

import (
	"context"
	"time"

	perr "tubelytics/internal/platform/errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// openRedis parses the URL and pings with exponential backoff before publishing the client
func openRedis(ctx context.Context, cfg RedisConfig, s *Store) (redis.UniversalClient, error) {
	cfg = cfg.withDefaults()

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "parse redis url")
	}
	c := redis.NewClient(opt)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.RetryBase
	bo.MaxInterval = 2 * time.Second

	ping := func() (struct{}, error) {
		pctx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
		return struct{}{}, c.Ping(pctx).Err()
	}
	_, err = backoff.Retry(ctx, ping,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(cfg.ConnectRetries)),
		backoff.WithNotify(func(err error, d time.Duration) {
			s.Log.Warn().Err(err).Str("addr", opt.Addr).Dur("retry_in", d).Msg("redis ping failed")
		}),
	)
	if err != nil {
		_ = c.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "redis ping failed after %d attempts", cfg.ConnectRetries)
	}

	s.Log.Info().Str("addr", opt.Addr).Int("db", opt.DB).Msg("redis connected")
	return c, nil
}
