// Package service runs the per-session workers: the coordinator, the search
// poller and the tag, channel and word statistics workers
package service

import (
	"time"

	"tubelytics/internal/platform/metrics"
	"tubelytics/internal/services/tubelytics/domain"
)

// Worker component names, used as log components and failure sources
const (
	SessionName   = "session"
	PollerName    = "search-poller"
	TagName       = "tag-worker"
	ChannelName   = "channel-worker"
	WordStatsName = "wordstats-worker"
)

// Config tunes the session workers. Zero values take the defaults below
type Config struct {
	PollInterval   time.Duration
	ResultLimit    int
	RecentVideos   int
	StreamCapacity int
	MailboxSize    int

	// FoldWords normalizes descriptions (NFKC, width folding) before counting
	FoldWords bool
}

// Defaults
const (
	DefaultPollInterval   = 40 * time.Second
	DefaultResultLimit    = 10
	DefaultRecentVideos   = 10
	DefaultStreamCapacity = 10
	DefaultMailboxSize    = 64
)

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ResultLimit <= 0 {
		c.ResultLimit = DefaultResultLimit
	}
	if c.RecentVideos <= 0 {
		c.RecentVideos = DefaultRecentVideos
	}
	if c.StreamCapacity <= 0 {
		c.StreamCapacity = DefaultStreamCapacity
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = DefaultMailboxSize
	}
	return c
}

// Deps are shared by every session of the process
type Deps struct {
	Provider domain.Provider
	History  domain.HistoryStore
	Metrics  *metrics.Metrics
	Config   Config
}
