package domain

import "context"

// Provider is the content provider the workers call. Implementations must be
// safe for concurrent use
type Provider interface {
	// SearchVideos returns up to 50 videos for term, newest first
	SearchVideos(ctx context.Context, term string) ([]VideoRecord, error)
	// FetchChannel returns ok=false when the channel does not exist
	FetchChannel(ctx context.Context, channelID string) (profile ChannelProfile, ok bool, err error)
	// FetchRecentVideosForChannel returns at most limit videos, newest first
	FetchRecentVideosForChannel(ctx context.Context, channelID string, limit int) ([]VideoRecord, error)
	// FetchTags maps video id to its tags for the given ids
	FetchTags(ctx context.Context, videoIDs []string) (map[string][]string, error)
}

// Sink receives worker replies. The session coordinator is the usual sink
type Sink interface {
	Deliver(Reply)
}

// HistoryStore remembers the most recent search batches of each live
// session. Entries exist from Create until Drop
type HistoryStore interface {
	Create(sessionID string)
	Record(sessionID string, batch SearchBatch)
	// Get returns newest first; ok is false for unknown sessions
	Get(sessionID string) (batches []SearchBatch, ok bool)
	Drop(sessionID string)
}
