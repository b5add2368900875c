// Package domain holds the value types, commands, replies and ports of a
// tubelytics session
package domain

import (
	"encoding/json"
	"time"
)

// WatchURLBase prefixes a video id to form its public watch URL
const WatchURLBase = "https://www.youtube.com/watch?v="

// UnknownCountry is the sentinel for channels without a declared country
const UnknownCountry = "-"

// VideoRecord is one video as returned by the content provider. Values are
// never mutated after construction; WithTags returns a copy
type VideoRecord struct {
	ID           string     `json:"videoId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	ChannelID    string     `json:"channelId"`
	ChannelTitle string     `json:"channelTitle"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
}

// WatchURL is derived from the id
func (v VideoRecord) WatchURL() string { return WatchURLBase + v.ID }

// WithTags returns a copy of v carrying its own copy of tags
func (v VideoRecord) WithTags(tags []string) VideoRecord {
	if tags != nil {
		v.Tags = append([]string(nil), tags...)
	}
	return v
}

// MarshalJSON adds the derived watchUrl
func (v VideoRecord) MarshalJSON() ([]byte, error) {
	type plain VideoRecord
	return json.Marshal(struct {
		plain
		WatchURL string `json:"watchUrl"`
	}{plain: plain(v), WatchURL: v.WatchURL()})
}

// RecordID is the dedupe key of a record
func RecordID(v VideoRecord) string { return v.ID }

// Descriptions returns the description of every record in order
func Descriptions(list []VideoRecord) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.Description
	}
	return out
}

// IDs returns the id of every record in order
func IDs(list []VideoRecord) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.ID
	}
	return out
}

// ChannelProfile is a channel with its most recent uploads
type ChannelProfile struct {
	ChannelID       string        `json:"channelId"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	SubscriberCount int64         `json:"subscriberCount"`
	ThumbnailURL    string        `json:"thumbnailUrl"`
	Country         string        `json:"country"`
	RecentVideos    []VideoRecord `json:"recentVideos"`
}
