package domain

import (
	perr "tubelytics/internal/platform/errors"

	"tubelytics/internal/core/shape"
)

// UnsupportedMessage is written verbatim for inbound frames that are not text
const UnsupportedMessage = "Error: Unsupported message type"

// Reply is a worker result delivered to the session mailbox. Payload is the
// value written to the client as JSON
type Reply interface {
	Type() string
	Payload() any
}

// SearchBatch is one poller cycle for a query
type SearchBatch struct {
	Query   string        `json:"query"`
	Results []VideoRecord `json:"results"`
}

// Type implements Reply
func (SearchBatch) Type() string { return "search" }

// Payload implements Reply
func (b SearchBatch) Payload() any {
	if b.Results == nil {
		b.Results = []VideoRecord{}
	}
	return b
}

// TagResults is the reply to a TagLookup; it serializes as a bare array
type TagResults struct {
	Term    string
	Results []VideoRecord
}

// Type implements Reply
func (TagResults) Type() string { return "tag" }

// Payload implements Reply
func (r TagResults) Payload() any {
	if r.Results == nil {
		return []VideoRecord{}
	}
	return r.Results
}

// ChannelResult is the reply to a ChannelLookup that found the channel
type ChannelResult struct{ Profile ChannelProfile }

// Type implements Reply
func (ChannelResult) Type() string { return "channel" }

// Payload implements Reply
func (r ChannelResult) Payload() any {
	p := r.Profile
	if p.RecentVideos == nil {
		p.RecentVideos = []VideoRecord{}
	}
	return p
}

// ChannelNotFound is the reply to a ChannelLookup for an unknown channel
type ChannelNotFound struct{ ChannelID string }

// Type implements Reply
func (ChannelNotFound) Type() string { return "notFound" }

// Payload implements Reply
func (r ChannelNotFound) Payload() any {
	return struct {
		Type      string `json:"type"`
		ChannelID string `json:"channelId"`
	}{Type: "notFound", ChannelID: r.ChannelID}
}

// WordStatsResult is the reply to a WordStats command or a record batch
type WordStatsResult struct {
	Term  string
	Table shape.FrequencyTable
}

// Type implements Reply
func (WordStatsResult) Type() string { return "wordStats" }

// Payload implements Reply
func (r WordStatsResult) Payload() any {
	if r.Table == nil {
		return shape.FrequencyTable{}
	}
	return r.Table
}

// Failure is a typed error reply. Source names the worker, Subject the term
// or channel id the request was about
type Failure struct {
	Source  string
	Subject string
	Err     error
}

// Type implements Reply
func (Failure) Type() string { return "failure" }

// Code is the error code of the cause
func (f Failure) Code() perr.ErrorCode { return perr.CodeOf(f.Err) }

// Payload implements Reply
func (f Failure) Payload() any {
	w := perr.WireFrom(f.Err)
	return struct {
		Type    string         `json:"type"`
		Source  string         `json:"source"`
		Subject string         `json:"subject,omitempty"`
		Code    perr.ErrorCode `json:"code"`
		Message string         `json:"message"`
	}{Type: "failure", Source: f.Source, Subject: f.Subject, Code: w.Code, Message: w.Message}
}

// NewUnsupported is the failure a worker replies with when handed a message it does not handle
func NewUnsupported(source string) Failure {
	return Failure{Source: source, Err: perr.Unsupportedf("unsupported message type")}
}
