package domain

import "strings"

// Command prefixes, matched case-sensitively in this order
const (
	PrefixChannel   = "channel:"
	PrefixWordStats = "wordStats:"
	PrefixTag       = "tag:"
)

// Command is one parsed inbound session message. The concrete types are
// ChannelLookup, WordStats, TagLookup and SearchQuery
type Command interface {
	// Kind is a short stable label used in logs and metrics
	Kind() string
	command()
}

// ChannelLookup asks for a channel profile
type ChannelLookup struct{ ChannelID string }

// WordStats asks for the word frequency table of a term's search results
type WordStats struct{ Term string }

// TagLookup asks for the videos matching a tag
type TagLookup struct{ Term string }

// SearchQuery subscribes the session to a live search
type SearchQuery struct{ Term string }

func (ChannelLookup) Kind() string { return "channel" }
func (WordStats) Kind() string     { return "wordStats" }
func (TagLookup) Kind() string     { return "tag" }
func (SearchQuery) Kind() string   { return "search" }

func (ChannelLookup) command() {}
func (WordStats) command()     {}
func (TagLookup) command()     {}
func (SearchQuery) command()   {}

// ParseCommand maps inbound text to exactly one command. The first matching
// prefix wins and its argument is the trimmed remainder; text without a known
// prefix is a search for the whole message
func ParseCommand(text string) Command {
	if rest, ok := strings.CutPrefix(text, PrefixChannel); ok {
		return ChannelLookup{ChannelID: strings.TrimSpace(rest)}
	}
	if rest, ok := strings.CutPrefix(text, PrefixWordStats); ok {
		return WordStats{Term: strings.TrimSpace(rest)}
	}
	if rest, ok := strings.CutPrefix(text, PrefixTag); ok {
		return TagLookup{Term: strings.TrimSpace(rest)}
	}
	return SearchQuery{Term: text}
}
