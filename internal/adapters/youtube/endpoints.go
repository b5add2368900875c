package youtube

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"tubelytics/internal/services/tubelytics/domain"
)

const (
	searchMaxResults = 50
	videosPerCall    = 50
)

var _ domain.Provider = (*Client)(nil)

// SearchVideos runs a date ordered video search for term. An empty term
// yields an empty slice without a network call
func (c *Client) SearchVideos(ctx context.Context, term string) ([]domain.VideoRecord, error) {
	if strings.TrimSpace(term) == "" {
		return []domain.VideoRecord{}, nil
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", term)
	q.Set("type", "video")
	q.Set("order", "date")
	q.Set("maxResults", strconv.Itoa(searchMaxResults))

	var resp searchResponse
	if err := c.get(ctx, "search", "/search", q, &resp); err != nil {
		return nil, err
	}
	return c.enrich(ctx, toRecords(resp.Items)), nil
}

// FetchChannel returns the channel profile. ok is false when the API knows no
// such channel. RecentVideos is left empty; see FetchRecentVideosForChannel
func (c *Client) FetchChannel(ctx context.Context, channelID string) (domain.ChannelProfile, bool, error) {
	q := url.Values{}
	q.Set("part", "snippet,statistics")
	q.Set("id", channelID)

	var resp channelResponse
	if err := c.get(ctx, "channel", "/channels", q, &resp); err != nil {
		return domain.ChannelProfile{}, false, err
	}
	if len(resp.Items) == 0 {
		return domain.ChannelProfile{}, false, nil
	}
	it := resp.Items[0]
	country := it.Snippet.Country
	if country == "" {
		country = domain.UnknownCountry
	}
	id := it.ID
	if id == "" {
		id = channelID
	}
	return domain.ChannelProfile{
		ChannelID:       id,
		Title:           it.Snippet.Title,
		Description:     it.Snippet.Description,
		SubscriberCount: it.Statistics.SubscriberCount,
		ThumbnailURL:    it.Snippet.Thumbnails.Default.URL,
		Country:         country,
		RecentVideos:    []domain.VideoRecord{},
	}, true, nil
}

// FetchRecentVideosForChannel lists the newest uploads of a channel
func (c *Client) FetchRecentVideosForChannel(ctx context.Context, channelID string, limit int) ([]domain.VideoRecord, error) {
	if limit <= 0 {
		return []domain.VideoRecord{}, nil
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("channelId", channelID)
	q.Set("type", "video")
	q.Set("order", "date")
	q.Set("maxResults", strconv.Itoa(min(limit, searchMaxResults)))

	var resp searchResponse
	if err := c.get(ctx, "recent", "/search", q, &resp); err != nil {
		return nil, err
	}
	return c.enrich(ctx, toRecords(resp.Items)), nil
}

// FetchTags resolves tags for the given video ids in chunks of 50. Videos
// without tags are absent from the map
func (c *Client) FetchTags(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	for start := 0; start < len(ids); start += videosPerCall {
		end := min(start+videosPerCall, len(ids))
		q := url.Values{}
		q.Set("part", "snippet")
		q.Set("id", strings.Join(ids[start:end], ","))

		var resp videosResponse
		if err := c.get(ctx, "tags", "/videos", q, &resp); err != nil {
			return nil, err
		}
		for _, v := range resp.Items {
			if len(v.Snippet.Tags) > 0 {
				out[v.ID] = v.Snippet.Tags
			}
		}
	}
	return out, nil
}

// enrich attaches tags when enabled. A failed lookup leaves records untagged
func (c *Client) enrich(ctx context.Context, recs []domain.VideoRecord) []domain.VideoRecord {
	if !c.opts.EnrichTags || len(recs) == 0 {
		return recs
	}
	tags, err := c.FetchTags(ctx, domain.IDs(recs))
	if err != nil {
		c.log.Warn().Err(err).Int("videos", len(recs)).Msg("tag enrichment failed; returning untagged results")
		return recs
	}
	for i := range recs {
		if t, ok := tags[recs[i].ID]; ok {
			recs[i] = recs[i].WithTags(t)
		}
	}
	return recs
}

func toRecords(items []searchItem) []domain.VideoRecord {
	out := make([]domain.VideoRecord, 0, len(items))
	for _, it := range items {
		if it.ID.VideoID == "" {
			continue
		}
		out = append(out, domain.VideoRecord{
			ID:           it.ID.VideoID,
			Title:        it.Snippet.Title,
			Description:  it.Snippet.Description,
			ThumbnailURL: it.Snippet.Thumbnails.Default.URL,
			ChannelID:    it.Snippet.ChannelID,
			ChannelTitle: it.Snippet.ChannelTitle,
			PublishedAt:  it.Snippet.PublishedAt,
		})
	}
	return out
}
