package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perr "tubelytics/internal/platform/errors"

	"github.com/stretchr/testify/require"
)

const searchBody = `{"items":[
 {"id":{"videoId":"v1"},"snippet":{"publishedAt":"2024-05-01T10:00:00Z","channelId":"UC1","title":"Cats","description":"I love cats","thumbnails":{"default":{"url":"https://i.ytimg.com/v1.jpg"}},"channelTitle":"Cat TV"}},
 {"id":{"videoId":"v2"},"snippet":{"channelId":"UC2","title":"More cats","description":"cats are cute","thumbnails":{"default":{"url":"https://i.ytimg.com/v2.jpg"}},"channelTitle":"Kitten"}},
 {"id":{},"snippet":{"title":"a playlist, no video id"}}
]}`

func newTestClient(t *testing.T, h http.HandlerFunc, enrich bool) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:    srv.URL + "/",
		APIKey:     "k",
		RPS:        1000,
		Burst:      100,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		EnrichTags: enrich,
	})
}

func TestSearchVideosQueryAndMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "snippet", q.Get("part"))
		require.Equal(t, "cats", q.Get("q"))
		require.Equal(t, "video", q.Get("type"))
		require.Equal(t, "date", q.Get("order"))
		require.Equal(t, "50", q.Get("maxResults"))
		require.Equal(t, "k", q.Get("key"))
		_, _ = w.Write([]byte(searchBody))
	}, false)

	got, err := c.SearchVideos(context.Background(), "cats")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "v1", got[0].ID)
	require.Equal(t, "I love cats", got[0].Description)
	require.Equal(t, "https://i.ytimg.com/v1.jpg", got[0].ThumbnailURL)
	require.Equal(t, "Cat TV", got[0].ChannelTitle)
	require.NotNil(t, got[0].PublishedAt)
	require.Equal(t, "https://www.youtube.com/watch?v=v1", got[0].WatchURL())
	require.Nil(t, got[1].PublishedAt)
	require.Nil(t, got[0].Tags)
}

func TestSearchVideosEmptyTermSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }, true)

	got, err := c.SearchVideos(context.Background(), "   ")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Zero(t, hits.Load())
}

func TestSearchVideosEnrichesTags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			_, _ = w.Write([]byte(searchBody))
		case "/videos":
			require.Equal(t, "v1,v2", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(`{"items":[{"id":"v1","snippet":{"tags":["cats","pets"]}},{"id":"v2","snippet":{}}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, true)

	got, err := c.SearchVideos(context.Background(), "cats")
	require.NoError(t, err)
	require.Equal(t, []string{"cats", "pets"}, got[0].Tags)
	require.Nil(t, got[1].Tags)
}

func TestEnrichFailureKeepsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/videos" {
			http.Error(w, `{"error":{"code":400,"message":"bad id"}}`, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}, true)

	got, err := c.SearchVideos(context.Background(), "cats")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Nil(t, got[0].Tags)
}

func TestFetchChannel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/channels", r.URL.Path)
		require.Equal(t, "snippet,statistics", r.URL.Query().Get("part"))
		switch r.URL.Query().Get("id") {
		case "UC1":
			_, _ = w.Write([]byte(`{"items":[{"id":"UC1","snippet":{"title":"Cat TV","description":"all cats","thumbnails":{"default":{"url":"https://yt3/c.jpg"}}},"statistics":{"subscriberCount":"12345"}}]}`))
		default:
			_, _ = w.Write([]byte(`{"items":[]}`))
		}
	}, false)

	p, ok, err := c.FetchChannel(context.Background(), "UC1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Cat TV", p.Title)
	require.EqualValues(t, 12345, p.SubscriberCount)
	require.Equal(t, "https://yt3/c.jpg", p.ThumbnailURL)
	require.Equal(t, "-", p.Country)
	require.NotNil(t, p.RecentVideos)

	_, ok, err = c.FetchChannel(context.Background(), "UCnope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFetchRecentVideosForChannel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "UC1", q.Get("channelId"))
		require.Equal(t, "10", q.Get("maxResults"))
		require.Equal(t, "date", q.Get("order"))
		_, _ = w.Write([]byte(searchBody))
	}, false)

	got, err := c.FetchRecentVideosForChannel(context.Background(), "UC1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestFetchTagsChunks(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"items":[{"id":"v0","snippet":{"tags":["x"]}}]}`))
	}, false)

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = "v" + string(rune('a'+i%26))
	}
	ids[0] = "v0"
	tags, err := c.FetchTags(context.Background(), ids)
	require.NoError(t, err)
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, []string{"x"}, tags["v0"])
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}, false)

	got, err := c.SearchVideos(context.Background(), "cats")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.EqualValues(t, 3, calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, false)

	_, err := c.SearchVideos(context.Background(), "cats")
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeTooManyRequests), "code=%v", perr.CodeOf(err))
	require.EqualValues(t, 4, calls.Load())

	e, ok := perr.As(err)
	require.True(t, ok)
	require.Equal(t, "youtube.search", e.Op())
}

func TestStatusMappingWithoutRetry(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   perr.ErrorCode
	}{
		{"quota", http.StatusForbidden, `{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded"}]}}`, perr.ErrorCodeTooManyRequests},
		{"not found", http.StatusNotFound, `{}`, perr.ErrorCodeNotFound},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"invalid channel"}}`, perr.ErrorCodeInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, false)

			_, _, err := c.FetchChannel(context.Background(), "UC1")
			require.Error(t, err)
			require.Equal(t, tc.code, perr.CodeOf(err))
			require.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestMalformedBodyIsJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[`))
	}, false)

	_, err := c.SearchVideos(context.Background(), "cats")
	require.True(t, perr.IsCode(err, perr.ErrorCodeJSON), "code=%v", perr.CodeOf(err))
}

func TestCanceledContextStopsRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SearchVideos(ctx, "cats")
	require.Error(t, err)
}
