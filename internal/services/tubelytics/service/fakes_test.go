package service

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/services/tubelytics/domain"
)

// fakeProvider serves canned data and counts calls per term
type fakeProvider struct {
	mu       sync.Mutex
	calls    map[string]int
	searchFn func(term string, call int) ([]domain.VideoRecord, error)

	channels   map[string]domain.ChannelProfile
	recent     []domain.VideoRecord
	channelErr error
	recentErr  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls: map[string]int{},
		searchFn: func(term string, _ int) ([]domain.VideoRecord, error) {
			return records(term, 3), nil
		},
		channels: map[string]domain.ChannelProfile{},
	}
}

func (f *fakeProvider) SearchVideos(_ context.Context, term string) ([]domain.VideoRecord, error) {
	f.mu.Lock()
	f.calls[term]++
	n := f.calls[term]
	fn := f.searchFn
	f.mu.Unlock()
	return fn(term, n)
}

func (f *fakeProvider) FetchChannel(_ context.Context, id string) (domain.ChannelProfile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["channel:"+id]++
	if f.channelErr != nil {
		return domain.ChannelProfile{}, false, f.channelErr
	}
	p, ok := f.channels[id]
	return p, ok, nil
}

func (f *fakeProvider) FetchRecentVideosForChannel(_ context.Context, id string, limit int) ([]domain.VideoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeProvider) FetchTags(context.Context, []string) (map[string][]string, error) {
	return map[string][]string{}, nil
}

func (f *fakeProvider) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func records(prefix string, n int) []domain.VideoRecord {
	out := make([]domain.VideoRecord, n)
	for i := range out {
		out[i] = domain.VideoRecord{
			ID:          prefix + "-" + strconv.Itoa(i),
			Title:       "title " + strconv.Itoa(i),
			Description: "description",
		}
	}
	return out
}

// inbox is a domain.Sink collecting replies on a channel
type inbox chan domain.Reply

func newInbox() inbox { return make(inbox, 128) }

func (in inbox) Deliver(r domain.Reply) { in <- r }

func (in inbox) next(t *testing.T) domain.Reply {
	t.Helper()
	select {
	case r := <-in:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("no reply within 2s")
		return nil
	}
}

func (in inbox) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case r := <-in:
		t.Fatalf("unexpected reply %T %+v", r, r)
	case <-time.After(wait):
	}
}

// wire records what the session writes to the client
type wire struct{ frames chan string }

func newWire() *wire { return &wire{frames: make(chan string, 128)} }

func (w *wire) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.frames <- string(b)
	return nil
}

func (w *wire) WriteText(s string) error {
	w.frames <- s
	return nil
}

func (w *wire) next(t *testing.T) string {
	t.Helper()
	select {
	case f := <-w.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame within 2s")
		return ""
	}
}

var errUpstream = perr.Unavailablef("upstream 503")

func testDeps(p domain.Provider) Deps {
	return Deps{Provider: p, Config: Config{PollInterval: time.Hour}}
}
