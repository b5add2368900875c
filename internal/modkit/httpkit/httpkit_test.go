package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "tubelytics/internal/platform/errors"
	phttp "tubelytics/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func serve(t *testing.T, mount func(Router), method, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := chi.NewRouter()
	mount(phttp.AdaptChi(mux))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestMountAPIV1AndGet(t *testing.T) {
	hit := ""
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = r.URL.Path
			next.ServeHTTP(w, r)
		})
	}
	rec := serve(t, func(r Router) {
		MountAPIV1(r, []func(http.Handler) http.Handler{mw}, func(api Router) {
			MountUnder(api, "/sessions", nil, func(s Router) {
				Get(s, "/{id}/history", func(r *http.Request) (any, error) {
					return map[string]string{"id": URLParam(r, "id")}, nil
				})
			})
		})
	}, http.MethodGet, "/api/v1/sessions/abc/history")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if hit != "/api/v1/sessions/abc/history" {
		t.Fatalf("scope middleware not applied, hit=%q", hit)
	}
	var env struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data["id"] != "abc" {
		t.Fatalf("data = %+v", env.Data)
	}
}

func TestCallMapsErrors(t *testing.T) {
	rec := serve(t, func(r Router) {
		Get(r, "/x", func(*http.Request) (any, error) { return nil, perr.NotFoundf("nope") })
	}, http.MethodGet, "/x")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleAndNoContent(t *testing.T) {
	rec := serve(t, func(r Router) {
		r.Delete("/x", Handle(func(*http.Request) Response { return NoContent() }))
	}, http.MethodDelete, "/x")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(CommonStack()) == 0 {
		t.Fatalf("CommonStack is empty")
	}
}
