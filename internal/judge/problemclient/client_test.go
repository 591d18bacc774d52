package problemclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/problemclient"
	appErr "codejudge/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestClientFetchesHiddenCases(t *testing.T) {
	var gotPath, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"p1","title":"Sum","hiddenTestCases":[{"input":"1 2","output":"3"},{"input":"2 2","output":"4"}],"testCases":[{"input":"x","output":"y"}]}`))
	}))
	defer srv.Close()

	client, err := problemclient.NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cases, err := client.GetTestCases(t.Context(), "p1", "token=abc")
	if err != nil {
		t.Fatalf("get test cases: %v", err)
	}
	if gotPath != "/api/problems/p1" || gotCookie != "token=abc" {
		t.Fatalf("unexpected request path=%q cookie=%q", gotPath, gotCookie)
	}
	if len(cases) != 2 || cases[0].Input != "1 2" || cases[1].Output != "4" {
		t.Fatalf("unexpected cases %+v", cases)
	}
}

func TestClientMissingHiddenCasesIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_id":"p1"}`))
	}))
	defer srv.Close()

	client, err := problemclient.NewClient(srv.URL, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cases, err := client.GetTestCases(t.Context(), "p1", "")
	if err != nil {
		t.Fatalf("get test cases: %v", err)
	}
	if cases == nil || len(cases) != 0 {
		t.Fatalf("expected empty non-nil cases, got %#v", cases)
	}
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/problems/missing":
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{not json`))
		}
	}))
	defer srv.Close()

	client, err := problemclient.NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cases := []struct {
		name      string
		problemID string
		code      appErr.ErrorCode
	}{
		{name: "not found", problemID: "missing", code: appErr.ProblemNotFound},
		{name: "bad document", problemID: "broken", code: appErr.TestCaseInvalid},
		{name: "empty id", problemID: " ", code: appErr.ValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.GetTestCases(t.Context(), tc.problemID, "")
			if appErr.GetCode(err) != tc.code {
				t.Fatalf("expected %v, got %v (%d)", tc.code, err, appErr.GetCode(err))
			}
		})
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := problemclient.NewClient(url, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GetTestCases(t.Context(), "p1", "")
	if appErr.GetCode(err) != appErr.ServiceUnavailable {
		t.Fatalf("expected ServiceUnavailable, got %v", err)
	}
}

type countingSource struct {
	calls atomic.Int32
	cases []model.TestCase
	err   error
}

func (s *countingSource) GetTestCases(context.Context, string, string) ([]model.TestCase, error) {
	s.calls.Add(1)
	return s.cases, s.err
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}
	return c, mr
}

func TestCachedClientServesSecondCallFromCache(t *testing.T) {
	c, mr := newRedisCache(t)
	source := &countingSource{cases: []model.TestCase{{Input: "1", Output: "1"}}}
	client, err := problemclient.NewCachedClient(source, c, time.Minute)
	if err != nil {
		t.Fatalf("new cached client: %v", err)
	}

	for i := 0; i < 2; i++ {
		cases, err := client.GetTestCases(t.Context(), "p1", "token=abc")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(cases) != 1 || cases[0].Input != "1" {
			t.Fatalf("call %d: unexpected cases %+v", i, cases)
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
	if !mr.Exists("judge:problem:p1:cases") {
		t.Fatalf("expected cache key to be written")
	}
}

func TestCachedClientDoesNotCacheErrors(t *testing.T) {
	c, mr := newRedisCache(t)
	source := &countingSource{err: errors.New("upstream down")}
	client, err := problemclient.NewCachedClient(source, c, time.Minute)
	if err != nil {
		t.Fatalf("new cached client: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := client.GetTestCases(t.Context(), "p1", ""); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}
	if mr.Exists("judge:problem:p1:cases") {
		t.Fatalf("errors must not be cached")
	}
}

func TestCachedClientFallsBackWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = redisClient.Close() }()
	mr.Close()
	c, err := cache.NewRedisCacheWithClient(redisClient)
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}
	source := &countingSource{cases: []model.TestCase{{Input: "a", Output: "b"}}}
	client, err := problemclient.NewCachedClient(source, c, time.Minute)
	if err != nil {
		t.Fatalf("new cached client: %v", err)
	}
	cases, err := client.GetTestCases(t.Context(), "p1", "")
	if err != nil {
		t.Fatalf("expected fallback to upstream, got %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("unexpected cases %+v", cases)
	}
}
