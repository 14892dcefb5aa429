package remote

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/postremote/internal/model"
)

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func assertErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("エラーはAPIErrorであるべき: %v", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("エラーコード = %s, want %s", apiErr.Code, wantCode)
	}
}

func TestClient_FetchPosts_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("HTTPメソッド = %s, want GET", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %s, want %s", got, userAgent)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"title":{"rendered":"Hello"}},{"id":2}]`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), 1<<20)

	posts, body, err := c.FetchPosts(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPosts がエラーを返した: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("投稿数 = %d, want 2", len(posts))
	}
	if len(body) == 0 {
		t.Error("生のレスポンスボディが返るべき")
	}
}

func TestClient_FetchPosts_RemoteStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), 1<<20)

	_, _, err := c.FetchPosts(context.Background(), server.URL)
	if err == nil {
		t.Fatal("非2xxステータスではエラーを返すべき")
	}
	assertErrorCode(t, err, model.ErrCodeRemoteStatus)
}

func TestClient_FetchPosts_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>this is not json</html>`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), 1<<20)

	_, _, err := c.FetchPosts(context.Background(), server.URL)
	if err == nil {
		t.Fatal("JSONでないボディではエラーを返すべき")
	}
	assertErrorCode(t, err, model.ErrCodeInvalidResponse)
}

func TestClient_FetchPosts_NetworkFailure(t *testing.T) {
	// 即座に閉じたサーバーで接続エラーを発生させる
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(&http.Client{Timeout: time.Second}, newTestLogger(), 1<<20)

	_, _, err := c.FetchPosts(context.Background(), url)
	if err == nil {
		t.Fatal("接続エラーではエラーを返すべき")
	}
	assertErrorCode(t, err, model.ErrCodeFetchFailed)
}

func TestClient_FetchPosts_ContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	c := NewClient(server.Client(), newTestLogger(), 1<<20)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := c.FetchPosts(ctx, server.URL)
	if err == nil {
		t.Fatal("コンテキストのタイムアウトではエラーを返すべき")
	}
	assertErrorCode(t, err, model.ErrCodeFetchFailed)
}
