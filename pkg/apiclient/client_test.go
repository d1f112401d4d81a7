package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shouni/go-manga-studio/pkg/apperr"
)

type echoRequest struct {
	Message string `json:"message"`
}

type echoResponse struct {
	Echo string `json:"echo"`
}

func TestClient_PostJSON(t *testing.T) {
	t.Run("JSONリクエストが往復できるのだ", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("メソッドが違うのだ: %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type が違うのだ: %s", ct)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("認証ヘッダが渡っていないのだ: %s", auth)
			}
			w.Write([]byte(`{"echo":"pong"}`))
		}))
		defer srv.Close()

		var out echoResponse
		err := New().PostJSON(context.Background(), srv.URL, "/v1/echo",
			echoRequest{Message: "ping"},
			map[string]string{"Authorization": "Bearer test-key"}, &out)
		if err != nil {
			t.Fatalf("PostJSON失敗なのだ: %v", err)
		}
		if out.Echo != "pong" {
			t.Errorf("レスポンスが違うのだ: %+v", out)
		}
	})

	t.Run("完全URLのendpointはbaseURLを無視するのだ", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"echo":"full"}`))
		}))
		defer srv.Close()

		var out echoResponse
		err := New().PostJSON(context.Background(), "https://unused.example.com", srv.URL+"/direct",
			echoRequest{}, nil, &out)
		if err != nil {
			t.Fatalf("PostJSON失敗なのだ: %v", err)
		}
		if out.Echo != "full" {
			t.Errorf("レスポンスが違うのだ: %+v", out)
		}
	})

	t.Run("endpointのクエリ文字列が保持されるのだ", func(t *testing.T) {
		var gotKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.URL.Query().Get("key")
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		err := New().PostJSON(context.Background(), srv.URL,
			"/v1beta/models/gemini-pro:generateContent?key=secret", echoRequest{}, nil, nil)
		if err != nil {
			t.Fatalf("PostJSON失敗なのだ: %v", err)
		}
		if gotKey != "secret" {
			t.Errorf("クエリパラメータが失われたのだ: %q", gotKey)
		}
	})
}

func TestClient_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		header map[string]string
		code   apperr.Code
	}{
		{"401は認証エラーなのだ", http.StatusUnauthorized, nil, apperr.CodeUnauthorized},
		{"403も認証エラーなのだ", http.StatusForbidden, nil, apperr.CodeUnauthorized},
		{"429はレート制限なのだ", http.StatusTooManyRequests, nil, apperr.CodeRateLimited},
		{"400は入力不正なのだ", http.StatusBadRequest, nil, apperr.CodeInvalidInput},
		{"500はサーバーエラーなのだ", http.StatusInternalServerError, nil, apperr.CodeAPIError},
		{"503もサーバーエラーなのだ", http.StatusServiceUnavailable, nil, apperr.CodeAPIError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			err := New().PostJSON(context.Background(), srv.URL, "/x", echoRequest{}, nil, nil)
			if err == nil {
				t.Fatal("エラーになるはずなのだ")
			}
			if got := apperr.CodeOf(err); got != tc.code {
				t.Errorf("分類が違うのだ。期待: %s, 実際: %s", tc.code, got)
			}
		})
	}
}

func TestClient_RetryAfter(t *testing.T) {
	t.Run("Retry-Afterヘッダを秒として読むのだ", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		err := New().PostJSON(context.Background(), srv.URL, "/x", echoRequest{}, nil, nil)
		var ae *apperr.Error
		if !asAppError(err, &ae) || ae.RetryAfter != 120*time.Second {
			t.Fatalf("Retry-Afterが解析されていないのだ: %v", err)
		}
	})

	t.Run("ヘッダ無しは既定60秒なのだ", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		err := New().PostJSON(context.Background(), srv.URL, "/x", echoRequest{}, nil, nil)
		var ae *apperr.Error
		if !asAppError(err, &ae) || ae.RetryAfter != 60*time.Second {
			t.Fatalf("既定値が使われていないのだ: %v", err)
		}
	})
}

func TestClient_Download(t *testing.T) {
	t.Run("バイナリをそのまま取得できるのだ", func(t *testing.T) {
		payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(payload)
		}))
		defer srv.Close()

		data, err := New().Download(context.Background(), srv.URL+"/image.png")
		if err != nil {
			t.Fatalf("Download失敗なのだ: %v", err)
		}
		if string(data) != string(payload) {
			t.Error("取得したバイト列が一致しないのだ")
		}
	})

	t.Run("不正なURLは入力エラーなのだ", func(t *testing.T) {
		_, err := New().Download(context.Background(), "not a url")
		if apperr.CodeOf(err) != apperr.CodeInvalidInput {
			t.Errorf("分類が違うのだ: %v", err)
		}
	})
}

func TestBuildURL(t *testing.T) {
	u, err := buildURL("/v1/images/generations", "https://api.openai.com")
	if err != nil {
		t.Fatalf("buildURL失敗なのだ: %v", err)
	}
	if u != "https://api.openai.com/v1/images/generations" {
		t.Errorf("結合結果が違うのだ: %s", u)
	}

	if _, err := buildURL("/path", "::bad::"); err == nil {
		t.Error("不正なbaseURLがエラーにならないのだ")
	}
}

func asAppError(err error, target **apperr.Error) bool {
	if err == nil {
		return false
	}
	ae, ok := err.(*apperr.Error)
	if ok {
		*target = ae
	}
	return ok
}
