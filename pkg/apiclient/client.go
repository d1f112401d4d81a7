// Package apiclient は AI バックエンドとの JSON リクエスト/レスポンス交換を担う
// 薄いHTTPゲートウェイです。ステータスコードをアプリケーションのエラー分類へ
// 変換する責務を持ち、リトライは行いません（リトライ方針は呼び出し側の責務です）。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-manga-studio/pkg/apperr"
)

const (
	// RequestTimeout は1リクエストのヘッダ受信までの上限です。
	RequestTimeout = 60 * time.Second
	// ResourceTimeout は転送全体（大きな画像ダウンロード含む）の上限です。
	ResourceTimeout = 300 * time.Second

	// defaultRetryAfter は Retry-After ヘッダが無いときの既定待機時間です。
	defaultRetryAfter = 60 * time.Second
)

// Client は JSON API 向けの HTTP ゲートウェイです。
// オフライン時も即時失敗せず、タイムアウト上限まで接続の回復を待ちます。
type Client struct {
	hc *http.Client
}

// New は既定のタイムアウト設定を持つ Client を生成します。
func New() *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   RequestTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: RequestTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		hc: &http.Client{
			Timeout:   ResourceTimeout,
			Transport: transport,
		},
	}
}

// NewWithHTTPClient はテスト等で任意の http.Client を注入するためのコンストラクタです。
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{hc: hc}
}

// PostJSON は body を JSON で POST し、成功レスポンスを out にデコードします。
// endpoint はパス（baseURL に結合）または完全なURLのどちらでも構いません。
func (c *Client) PostJSON(ctx context.Context, baseURL, endpoint string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}
	return c.do(ctx, http.MethodPost, baseURL, endpoint, payload, headers, out)
}

// GetJSON は GET リクエストを発行し、成功レスポンスを out にデコードします。
func (c *Client) GetJSON(ctx context.Context, baseURL, endpoint string, headers map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, baseURL, endpoint, nil, headers, out)
}

// Download は生成済み画像などのバイナリを取得して返します。
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return nil, apperr.InvalidInput(fmt.Sprintf("Invalid image URL: %s", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	if err := validateStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Network(err)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, baseURL, endpoint string, payload []byte, headers map[string]string, out any) error {
	u, err := buildURL(endpoint, baseURL)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return apperr.Network(err)
	}
	defer resp.Body.Close()

	if err := validateStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	return nil
}

// buildURL は endpoint の形に応じて呼び出し先URLを決定します。
// スキーム付きであればそのまま使い、それ以外は baseURL への相対参照として解決します。
func buildURL(endpoint, baseURL string) (string, error) {
	if strings.HasPrefix(strings.ToLower(endpoint), "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", apperr.InvalidInput(fmt.Sprintf("Invalid URL: %s", endpoint))
		}
		return u.String(), nil
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" {
		return "", apperr.InvalidInput(fmt.Sprintf("Invalid base URL: %s", baseURL))
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", apperr.InvalidInput(fmt.Sprintf("Invalid endpoint: %s", endpoint))
	}
	return base.ResolveReference(ref).String(), nil
}

// validateStatus はHTTPステータスをエラー分類へ写像します。
// 2xx 以外の扱いは固定で、呼び出し側による解釈の余地を残しません。
func validateStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperr.Unauthorized("Invalid API key")
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperr.RateLimited(parseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode == http.StatusBadRequest:
		return apperr.InvalidInput("Invalid request")
	default:
		return apperr.Server(resp.StatusCode)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}
