// Package respcache はバックエンド呼び出しの応答キャッシュと重複排除を提供します。
// 同一キーに対する compute の同時実行をちょうど1回に抑え、待機者全員が
// 同じ結果を受け取ることを保証します。冪等で副作用のない呼び出し
// （プロンプト推敲など）専用であり、画像生成には使いません。
package respcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL はキャッシュエントリの既定の有効期間です。
	DefaultTTL = time.Hour

	cleanupInterval = 10 * time.Minute
)

// Cache は応答キャッシュの実体です。プロセス全体で共有するシングルトンとして
// 使われる想定で、すべての操作は並行呼び出しに対して安全です。
type Cache struct {
	store *gocache.Cache
	group singleflight.Group
}

// New は空の応答キャッシュを生成します。
func New() *Cache {
	return &Cache{
		store: gocache.New(DefaultTTL, cleanupInterval),
	}
}

// Do はキーに対応するキャッシュ済み応答を out にデコードして返します。
// ミスした場合は compute をちょうど1回実行し、結果を ttl 秒間キャッシュします。
//
// 保存された値が呼び出し側の期待する形と食い違う場合（型ドリフト）は、
// その場でパージしてミス扱いにし、危険な値を返すことはありません。
// ttl が 0 以下の場合は結果を保存しないため、次回の検索は必ずミスになります。
func (c *Cache) Do(ctx context.Context, key string, ttl time.Duration, out any, compute func(ctx context.Context) (any, error)) error {
	if raw, found := c.store.Get(key); found {
		if err := strictDecode(raw.([]byte), out); err == nil {
			return nil
		}
		// 型が一致しないエントリは信用せず破棄する
		c.store.Delete(key)
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		// 待機中に先行のフライトが格納した結果を拾う
		if cached, found := c.store.Get(key); found {
			return cached.([]byte), nil
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("キャッシュ値のエンコードに失敗しました: %w", err)
		}
		if ttl > 0 {
			c.store.Set(key, encoded, ttl)
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}

	if err := strictDecode(raw.([]byte), out); err != nil {
		c.store.Delete(key)
		return fmt.Errorf("キャッシュ値のデコードに失敗しました: %w", err)
	}
	return nil
}

// Purge はキーに対応するエントリを明示的に破棄します。
func (c *Cache) Purge(key string) {
	c.store.Delete(key)
}

// Flush はすべてのエントリを破棄します。
func (c *Cache) Flush() {
	c.store.Flush()
}

// ItemCount は現在のエントリ数を返します（テスト・診断用）。
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// strictDecode は未知フィールドを許さない厳格なデコードを行います。
// 緩いデコードだと構造の異なる値が部分的に流用されてしまうためです。
func strictDecode(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// Fingerprint はリクエスト内容から決定論的なキャッシュキーを導出します。
// 接続先・エンドポイント・ペイロードのいずれかが異なれば別のキーになります。
func Fingerprint(baseURL, endpoint string, payload any) string {
	h := sha256.New()
	h.Write([]byte(baseURL))
	h.Write([]byte{0})
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	if encoded, err := json.Marshal(payload); err == nil {
		h.Write(encoded)
	}
	return hex.EncodeToString(h.Sum(nil))
}
