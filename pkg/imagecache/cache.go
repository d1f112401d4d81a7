// Package imagecache は生成済みパネル画像の2層（メモリ＋ディスク）キャッシュです。
// メモリ層は高速路に過ぎず、すべての書き込みはディスクにも永続化されます。
// 生成画像はAPI課金を伴う高価な成果物ですが、メタデータから再生成できるため、
// 退避は厳密なLRUではなく「空き容量が閾値を割ったら全消去」という
// 単純で壊れようのない方式を採っています。
package imagecache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shouni/go-manga-studio/pkg/apperr"
)

const (
	// FreeSpaceFloor を下回ったらキャッシュを全消去します。これが現行の退避方針です。
	FreeSpaceFloor = 100_000_000 // 100MB

	// DiskSizeLimit は将来のサイズ上限方式のために宣言されていますが、
	// 現行の退避判定では使用していません。
	DiskSizeLimit = 1_000_000_000 // 1GB

	fileExt = ".png"
)

// Cache は画像キャッシュの実体です。プロセス全体で共有され、
// 同一キーへの並行 Get/Put は線形化可能です（書きかけの値は観測されません）。
type Cache struct {
	mu  sync.RWMutex
	mem map[string][]byte
	dir string

	// freeSpace はキャッシュボリュームの空き容量を返します。テストで差し替えます。
	freeSpace func(dir string) (uint64, error)
}

// DefaultDir はアプリケーション既定のキャッシュディレクトリを返します。
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("キャッシュディレクトリを特定できませんでした: %w", err)
	}
	return filepath.Join(base, "go-manga-studio", "images"), nil
}

// New は指定ディレクトリ配下に画像キャッシュを生成します。
// ディレクトリはプロセス再起動をまたいで生き残りますが、いつ消されても
// 再生成以外の正しさへの影響はありません。
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.FileWriteFailed(dir, err)
	}
	return &Cache{
		mem:       make(map[string][]byte),
		dir:       dir,
		freeSpace: diskFreeSpace,
	}, nil
}

// Put は画像バイト列をメモリとディスクの両方に格納します。
// ディスク書き込み後に空き容量を確認し、閾値を割っていれば全消去します。
func (c *Cache) Put(key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	c.mem[key] = stored

	path := c.filePath(key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.FileWriteFailed(path, err)
	}

	c.evictIfPressuredLocked()
	return nil
}

// Get はキーに対応する画像バイト列を返します。メモリ層を先に見て、
// ミスしたらディスクを読み、見つかればメモリ層へ昇格させます。
func (c *Cache) Get(key string) ([]byte, bool) {
	if err := validateKey(key); err != nil {
		return nil, false
	}

	c.mu.RLock()
	if data, ok := c.mem[key]; ok {
		out := make([]byte, len(data))
		copy(out, data)
		c.mu.RUnlock()
		return out, true
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// ロック取り直しの間に他のゴルーチンが昇格させたかもしれない
	if data, ok := c.mem[key]; ok {
		out := make([]byte, len(data))
		copy(out, data)
		return out, true
	}

	data, err := os.ReadFile(c.filePath(key))
	if err != nil {
		return nil, false
	}
	c.mem[key] = data

	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Path はキーに対応するディスク上のファイルパスと存在有無を返します。
// プロジェクト保存時に画像ファイルを複製する用途で使います。
func (c *Cache) Path(key string) (string, bool) {
	if err := validateKey(key); err != nil {
		return "", false
	}
	path := c.filePath(key)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Clear はメモリ・ディスク両層の全エントリを破棄します。
// ディレクトリは空の状態で再作成されるため、破損状態は残りません。
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked()
}

func (c *Cache) clearLocked() error {
	c.mem = make(map[string][]byte)
	if err := os.RemoveAll(c.dir); err != nil {
		return apperr.FileWriteFailed(c.dir, err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return apperr.FileWriteFailed(c.dir, err)
	}
	return nil
}

// Dir はキャッシュディレクトリのパスを返します。
func (c *Cache) Dir() string { return c.dir }

// evictIfPressuredLocked は空き容量が下限を割っていたらキャッシュ全体を消去します。
func (c *Cache) evictIfPressuredLocked() {
	free, err := c.freeSpace(c.dir)
	if err != nil {
		slog.Warn("空き容量の取得に失敗したのだ", "dir", c.dir, "error", err)
		return
	}
	if free < FreeSpaceFloor {
		slog.Info("空き容量が下限を割ったためキャッシュを全消去するのだ",
			"free_bytes", free, "floor_bytes", FreeSpaceFloor)
		if err := c.clearLocked(); err != nil {
			slog.Error("キャッシュ消去に失敗したのだ", "error", err)
		}
	}
}

func (c *Cache) filePath(key string) string {
	return filepath.Join(c.dir, key+fileExt)
}

// validateKey はキーがファイル名として安全であることを確かめます。
// パス区切りを含むキーはディレクトリ外への書き込みにつながるため拒否します。
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return apperr.InvalidInput(fmt.Sprintf("invalid cache key: %q", key))
	}
	return nil
}
