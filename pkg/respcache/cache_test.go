package respcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type refineResult struct {
	Text string `json:"text"`
}

type otherShape struct {
	Count int `json:"count"`
}

func TestCache_Do(t *testing.T) {
	t.Run("ヒットすればcomputeは呼ばれないのだ", func(t *testing.T) {
		c := New()
		var calls atomic.Int32
		compute := func(ctx context.Context) (any, error) {
			calls.Add(1)
			return refineResult{Text: "refined"}, nil
		}

		for i := 0; i < 3; i++ {
			var out refineResult
			if err := c.Do(context.Background(), "k", DefaultTTL, &out, compute); err != nil {
				t.Fatalf("Do失敗なのだ: %v", err)
			}
			if out.Text != "refined" {
				t.Errorf("結果が違うのだ: %+v", out)
			}
		}
		if calls.Load() != 1 {
			t.Errorf("computeが %d 回呼ばれたのだ", calls.Load())
		}
	})

	t.Run("computeの失敗はキャッシュされないのだ", func(t *testing.T) {
		c := New()
		boom := errors.New("backend down")
		var calls atomic.Int32

		var out refineResult
		err := c.Do(context.Background(), "k", DefaultTTL, &out, func(ctx context.Context) (any, error) {
			calls.Add(1)
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("エラーが伝播していないのだ: %v", err)
		}

		// 失敗後の再呼び出しでは再計算される
		if err := c.Do(context.Background(), "k", DefaultTTL, &out, func(ctx context.Context) (any, error) {
			calls.Add(1)
			return refineResult{Text: "ok"}, nil
		}); err != nil {
			t.Fatalf("再計算に失敗したのだ: %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("呼び出し回数が違うのだ: %d", calls.Load())
		}
	})
}

func TestCache_AtMostOneInFlight(t *testing.T) {
	t.Run("同一キーの並行呼び出しでcomputeはちょうど1回なのだ", func(t *testing.T) {
		c := New()
		var calls atomic.Int32
		started := make(chan struct{})

		compute := func(ctx context.Context) (any, error) {
			calls.Add(1)
			<-started // 全ゴルーチンが出揃うまで計算を遅らせる
			time.Sleep(20 * time.Millisecond)
			return refineResult{Text: "shared"}, nil
		}

		const workers = 16
		results := make([]refineResult, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := c.Do(context.Background(), "expensive", DefaultTTL, &results[i], compute); err != nil {
					t.Errorf("Do失敗なのだ: %v", err)
				}
			}(i)
		}
		close(started)
		wg.Wait()

		if calls.Load() != 1 {
			t.Errorf("computeが %d 回実行されたのだ。1回であるべきなのだ", calls.Load())
		}
		for i, r := range results {
			if r.Text != "shared" {
				t.Errorf("呼び出し %d が異なる結果を受け取ったのだ: %+v", i, r)
			}
		}
	})
}

func TestCache_Expiry(t *testing.T) {
	t.Run("ttl=0 のエントリは直後の検索でミスするのだ", func(t *testing.T) {
		c := New()
		var calls atomic.Int32
		compute := func(ctx context.Context) (any, error) {
			calls.Add(1)
			return refineResult{Text: "ephemeral"}, nil
		}

		var out refineResult
		if err := c.Do(context.Background(), "k", 0, &out, compute); err != nil {
			t.Fatalf("Do失敗なのだ: %v", err)
		}
		if err := c.Do(context.Background(), "k", 0, &out, compute); err != nil {
			t.Fatalf("Do失敗なのだ: %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("期限切れエントリが返されたのだ。呼び出し回数: %d", calls.Load())
		}
	})

	t.Run("短いttlは時間経過でミスに変わるのだ", func(t *testing.T) {
		c := New()
		var calls atomic.Int32
		compute := func(ctx context.Context) (any, error) {
			calls.Add(1)
			return refineResult{Text: "x"}, nil
		}

		var out refineResult
		c.Do(context.Background(), "k", 10*time.Millisecond, &out, compute)
		time.Sleep(30 * time.Millisecond)
		c.Do(context.Background(), "k", 10*time.Millisecond, &out, compute)

		if calls.Load() != 2 {
			t.Errorf("期限が守られていないのだ。呼び出し回数: %d", calls.Load())
		}
	})
}

func TestCache_TypeDrift(t *testing.T) {
	t.Run("形の合わない保存値はパージしてミス扱いなのだ", func(t *testing.T) {
		c := New()

		var first refineResult
		if err := c.Do(context.Background(), "k", DefaultTTL, &first, func(ctx context.Context) (any, error) {
			return refineResult{Text: "refined"}, nil
		}); err != nil {
			t.Fatalf("Do失敗なのだ: %v", err)
		}

		// 同じキーを別の形で読もうとすると、古い値は破棄されて再計算される
		var second otherShape
		if err := c.Do(context.Background(), "k", DefaultTTL, &second, func(ctx context.Context) (any, error) {
			return otherShape{Count: 42}, nil
		}); err != nil {
			t.Fatalf("再計算に失敗したのだ: %v", err)
		}
		if second.Count != 42 {
			t.Errorf("新しい形の値が得られないのだ: %+v", second)
		}
	})
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint("https://api.openai.com", "/v1/chat/completions", refineResult{Text: "a"})

	if Fingerprint("https://api.openai.com", "/v1/chat/completions", refineResult{Text: "a"}) != base {
		t.Error("同一内容でキーが揺れるのだ")
	}
	if Fingerprint("https://api.openai.com", "/v1/chat/completions", refineResult{Text: "b"}) == base {
		t.Error("ペイロード差分がキーに反映されないのだ")
	}
	if Fingerprint("https://openrouter.ai", "/v1/chat/completions", refineResult{Text: "a"}) == base {
		t.Error("接続先差分がキーに反映されないのだ")
	}
}
