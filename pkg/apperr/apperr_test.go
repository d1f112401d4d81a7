package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Run("分類コードがCodeOfで引けるのだ", func(t *testing.T) {
		cases := []struct {
			err  error
			want Code
		}{
			{InvalidInput("empty prompt"), CodeInvalidInput},
			{API(APIRateLimit, "slow down"), CodeAPIError},
			{FileNotFound("/tmp/x"), CodeFileNotFound},
			{FileWriteFailed("metadata.json", errors.New("disk full")), CodeFileWriteFailed},
			{ImageProcessingFailed("no image"), CodeImageProcessingFailed},
			{Network(errors.New("refused")), CodeNetworkError},
			{Unsupported("image generation"), CodeUnsupportedOperation},
			{Unauthorized("missing key"), CodeUnauthorized},
			{RateLimited(time.Minute), CodeRateLimited},
			{NotImplemented("analysis"), CodeNotImplemented},
			{Unknown(errors.New("???")), CodeUnknown},
		}
		for _, c := range cases {
			if got := CodeOf(c.err); got != c.want {
				t.Errorf("CodeOf(%v) = %q, 期待は %q なのだ", c.err, got, c.want)
			}
		}
	})

	t.Run("ラップされていても分類が引けるのだ", func(t *testing.T) {
		wrapped := fmt.Errorf("保存に失敗: %w", FileNotFound("metadata.json"))
		if !IsCode(wrapped, CodeFileNotFound) {
			t.Errorf("ラップ越しに分類が見えるべきなのだ: %v", wrapped)
		}
		if CodeOf(errors.New("plain")) != CodeUnknown {
			t.Error("分類なしのエラーはunknown扱いなのだ")
		}
	})

	t.Run("原因エラーがUnwrapで取り出せるのだ", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Network(cause)
		if !errors.Is(err, cause) {
			t.Error("errors.Isで原因まで辿れるべきなのだ")
		}
	})
}

func TestErrorMessages(t *testing.T) {
	t.Run("レート制限は再試行秒数を含むのだ", func(t *testing.T) {
		err := RateLimited(90 * time.Second)
		if !strings.Contains(err.Error(), "90") {
			t.Errorf("待ち時間が本文に出るべきなのだ: %q", err.Error())
		}
		if err.RetryAfter != 90*time.Second {
			t.Errorf("RetryAfterが保持されるべきなのだ: %v", err.RetryAfter)
		}
	})

	t.Run("復旧ヒントが分類ごとに出るのだ", func(t *testing.T) {
		if s := Unauthorized("bad key").RecoverySuggestion(); !strings.Contains(s, "API keys") {
			t.Errorf("認証系はAPIキー確認を促すべきなのだ: %q", s)
		}
		if s := RateLimited(time.Minute).RecoverySuggestion(); !strings.Contains(s, "60") {
			t.Errorf("待ち秒数を含むべきなのだ: %q", s)
		}
	})

	t.Run("サーバーエラーは元のステータスを保持するのだ", func(t *testing.T) {
		err := Server(503)
		if err.HTTPStatus != 503 {
			t.Errorf("ステータスが保持されるべきなのだ: %d", err.HTTPStatus)
		}
		if err.Code != CodeAPIError {
			t.Errorf("サーバー障害はAPIエラー扱いなのだ: %q", err.Code)
		}
	})
}
