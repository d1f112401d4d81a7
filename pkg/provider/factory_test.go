package provider

import (
	"testing"

	"github.com/shouni/go-manga-studio/pkg/apperr"
)

func TestParseType(t *testing.T) {
	cases := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"openai", TypeOpenAI, false},
		{"OpenAI", TypeOpenAI, false},
		{"GEMINI", TypeGemini, false},
		{"openrouter", TypeOpenRouter, false},
		{"claude", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := ParseType(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseType(%q) は失敗すべきなのだ", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseType(%q) が失敗したのだ: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseType(%q) = %q, 期待は %q なのだ", c.in, got, c.want)
		}
	}
}

func TestFactory_Provider(t *testing.T) {
	deps := newTestDeps(t)

	t.Run("資格情報があればプロバイダを構築できるのだ", func(t *testing.T) {
		f := NewFactory(StaticCredentials(map[string]string{
			CredOpenAI:     "sk-1",
			CredGemini:     "g-1",
			CredOpenRouter: "or-1",
		}), deps)

		for _, typ := range Types() {
			p, err := f.Provider(typ)
			if err != nil {
				t.Fatalf("%s の構築に失敗したのだ: %v", typ, err)
			}
			if p == nil {
				t.Fatalf("%s のプロバイダがnilなのだ", typ)
			}
		}
	})

	t.Run("資格情報が無ければネットワークに出る前に失敗するのだ", func(t *testing.T) {
		f := NewFactory(StaticCredentials(map[string]string{CredOpenAI: "sk-1"}), deps)

		if _, err := f.Provider(TypeGemini); apperr.CodeOf(err) != apperr.CodeUnauthorized {
			t.Errorf("unauthorized で失敗すべきなのだ: %v", err)
		}
	})

	t.Run("未知のプロバイダ種別は入力エラーなのだ", func(t *testing.T) {
		f := NewFactory(StaticCredentials(nil), deps)
		if _, err := f.Provider(Type("claude")); apperr.CodeOf(err) != apperr.CodeInvalidInput {
			t.Errorf("invalid input で失敗すべきなのだ: %v", err)
		}
	})
}

func TestChainCredentials(t *testing.T) {
	first := StaticCredentials(map[string]string{CredOpenAI: "from-first"})
	second := StaticCredentials(map[string]string{
		CredOpenAI: "from-second",
		CredGemini: "gem",
	})
	chain := ChainCredentials(first, second)

	if got, ok := chain(CredOpenAI); !ok || got != "from-first" {
		t.Errorf("先勝ちであるべきなのだ: %q, %v", got, ok)
	}
	if got, ok := chain(CredGemini); !ok || got != "gem" {
		t.Errorf("後段へフォールバックすべきなのだ: %q, %v", got, ok)
	}
	if _, ok := chain(CredOpenRouter); ok {
		t.Error("どこにも無いキーは見つからないべきなのだ")
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	if got, ok := EnvCredentials(CredOpenAI); !ok || got != "env-key" {
		t.Errorf("環境変数から読めるべきなのだ: %q, %v", got, ok)
	}
	if _, ok := EnvCredentials(CredOpenRouter); ok {
		t.Error("未設定の環境変数は見つからないべきなのだ")
	}
}
