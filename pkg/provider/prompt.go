package provider

import (
	"fmt"
	"strings"

	"github.com/shouni/go-manga-studio/pkg/domain"
)

// refineSystemPrompt はプロンプト推敲に使うシステム指示を構築します。
// ジャンルと描き込みレベル、出力長の上限、推敲結果だけを返すことを指示します。
func refineSystemPrompt(style domain.MangaStyle) string {
	return fmt.Sprintf(`You are a manga scene description expert. Enhance prompts for manga-style image generation.
- Include manga-specific details: panel composition, visual flow, art style
- Maintain character consistency references
- Style: %s genre, %s details
- Keep descriptions under 200 tokens
- Return ONLY the refined prompt, no explanations`, style.Genre, style.ArtStyle.DetailLevel)
}

// refineUserPrompt は元のプロンプトと文脈をユーザーメッセージにまとめます。
func refineUserPrompt(original, extra string) string {
	return fmt.Sprintf("Original: %s\nContext: %s", original, extra)
}

// GuideContext はキャラクター演技指定を推敲用の文脈テキストへ連結します。
func GuideContext(guides []domain.CharacterReference) string {
	actions := make([]string, 0, len(guides))
	for _, g := range guides {
		if g.Action != "" {
			actions = append(actions, g.Action)
		}
	}
	return strings.Join(actions, ", ")
}
