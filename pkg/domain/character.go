package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Character は漫画に登場するキャラクターの定義を保持します。
type Character struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	ReferenceImageURL string            `json:"reference_image_url,omitempty"` // 一貫性保持のための参照画像URL
	Traits            CharacterTraits   `json:"traits"`
	Relationships     map[string]string `json:"relationships"` // キャラクター名 -> 関係性の説明
}

// CharacterTraits はキャラクターの身体的・性格的特徴を保持します。
type CharacterTraits struct {
	Appearance             string   `json:"appearance"`              // 外見の説明
	Personality            []string `json:"personality"`             // brave, cheerful, mysterious などのキーワード
	ClothingStyle          string   `json:"clothing_style"`
	DistinguishingFeatures []string `json:"distinguishing_features"` // 傷跡、刺青、固有のアクセサリーなど
}

// CharacterReference はパネル上でのキャラクターの演技指定です。
// CharacterID は弱参照であり、対象キャラクター削除後も残り得ます。
type CharacterReference struct {
	CharacterID string `json:"character_id"`
	Action      string `json:"action"`     // このコマで何をしているか
	Expression  string `json:"expression"` // happy, angry, shocked など
	Position    string `json:"position"`   // left, center, right
}

// NewCharacter は名前と説明からキャラクター構造体を生成します。
func NewCharacter(name, description string) Character {
	return Character{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   description,
		Relationships: map[string]string{},
	}
}

// UnknownCharacter はダングリング参照の解決結果として使うプレースホルダです。
// キャラクター削除はパネルへ連鎖しないため、見つからないIDは致命的エラーではなく
// 「不明なキャラクター」として扱います。
func UnknownCharacter(id string) Character {
	return Character{ID: id, Name: "Unknown"}
}

// String はキャラクターの情報を文字列で返すのだ。
func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}

// Clone はキャラクターの防御的コピーを返します。
func (c Character) Clone() Character {
	copied := c
	if c.Traits.Personality != nil {
		copied.Traits.Personality = make([]string, len(c.Traits.Personality))
		copy(copied.Traits.Personality, c.Traits.Personality)
	}
	if c.Traits.DistinguishingFeatures != nil {
		copied.Traits.DistinguishingFeatures = make([]string, len(c.Traits.DistinguishingFeatures))
		copy(copied.Traits.DistinguishingFeatures, c.Traits.DistinguishingFeatures)
	}
	if c.Relationships != nil {
		copied.Relationships = make(map[string]string, len(c.Relationships))
		for k, v := range c.Relationships {
			copied.Relationships[k] = v
		}
	}
	return copied
}

// CharactersMap はIDをキーとしたキャラクターの検索用マップなのだ。
type CharactersMap map[string]Character

// BuildCharactersMap はスライス形式のデータを検索効率の良いマップ形式に変換するのだ。
func BuildCharactersMap(chars []Character) CharactersMap {
	m := make(CharactersMap, len(chars))
	for _, c := range chars {
		key := c.ID
		if key == "" {
			key = c.Name
		}
		m[key] = c
	}
	return m
}

// Lookup はIDに一致するキャラクターを返します。見つからない場合は
// UnknownCharacter プレースホルダと false を返し、エラーにはしません。
func (m CharactersMap) Lookup(id string) (Character, bool) {
	if c, ok := m[id]; ok {
		return c, true
	}
	return UnknownCharacter(id), false
}
