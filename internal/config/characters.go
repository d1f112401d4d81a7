package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/shouni/go-manga-studio/pkg/domain"
)

// characterSpec はYAMLで記述するキャラクター1人分の定義なのだ。
type characterSpec struct {
	Name              string            `yaml:"name" validate:"required"`
	Description       string            `yaml:"description"`
	ReferenceImageURL string            `yaml:"reference_image_url" validate:"omitempty,url"`
	Appearance        string            `yaml:"appearance"`
	Personality       []string          `yaml:"personality"`
	ClothingStyle     string            `yaml:"clothing_style"`
	Features          []string          `yaml:"features"`
	Relationships     map[string]string `yaml:"relationships"`
}

// rosterFile はキャラクター名簿YAMLのルート構造なのだ。
type rosterFile struct {
	Characters []characterSpec `yaml:"characters" validate:"required,min=1,dive"`
}

// LoadCharacters はYAMLのキャラクター名簿を読み込んで検証するのだ。
// 名前の欠落や不正なURLはここで弾き、生成パイプラインまで持ち込まないのだ。
func LoadCharacters(path string) ([]domain.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("キャラクター名簿を読み込めないのだ: %w", err)
	}

	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("キャラクター名簿のYAMLが不正なのだ: %w", err)
	}
	if err := validator.New().Struct(roster); err != nil {
		return nil, fmt.Errorf("キャラクター名簿の検証に失敗したのだ: %w", err)
	}

	characters := make([]domain.Character, 0, len(roster.Characters))
	for _, spec := range roster.Characters {
		c := domain.NewCharacter(spec.Name, spec.Description)
		c.ReferenceImageURL = spec.ReferenceImageURL
		c.Traits = domain.CharacterTraits{
			Appearance:             spec.Appearance,
			Personality:            spec.Personality,
			ClothingStyle:          spec.ClothingStyle,
			DistinguishingFeatures: spec.Features,
		}
		for name, rel := range spec.Relationships {
			c.Relationships[name] = rel
		}
		characters = append(characters, c)
	}
	return characters, nil
}
