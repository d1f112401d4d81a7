package domain

// Genre は漫画のジャンル区分です。
type Genre string

const (
	GenreShounen Genre = "shounen" // 少年向けアクション・冒険
	GenreShoujo  Genre = "shoujo"  // 少女向け恋愛
	GenreSeinen  Genre = "seinen"  // 成人男性向け
	GenreKodomo  Genre = "kodomo"  // 子供向け
	GenreJosei   Genre = "josei"   // 成人女性向けラブコメ
)

// DetailLevel は描き込みの細かさです。
type DetailLevel string

const (
	DetailMinimal  DetailLevel = "minimal"
	DetailStandard DetailLevel = "standard"
	DetailDetailed DetailLevel = "detailed"
)

// InkStyle は線画のタッチです。
type InkStyle string

const (
	InkTraditional InkStyle = "traditional" // ペンとインク
	InkDigital     InkStyle = "digital"     // クリーンなデジタル線
	InkSketchy     InkStyle = "sketchy"     // ラフで勢いのある線
)

// TonalRange は色調の幅です。
type TonalRange string

const (
	ToneHighContrast TonalRange = "highContrast"
	ToneBalanced     TonalRange = "balanced"
	ToneLowKey       TonalRange = "lowKey"
)

// ArtStyleSettings は画風の描画パラメータを保持します。
type ArtStyleSettings struct {
	LineWeight          float64     `json:"line_weight"` // 0.5〜3.0
	DetailLevel         DetailLevel `json:"detail_level"`
	InkStyle            InkStyle    `json:"ink_style"`
	ScreenToneIntensity float64     `json:"screen_tone_intensity"` // 0.0〜1.0
}

// PanelSettings はコマ枠の描画設定です。
type PanelSettings struct {
	BorderWidth       float64 `json:"border_width"`
	GutterWidth       float64 `json:"gutter_width"` // コマ間の余白
	BackgroundColor   string  `json:"background_color"`
	ScreentonePattern string  `json:"screentone_pattern,omitempty"` // dots, crosshatch など
}

// ColorPalette は配色設定です。
type ColorPalette struct {
	Colors        []string   `json:"colors"` // 16進カラーコードのリスト
	UseMonochrome bool       `json:"use_monochrome"`
	TonalRange    TonalRange `json:"tonal_range"`
}

// TypographySettings は文字組みの設定です。
type TypographySettings struct {
	FontName         string  `json:"font_name"`
	FontSize         float64 `json:"font_size"`
	CharacterSpacing float64 `json:"character_spacing"`
	LineSpacing      float64 `json:"line_spacing"`
}

// MangaStyle は作品全体に適用する画風・ジャンル設定です。
type MangaStyle struct {
	Name        string             `json:"name"`
	Genre       Genre              `json:"genre"`
	Description string             `json:"description"`
	ArtStyle    ArtStyleSettings   `json:"art_style"`
	Panel       PanelSettings      `json:"panel_settings"`
	Palette     ColorPalette       `json:"color_palette"`
	Typography  TypographySettings `json:"typography"`
}

// DefaultStyles は組み込みのスタイルプリセットを返します。
func DefaultStyles() []MangaStyle {
	return []MangaStyle{
		{
			Name:        "Shounen",
			Genre:       GenreShounen,
			Description: "Action packed",
			ArtStyle:    ArtStyleSettings{LineWeight: 1.0, DetailLevel: DetailStandard, InkStyle: InkDigital, ScreenToneIntensity: 0.5},
			Panel:       PanelSettings{BorderWidth: 2, GutterWidth: 10, BackgroundColor: "#FFFFFF"},
			Palette:     ColorPalette{Colors: []string{}, UseMonochrome: true, TonalRange: ToneHighContrast},
			Typography:  TypographySettings{FontName: "Anime Ace", FontSize: 12},
		},
		{
			Name:        "Shoujo",
			Genre:       GenreShoujo,
			Description: "Romance and drama",
			ArtStyle:    ArtStyleSettings{LineWeight: 0.5, DetailLevel: DetailDetailed, InkStyle: InkTraditional, ScreenToneIntensity: 0.3},
			Panel:       PanelSettings{BorderWidth: 1, GutterWidth: 12, BackgroundColor: "#FFF0F5", ScreentonePattern: "dots"},
			Palette:     ColorPalette{Colors: []string{}, UseMonochrome: false, TonalRange: ToneBalanced},
			Typography:  TypographySettings{FontName: "Cookie", FontSize: 14, CharacterSpacing: 1, LineSpacing: 2},
		},
	}
}

// StyleByName は名前に一致するプリセットを返します。
// 見つからない場合は先頭のプリセットにフォールバックします。
func StyleByName(name string) MangaStyle {
	styles := DefaultStyles()
	for _, s := range styles {
		if s.Name == name {
			return s
		}
	}
	return styles[0]
}
