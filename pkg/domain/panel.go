package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PanelLayout はページ内でのコマの大きさ・形状を表します。
type PanelLayout string

const (
	LayoutFullPage    PanelLayout = "fullPage"
	LayoutHalfPage    PanelLayout = "halfPage"
	LayoutThirdPage   PanelLayout = "thirdPage"
	LayoutQuarterPage PanelLayout = "quarterPage"
	LayoutWideStrip   PanelLayout = "wideStrip"
)

// StatusKind は生成ステートマシンの状態種別です。
// 各パネルは常にちょうど一つの状態を持ちます。
type StatusKind string

const (
	StatusPending    StatusKind = "pending"    // まだ一度も生成を試みていない
	StatusGenerating StatusKind = "generating" // バックエンド呼び出しが進行中
	StatusCompleted  StatusKind = "completed"  // 画像が利用可能
	StatusFailed     StatusKind = "failed"     // 理由つきの失敗
	StatusCached     StatusKind = "cached"     // 新規呼び出しなしで画像キャッシュから復元済み
)

// GenerationStatus はパネルの生成状態を表すタグ付きの値です。
// failed のときのみ Reason が設定され、空文字にはなりません。
type GenerationStatus struct {
	Kind   StatusKind
	Reason string
}

// Pending は初期状態を返します。
func Pending() GenerationStatus { return GenerationStatus{Kind: StatusPending} }

// Generating は生成中状態を返します。
func Generating() GenerationStatus { return GenerationStatus{Kind: StatusGenerating} }

// Completed は生成完了状態を返します。
func Completed() GenerationStatus { return GenerationStatus{Kind: StatusCompleted} }

// Cached はキャッシュ復元状態を返します。
func Cached() GenerationStatus { return GenerationStatus{Kind: StatusCached} }

// Failed は失敗状態を返します。理由が空のときは既定の文言で補います。
func Failed(reason string) GenerationStatus {
	if reason == "" {
		reason = "unknown error"
	}
	return GenerationStatus{Kind: StatusFailed, Reason: reason}
}

// CanStartGeneration は generating への遷移が許されるかを返します。
// 進行中のパネルだけは再突入できません。それ以外の状態はすべて再生成可能です。
func (s GenerationStatus) CanStartGeneration() bool {
	return s.Kind != StatusGenerating
}

// String は状態の文字列表現を返すのだ。
func (s GenerationStatus) String() string {
	if s.Kind == StatusFailed {
		return fmt.Sprintf("failed(%s)", s.Reason)
	}
	return string(s.Kind)
}

// statusJSON は {type, payload} 形式の永続化表現です。
// 保存済みプロジェクトとの互換性を保つため、この封筒形式を維持します。
type statusJSON struct {
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}

// MarshalJSON は GenerationStatus を封筒形式にエンコードします。
func (s GenerationStatus) MarshalJSON() ([]byte, error) {
	env := statusJSON{Type: string(s.Kind)}
	if s.Kind == StatusFailed {
		env.Payload = s.Reason
	}
	return json.Marshal(env)
}

// UnmarshalJSON は封筒形式から GenerationStatus を復元します。
// 未知の状態種別は不正データとして拒否します。
func (s *GenerationStatus) UnmarshalJSON(data []byte) error {
	var env statusJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch StatusKind(env.Type) {
	case StatusPending, StatusGenerating, StatusCompleted, StatusCached:
		*s = GenerationStatus{Kind: StatusKind(env.Type)}
	case StatusFailed:
		*s = Failed(env.Payload)
	default:
		return fmt.Errorf("不正な生成状態なのだ: %q", env.Type)
	}
	return nil
}

// DialoguePosition はセリフ枠の配置位置です。
type DialoguePosition string

const (
	PositionTopLeft      DialoguePosition = "topLeft"
	PositionTopCenter    DialoguePosition = "topCenter"
	PositionTopRight     DialoguePosition = "topRight"
	PositionMiddleLeft   DialoguePosition = "middleLeft"
	PositionMiddleCenter DialoguePosition = "middleCenter"
	PositionMiddleRight  DialoguePosition = "middleRight"
	PositionBottomLeft   DialoguePosition = "bottomLeft"
	PositionBottomCenter DialoguePosition = "bottomCenter"
	PositionBottomRight  DialoguePosition = "bottomRight"
)

// DialogueStyle はセリフ枠の描画スタイルです。
type DialogueStyle string

const (
	StyleSpeechBubble DialogueStyle = "speechBubble"
	StyleThinkBubble  DialogueStyle = "thinkBubble"
	StyleNarratorBox  DialogueStyle = "narratorBox"
)

// DialogueBox はパネル内のセリフ表示を保持します。
type DialogueBox struct {
	Character string           `json:"character"`
	Text      string           `json:"text"`
	Position  DialoguePosition `json:"position"`
	Style     DialogueStyle    `json:"style"`
}

// Panel は漫画の1コマを表します。プロンプトと生成ライフサイクルを持ち、
// 生成画像そのものは所有せず、画像キャッシュのキーだけを弱参照として保持します。
type Panel struct {
	ID     uuid.UUID   `json:"id"`
	Order  int         `json:"order"`
	Layout PanelLayout `json:"panel_type"`

	Prompt            string               `json:"prompt"`
	GeneratedImageKey string               `json:"generated_image_key,omitempty"`
	CharacterGuide    []CharacterReference `json:"character_guide"`
	Dialogue          *DialogueBox         `json:"dialogue_box,omitempty"`
	SoundEffect       string               `json:"sound_effect,omitempty"`

	Status   GenerationStatus `json:"generation_status"`
	Progress float64          `json:"generation_progress"`

	// EstimatedTimeRemaining は生成中のみ意味を持つ残り時間の目安です。
	EstimatedTimeRemaining *time.Duration `json:"estimated_time_remaining,omitempty"`
}

// NewPanel は pending 状態の新しいパネルを生成します。
func NewPanel(order int) Panel {
	return Panel{
		ID:             uuid.New(),
		Order:          order,
		Layout:         LayoutQuarterPage,
		CharacterGuide: []CharacterReference{},
		Status:         Pending(),
	}
}

// UpdateProgress は進捗率を 0.0〜1.0 の範囲に丸めて設定します。
func (p *Panel) UpdateProgress(progress float64) {
	p.Progress = min(max(progress, 0.0), 1.0)
}

// Clone はパネルの防御的コピーを返します。
// 参照型フィールドも新しく割り当てるので、呼び出し元が内部状態を壊せません。
func (p Panel) Clone() Panel {
	copied := p
	if p.CharacterGuide != nil {
		copied.CharacterGuide = make([]CharacterReference, len(p.CharacterGuide))
		copy(copied.CharacterGuide, p.CharacterGuide)
	}
	if p.Dialogue != nil {
		d := *p.Dialogue
		copied.Dialogue = &d
	}
	if p.EstimatedTimeRemaining != nil {
		eta := *p.EstimatedTimeRemaining
		copied.EstimatedTimeRemaining = &eta
	}
	return copied
}
