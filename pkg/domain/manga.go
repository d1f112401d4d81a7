package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus はプロジェクトの進行段階です。
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectInProgress ProjectStatus = "inProgress"
	ProjectInReview   ProjectStatus = "inReview"
	ProjectPublished  ProjectStatus = "published"
	ProjectArchived   ProjectStatus = "archived"
)

// CollaboratorRole は共同制作者の役割です。
type CollaboratorRole string

const (
	RoleCreator     CollaboratorRole = "creator"
	RoleEditor      CollaboratorRole = "editor"
	RoleContributor CollaboratorRole = "contributor"
	RoleViewer      CollaboratorRole = "viewer"
)

// Collaborator はプロジェクトの共同制作者を表します。
type Collaborator struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      CollaboratorRole `json:"role"`
	AddedDate time.Time        `json:"added_date"`
}

// Metadata はプロジェクトの分類・スタイル情報を保持します。
type Metadata struct {
	Tags           []string       `json:"tags"`
	Genre          Genre          `json:"genre"`
	TargetAudience string         `json:"target_audience"`
	Status         ProjectStatus  `json:"status"`
	Notes          string         `json:"notes"`
	Collaborators  []Collaborator `json:"collaborators"`
	Style          MangaStyle     `json:"style"`
}

// Manga は1つの漫画プロジェクト全体を表します。
// パネルはプロジェクトが排他的に所有し、Order は常に 0 始まりの連番です。
type Manga struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"created_date"`
	ModifiedAt  time.Time `json:"modified_date"`

	Panels     []Panel     `json:"panels"`
	Characters []Character `json:"characters"`
	Metadata   Metadata    `json:"metadata"`
}

// NewManga は空のパネルリストを持つ新しいプロジェクトを生成します。
func NewManga(title, creator string, style MangaStyle) *Manga {
	now := time.Now()
	return &Manga{
		ID:         uuid.New(),
		Title:      title,
		Creator:    creator,
		CreatedAt:  now,
		ModifiedAt: now,
		Panels:     []Panel{},
		Characters: []Character{},
		Metadata: Metadata{
			Tags:           []string{},
			Genre:          style.Genre,
			TargetAudience: "Teens",
			Status:         ProjectDraft,
			Collaborators:  []Collaborator{},
			Style:          style,
		},
	}
}

// PanelCount はパネル数を返します。
func (m *Manga) PanelCount() int { return len(m.Panels) }

// TotalPages は標準的な4コマ/ページ換算での総ページ数を返します。
func (m *Manga) TotalPages() int { return (len(m.Panels) + 3) / 4 }

// PanelIndex はIDに一致するパネルの位置を返します。存在しなければ -1 です。
func (m *Manga) PanelIndex(id uuid.UUID) int {
	for i := range m.Panels {
		if m.Panels[i].ID == id {
			return i
		}
	}
	return -1
}

// NormalizePanelOrders はリスト位置に合わせて Order を 0..n-1 に振り直します。
// 追加・削除・並べ替えの後に必ず呼び出し、連番不変条件を維持します。
func (m *Manga) NormalizePanelOrders() {
	for i := range m.Panels {
		m.Panels[i].Order = i
	}
}

// Clone はプロジェクト全体の防御的ディープコピーを返します。
// スナップショット読み取りとUndo記録の両方で使用します。
func (m *Manga) Clone() *Manga {
	copied := *m
	copied.Panels = make([]Panel, len(m.Panels))
	for i, p := range m.Panels {
		copied.Panels[i] = p.Clone()
	}
	copied.Characters = make([]Character, len(m.Characters))
	for i, c := range m.Characters {
		copied.Characters[i] = c.Clone()
	}
	if m.Metadata.Tags != nil {
		copied.Metadata.Tags = make([]string, len(m.Metadata.Tags))
		copy(copied.Metadata.Tags, m.Metadata.Tags)
	}
	if m.Metadata.Collaborators != nil {
		copied.Metadata.Collaborators = make([]Collaborator, len(m.Metadata.Collaborators))
		copy(copied.Metadata.Collaborators, m.Metadata.Collaborators)
	}
	return &copied
}

// CharacterMap はプロジェクト内キャラクターの検索用マップを構築するのだ。
func (m *Manga) CharacterMap() CharactersMap {
	return BuildCharactersMap(m.Characters)
}
