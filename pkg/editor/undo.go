package editor

import (
	"github.com/google/uuid"

	"github.com/shouni/go-manga-studio/pkg/domain"
)

// opKind は取り消し操作の種別です。
type opKind int

const (
	opRemove       opKind = iota // 指定IDのパネルを取り除く
	opReinsert                   // 保存済みパネル値を元の位置へ戻す
	opRestoreOrder               // パネル列を保存済みのID順に並べ直す
	opUpdate                     // パネルを保存済みの値へ戻す
)

// operation は構造編集1回分の逆操作です。編集のたびにUndoスタックへ積まれ、
// 適用するとさらにその逆操作を返すため、Undo/Redoの両方向に使えます。
type operation struct {
	kind  opKind
	id    uuid.UUID
	panel domain.Panel
	index int
	order []uuid.UUID
}

// apply は逆操作を適用し、その打ち消し操作を返します。
// 対象が見つからない場合はリストを変えずに無害な逆操作を返します。
func (op operation) apply(m *domain.Manga) operation {
	switch op.kind {
	case opRemove:
		idx := m.PanelIndex(op.id)
		if idx < 0 {
			return operation{kind: opRemove, id: op.id}
		}
		removed := m.Panels[idx].Clone()
		m.Panels = append(m.Panels[:idx], m.Panels[idx+1:]...)
		m.NormalizePanelOrders()
		return operation{kind: opReinsert, panel: removed, index: idx}

	case opReinsert:
		idx := op.index
		if idx > len(m.Panels) {
			idx = len(m.Panels)
		}
		m.Panels = append(m.Panels, domain.Panel{})
		copy(m.Panels[idx+1:], m.Panels[idx:])
		m.Panels[idx] = op.panel.Clone()
		m.NormalizePanelOrders()
		return operation{kind: opRemove, id: op.panel.ID}

	case opRestoreOrder:
		prev := panelOrder(m)
		byID := make(map[uuid.UUID]domain.Panel, len(m.Panels))
		for _, p := range m.Panels {
			byID[p.ID] = p
		}
		reordered := make([]domain.Panel, 0, len(m.Panels))
		for _, id := range op.order {
			if p, ok := byID[id]; ok {
				reordered = append(reordered, p)
				delete(byID, id)
			}
		}
		// 記録後に追加されたパネルは末尾に残す
		for _, p := range m.Panels {
			if _, ok := byID[p.ID]; ok {
				reordered = append(reordered, p)
			}
		}
		m.Panels = reordered
		m.NormalizePanelOrders()
		return operation{kind: opRestoreOrder, order: prev}

	case opUpdate:
		idx := m.PanelIndex(op.panel.ID)
		if idx < 0 {
			return operation{kind: opRemove, id: op.panel.ID}
		}
		prev := m.Panels[idx].Clone()
		m.Panels[idx] = op.panel.Clone()
		m.NormalizePanelOrders()
		return operation{kind: opUpdate, panel: prev}
	}
	return op
}

func panelOrder(m *domain.Manga) []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Panels))
	for i := range m.Panels {
		ids[i] = m.Panels[i].ID
	}
	return ids
}
