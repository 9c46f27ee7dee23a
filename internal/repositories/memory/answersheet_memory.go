// Package memory keeps the answer sheet in process memory. It backs the
// editor in tests and in single-node setups without postgres.
//
// Reads return copies, so callers may mutate what they get back. Transactions
// are serialized and roll back by restoring a snapshot taken when they start.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type state struct {
	modules    map[uint]models.Module
	rows       map[uint]models.AnswerRow
	nextModule uint
	nextRow    uint
}

func (s state) clone() state {
	out := state{
		modules:    make(map[uint]models.Module, len(s.modules)),
		rows:       make(map[uint]models.AnswerRow, len(s.rows)),
		nextModule: s.nextModule,
		nextRow:    s.nextRow,
	}
	for id, m := range s.modules {
		out.modules[id] = m
	}
	for id, r := range s.rows {
		out.rows[id] = copyRow(r)
	}
	return out
}

type AnswersheetMemory struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   state
	now  func() time.Time
}

func NewAnswersheetMemory() *AnswersheetMemory {
	return &AnswersheetMemory{
		st: state{
			modules: map[uint]models.Module{},
			rows:    map[uint]models.AnswerRow{},
		},
		now: time.Now,
	}
}

var _ repositories.AnswersheetRepository = (*AnswersheetMemory)(nil)

func copyRow(r models.AnswerRow) models.AnswerRow {
	if r.Options != nil {
		r.Options = append(datatypes.JSON(nil), r.Options...)
	}
	return r
}

func (s *AnswersheetMemory) rowsOfLocked(moduleID uint) []models.AnswerRow {
	var out []models.AnswerRow
	for _, r := range s.st.rows {
		if r.ModuleID == moduleID {
			out = append(out, copyRow(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *AnswersheetMemory) moduleLocked(id uint) (*models.Module, bool) {
	m, ok := s.st.modules[id]
	if !ok {
		return nil, false
	}
	m.Rows = s.rowsOfLocked(id)
	return &m, true
}

// ===== MODULES =====

func (s *AnswersheetMemory) CreateModule(_ context.Context, _ *gorm.DB, module *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextModule++
	now := s.now()
	module.ID = s.st.nextModule
	module.CreatedAt, module.UpdatedAt = now, now
	stored := *module
	stored.Rows = nil
	s.st.modules[module.ID] = stored
	for i := range module.Rows {
		s.st.nextRow++
		row := &module.Rows[i]
		row.ID = s.st.nextRow
		row.ModuleID = module.ID
		row.CreatedAt, row.UpdatedAt = now, now
		s.st.rows[row.ID] = copyRow(*row)
	}
	return nil
}

func (s *AnswersheetMemory) GetModule(_ context.Context, _ *gorm.DB, id uint) (*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.moduleLocked(id)
	if !ok {
		return nil, fmt.Errorf("module %d: %w", id, repositories.ErrNotFound)
	}
	return m, nil
}

func (s *AnswersheetMemory) UpdateModule(_ context.Context, _ *gorm.DB, module *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.modules[module.ID]
	if !ok {
		return fmt.Errorf("module %d: %w", module.ID, repositories.ErrNotFound)
	}
	cur.SortOrder = module.SortOrder
	cur.Name = module.Name
	cur.Kind = module.Kind
	cur.OptionCount = module.OptionCount
	cur.PointWeight = module.PointWeight
	cur.UpdatedAt = s.now()
	s.st.modules[module.ID] = cur
	return nil
}

func (s *AnswersheetMemory) DeleteModule(_ context.Context, _ *gorm.DB, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.modules[id]; !ok {
		return fmt.Errorf("module %d: %w", id, repositories.ErrNotFound)
	}
	s.deleteModuleLocked(id)
	return nil
}

func (s *AnswersheetMemory) deleteModuleLocked(id uint) {
	delete(s.st.modules, id)
	for rid, r := range s.st.rows {
		if r.ModuleID == id {
			delete(s.st.rows, rid)
		}
	}
}

func (s *AnswersheetMemory) ListModules(_ context.Context, _ *gorm.DB, questionID uint) ([]*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Module
	for id, m := range s.st.modules {
		if m.QuestionID == questionID {
			mod, _ := s.moduleLocked(id)
			out = append(out, mod)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *AnswersheetMemory) UpdateModuleOrders(_ context.Context, _ *gorm.DB, questionID uint, orders []repositories.EntityOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		m, ok := s.st.modules[o.ID]
		if !ok || m.QuestionID != questionID {
			continue
		}
		m.SortOrder = o.SortOrder
		s.st.modules[o.ID] = m
	}
	return nil
}

func (s *AnswersheetMemory) GetNextModuleOrder(_ context.Context, _ *gorm.DB, questionID uint) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxOrder := -1
	for _, m := range s.st.modules {
		if m.QuestionID == questionID && m.SortOrder > maxOrder {
			maxOrder = m.SortOrder
		}
	}
	return maxOrder + 1, nil
}

func (s *AnswersheetMemory) DeleteModulesExcept(_ context.Context, _ *gorm.DB, questionID uint, keep []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := toSet(keep)
	for id, m := range s.st.modules {
		if m.QuestionID == questionID && !kept[id] {
			s.deleteModuleLocked(id)
		}
	}
	return nil
}

// ===== ROWS =====

func (s *AnswersheetMemory) CreateRow(_ context.Context, _ *gorm.DB, row *models.AnswerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.modules[row.ModuleID]; !ok {
		return fmt.Errorf("module %d: %w", row.ModuleID, repositories.ErrNotFound)
	}
	s.st.nextRow++
	now := s.now()
	row.ID = s.st.nextRow
	row.CreatedAt, row.UpdatedAt = now, now
	s.st.rows[row.ID] = copyRow(*row)
	return nil
}

func (s *AnswersheetMemory) GetRow(_ context.Context, _ *gorm.DB, id uint) (*models.AnswerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.st.rows[id]
	if !ok {
		return nil, fmt.Errorf("row %d: %w", id, repositories.ErrNotFound)
	}
	r = copyRow(r)
	return &r, nil
}

func (s *AnswersheetMemory) UpdateRow(_ context.Context, _ *gorm.DB, row *models.AnswerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.rows[row.ID]
	if !ok {
		return fmt.Errorf("row %d: %w", row.ID, repositories.ErrNotFound)
	}
	updated := copyRow(*row)
	updated.CreatedAt = cur.CreatedAt
	updated.UpdatedAt = s.now()
	s.st.rows[row.ID] = updated
	return nil
}

func (s *AnswersheetMemory) DeleteRow(_ context.Context, _ *gorm.DB, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.rows[id]; !ok {
		return fmt.Errorf("row %d: %w", id, repositories.ErrNotFound)
	}
	delete(s.st.rows, id)
	return nil
}

func (s *AnswersheetMemory) ListRows(_ context.Context, _ *gorm.DB, moduleID uint) ([]*models.AnswerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rowsOfLocked(moduleID)
	out := make([]*models.AnswerRow, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (s *AnswersheetMemory) CountRows(_ context.Context, _ *gorm.DB, moduleID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.st.rows {
		if r.ModuleID == moduleID {
			n++
		}
	}
	return n, nil
}

func (s *AnswersheetMemory) UpdateRowOrders(_ context.Context, _ *gorm.DB, moduleID uint, orders []repositories.EntityOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		r, ok := s.st.rows[o.ID]
		if !ok || r.ModuleID != moduleID {
			continue
		}
		r.SortOrder = o.SortOrder
		s.st.rows[o.ID] = r
	}
	return nil
}

func (s *AnswersheetMemory) DeleteRowsExcept(_ context.Context, _ *gorm.DB, moduleID uint, keep []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := toSet(keep)
	for id, r := range s.st.rows {
		if r.ModuleID == moduleID && !kept[id] {
			delete(s.st.rows, id)
		}
	}
	return nil
}

// ===== TRANSACTIONS =====

// WithTransaction calls fn with a nil tx. Writes made outside a transaction
// while one is open are lost if it rolls back.
func (s *AnswersheetMemory) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
