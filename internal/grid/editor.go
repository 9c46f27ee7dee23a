// Package grid holds the in-memory answer sheet editor. It applies user actions to the module
// and row hierarchy, keeps sibling order contiguous, publishes the result to a store and keeps
// the persisted copy in step through a Backend.
package grid

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/SAP-F-2025/answersheet-service/internal/errors"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/ordering"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
	"github.com/SAP-F-2025/answersheet-service/internal/store"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
)

// Store keys the editor publishes.
const (
	KeyModules      = "modules"
	KeyColumns      = "columns"
	KeyDocument     = "document"
	KeyNotification = "notification"
)

const (
	firstModuleToken = 1
	firstRowToken    = 1000
	maxOptionCount   = 100
)

type Options struct {
	QuestionID uint
	// Backend is nil for a question that has not been saved yet. The editor then only keeps
	// state in memory and publishes the serialized document.
	Backend            Backend
	Store              *store.Store
	Notifier           Notifier
	Logger             utils.Logger
	Debounce           time.Duration
	Clock              Clock
	DefaultOptionCount int
}

// Editor owns one question's hierarchy. Store subscribers are called synchronously and must not
// call mutating editor methods from inside Notify.
type Editor struct {
	questionID         uint
	backend            Backend
	store              *store.Store
	notifier           Notifier
	logger             utils.Logger
	defaultOptionCount int
	autosave           *debouncer

	// io serializes backend calls. Never acquire it while holding mu.
	io sync.Mutex
	// pubMu keeps store publications in the order the state changed.
	pubMu sync.Mutex

	mu              sync.Mutex
	columns         []models.Column
	modules         []*Module
	nextModuleToken int
	nextRowToken    int
	replaced        map[string]models.EntityID
	saving          bool
	dirty           bool
}

func New(opts Options) *Editor {
	if opts.Logger == nil {
		opts.Logger = utils.NewDefaultLogger()
	}
	if opts.Store == nil {
		opts.Store = store.New(opts.Logger)
	}
	if opts.Notifier == nil {
		opts.Notifier = StoreNotifier{Store: opts.Store}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.DefaultOptionCount <= 0 {
		opts.DefaultOptionCount = models.DefaultOptionCount
	}

	e := &Editor{
		questionID:         opts.QuestionID,
		backend:            opts.Backend,
		store:              opts.Store,
		notifier:           opts.Notifier,
		logger:             opts.Logger.With("component", "grid_editor", "question_id", opts.QuestionID),
		defaultOptionCount: opts.DefaultOptionCount,
		columns:            schema.Columns(),
		nextModuleToken:    firstModuleToken,
		nextRowToken:       firstRowToken,
		replaced:           make(map[string]models.EntityID),
	}
	e.autosave = newDebouncer(opts.Clock, opts.Debounce, func() {
		_ = e.save(context.Background())
	})
	return e
}

// Store returns the store the editor publishes to.
func (e *Editor) Store() *store.Store { return e.store }

// Detached reports whether the editor runs without a backend.
func (e *Editor) Detached() bool { return e.backend == nil }

// Load fetches the schema and hierarchy from the backend. A question without modules, and a
// detached editor, start with one pending module holding one empty row. The first save
// persists it.
func (e *Editor) Load(ctx context.Context) error {
	if e.backend == nil {
		e.mu.Lock()
		e.ensureModuleLocked()
		e.mu.Unlock()
		e.publish()
		return nil
	}

	e.io.Lock()
	columns, err := e.backend.FetchSchema(ctx)
	if err != nil {
		e.io.Unlock()
		e.fail(ctx, "fetch schema", err)
		return err
	}
	doc, err := e.backend.FetchHierarchy(ctx, e.questionID)
	e.io.Unlock()
	if err != nil {
		e.fail(ctx, "fetch hierarchy", err)
		return err
	}

	e.mu.Lock()
	if len(columns) > 0 {
		e.columns = columns
	}
	e.loadLocked(doc)
	e.mu.Unlock()
	e.publish()
	return nil
}

// LoadDocument replaces the hierarchy with doc, for example a document restored from the
// serialized output of an earlier detached session.
func (e *Editor) LoadDocument(doc models.Document) {
	e.mu.Lock()
	e.loadLocked(doc)
	e.mu.Unlock()
	e.publish()
}

func (e *Editor) loadLocked(doc models.Document) {
	sorted := append(models.Document(nil), doc...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SortOrder < sorted[j].SortOrder })

	modules := make([]*Module, 0, len(sorted))
	for _, dm := range sorted {
		m := &Module{
			ID:          e.adoptID(dm.ID, true),
			Name:        dm.Name,
			Kind:        dm.Kind,
			OptionCount: dm.OptionCount,
			PointWeight: dm.PointWeight,
		}
		if !m.Kind.Valid() {
			m.Kind = models.SingleChoice
		}
		if m.OptionCount <= 0 {
			m.OptionCount = e.defaultOptionCount
		}
		if m.PointWeight <= 0 {
			m.PointWeight = models.DefaultPointWeight
		}
		m.refreshIndicator()

		rows := append([]models.DocumentRow(nil), dm.Rows...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].SortOrder < rows[j].SortOrder })
		for _, dr := range rows {
			dr := dr
			row := buildRow(e.adoptID(dr.ID, false), e.columns, m, func(column string) (string, bool) {
				for _, c := range dr.Cells {
					if c.Column == column {
						return c.Value, true
					}
				}
				return "", false
			})
			row.AnswerID = dr.AnswerID
			m.Rows = append(m.Rows, row)
		}
		if len(m.Rows) == 0 {
			m.Rows = append(m.Rows, buildRow(e.newRowIDLocked(), e.columns, m, nil))
		}
		ordering.Renumber[models.EntityID](m.Rows)
		modules = append(modules, m)
	}
	ordering.Renumber[models.EntityID](modules)
	e.modules = modules
	e.ensureModuleLocked()
}

// ensureModuleLocked adds the default module when the hierarchy is empty.
func (e *Editor) ensureModuleLocked() {
	if len(e.modules) > 0 {
		return
	}
	e.modules = []*Module{e.newModuleLocked()}
}

func (e *Editor) newModuleLocked() *Module {
	m := &Module{
		ID:          e.newModuleIDLocked(),
		Kind:        models.SingleChoice,
		OptionCount: e.defaultOptionCount,
		PointWeight: models.DefaultPointWeight,
	}
	m.refreshIndicator()
	m.Rows = []*Row{buildRow(e.newRowIDLocked(), e.columns, m, nil)}
	return m
}

// adoptID keeps ids from a loaded document and makes sure later pending tokens never repeat
// one of them. A zero id gets a fresh pending token.
func (e *Editor) adoptID(id models.EntityID, module bool) models.EntityID {
	if id.IsZero() {
		if module {
			return e.newModuleIDLocked()
		}
		return e.newRowIDLocked()
	}
	if id.IsPending() {
		n, err := strconv.Atoi(strings.TrimPrefix(id.Token(), models.PendingPrefix))
		if err == nil {
			if module && n >= e.nextModuleToken {
				e.nextModuleToken = n + 1
			}
			if !module && n >= e.nextRowToken {
				e.nextRowToken = n + 1
			}
		}
	}
	return id
}

func (e *Editor) newModuleIDLocked() models.EntityID {
	id := models.Pending(strconv.Itoa(e.nextModuleToken))
	e.nextModuleToken++
	return id
}

func (e *Editor) newRowIDLocked() models.EntityID {
	id := models.Pending(strconv.Itoa(e.nextRowToken))
	e.nextRowToken++
	return id
}

// AddModule appends a single choice module holding one empty row.
func (e *Editor) AddModule(ctx context.Context) (models.EntityID, error) {
	e.mu.Lock()
	m := e.newModuleLocked()
	e.modules, _ = ordering.Insert(e.modules, m, ordering.End[models.EntityID]())
	id, rowID := m.ID, m.Rows[0].ID
	e.mu.Unlock()

	e.changed()
	if e.backend != nil {
		return e.createModule(ctx, id, rowID), nil
	}
	return id, nil
}

// AddRow inserts an empty row after the given row, or at the end of the module when after is
// the zero id.
func (e *Editor) AddRow(ctx context.Context, moduleID, after models.EntityID) (models.EntityID, error) {
	e.mu.Lock()
	m := e.moduleLocked(moduleID)
	if m == nil {
		e.mu.Unlock()
		return models.EntityID{}, apperrors.NewInvalidArgument("module_id", "unknown module "+moduleID.String())
	}
	anchor := ordering.End[models.EntityID]()
	if !after.IsZero() {
		if m.Row(after) == nil {
			e.mu.Unlock()
			return models.EntityID{}, apperrors.NewInvalidArgument("after", "row "+after.String()+" is not in module "+moduleID.String())
		}
		anchor = ordering.After(after)
	}
	row := buildRow(e.newRowIDLocked(), e.columns, m, nil)
	rows, err := ordering.Insert(m.Rows, row, anchor)
	if err != nil {
		e.mu.Unlock()
		return models.EntityID{}, apperrors.NewInvalidArgument("after", err.Error())
	}
	m.Rows = rows
	id := row.ID
	e.mu.Unlock()

	e.changed()
	if e.backend != nil {
		return e.createRow(ctx, id), nil
	}
	return id, nil
}

// DeleteRow removes a row. Deleting the only row of a module is silently ignored.
func (e *Editor) DeleteRow(ctx context.Context, rowID models.EntityID) error {
	e.mu.Lock()
	m, r := e.rowLocked(rowID)
	if r == nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("row_id", "unknown row "+rowID.String())
	}
	if len(m.Rows) <= 1 {
		e.mu.Unlock()
		return nil
	}
	m.Rows, _ = ordering.Remove(m.Rows, rowID)
	e.mu.Unlock()

	e.changed()
	if id, ok := rowID.Uint(); ok && e.backend != nil {
		e.call(ctx, "delete row", func() (bool, error) { return e.backend.DeleteRow(ctx, id) })
	}
	return nil
}

func (e *Editor) DeleteModule(ctx context.Context, moduleID models.EntityID) error {
	e.mu.Lock()
	if e.moduleLocked(moduleID) == nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("module_id", "unknown module "+moduleID.String())
	}
	e.modules, _ = ordering.Remove(e.modules, moduleID)
	e.mu.Unlock()

	e.changed()
	if id, ok := moduleID.Uint(); ok && e.backend != nil {
		e.call(ctx, "delete module", func() (bool, error) { return e.backend.DeleteModule(ctx, id) })
	}
	return nil
}

// MoveRow places a row after a sibling, or at the top when after is the zero id.
func (e *Editor) MoveRow(ctx context.Context, rowID, after models.EntityID) error {
	e.mu.Lock()
	m, r := e.rowLocked(rowID)
	if r == nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("row_id", "unknown row "+rowID.String())
	}
	anchor := ordering.Top[models.EntityID]()
	if !after.IsZero() {
		anchor = ordering.After(after)
	}
	rows, err := ordering.Move(m.Rows, rowID, anchor)
	if err != nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("after", "row "+after.String()+" is not a sibling of "+rowID.String())
	}
	m.Rows = rows
	e.mu.Unlock()

	e.changed()
	e.reorder(ctx, models.ReorderRow, rowID, after)
	return nil
}

// MoveModule places a module after another, or at the top when after is the zero id.
func (e *Editor) MoveModule(ctx context.Context, moduleID, after models.EntityID) error {
	e.mu.Lock()
	anchor := ordering.Top[models.EntityID]()
	if !after.IsZero() {
		anchor = ordering.After(after)
	}
	modules, err := ordering.Move(e.modules, moduleID, anchor)
	if err != nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("module_id", err.Error())
	}
	e.modules = modules
	e.mu.Unlock()

	e.changed()
	e.reorder(ctx, models.ReorderModule, moduleID, after)
	return nil
}

// EditCell sets one cell value. Options and answer cells of a row are kept consistent: a
// choice mirrors into the answer, and an answer naming a candidate selects it.
func (e *Editor) EditCell(rowID models.EntityID, column, value string) error {
	e.mu.Lock()
	m, r := e.rowLocked(rowID)
	if r == nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("row_id", "unknown row "+rowID.String())
	}
	if r.Cell(column) == nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("column", "unknown column "+column)
	}
	setCell(m, r, column, value)
	e.mu.Unlock()

	e.changed()
	return nil
}

func setCell(m *Module, r *Row, column, value string) {
	switch column {
	case models.ColumnOptions:
		selectValue(r.Cell(models.ColumnOptions), value)
		if answer := r.Cell(models.ColumnAnswer); answer != nil {
			answer.Value = value
		}
	case models.ColumnAnswer:
		r.Cell(models.ColumnAnswer).Value = value
		if m.Kind == models.SingleChoice {
			if opts := r.Cell(models.ColumnOptions); opts != nil {
				choice := strings.TrimSpace(value)
				if !contains(m.Candidates(), choice) {
					choice = ""
				}
				selectValue(opts, choice)
			}
		}
	default:
		r.Cell(column).Value = value
	}
}

func selectValue(cell *models.Cell, value string) {
	if cell == nil {
		return
	}
	cell.Value = value
	if cell.Kind != models.KindSelect {
		return
	}
	names := make([]string, len(cell.Options))
	for i, o := range cell.Options {
		names[i] = o.Name
	}
	cell.Options = models.SelectOptions(names, value)
}

func (e *Editor) RenameModule(moduleID models.EntityID, name string) error {
	return e.updateModule(moduleID, func(m *Module) error {
		m.Name = name
		return nil
	})
}

// ChangeModuleKind switches the answer kind. A non-positive optionCount keeps the current one.
func (e *Editor) ChangeModuleKind(moduleID models.EntityID, kind models.AnswerKind, optionCount int) error {
	if !kind.Valid() {
		return apperrors.NewInvalidArgument("answer_kind", "unknown answer kind "+kind.String())
	}
	return e.updateModule(moduleID, func(m *Module) error {
		m.Kind = kind
		if optionCount > 0 {
			m.OptionCount = optionCount
		}
		m.OptionCount = clampOptionCount(m.Kind, m.OptionCount)
		m.refreshIndicator()
		rebuildCells(m, e.columns)
		return nil
	})
}

// ChangeOptionCount adds delta options or letters. A result below one is ignored.
func (e *Editor) ChangeOptionCount(moduleID models.EntityID, delta int) error {
	return e.updateModule(moduleID, func(m *Module) error {
		next := clampOptionCount(m.Kind, m.OptionCount+delta)
		if m.OptionCount+delta < 1 || next == m.OptionCount {
			return errNoChange
		}
		m.OptionCount = next
		m.refreshIndicator()
		rebuildCells(m, e.columns)
		return nil
	})
}

func (e *Editor) SetPointWeight(moduleID models.EntityID, weight int) error {
	if weight < 1 {
		return apperrors.NewInvalidArgument("point_weight", "must be at least 1")
	}
	return e.updateModule(moduleID, func(m *Module) error {
		m.PointWeight = weight
		return nil
	})
}

func clampOptionCount(kind models.AnswerKind, n int) int {
	limit := maxOptionCount
	if kind == models.SingleChoice {
		limit = len(schema.Letters)
	}
	if n > limit {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

var errNoChange = errors.New("no change")

func (e *Editor) updateModule(moduleID models.EntityID, fn func(*Module) error) error {
	e.mu.Lock()
	m := e.moduleLocked(moduleID)
	if m == nil {
		e.mu.Unlock()
		return apperrors.NewInvalidArgument("module_id", "unknown module "+moduleID.String())
	}
	err := fn(m)
	e.mu.Unlock()
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	e.changed()
	return nil
}

// SaveNow cancels a pending autosave and saves immediately.
func (e *Editor) SaveNow(ctx context.Context) error {
	e.autosave.Cancel()
	return e.save(ctx)
}

// AutosavePending reports whether a debounced save is waiting for its quiet interval.
func (e *Editor) AutosavePending() bool {
	return e.autosave.Pending()
}

// Serialize returns the bulk save document. Text values longer than their column allows are
// truncated here only; live cells keep the full text.
func (e *Editor) Serialize() models.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.serializeLocked()
}

func (e *Editor) serializeLocked() models.Document {
	doc := make(models.Document, 0, len(e.modules))
	for _, m := range e.modules {
		dm := models.DocumentModule{
			ID:          m.ID,
			SortOrder:   m.SortOrder,
			Name:        m.Name,
			Kind:        m.Kind,
			OptionCount: m.OptionCount,
			PointWeight: m.PointWeight,
			Indicator:   m.Indicator,
			Rows:        make([]models.DocumentRow, 0, len(m.Rows)),
		}
		for _, r := range m.Rows {
			dr := models.DocumentRow{
				ID:        r.ID,
				SortOrder: r.SortOrder,
				AnswerID:  r.AnswerID,
				Cells:     make([]models.DocumentCell, 0, len(r.Cells)),
			}
			for _, c := range r.Cells {
				dr.Cells = append(dr.Cells, models.DocumentCell{Column: c.Column, Value: c.Truncated(), Kind: c.Kind})
			}
			dm.Rows = append(dm.Rows, dr)
		}
		doc = append(doc, dm)
	}
	return doc
}

// Modules returns a deep copy of the hierarchy.
func (e *Editor) Modules() []Module {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modulesLocked()
}

func (e *Editor) modulesLocked() []Module {
	out := make([]Module, len(e.modules))
	for i, m := range e.modules {
		out[i] = m.clone()
	}
	return out
}

func (e *Editor) Module(id models.EntityID) (Module, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m := e.moduleLocked(id); m != nil {
		return m.clone(), true
	}
	return Module{}, false
}

func (e *Editor) Columns() []models.Column {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneColumns(e.columns)
}

func cloneColumns(in []models.Column) []models.Column {
	out := make([]models.Column, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func (e *Editor) moduleLocked(id models.EntityID) *Module {
	for _, m := range e.modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (e *Editor) rowLocked(id models.EntityID) (*Module, *Row) {
	for _, m := range e.modules {
		if r := m.Row(id); r != nil {
			return m, r
		}
	}
	return nil, nil
}

// changed publishes the new state and, with a backend, restarts the autosave interval.
func (e *Editor) changed() {
	e.mu.Lock()
	if e.saving {
		e.dirty = true
	}
	e.mu.Unlock()

	e.publish()
	if e.backend != nil {
		e.autosave.Trigger()
	}
}

func (e *Editor) publish() {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	e.mu.Lock()
	modules := e.modulesLocked()
	columns := cloneColumns(e.columns)
	doc := e.serializeLocked()
	e.mu.Unlock()

	raw, err := json.Marshal(doc)
	if err != nil {
		e.logger.Error("failed to encode answersheet document", "error", err)
	}
	e.store.Set(KeyColumns, columns)
	e.store.Set(KeyModules, modules)
	e.store.Set(KeyDocument, string(raw))
}

// reconcileLocked swaps ids for the ids the server assigned. Assignments are keyed by pending
// token, or by the old id for persisted entities the server had to recreate. Assignments for
// entities that no longer exist are ignored.
func (e *Editor) reconcileLocked(a models.IDAssignments) int {
	replaced := 0
	for _, m := range e.modules {
		if !m.ID.IsZero() {
			if id, ok := a.Modules[m.ID.String()]; ok && id != 0 && m.ID != models.Persisted(id) {
				e.replaced["module:"+m.ID.String()] = models.Persisted(id)
				m.ID = models.Persisted(id)
				replaced++
			}
		}
		for _, r := range m.Rows {
			if r.ID.IsZero() {
				continue
			}
			if id, ok := a.Rows[r.ID.String()]; ok && id != 0 && r.ID != models.Persisted(id) {
				e.replaced["row:"+r.ID.String()] = models.Persisted(id)
				r.ID = models.Persisted(id)
				replaced++
			}
		}
	}
	return replaced
}

func (e *Editor) reconcile(a models.IDAssignments) {
	if a.Empty() {
		return
	}
	e.mu.Lock()
	replaced := e.reconcileLocked(a)
	e.mu.Unlock()
	if replaced > 0 {
		e.publish()
	}
}

// createModule stores a pending module and returns its id after reconciliation.
func (e *Editor) createModule(ctx context.Context, moduleID, rowID models.EntityID) models.EntityID {
	e.io.Lock()
	defer e.io.Unlock()

	e.mu.Lock()
	m := e.moduleLocked(moduleID)
	if m == nil {
		// deleted, or already created by a bulk save
		e.mu.Unlock()
		return e.assigned("module", moduleID)
	}
	fields := models.ModuleFields{
		QuestionID:  e.questionID,
		Name:        m.Name,
		Kind:        m.Kind,
		OptionCount: m.OptionCount,
		PointWeight: m.PointWeight,
	}
	e.mu.Unlock()

	created, err := e.backend.CreateModule(ctx, fields)
	if err != nil {
		e.fail(ctx, "create module", err)
		return moduleID
	}
	a := models.NewIDAssignments()
	a.Modules[moduleID.Token()] = created.ID
	if len(created.Rows) > 0 {
		a.Rows[rowID.Token()] = created.Rows[0].ID
	}
	e.reconcile(a)
	return e.assigned("module", moduleID)
}

// createRow stores a pending row and returns its id after reconciliation.
func (e *Editor) createRow(ctx context.Context, rowID models.EntityID) models.EntityID {
	e.io.Lock()
	defer e.io.Unlock()

	e.mu.Lock()
	m, r := e.rowLocked(rowID)
	if r == nil {
		e.mu.Unlock()
		return e.assigned("row", rowID)
	}
	moduleDBID, ok := m.ID.Uint()
	if !ok {
		// the module itself is not stored yet; the bulk save creates both
		e.mu.Unlock()
		return rowID
	}
	var afterDBID uint
	if idx := ordering.IndexOf(m.Rows, rowID); idx > 0 {
		if afterDBID, ok = m.Rows[idx-1].ID.Uint(); !ok {
			e.mu.Unlock()
			return rowID
		}
	}
	e.mu.Unlock()

	id, err := e.backend.CreateRow(ctx, moduleDBID, afterDBID)
	if err != nil {
		e.fail(ctx, "create row", err)
		return rowID
	}
	a := models.NewIDAssignments()
	a.Rows[rowID.Token()] = id
	e.reconcile(a)
	return e.assigned("row", rowID)
}

// assigned returns the persisted id that replaced a pending one, or the pending id itself.
func (e *Editor) assigned(kind string, pending models.EntityID) models.EntityID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.replaced[kind+":"+pending.Token()]; ok {
		return id
	}
	return pending
}

func (e *Editor) reorder(ctx context.Context, kind models.ReorderKind, id, after models.EntityID) {
	if e.backend == nil {
		return
	}
	entityID, ok := id.Uint()
	if !ok {
		return
	}
	var afterID uint
	if !after.IsZero() {
		if afterID, ok = after.Uint(); !ok {
			return
		}
	}
	e.call(ctx, "reorder "+string(kind), func() (bool, error) {
		return e.backend.Reorder(ctx, kind, entityID, afterID)
	})
}

// call runs a boolean backend operation and reports failures.
func (e *Editor) call(ctx context.Context, operation string, fn func() (bool, error)) {
	e.io.Lock()
	ok, err := fn()
	e.io.Unlock()
	if err != nil {
		e.fail(ctx, operation, err)
		return
	}
	if !ok {
		e.logger.WarnContext(ctx, "backend declined operation", "operation", operation)
	}
}

// save sends the whole document. Only one save runs at a time; a save requested while one is
// in flight is folded into a single follow-up save that starts when the current one finishes.
func (e *Editor) save(ctx context.Context) error {
	if e.backend == nil {
		e.publish()
		return nil
	}

	e.mu.Lock()
	if e.saving {
		e.dirty = true
		e.mu.Unlock()
		return nil
	}
	e.saving = true
	e.mu.Unlock()

	e.io.Lock()
	defer e.io.Unlock()

	for {
		e.mu.Lock()
		e.dirty = false
		doc := e.serializeLocked()
		e.mu.Unlock()

		assignments, err := e.backend.SaveHierarchy(ctx, e.questionID, doc)
		if err != nil {
			e.fail(ctx, "save", err)
		} else {
			e.reconcile(assignments)
			e.logger.DebugContext(ctx, "answersheet saved", "modules", len(doc), "rows", doc.RowCount())
		}

		e.mu.Lock()
		if !e.dirty {
			e.saving = false
			e.mu.Unlock()
			return err
		}
		e.mu.Unlock()
		e.autosave.Cancel()
	}
}

func (e *Editor) fail(ctx context.Context, operation string, err error) {
	e.logger.ErrorContext(ctx, "answersheet persistence failed", "operation", operation, "error", err)
	e.notifier.Notify(ctx, Notice{
		Operation: operation,
		Message:   "Could not " + operation + ": " + err.Error(),
		Err:       err,
		At:        time.Now(),
	})
}
