package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/SAP-F-2025/answersheet-service/internal/cache"
	"github.com/SAP-F-2025/answersheet-service/internal/events"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/ordering"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type answersheetService struct {
	repo      repositories.AnswersheetRepository
	cache     cache.HierarchyCache
	publisher events.EventPublisher
	logger    *slog.Logger
	svcLogger *ServiceLogger
	validator *validator.Validator

	defaultOptionCount int
	loads              singleflight.Group

	// generations counts invalidations per question. A cache fill only lands when no write
	// invalidated the question since its database read began.
	genMu       sync.Mutex
	generations map[uint]uint64
}

// AnswersheetConfig carries the optional collaborators of the answer sheet service.
type AnswersheetConfig struct {
	Cache              cache.HierarchyCache
	Publisher          events.EventPublisher
	DefaultOptionCount int
}

func NewAnswersheetService(repo repositories.AnswersheetRepository, logger *slog.Logger, v *validator.Validator, cfg AnswersheetConfig) AnswersheetService {
	if v == nil {
		v = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NoopCache{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewMockEventPublisher(logger)
	}
	if cfg.DefaultOptionCount <= 0 {
		cfg.DefaultOptionCount = models.DefaultOptionCount
	}
	return &answersheetService{
		repo:               repo,
		cache:              cfg.Cache,
		publisher:          cfg.Publisher,
		logger:             logger,
		svcLogger:          NewServiceLogger(logger, LogConfig{Service: "answersheet-service", Component: "answersheet"}),
		validator:          v,
		defaultOptionCount: cfg.DefaultOptionCount,
		generations:        make(map[uint]uint64),
	}
}

// ===== READS =====

func (s *answersheetService) GetColumns(ctx context.Context) []models.Column {
	return schema.Columns()
}

func (s *answersheetService) GetData(ctx context.Context, questionID uint) (models.Document, error) {
	if questionID == 0 {
		return nil, ErrQuestionNotFound
	}

	doc, ok, err := s.cache.GetHierarchy(ctx, questionID)
	if err != nil {
		s.logger.Warn("Answer sheet cache read failed", "question_id", questionID, "error", err)
	} else if ok {
		return doc, nil
	}

	// concurrent misses for one question share a single database read
	v, err, _ := s.loads.Do(loadKey(questionID), func() (interface{}, error) {
		gen := s.generation(questionID)
		modules, err := s.repo.ListModules(ctx, nil, questionID)
		if err != nil {
			return nil, fmt.Errorf("failed to list modules: %w", err)
		}
		doc := toDocument(modules)
		s.fillCache(ctx, questionID, gen, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(models.Document).Clone(), nil
}

func (s *answersheetService) ListModules(ctx context.Context, questionID uint) ([]*models.Module, error) {
	modules, err := s.repo.ListModules(ctx, nil, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

// ===== BULK SAVE =====

// SetData makes the stored answer sheet equal to doc. Modules and rows are numbered by their
// position in doc. Stored entities missing from doc are deleted.
func (s *answersheetService) SetData(ctx context.Context, questionID uint, doc models.Document) (assigned models.IDAssignments, err error) {
	op := s.svcLogger.WithOperation(ctx, "set_data", questionID)
	defer func() { op.LogResult(questionID, "answersheet", err) }()

	if questionID == 0 {
		return models.IDAssignments{}, ErrQuestionNotFound
	}
	if err := s.validator.ValidateDocument(doc); err != nil {
		if ve := validator.ToValidationErrors(err); len(ve) > 0 {
			return models.IDAssignments{}, ve
		}
		return models.IDAssignments{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	assigned = models.NewIDAssignments()
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.repo.ListModules(ctx, tx, questionID)
		if err != nil {
			return fmt.Errorf("failed to list modules: %w", err)
		}
		modules := make(map[uint]*models.Module, len(existing))
		rowOwner := map[uint]uint{}
		for _, m := range existing {
			modules[m.ID] = m
			for _, r := range m.Rows {
				rowOwner[r.ID] = m.ID
			}
		}

		keepModules := make([]uint, 0, len(doc))
		keepRows := make(map[uint][]uint, len(doc))
		for i, dm := range doc {
			mod, err := s.saveModule(ctx, tx, questionID, i, dm, modules, assigned)
			if err != nil {
				return err
			}
			keepModules = append(keepModules, mod.ID)

			kept := make([]uint, 0, len(dm.Rows))
			for j, dr := range dm.Rows {
				row := &models.AnswerRow{ModuleID: mod.ID, SortOrder: j}
				fillRow(row, dr, mod.Kind, mod.OptionCount)
				if id, ok := dr.ID.Uint(); ok && rowOwner[id] != 0 {
					row.ID = id
					if err := s.repo.UpdateRow(ctx, tx, row); err != nil {
						return fmt.Errorf("failed to update row %d: %w", id, err)
					}
				} else {
					if err := s.repo.CreateRow(ctx, tx, row); err != nil {
						return fmt.Errorf("failed to create row: %w", err)
					}
					if !dr.ID.IsZero() {
						assigned.Rows[dr.ID.String()] = row.ID
					}
				}
				kept = append(kept, row.ID)
			}
			keepRows[mod.ID] = kept
		}

		// rows may have moved between modules, so deletions wait until every row is saved
		for moduleID, kept := range keepRows {
			if err := s.repo.DeleteRowsExcept(ctx, tx, moduleID, kept); err != nil {
				return err
			}
		}
		return s.repo.DeleteModulesExcept(ctx, tx, questionID, keepModules)
	})
	if err != nil {
		return models.IDAssignments{}, fmt.Errorf("failed to save answer sheet: %w", err)
	}

	s.invalidate(ctx, questionID)
	s.publish(ctx, events.NewHierarchySavedEvent(questionID, doc, assigned))
	return assigned, nil
}

func (s *answersheetService) saveModule(ctx context.Context, tx *gorm.DB, questionID uint, order int, dm models.DocumentModule, existing map[uint]*models.Module, assigned models.IDAssignments) (*models.Module, error) {
	weight := dm.PointWeight
	if weight <= 0 {
		weight = models.DefaultPointWeight
	}
	if id, ok := dm.ID.Uint(); ok {
		if mod, found := existing[id]; found {
			mod.SortOrder = order
			mod.Name = dm.Name
			mod.Kind = dm.Kind
			mod.OptionCount = dm.OptionCount
			mod.PointWeight = weight
			if err := s.repo.UpdateModule(ctx, tx, mod); err != nil {
				return nil, fmt.Errorf("failed to update module %d: %w", id, err)
			}
			return mod, nil
		}
	}

	mod := &models.Module{
		QuestionID:  questionID,
		SortOrder:   order,
		Name:        dm.Name,
		Kind:        dm.Kind,
		OptionCount: dm.OptionCount,
		PointWeight: weight,
	}
	if err := s.repo.CreateModule(ctx, tx, mod); err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	if !dm.ID.IsZero() {
		assigned.Modules[dm.ID.String()] = mod.ID
	}
	return mod, nil
}

// ===== MODULES =====

func (s *answersheetService) CreateModule(ctx context.Context, fields models.ModuleFields) (module *models.Module, err error) {
	op := s.svcLogger.WithOperation(ctx, "create_module", fields.QuestionID)
	defer func() {
		var id uint
		if module != nil {
			id = module.ID
		}
		op.LogResult(id, "module", err)
	}()

	if err := s.validator.ValidateStruct(fields); err != nil {
		return nil, validator.ToValidationErrors(err)
	}
	if fields.Kind == 0 {
		fields.Kind = models.SingleChoice
	}
	if fields.OptionCount == 0 {
		fields.OptionCount = s.defaultOptionCount
	}
	if fields.PointWeight == 0 {
		fields.PointWeight = models.DefaultPointWeight
	}
	if err := s.validator.Document().ValidateOptionCount(fields.Kind, fields.OptionCount); err != nil {
		if errors.Is(err, validator.ErrOptionLimit) {
			return nil, NewBusinessRuleError("option_limit", err.Error(), map[string]interface{}{
				"answer_kind":  fields.Kind.String(),
				"option_count": fields.OptionCount,
				"max":          validator.MaxOptionCount(fields.Kind),
			})
		}
		return nil, ValidationErrors{*NewValidationError("option_count", err.Error(), fields.OptionCount)}
	}

	module = &models.Module{
		QuestionID:  fields.QuestionID,
		Name:        fields.Name,
		Kind:        fields.Kind,
		OptionCount: fields.OptionCount,
		PointWeight: fields.PointWeight,
		Rows:        []models.AnswerRow{defaultRow(fields.Kind, fields.OptionCount)},
	}
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		next, err := s.repo.GetNextModuleOrder(ctx, tx, fields.QuestionID)
		if err != nil {
			return err
		}
		module.SortOrder = next
		return s.repo.CreateModule(ctx, tx, module)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}

	s.invalidate(ctx, fields.QuestionID)
	s.publish(ctx, events.NewModuleCreatedEvent(fields.QuestionID, module))
	return module, nil
}

func (s *answersheetService) DeleteModule(ctx context.Context, questionID, moduleID uint) (deleted bool, err error) {
	op := s.svcLogger.WithOperation(ctx, "delete_module", questionID)
	defer func() { op.LogResult(moduleID, "module", err) }()

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.moduleOf(ctx, tx, questionID, moduleID); err != nil {
			return err
		}
		if err := s.repo.DeleteModule(ctx, tx, moduleID); err != nil {
			return notFound(err, ErrModuleNotFound, moduleID)
		}
		remaining, err := s.repo.ListModules(ctx, tx, questionID)
		if err != nil {
			return err
		}
		return s.repo.UpdateModuleOrders(ctx, tx, questionID, renumbered(remaining))
	})
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, questionID)
	s.publish(ctx, events.NewModuleDeletedEvent(questionID, moduleID))
	return true, nil
}

// ===== ROWS =====

func (s *answersheetService) CreateRow(ctx context.Context, questionID, moduleID, prevRowID uint) (row *models.AnswerRow, err error) {
	op := s.svcLogger.WithOperation(ctx, "create_row", questionID)
	defer func() {
		var id uint
		if row != nil {
			id = row.ID
		}
		op.LogResult(id, "row", err)
	}()

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		module, err := s.moduleOf(ctx, tx, questionID, moduleID)
		if err != nil {
			return err
		}
		rows := rowPointers(module.Rows)
		before := orders(rows)

		anchor := ordering.End[uint]()
		if prevRowID != 0 {
			anchor = ordering.After(prevRowID)
		}
		created := defaultRow(module.Kind, module.OptionCount)
		created.ModuleID = module.ID
		rows, err = ordering.Insert(rows, &created, anchor)
		if err != nil {
			return fmt.Errorf("%w: %d is not in module %d", ErrRowNotFound, prevRowID, moduleID)
		}

		if err := s.repo.UpdateRowOrders(ctx, tx, module.ID, changedOrders(rows, before)); err != nil {
			return err
		}
		if err := s.repo.CreateRow(ctx, tx, &created); err != nil {
			return err
		}
		row = &created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, questionID)
	s.publish(ctx, events.NewRowCreatedEvent(questionID, row))
	return row, nil
}

func (s *answersheetService) DeleteRow(ctx context.Context, questionID, rowID uint) (deleted bool, err error) {
	op := s.svcLogger.WithOperation(ctx, "delete_row", questionID)
	defer func() { op.LogResult(rowID, "row", err) }()

	var moduleID uint
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		row, err := s.repo.GetRow(ctx, tx, rowID)
		if err != nil {
			return notFound(err, ErrRowNotFound, rowID)
		}
		module, err := s.moduleOf(ctx, tx, questionID, row.ModuleID)
		if err != nil {
			return fmt.Errorf("%w: %d", ErrRowNotFound, rowID)
		}
		moduleID = module.ID
		if len(module.Rows) <= 1 {
			return ErrLastRow
		}
		if err := s.repo.DeleteRow(ctx, tx, rowID); err != nil {
			return notFound(err, ErrRowNotFound, rowID)
		}
		remaining, _ := ordering.Remove(rowPointers(module.Rows), rowID)
		return s.repo.UpdateRowOrders(ctx, tx, module.ID, orderList(remaining))
	})
	if errors.Is(err, ErrLastRow) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, questionID)
	s.publish(ctx, events.NewRowDeletedEvent(questionID, moduleID, rowID))
	return true, nil
}

// ===== ORDERING =====

func (s *answersheetService) UpdateSortOrder(ctx context.Context, questionID uint, kind models.ReorderKind, id, prevID uint) (moved bool, err error) {
	op := s.svcLogger.WithOperation(ctx, "update_sort_order", questionID)
	defer func() { op.LogResult(id, string(kind), err) }()

	if !kind.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidReorderKind, kind)
	}
	anchor := ordering.Top[uint]()
	if prevID != 0 {
		anchor = ordering.After(prevID)
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if kind == models.ReorderModule {
			modules, err := s.repo.ListModules(ctx, tx, questionID)
			if err != nil {
				return err
			}
			before := orders(modules)
			out, err := ordering.Move(modules, id, anchor)
			if err != nil {
				return s.moveError(err, ErrModuleNotFound, id, prevID)
			}
			return s.repo.UpdateModuleOrders(ctx, tx, questionID, changedOrders(out, before))
		}

		row, err := s.repo.GetRow(ctx, tx, id)
		if err != nil {
			return notFound(err, ErrRowNotFound, id)
		}
		module, err := s.moduleOf(ctx, tx, questionID, row.ModuleID)
		if err != nil {
			return fmt.Errorf("%w: %d", ErrRowNotFound, id)
		}
		rows := rowPointers(module.Rows)
		before := orders(rows)
		out, err := ordering.Move(rows, id, anchor)
		if err != nil {
			return s.moveError(err, ErrRowNotFound, id, prevID)
		}
		return s.repo.UpdateRowOrders(ctx, tx, module.ID, changedOrders(out, before))
	})
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, questionID)
	s.publish(ctx, events.NewSortOrderUpdatedEvent(questionID, kind, id, prevID))
	return true, nil
}

func (s *answersheetService) moveError(err, sentinel error, id, prevID uint) error {
	if errors.Is(err, ordering.ErrUnknownAnchor) {
		return fmt.Errorf("%w: %d", sentinel, prevID)
	}
	return fmt.Errorf("%w: %d", sentinel, id)
}

// ===== HELPERS =====

// moduleOf loads a module and checks it belongs to the question.
func (s *answersheetService) moduleOf(ctx context.Context, tx *gorm.DB, questionID, moduleID uint) (*models.Module, error) {
	module, err := s.repo.GetModule(ctx, tx, moduleID)
	if err != nil {
		return nil, notFound(err, ErrModuleNotFound, moduleID)
	}
	if questionID != 0 && module.QuestionID != questionID {
		return nil, fmt.Errorf("%w: %d", ErrModuleNotFound, moduleID)
	}
	return module, nil
}

func loadKey(questionID uint) string {
	return strconv.FormatUint(uint64(questionID), 10)
}

func (s *answersheetService) generation(questionID uint) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[questionID]
}

// fillCache stores doc unless the question was invalidated after gen was taken. The check and
// the write happen under genMu so an invalidation either precedes the check or deletes the
// entry afterwards.
func (s *answersheetService) fillCache(ctx context.Context, questionID uint, gen uint64, doc models.Document) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[questionID] != gen {
		s.logger.Debug("Skipping stale answer sheet cache fill", "question_id", questionID)
		return
	}
	if err := s.cache.SetHierarchy(ctx, questionID, doc); err != nil {
		s.logger.Warn("Answer sheet cache write failed", "question_id", questionID, "error", err)
	}
}

func (s *answersheetService) invalidate(ctx context.Context, questionID uint) {
	s.genMu.Lock()
	s.generations[questionID]++
	s.genMu.Unlock()
	s.loads.Forget(loadKey(questionID))

	if err := s.cache.Invalidate(ctx, questionID); err != nil {
		s.logger.Warn("Answer sheet cache invalidation failed", "question_id", questionID, "error", err)
	}
}

// publish never fails the operation: the change is already committed.
func (s *answersheetService) publish(ctx context.Context, event *events.AnswersheetEvent) {
	if err := s.publisher.PublishAnswersheetEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish answersheet event", "event_type", event.Type, "question_id", event.QuestionID, "error", err)
	}
}

func rowPointers(rows []models.AnswerRow) []*models.AnswerRow {
	out := make([]*models.AnswerRow, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func orders[T ordering.Item[uint]](items []T) map[uint]int {
	out := make(map[uint]int, len(items))
	for _, it := range items {
		out[it.OrderKey()] = it.CurrentOrder()
	}
	return out
}

// changedOrders lists persisted items whose sort order differs from before.
func changedOrders[T ordering.Item[uint]](items []T, before map[uint]int) []repositories.EntityOrder {
	var out []repositories.EntityOrder
	for _, it := range items {
		old, ok := before[it.OrderKey()]
		if ok && old != it.CurrentOrder() {
			out = append(out, repositories.EntityOrder{ID: it.OrderKey(), SortOrder: it.CurrentOrder()})
		}
	}
	return out
}

func orderList[T ordering.Item[uint]](items []T) []repositories.EntityOrder {
	out := make([]repositories.EntityOrder, len(items))
	for i, it := range items {
		out[i] = repositories.EntityOrder{ID: it.OrderKey(), SortOrder: it.CurrentOrder()}
	}
	return out
}

// renumbered closes gaps left by a deletion.
func renumbered(modules []*models.Module) []repositories.EntityOrder {
	before := orders(modules)
	ordering.Renumber[uint](modules)
	return changedOrders(modules, before)
}
