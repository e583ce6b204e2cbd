package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colegio-digital/grading-service/internal/cache"
	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"github.com/colegio-digital/grading-service/internal/validator"
	"gorm.io/gorm"
)

// Settings are the grading rules that vary per deployment
type Settings struct {
	DefaultZonaWeight      int
	EnforceZonaBeforeFinal bool
	ClosureCacheTTL        time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		DefaultZonaWeight: 60,
		ClosureCacheTTL:   5 * time.Minute,
	}
}

// Dependencies are the collaborators handed to every service constructor
type Dependencies struct {
	Repo      repositories.Repository
	Validator *validator.Validator
	Cache     cache.CacheService
	Publisher events.EventPublisher
	Audit     AuditSink
	Logger    *slog.Logger
	Settings  Settings
}

func newServiceBase(deps Dependencies, component string) *serviceBase {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewMockEventPublisher(deps.Logger)
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopCache()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Audit == nil {
		deps.Audit = NewAuditService(deps.Repo, deps.Logger)
	}
	return &serviceBase{
		repo:      deps.Repo,
		validator: deps.Validator,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		audit:     deps.Audit,
		log:       NewServiceLogger(deps.Logger, LogConfig{Service: "grading-service", Component: component}),
		settings:  deps.Settings,
	}
}

// serviceBase holds the collaborators every grading service shares
type serviceBase struct {
	repo      repositories.Repository
	validator *validator.Validator
	cache     cache.CacheService
	publisher events.EventPublisher
	audit     AuditSink
	log       *ServiceLogger
	settings  Settings
}

// ===== LOADERS =====

// loadUnit reads a unit with its assignment; a soft-deleted assignment hides the unit
func (b *serviceBase) loadUnit(ctx context.Context, tx *gorm.DB, unitID uint) (*models.Unit, error) {
	unit, err := b.repo.Unit().GetByIDWithAssignment(ctx, tx, unitID)
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound)
	}
	return unit, nil
}

// lockUnit takes the row lock on a unit and attaches its assignment
func (b *serviceBase) lockUnit(ctx context.Context, tx *gorm.DB, unitID uint) (*models.Unit, error) {
	unit, err := b.repo.Unit().LockByID(ctx, tx, unitID)
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound)
	}
	assignment, err := b.repo.Assignment().GetByID(ctx, tx, unit.AssignmentID)
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound)
	}
	unit.Assignment = assignment
	return unit, nil
}

func (b *serviceBase) loadActivity(ctx context.Context, tx *gorm.DB, activityID uint) (*models.Activity, error) {
	activity, err := b.repo.Activity().GetByID(ctx, tx, activityID)
	if err != nil {
		return nil, notFound(err, ErrActivityNotFound)
	}
	return activity, nil
}

// unitActivities returns every activity of a unit by value, as the weight validator expects
func (b *serviceBase) unitActivities(ctx context.Context, tx *gorm.DB, unitID uint) ([]models.Activity, error) {
	list, err := b.repo.Activity().ListByUnit(ctx, tx, unitID, repositories.ActivityFilters{})
	if err != nil {
		return nil, err
	}
	activities := make([]models.Activity, 0, len(list))
	for _, a := range list {
		activities = append(activities, *a)
	}
	return activities, nil
}

// ===== AFTER-COMMIT SIDE EFFECTS =====
// None of these can fail the operation that triggered them.

// invalidateUnit bumps the unit's cache version first, so a closure result
// computed before the change and written late lands under a key nobody
// reads. Older entries are then dropped.
func (b *serviceBase) invalidateUnit(ctx context.Context, unitIDs ...uint) {
	for _, id := range unitIDs {
		if _, err := b.cache.Incr(ctx, cache.UnitVersionKey(id)); err != nil {
			b.log.Logger().WarnContext(ctx, "failed to bump unit cache version", "unit_id", id, "error", err)
		}
		if err := b.cache.DeletePattern(ctx, cache.UnitPattern(id)); err != nil {
			b.log.Logger().WarnContext(ctx, "failed to invalidate unit cache", "unit_id", id, "error", err)
		}
	}
}

// unitCacheVersion reads the unit's cache version; a missing counter is 0
func (b *serviceBase) unitCacheVersion(ctx context.Context, unitID uint) int64 {
	var version int64
	if err := b.cache.Get(ctx, cache.UnitVersionKey(unitID), &version); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			b.log.Logger().WarnContext(ctx, "failed to read unit cache version", "unit_id", unitID, "error", err)
		}
		return 0
	}
	return version
}

func (b *serviceBase) recordAudit(ctx context.Context, entry *AuditEntry) {
	if err := b.audit.RecordEntry(ctx, entry); err != nil {
		b.log.Logger().ErrorContext(ctx, "failed to record audit entry",
			"action", entry.Action,
			"actor_id", entry.ActorID,
			"error", err)
	}
}

func (b *serviceBase) publish(ctx context.Context, eventType events.EventType, actorID uint, data interface{}) {
	event := events.NewLifecycleEvent(eventType, actorID, data)
	if requestID, ok := RequestIDFrom(ctx); ok {
		event.Metadata = map[string]interface{}{"request_id": requestID}
	}
	if err := b.publisher.PublishLifecycleEvent(ctx, event); err != nil {
		b.log.Logger().WarnContext(ctx, "failed to publish lifecycle event",
			"event_type", eventType,
			"event_id", event.ID,
			"error", err)
	}
}
