package services

import "log/slog"

// ServiceManager hands every grading service to the transport layer
type ServiceManager interface {
	Assignment() AssignmentService
	Unit() UnitService
	Activity() ActivityService
	Grade() GradeService
	Closure() ClosureService
	Reopen() ReopenService
	Export() ExportService
	Audit() AuditService
}

type serviceManager struct {
	assignment AssignmentService
	unit       UnitService
	activity   ActivityService
	grade      GradeService
	closure    ClosureService
	reopen     ReopenService
	export     ExportService
	audit      AuditService
}

// NewServiceManager builds all services over one set of dependencies. When
// deps.Audit is nil the services share a single database-backed audit sink.
func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	base := newServiceBase(deps, "manager")
	deps.Validator = base.validator
	deps.Cache = base.cache
	deps.Publisher = base.publisher
	deps.Audit = base.audit

	audit, ok := base.audit.(AuditService)
	if !ok {
		audit = NewAuditService(deps.Repo, deps.Logger)
	}

	return &serviceManager{
		assignment: NewAssignmentService(deps),
		unit:       NewUnitService(deps),
		activity:   NewActivityService(deps),
		grade:      NewGradeService(deps),
		closure:    NewClosureService(deps),
		reopen:     NewReopenService(deps),
		export:     NewExportService(deps),
		audit:      audit,
	}
}

func (m *serviceManager) Assignment() AssignmentService { return m.assignment }
func (m *serviceManager) Unit() UnitService             { return m.unit }
func (m *serviceManager) Activity() ActivityService     { return m.activity }
func (m *serviceManager) Grade() GradeService           { return m.grade }
func (m *serviceManager) Closure() ClosureService       { return m.closure }
func (m *serviceManager) Reopen() ReopenService         { return m.reopen }
func (m *serviceManager) Export() ExportService         { return m.export }
func (m *serviceManager) Audit() AuditService           { return m.audit }
