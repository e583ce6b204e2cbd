package models

// All lists every model managed by the service, in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Enrollment{},
		&CourseAssignment{},
		&Unit{},
		&Activity{},
		&Grade{},
		&UnitFinalGrade{},
		&ReopenRequest{},
		&AuditLog{},
	}
}
