package services

import (
	"github.com/colegio-digital/grading-service/internal/models"
)

// Capability is one action a role may be granted
type Capability string

const (
	CapViewAssignments   Capability = "assignments.view"
	CapManageAssignments Capability = "assignments.manage"
	CapActivateUnit      Capability = "units.activate"
	CapCloseUnit         Capability = "units.close"
	CapAdvanceUnit       Capability = "units.close_and_open_next"
	CapConfigureWeights  Capability = "units.weights"
	CapManageActivities  Capability = "activities.manage"
	CapRecordGrades      Capability = "grades.record"
	CapViewGrades        Capability = "grades.view"
	CapExportGrades      Capability = "grades.export"
	CapRequestReopen     Capability = "reopen.request"
	CapResolveReopen     Capability = "reopen.resolve"
)

var staffCapabilities = []Capability{
	CapViewAssignments, CapManageAssignments,
	CapActivateUnit, CapCloseUnit, CapAdvanceUnit, CapConfigureWeights,
	CapManageActivities, CapRecordGrades, CapViewGrades, CapExportGrades,
	CapResolveReopen,
}

var roleCapabilities = map[models.UserRole]map[Capability]bool{
	models.RoleAdmin:    capabilitySet(staffCapabilities...),
	models.RoleOperator: capabilitySet(staffCapabilities...),
	models.RoleTeacher: capabilitySet(
		CapViewAssignments, CapAdvanceUnit, CapConfigureWeights,
		CapManageActivities, CapRecordGrades, CapViewGrades, CapExportGrades,
		CapRequestReopen,
	),
	// parents and students see grades through other channels
	models.RoleParent:  capabilitySet(),
	models.RoleStudent: capabilitySet(),
}

func capabilitySet(caps ...Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Can reports whether the actor's role grants capability
func Can(actor models.Actor, capability Capability) bool {
	return roleCapabilities[actor.Role][capability]
}

// authorize is consulted by every service operation before it touches state
func authorize(actor models.Actor, capability Capability, resource string, resourceID uint) error {
	if actor.ID == 0 {
		return ErrUnauthenticated
	}
	if !Can(actor, capability) {
		return NewPermissionError(actor.ID, resourceID, resource, string(capability),
			"role "+actor.Role.String()+" lacks this capability")
	}
	return nil
}

// authorizeAssignment additionally requires teachers to own the assignment
func authorizeAssignment(actor models.Actor, capability Capability, assignment *models.CourseAssignment) error {
	if err := authorize(actor, capability, "assignment", assignment.ID); err != nil {
		return err
	}
	if actor.IsTeacher() && assignment.TeacherID != actor.ID {
		return NewPermissionError(actor.ID, assignment.ID, "assignment", string(capability),
			"assignment belongs to another teacher")
	}
	return nil
}

// authorizeUnitEdit is the unit lock rule for teachers: the unit must be open
// and either the active one or reopened by an approved request. A reopened
// unit stays editable after another unit becomes active, until it is closed
// again. Staff bypass it.
func authorizeUnitEdit(actor models.Actor, capability Capability, unit *models.Unit) error {
	if unit.Assignment == nil {
		return ErrAssignmentNotFound
	}
	if err := authorizeAssignment(actor, capability, unit.Assignment); err != nil {
		return err
	}
	if actor.IsStaff() {
		return nil
	}
	if unit.IsClosed() {
		return ErrUnitClosed
	}
	if !unit.IsActive && !unit.IsReopened() {
		return NewPermissionError(actor.ID, unit.ID, "unit", string(capability), ErrUnitNotActive.Error())
	}
	return nil
}
