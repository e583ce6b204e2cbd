package cache

import "fmt"

const keyPrefix = "grading"

// ClosureStatsKey is where the closure validation result of a unit is cached
// for one version of the unit's data.
func ClosureStatsKey(unitID uint, version int64) string {
	return fmt.Sprintf("%s:unit:%d:closure:v%d", keyPrefix, unitID, version)
}

// UnitPattern matches every cached entry of a unit
func UnitPattern(unitID uint) string {
	return fmt.Sprintf("%s:unit:%d:*", keyPrefix, unitID)
}

// UnitVersionKey holds the counter bumped on every change to a unit's grading
// data. It lives outside UnitPattern so pattern deletes never reset it.
func UnitVersionKey(unitID uint) string {
	return fmt.Sprintf("%s:version:unit:%d", keyPrefix, unitID)
}
