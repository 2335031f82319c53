// Package authz decides whether a caller's role satisfies a route's
// minimum role using a fixed, process-wide role hierarchy.
package authz

// Role is a caller role carried in token claims.
type Role string

// Known roles, ordered admin > teacher > parent > student.
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
	RoleStudent Role = "student"
)

// Numeric levels for the role hierarchy. Unknown roles map to
// unknownCallerLevel; an unrecognized minimum role maps to
// failClosedLevel, above every real role, so that no caller passes.
const (
	unknownCallerLevel = 0
	failClosedLevel    = 5
)

// roleLevels is the total order over known roles. Static and immutable
// for the process lifetime.
var roleLevels = map[Role]int{
	RoleStudent: 1,
	RoleParent:  2,
	RoleTeacher: 3,
	RoleAdmin:   4,
}

// Level maps a role to its numeric level. Unknown roles yield 0 so
// they fail any minimum-role check rather than erroring.
func Level(r Role) int {
	if level, ok := roleLevels[r]; ok {
		return level
	}
	return unknownCallerLevel
}

// KnownRole reports whether s names a role in the hierarchy.
func KnownRole(s string) bool {
	_, ok := roleLevels[Role(s)]
	return ok
}

// Roles returns the known roles from highest to lowest privilege.
func Roles() []Role {
	return []Role{RoleAdmin, RoleTeacher, RoleParent, RoleStudent}
}

// Authorize reports whether caller satisfies the minimum role. It is a
// total, side-effect-free function: unknown caller roles simply fail
// the check, and an unknown minimum role fails closed — a misconfigured
// route must never grant access.
func Authorize(caller, minimum Role) bool {
	minLevel, ok := roleLevels[minimum]
	if !ok {
		minLevel = failClosedLevel
	}
	return Level(caller) >= minLevel
}
