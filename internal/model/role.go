package model

import (
	"slices"
	"strconv"
	"strings"
)

// Role is a coarse capability tag carried by every principal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return r, true
	}
	return "", false
}

// RoleSet is an unordered, duplicate-free collection of roles.
type RoleSet []Role

// NewRoleSet builds a set from raw strings, dropping unknown and duplicate entries.
func NewRoleSet(raw ...string) RoleSet {
	set := make(RoleSet, 0, len(raw))
	for _, s := range raw {
		if r, ok := ParseRole(s); ok && !set.Has(r) {
			set = append(set, r)
		}
	}
	return set
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	return slices.Contains(s, r)
}

// Intersects reports whether s and roles share at least one role.
func (s RoleSet) Intersects(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Strings returns the roles as plain strings, e.g. for token claims or TEXT[] columns.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int
	Email  string
	Roles  RoleSet
}

// Identity is the audit string recorded as changed_by / added_by.
func (p Principal) Identity() string {
	if p.Email != "" {
		return p.Email
	}
	return "user:" + strconv.Itoa(p.UserID)
}

// IsStaff reports whether the principal is an admin or a teacher.
func (p Principal) IsStaff() bool {
	return p.Roles.Intersects(RoleAdmin, RoleTeacher)
}

// CanActAsStudent reports whether the principal may read data belonging to
// studentID. Staff may read any student; a student-only principal only itself.
func (p Principal) CanActAsStudent(studentID int) bool {
	if p.IsStaff() {
		return true
	}
	return p.UserID == studentID
}
