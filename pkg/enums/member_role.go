package enums

import (
	"fmt"
	"strings"
)

// MemberRole is the organization role carried in access tokens. The grant
// table for each role lives in internal/permissions.
type MemberRole string

const (
	MemberRoleOwner   MemberRole = "owner"
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleManager MemberRole = "manager"
	MemberRoleStaff   MemberRole = "staff"
	MemberRoleViewer  MemberRole = "viewer"
)

func (m MemberRole) String() string {
	return string(m)
}

func (m MemberRole) IsValid() bool {
	switch m {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleManager, MemberRoleStaff, MemberRoleViewer:
		return true
	}
	return false
}

// ParseMemberRole accepts any casing and surrounding whitespace.
func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}
