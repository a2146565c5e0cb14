package services

import (
	"context"
	"slices"
	"strings"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// Subject is the authenticated caller of an operation
type Subject struct {
	ID   string
	Role models.UserRole
}

func (s Subject) IsAdmin() bool { return s.Role == models.RoleAdmin }

type Action string

const (
	ActionAttemptStart     Action = "attempt:start"
	ActionAttemptView      Action = "attempt:view"
	ActionAttemptList      Action = "attempt:list"
	ActionGradeWrite       Action = "grade:write"
	ActionGradePublish     Action = "grade:publish"
	ActionGradeView        Action = "grade:view"
	ActionProgressView     Action = "progress:view"
	ActionProgressOverride Action = "progress:override"
	ActionEvaluationStats  Action = "evaluation:stats"
	ActionEvaluationExport Action = "evaluation:export"
)

// Resource describes what an action targets. OwnerID is the student the
// resource belongs to; ManagerIDs are the staff members responsible for it.
type Resource struct {
	Kind       string
	ID         uint
	OwnerID    string
	ManagerIDs []string
}

// Policy decides whether a subject may perform an action on a resource
type Policy interface {
	Authorize(ctx context.Context, subject Subject, action Action, resource Resource) error
}

// ownScope marks a permission that only applies to the subject's own resources.
const ownScope = ":own"

// DefaultRolePermissions grants students access to their own work and staff
// access to the evaluations they manage.
var DefaultRolePermissions = map[models.UserRole][]string{
	models.RoleStudent: {
		"attempt:start:own",
		"attempt:view:own",
		"attempt:list:own",
		"grade:view:own",
		"progress:view:own",
	},
	models.RoleProctor: {
		"attempt:view",
		"attempt:list",
		"evaluation:stats",
	},
	models.RoleTeacher: {
		"attempt:*",
		"grade:*",
		"progress:*",
		"evaluation:*",
	},
	models.RoleAdmin: {
		"*",
	},
}

// RolePolicy is the permission-table implementation of Policy
type RolePolicy struct {
	permissions map[models.UserRole][]string
}

func NewRolePolicy(permissions map[models.UserRole][]string) *RolePolicy {
	if permissions == nil {
		permissions = DefaultRolePermissions
	}
	return &RolePolicy{permissions: permissions}
}

func (p *RolePolicy) Authorize(_ context.Context, subject Subject, action Action, resource Resource) error {
	if subject.ID == "" {
		return NewPermissionError("", resource.ID, resource.Kind, string(action), "unauthenticated")
	}

	if p.has(subject.Role, string(action)) {
		// proctors supervise every evaluation; teachers only their own
		if subject.IsAdmin() || subject.Role == models.RoleProctor ||
			len(resource.ManagerIDs) == 0 || slices.Contains(resource.ManagerIDs, subject.ID) {
			return nil
		}
		if resource.OwnerID == "" || resource.OwnerID != subject.ID {
			return NewPermissionError(subject.ID, resource.ID, resource.Kind, string(action), "not a manager of this resource")
		}
	}

	if resource.OwnerID != "" && resource.OwnerID == subject.ID && p.has(subject.Role, string(action)+ownScope) {
		return nil
	}

	return NewPermissionError(subject.ID, resource.ID, resource.Kind, string(action), "insufficient permissions")
}

func (p *RolePolicy) has(role models.UserRole, perm string) bool {
	for _, pattern := range p.permissions[role] {
		if matchPerm(pattern, perm) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
