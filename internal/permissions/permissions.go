// Package permissions maps organization member roles onto resource actions.
package permissions

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

type grant struct {
	resource enums.Resource
	action   enums.Action
}

var allResources = []enums.Resource{
	enums.ResourceOrders,
	enums.ResourceSettlements,
	enums.ResourceProducts,
	enums.ResourceAccounts,
	enums.ResourceEntities,
}

var allActions = []enums.Action{enums.ActionRead, enums.ActionCreate, enums.ActionUpdate}

var table = buildTable()

func buildTable() map[enums.MemberRole]map[grant]struct{} {
	everything := func(except ...grant) map[grant]struct{} {
		out := map[grant]struct{}{}
		for _, r := range allResources {
			for _, a := range allActions {
				out[grant{r, a}] = struct{}{}
			}
		}
		for _, g := range except {
			delete(out, g)
		}
		return out
	}
	readOnly := map[grant]struct{}{}
	for _, r := range allResources {
		readOnly[grant{r, enums.ActionRead}] = struct{}{}
	}
	staff := map[grant]struct{}{
		{enums.ResourceOrders, enums.ActionCreate}: {},
		{enums.ResourceOrders, enums.ActionUpdate}: {},
	}
	for g := range readOnly {
		staff[g] = struct{}{}
	}

	return map[enums.MemberRole]map[grant]struct{}{
		enums.MemberRoleOwner:   everything(),
		enums.MemberRoleAdmin:   everything(),
		enums.MemberRoleManager: everything(grant{enums.ResourceAccounts, enums.ActionUpdate}),
		enums.MemberRoleStaff:   staff,
		enums.MemberRoleViewer:  readOnly,
	}
}

// Allowed reports whether role may perform action on resource.
func Allowed(role enums.MemberRole, resource enums.Resource, action enums.Action) bool {
	grants, ok := table[role]
	if !ok {
		return false
	}
	_, ok = grants[grant{resource, action}]
	return ok
}

// Actor is the caller a service acts on behalf of.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.MemberRole
}

// Can reports whether the actor holds the permission.
func (a Actor) Can(resource enums.Resource, action enums.Action) bool {
	return Allowed(a.Role, resource, action)
}

// Require returns FORBIDDEN unless the actor holds the permission.
func (a Actor) Require(resource enums.Resource, action enums.Action) error {
	if a.UserID == uuid.Nil || a.OrganizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	if !a.Can(resource, action) {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot %s %s", a.Role, action, resource)
	}
	return nil
}
