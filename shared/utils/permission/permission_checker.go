package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/utils/cache"
)

// Resources and actions making up permission keys ("resource:action").
const (
	ResourceOrganizations = "organizations"
	ResourceMembers       = "members"
	ResourceInvitations   = "invitations"
	ResourceSurveys       = "surveys"
	ResourceBilling       = "billing"

	ActionRead    = "read"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionPublish = "publish"
	ActionManage  = "manage"
)

var ErrNotMember = errors.New("not a member of this organization")

func Key(resource, action string) string {
	return resource + ":" + action
}

// AllPermissions lists every permission the system seeds.
func AllPermissions() []models.Permission {
	pairs := [][2]string{
		{ResourceOrganizations, ActionRead},
		{ResourceOrganizations, ActionUpdate},
		{ResourceOrganizations, ActionDelete},
		{ResourceMembers, ActionRead},
		{ResourceMembers, ActionUpdate},
		{ResourceMembers, ActionDelete},
		{ResourceInvitations, ActionRead},
		{ResourceInvitations, ActionCreate},
		{ResourceInvitations, ActionDelete},
		{ResourceSurveys, ActionRead},
		{ResourceSurveys, ActionCreate},
		{ResourceSurveys, ActionUpdate},
		{ResourceSurveys, ActionPublish},
		{ResourceSurveys, ActionDelete},
		{ResourceBilling, ActionManage},
	}
	perms := make([]models.Permission, 0, len(pairs))
	for _, p := range pairs {
		perms = append(perms, models.Permission{Resource: p[0], Action: p[1]})
	}
	return perms
}

// DefaultRoleMatrix maps each system role to its permission keys.
func DefaultRoleMatrix() map[string][]string {
	var all []string
	for _, p := range AllPermissions() {
		all = append(all, p.Key())
	}

	admin := make([]string, 0, len(all))
	for _, k := range all {
		if k != Key(ResourceOrganizations, ActionDelete) && k != Key(ResourceBilling, ActionManage) {
			admin = append(admin, k)
		}
	}

	return map[string][]string{
		models.RoleOwner: all,
		models.RoleAdmin: admin,
		models.RoleEditor: {
			Key(ResourceOrganizations, ActionRead),
			Key(ResourceMembers, ActionRead),
			Key(ResourceSurveys, ActionRead),
			Key(ResourceSurveys, ActionCreate),
			Key(ResourceSurveys, ActionUpdate),
			Key(ResourceSurveys, ActionPublish),
		},
		models.RoleViewer: {
			Key(ResourceOrganizations, ActionRead),
			Key(ResourceMembers, ActionRead),
			Key(ResourceSurveys, ActionRead),
		},
	}
}

// Set is a member's resolved role and permissions in one organization.
type Set struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (s *Set) Has(resource, action string) bool {
	if s == nil {
		return false
	}
	want := Key(resource, action)
	for _, k := range s.Permissions {
		if k == want {
			return true
		}
	}
	return false
}

// Flags is the boolean view the dashboard renders.
type Flags struct {
	CanView               bool `json:"canView"`
	CanManageOrganization bool `json:"canManageOrganization"`
	CanDeleteOrganization bool `json:"canDeleteOrganization"`
	CanManageMembers      bool `json:"canManageMembers"`
	CanInviteMembers      bool `json:"canInviteMembers"`
	CanCreateSurveys      bool `json:"canCreateSurveys"`
	CanEditSurveys        bool `json:"canEditSurveys"`
	CanPublishSurveys     bool `json:"canPublishSurveys"`
	CanDeleteSurveys      bool `json:"canDeleteSurveys"`
	CanManageBilling      bool `json:"canManageBilling"`
}

func (s *Set) Flags() Flags {
	return Flags{
		CanView:               s.Has(ResourceOrganizations, ActionRead),
		CanManageOrganization: s.Has(ResourceOrganizations, ActionUpdate),
		CanDeleteOrganization: s.Has(ResourceOrganizations, ActionDelete),
		CanManageMembers:      s.Has(ResourceMembers, ActionUpdate),
		CanInviteMembers:      s.Has(ResourceInvitations, ActionCreate),
		CanCreateSurveys:      s.Has(ResourceSurveys, ActionCreate),
		CanEditSurveys:        s.Has(ResourceSurveys, ActionUpdate),
		CanPublishSurveys:     s.Has(ResourceSurveys, ActionPublish),
		CanDeleteSurveys:      s.Has(ResourceSurveys, ActionDelete),
		CanManageBilling:      s.Has(ResourceBilling, ActionManage),
	}
}

// Checker resolves permission sets from membership and role tables, caching
// them per organization member.
type Checker struct {
	members store.MemberStore
	roles   store.RoleStore
	cache   *cache.CacheManager
}

func NewChecker(members store.MemberStore, roles store.RoleStore, cm *cache.CacheManager) *Checker {
	return &Checker{members: members, roles: roles, cache: cm}
}

// Resolve returns the caller's permission set, or ErrNotMember.
func (pc *Checker) Resolve(ctx context.Context, orgID, userID uuid.UUID) (*Set, error) {
	key := cache.PermissionKey(orgID, userID)
	var cached Set
	if pc.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	member, err := pc.members.Get(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("loading membership: %w", err)
	}

	keys, err := pc.roles.PermissionKeys(ctx, member.RoleID)
	if err != nil {
		return nil, fmt.Errorf("loading role permissions: %w", err)
	}

	set := &Set{Role: member.Role.Slug, Permissions: keys}
	_ = pc.cache.SetJSON(ctx, key, set, cache.PermissionSetTTL)
	return set, nil
}

// Require resolves the set and checks one permission.
func (pc *Checker) Require(ctx context.Context, orgID, userID uuid.UUID, resource, action string) (*Set, bool, error) {
	set, err := pc.Resolve(ctx, orgID, userID)
	if err != nil {
		return nil, false, err
	}
	return set, set.Has(resource, action), nil
}

// Forget drops the cached set after a role change or removal.
func (pc *Checker) Forget(ctx context.Context, orgID, userID uuid.UUID) {
	_ = pc.cache.InvalidateMemberPermissions(ctx, orgID, userID)
}
