package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/utils/query"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// UpsertByExternalID creates the user or refreshes its profile fields,
	// filling in the ID of the stored row.
	UpsertByExternalID(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, params query.Params) ([]models.User, int64, error)
	Count(ctx context.Context) (int64, error)
}

type OrganizationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	// Create inserts the organization and its owner membership atomically.
	Create(ctx context.Context, org *models.Organization, ownerRoleID uuid.UUID) error
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error // soft delete
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organization, error)
	ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]models.Organization, error)
	CountOwnedBy(ctx context.Context, userID uuid.UUID) (int64, error)
	List(ctx context.Context, params query.Params) ([]models.Organization, int64, error)
	Count(ctx context.Context) (int64, error)
}

type MemberStore interface {
	// Get returns the membership with its Role preloaded.
	Get(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationMember, error)
	Count(ctx context.Context, orgID uuid.UUID) (int64, error)
	Add(ctx context.Context, member *models.OrganizationMember) error
	UpdateRole(ctx context.Context, orgID, userID, roleID uuid.UUID) error
	Remove(ctx context.Context, orgID, userID uuid.UUID) error
}

type RoleStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	GetBySlug(ctx context.Context, slug string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	PermissionKeys(ctx context.Context, roleID uuid.UUID) ([]string, error)
}

type InvitationStore interface {
	Create(ctx context.Context, inv *models.OrganizationInvitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationInvitation, error)
	// GetByTokenHash returns the invitation with Organization and Role preloaded.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.OrganizationInvitation, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationInvitation, error)
	FindPending(ctx context.Context, orgID uuid.UUID, email string, now time.Time) (*models.OrganizationInvitation, error)
	CountPending(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error)
	// UpdateStatus moves a pending invitation to status; ErrNotFound when it is no longer pending.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvitationStatus, respondedAt *time.Time) error
	// Accept marks the invitation accepted and adds the membership in one transaction.
	Accept(ctx context.Context, inv *models.OrganizationInvitation, member *models.OrganizationMember) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type SubscriptionStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
}

type SurveyStore interface {
	Create(ctx context.Context, survey *models.Survey) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*models.Survey, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, params query.Params) ([]models.Survey, int64, error)
	CountByOrganization(ctx context.Context, orgID uuid.UUID) (int64, error)
	Update(ctx context.Context, survey *models.Survey) error
	Delete(ctx context.Context, id uuid.UUID) error // soft delete
	Count(ctx context.Context) (int64, error)
}

type BlogPostStore interface {
	Create(ctx context.Context, post *models.BlogPost) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	ListPublished(ctx context.Context, params query.Params) ([]models.BlogPost, int64, error)
	List(ctx context.Context, params query.Params) ([]models.BlogPost, int64, error)
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ImpersonationStore interface {
	Create(ctx context.Context, session *models.ImpersonationSession) error
	GetActiveByAdmin(ctx context.Context, adminID uuid.UUID, now time.Time) (*models.ImpersonationSession, error)
	End(ctx context.Context, id uuid.UUID, at time.Time) error
	ListActive(ctx context.Context, now time.Time) ([]models.ImpersonationSession, error)
}
