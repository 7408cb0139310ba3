package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/metrics"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/utils/cache"
)

// Checker resolves a caller's tier and current counts, then applies Evaluate.
type Checker struct {
	subscriptions store.SubscriptionStore
	organizations store.OrganizationStore
	members       store.MemberStore
	invitations   store.InvitationStore
	surveys       store.SurveyStore
	catalog       *Catalog
	cache         *cache.CacheManager
	metrics       *metrics.Metrics
	log           *zap.Logger
	now           func() time.Time
}

func NewChecker(stores *store.Stores, catalog *Catalog, cm *cache.CacheManager, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		subscriptions: stores.Subscriptions,
		organizations: stores.Organizations,
		members:       stores.Members,
		invitations:   stores.Invitations,
		surveys:       stores.Surveys,
		catalog:       catalog,
		cache:         cm,
		metrics:       metrics.NewMetrics(),
		log:           log.Named("usage"),
		now:           time.Now,
	}
}

// WithClock overrides the time source used for invitation expiry.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

func (c *Checker) Catalog() *Catalog {
	return c.catalog
}

// EffectiveTier returns the tier a user's subscription grants. Only active
// and trialing subscriptions count; everything else is the free tier.
func (c *Checker) EffectiveTier(ctx context.Context, userID uuid.UUID) (Tier, *models.Subscription, error) {
	sub, err := c.subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TierFree, nil, nil
		}
		return "", nil, fmt.Errorf("loading subscription: %w", err)
	}
	if !sub.IsActive() {
		return TierFree, sub, nil
	}
	tier, err := ParseTier(sub.Plan)
	if err != nil {
		c.log.Warn("subscription has unknown plan, using free tier",
			zap.String("user_id", userID.String()), zap.String("plan", sub.Plan))
		return TierFree, sub, nil
	}
	return tier, sub, nil
}

// orgTier resolves the tier of the organization's owner.
func (c *Checker) orgTier(ctx context.Context, orgID uuid.UUID) (*models.Organization, Tier, error) {
	org, err := c.organizations.GetByID(ctx, orgID)
	if err != nil {
		return nil, "", err
	}
	tier, _, err := c.EffectiveTier(ctx, org.OwnerID)
	if err != nil {
		return nil, "", err
	}
	return org, tier, nil
}

// CheckMemberLimit counts members plus pending, unexpired invitations.
func (c *Checker) CheckMemberLimit(ctx context.Context, orgID uuid.UUID) (Decision, error) {
	_, tier, err := c.orgTier(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}
	current, err := c.MemberUsage(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}
	return c.decide(ResourceMembers, tier, current), nil
}

// CheckOrganizationLimit counts organizations the user owns.
func (c *Checker) CheckOrganizationLimit(ctx context.Context, userID uuid.UUID) (Decision, error) {
	tier, _, err := c.EffectiveTier(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	current, err := c.OrganizationUsage(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return c.decide(ResourceOrganizations, tier, current), nil
}

// CheckSurveyLimit counts the organization's surveys.
func (c *Checker) CheckSurveyLimit(ctx context.Context, orgID uuid.UUID) (Decision, error) {
	_, tier, err := c.orgTier(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}
	current, err := c.SurveyUsage(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}
	return c.decide(ResourceSurveys, tier, current), nil
}

func (c *Checker) decide(resource Resource, tier Tier, current int64) Decision {
	d := Evaluate(resource, current, c.catalog.Limits(tier).For(resource))
	d.Usage.Tier = tier
	c.metrics.RecordLimitCheck(string(resource), string(tier), d.Allowed)
	return d
}

func (c *Checker) MemberUsage(ctx context.Context, orgID uuid.UUID) (int64, error) {
	return c.cachedCount(ctx, ResourceMembers, orgID, func() (int64, error) {
		members, err := c.members.Count(ctx, orgID)
		if err != nil {
			return 0, fmt.Errorf("counting members: %w", err)
		}
		pending, err := c.invitations.CountPending(ctx, orgID, c.now())
		if err != nil {
			return 0, fmt.Errorf("counting pending invitations: %w", err)
		}
		return members + pending, nil
	})
}

func (c *Checker) OrganizationUsage(ctx context.Context, userID uuid.UUID) (int64, error) {
	return c.cachedCount(ctx, ResourceOrganizations, userID, func() (int64, error) {
		n, err := c.organizations.CountOwnedBy(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("counting owned organizations: %w", err)
		}
		return n, nil
	})
}

func (c *Checker) SurveyUsage(ctx context.Context, orgID uuid.UUID) (int64, error) {
	return c.cachedCount(ctx, ResourceSurveys, orgID, func() (int64, error) {
		n, err := c.surveys.CountByOrganization(ctx, orgID)
		if err != nil {
			return 0, fmt.Errorf("counting surveys: %w", err)
		}
		return n, nil
	})
}

func (c *Checker) cachedCount(ctx context.Context, resource Resource, scope uuid.UUID, load func() (int64, error)) (int64, error) {
	if n, ok := c.cache.GetCount(ctx, string(resource), scope); ok {
		return n, nil
	}
	n, err := load()
	if err != nil {
		return 0, err
	}
	c.cache.SetCount(ctx, string(resource), scope, n)
	return n, nil
}

// Invalidate drops a cached count after a create or delete in scope.
func (c *Checker) Invalidate(ctx context.Context, resource Resource, scope uuid.UUID) {
	c.cache.InvalidateUsage(ctx, string(resource), scope)
}

// UsageFor reports a resource's usage without gating anything.
func (c *Checker) UsageFor(ctx context.Context, resource Resource, userID uuid.UUID, orgID *uuid.UUID) (Usage, error) {
	var d Decision
	var err error
	switch resource {
	case ResourceOrganizations:
		d, err = c.CheckOrganizationLimit(ctx, userID)
	case ResourceMembers, ResourceSurveys:
		if orgID == nil {
			return Usage{}, fmt.Errorf("%s usage requires an organization", resource)
		}
		if resource == ResourceMembers {
			d, err = c.CheckMemberLimit(ctx, *orgID)
		} else {
			d, err = c.CheckSurveyLimit(ctx, *orgID)
		}
	default:
		return Usage{}, fmt.Errorf("unknown resource %q", resource)
	}
	if err != nil {
		return Usage{}, err
	}
	return d.Usage, nil
}

// Snapshot gathers the counts downgrade detection works from.
func (c *Checker) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	orgs, err := c.organizations.ListOwnedBy(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing owned organizations: %w", err)
	}

	snap := Snapshot{UserID: userID, Organizations: int64(len(orgs))}
	for _, org := range orgs {
		members, err := c.MemberUsage(ctx, org.ID)
		if err != nil {
			return Snapshot{}, err
		}
		surveys, err := c.SurveyUsage(ctx, org.ID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.PerOrganization = append(snap.PerOrganization, OrganizationUsage{
			OrganizationID: org.ID,
			Name:           org.Name,
			Members:        members,
			Surveys:        surveys,
		})
	}
	return snap, nil
}
