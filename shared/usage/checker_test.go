package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store/storetest"
)

type fixture struct {
	db      *storetest.DB
	checker *Checker
	owner   models.User
	org     models.Organization
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.New()
	ownerRole := db.SeedRole(models.RoleOwner)
	owner := db.AddUser(models.User{Email: "owner@example.com"})

	org := models.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
	require.NoError(t, db.Organizations().Create(context.Background(), &org, ownerRole.ID))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	checker := NewChecker(db.Stores(), DefaultCatalog(), nil, nil).WithClock(func() time.Time { return now })
	return &fixture{db: db, checker: checker, owner: owner, org: org, now: now}
}

func (f *fixture) subscribe(t *testing.T, plan string, status models.SubscriptionStatus) {
	t.Helper()
	require.NoError(t, f.db.Subscriptions().Upsert(context.Background(), &models.Subscription{
		UserID: f.owner.ID, Plan: plan, Status: status,
	}))
}

func (f *fixture) addSurveys(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.db.Surveys().Create(context.Background(), &models.Survey{
			UniqueID:       uuid.NewString(),
			OrganizationID: f.org.ID,
			CreatedByID:    f.owner.ID,
			Title:          "Survey",
		}))
	}
}

func TestEffectiveTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tier, sub, err := f.checker.EffectiveTier(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, TierFree, tier)
	assert.Nil(t, sub)

	f.subscribe(t, "pro", models.SubscriptionTrialing)
	tier, _, err = f.checker.EffectiveTier(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, TierPro, tier)

	f.subscribe(t, "pro", models.SubscriptionPastDue)
	tier, sub, err = f.checker.EffectiveTier(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, TierFree, tier)
	assert.Equal(t, "pro", sub.Plan)

	f.subscribe(t, "diamond", models.SubscriptionActive)
	tier, _, err = f.checker.EffectiveTier(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, TierFree, tier)
}

func TestCheckSurveyLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addSurveys(t, 2)
	d, err := f.checker.CheckSurveyLimit(ctx, f.org.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 67, d.Usage.Percentage)
	assert.Equal(t, TierFree, d.Usage.Tier)

	f.addSurveys(t, 1)
	d, err = f.checker.CheckSurveyLimit(ctx, f.org.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 100, d.Usage.Percentage)

	f.subscribe(t, "pro", models.SubscriptionActive)
	d, err = f.checker.CheckSurveyLimit(ctx, f.org.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.Usage.Unlimited)
	assert.Equal(t, 0, d.Usage.Percentage)
}

func TestCheckSurveyLimitUnknownOrganization(t *testing.T) {
	f := newFixture(t)
	_, err := f.checker.CheckSurveyLimit(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestCheckMemberLimitCountsPendingInvitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := f.db.SeedRole(models.RoleViewer)

	invite := func(email string, expiresAt time.Time, status models.InvitationStatus) {
		require.NoError(t, f.db.Invitations().Create(ctx, &models.OrganizationInvitation{
			OrganizationID: f.org.ID,
			Email:          email,
			RoleID:         viewer.ID,
			TokenHash:      uuid.NewString(),
			InvitedByID:    f.owner.ID,
			Status:         status,
			ExpiresAt:      expiresAt,
		}))
	}

	invite("pending@example.com", f.now.Add(time.Hour), models.InvitationPending)
	invite("stale@example.com", f.now.Add(-time.Hour), models.InvitationPending)
	invite("declined@example.com", f.now.Add(time.Hour), models.InvitationDeclined)

	// owner + one live invitation
	d, err := f.checker.CheckMemberLimit(ctx, f.org.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(2), d.Usage.Current)

	invite("second@example.com", f.now.Add(time.Hour), models.InvitationPending)
	d, err = f.checker.CheckMemberLimit(ctx, f.org.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(3), d.Usage.Current)
}

func TestCheckOrganizationLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.checker.CheckOrganizationLimit(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "free tier allows a single organization")

	f.subscribe(t, "starter", models.SubscriptionActive)
	d, err = f.checker.CheckOrganizationLimit(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, Limit(3), d.Usage.Limit)
	assert.Equal(t, 33, d.Usage.Percentage)
}

func TestUsageForRequiresOrganization(t *testing.T) {
	f := newFixture(t)
	_, err := f.checker.UsageFor(context.Background(), ResourceSurveys, f.owner.ID, nil)
	assert.Error(t, err)

	u, err := f.checker.UsageFor(context.Background(), ResourceSurveys, f.owner.ID, &f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.Current)
}

func TestSnapshotFeedsDowngradeDetection(t *testing.T) {
	f := newFixture(t)
	f.subscribe(t, "pro", models.SubscriptionActive)
	f.addSurveys(t, 5)

	snap, err := f.checker.Snapshot(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, snap.PerOrganization, 1)
	assert.Equal(t, int64(5), snap.PerOrganization[0].Surveys)

	violations := DetectDowngradeViolations(f.checker.Catalog().Limits(TierFree), snap)
	require.Len(t, violations, 1)
	assert.Equal(t, ResourceSurveys, violations[0].Resource)
	assert.Equal(t, int64(2), violations[0].Excess)
}
