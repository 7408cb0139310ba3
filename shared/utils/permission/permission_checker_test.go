package permission

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

func TestDefaultRoleMatrix(t *testing.T) {
	matrix := DefaultRoleMatrix()

	owner := &Set{Permissions: matrix[models.RoleOwner]}
	admin := &Set{Permissions: matrix[models.RoleAdmin]}
	editor := &Set{Permissions: matrix[models.RoleEditor]}
	viewer := &Set{Permissions: matrix[models.RoleViewer]}

	assert.True(t, owner.Flags().CanDeleteOrganization)
	assert.True(t, owner.Flags().CanManageBilling)
	assert.False(t, admin.Flags().CanDeleteOrganization)
	assert.False(t, admin.Flags().CanManageBilling)
	assert.True(t, admin.Flags().CanInviteMembers)
	assert.True(t, editor.Flags().CanCreateSurveys)
	assert.False(t, editor.Flags().CanDeleteSurveys)
	assert.False(t, editor.Flags().CanInviteMembers)
	assert.Equal(t, Flags{CanView: true}, viewer.Flags())
}

func TestCheckerResolve(t *testing.T) {
	db := storetest.New()
	matrix := DefaultRoleMatrix()
	editor := db.SeedRole(models.RoleEditor, matrix[models.RoleEditor]...)

	orgID, userID := uuid.New(), uuid.New()
	require.NoError(t, db.Members().Add(context.Background(), &models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		RoleID:         editor.ID,
		JoinedAt:       time.Now(),
	}))

	checker := NewChecker(db.Members(), db.Roles(), nil)

	set, ok, err := checker.Require(context.Background(), orgID, userID, ResourceSurveys, ActionCreate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.RoleEditor, set.Role)

	_, ok, err = checker.Require(context.Background(), orgID, userID, ResourceMembers, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = checker.Resolve(context.Background(), orgID, uuid.New())
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestNilSetHasNothing(t *testing.T) {
	var s *Set
	assert.False(t, s.Has(ResourceSurveys, ActionRead))
}
