package usage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDowngradeViolations(t *testing.T) {
	orgA, orgB := uuid.New(), uuid.New()
	snap := Snapshot{
		Organizations: 2,
		PerOrganization: []OrganizationUsage{
			{OrganizationID: orgA, Name: "Acme", Members: 5, Surveys: 3},
			{OrganizationID: orgB, Name: "Beta", Members: 1, Surveys: 10},
		},
	}

	violations := DetectDowngradeViolations(PlanLimits{Surveys: 3, Organizations: 1, Members: 3}, snap)
	require.Len(t, violations, 3)

	assert.Equal(t, ResourceOrganizations, violations[0].Resource)
	assert.Nil(t, violations[0].OrganizationID)
	assert.Equal(t, int64(1), violations[0].Excess)

	assert.Equal(t, ResourceMembers, violations[1].Resource)
	assert.Equal(t, orgA, *violations[1].OrganizationID)
	assert.Equal(t, int64(2), violations[1].Excess)

	// Acme sits exactly at the survey cap, only Beta is over.
	assert.Equal(t, ResourceSurveys, violations[2].Resource)
	assert.Equal(t, "Beta", violations[2].OrganizationName)
	assert.Equal(t, int64(7), violations[2].Excess)
}

func TestDetectDowngradeViolationsUnlimited(t *testing.T) {
	snap := Snapshot{
		Organizations:   40,
		PerOrganization: []OrganizationUsage{{OrganizationID: uuid.New(), Members: 900, Surveys: 900}},
	}
	target := PlanLimits{Surveys: Unlimited, Organizations: Unlimited, Members: Unlimited}

	violations := DetectDowngradeViolations(target, snap)
	assert.NotNil(t, violations)
	assert.Empty(t, violations)
}
