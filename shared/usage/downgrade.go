package usage

import "github.com/google/uuid"

// Snapshot is a user's current footprint across the organizations they own.
type Snapshot struct {
	UserID          uuid.UUID           `json:"userId"`
	Organizations   int64               `json:"organizations"`
	PerOrganization []OrganizationUsage `json:"perOrganization"`
}

type OrganizationUsage struct {
	OrganizationID uuid.UUID `json:"organizationId"`
	Name           string    `json:"name"`
	Members        int64     `json:"members"`
	Surveys        int64     `json:"surveys"`
}

// Violation is a resource whose usage exceeds a target plan's cap.
type Violation struct {
	Resource         Resource   `json:"resource"`
	OrganizationID   *uuid.UUID `json:"organizationId,omitempty"`
	OrganizationName string     `json:"organizationName,omitempty"`
	Current          int64      `json:"current"`
	Limit            Limit      `json:"limit"`
	Excess           int64      `json:"excess"`
}

// DetectDowngradeViolations lists every count in snap that exceeds target.
// Usage equal to the cap is not a violation.
func DetectDowngradeViolations(target PlanLimits, snap Snapshot) []Violation {
	violations := []Violation{}

	if v, ok := exceeds(ResourceOrganizations, snap.Organizations, target.Organizations); ok {
		violations = append(violations, v)
	}

	for _, org := range snap.PerOrganization {
		id := org.OrganizationID
		if v, ok := exceeds(ResourceMembers, org.Members, target.Members); ok {
			v.OrganizationID, v.OrganizationName = &id, org.Name
			violations = append(violations, v)
		}
		if v, ok := exceeds(ResourceSurveys, org.Surveys, target.Surveys); ok {
			v.OrganizationID, v.OrganizationName = &id, org.Name
			violations = append(violations, v)
		}
	}
	return violations
}

func exceeds(resource Resource, current int64, limit Limit) (Violation, bool) {
	if limit.IsUnlimited() || current <= int64(limit) {
		return Violation{}, false
	}
	return Violation{
		Resource: resource,
		Current:  current,
		Limit:    limit,
		Excess:   current - int64(limit),
	}, true
}
