// Package usage holds plan tiers and the rules that gate resource creation
// on current usage.
package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// ParseTier accepts a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierFree, TierStarter, TierPro, TierEnterprise:
		return t, nil
	default:
		return "", fmt.Errorf("unknown plan tier %q", s)
	}
}

type Resource string

const (
	ResourceSurveys       Resource = "surveys"
	ResourceOrganizations Resource = "organizations"
	ResourceMembers       Resource = "members"
)

// ParseResource maps a path segment onto a Resource.
func ParseResource(s string) (Resource, error) {
	switch r := Resource(s); r {
	case ResourceSurveys, ResourceOrganizations, ResourceMembers:
		return r, nil
	default:
		return "", fmt.Errorf("unknown resource %q", s)
	}
}

// Limit is a resource cap. Unlimited disables the cap.
type Limit int64

const Unlimited Limit = -1

const unlimitedLiteral = "unlimited"

func (l Limit) IsUnlimited() bool {
	return l < 0
}

func (l Limit) String() string {
	if l.IsUnlimited() {
		return unlimitedLiteral
	}
	return strconv.FormatInt(int64(l), 10)
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnlimited() {
		return []byte(`"` + unlimitedLiteral + `"`), nil
	}
	return []byte(strconv.FormatInt(int64(l), 10)), nil
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return l.parse(s)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("limit must be a number or %q", unlimitedLiteral)
	}
	return l.set(n)
}

func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	return l.parse(node.Value)
}

func (l *Limit) parse(s string) error {
	if strings.EqualFold(strings.TrimSpace(s), unlimitedLiteral) {
		*l = Unlimited
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("limit must be a number or %q, got %q", unlimitedLiteral, s)
	}
	return l.set(n)
}

func (l *Limit) set(n int64) error {
	if n < 0 {
		return fmt.Errorf("limit must not be negative, got %d", n)
	}
	*l = Limit(n)
	return nil
}

// PlanLimits are the caps a tier grants.
type PlanLimits struct {
	Surveys       Limit `json:"surveys" yaml:"surveys"`
	Organizations Limit `json:"organizations" yaml:"organizations"`
	Members       Limit `json:"members" yaml:"members"`
}

// For returns the cap for one resource.
func (p PlanLimits) For(r Resource) Limit {
	switch r {
	case ResourceSurveys:
		return p.Surveys
	case ResourceOrganizations:
		return p.Organizations
	case ResourceMembers:
		return p.Members
	default:
		return 0
	}
}

// Usage is a resource's consumption against its cap.
type Usage struct {
	Resource   Resource `json:"resource"`
	Current    int64    `json:"current"`
	Limit      Limit    `json:"limit"`
	Percentage int      `json:"percentage"`
	Unlimited  bool     `json:"unlimited"`
	Remaining  Limit    `json:"remaining"`
	Tier       Tier     `json:"tier,omitempty"`
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Usage   Usage  `json:"usage"`
}

var ErrLimitReached = errors.New("plan limit reached")

// Err returns nil for allowed decisions and a wrapped ErrLimitReached otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrLimitReached, d.Reason)
}

// Percentage is current/limit*100 rounded to the nearest integer. The
// unlimited sentinel skips the calculation and reports 0 with unlimited set.
// A zero cap is fully consumed.
func Percentage(current int64, limit Limit) (pct int, unlimited bool) {
	if limit.IsUnlimited() {
		return 0, true
	}
	if limit == 0 {
		return 100, false
	}
	return int(math.Round(float64(current) / float64(limit) * 100)), false
}

// Measure builds the Usage view for a count and cap.
func Measure(resource Resource, current int64, limit Limit) Usage {
	pct, unlimited := Percentage(current, limit)
	remaining := Unlimited
	if !unlimited {
		remaining = Limit(0)
		if left := int64(limit) - current; left > 0 {
			remaining = Limit(left)
		}
	}
	return Usage{
		Resource:   resource,
		Current:    current,
		Limit:      limit,
		Percentage: pct,
		Unlimited:  unlimited,
		Remaining:  remaining,
	}
}

// Evaluate allows creation unless a numeric cap is already met.
func Evaluate(resource Resource, current int64, limit Limit) Decision {
	u := Measure(resource, current, limit)
	if u.Unlimited || current < int64(limit) {
		return Decision{Allowed: true, Usage: u}
	}
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("You have reached the limit of %d %s on your current plan. Upgrade to add more.", int64(limit), resource),
		Usage:   u,
	}
}
