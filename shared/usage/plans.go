package usage

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

type Plan struct {
	Tier              Tier       `yaml:"tier" json:"tier"`
	Name              string     `yaml:"name" json:"name"`
	MonthlyPriceCents int64      `yaml:"monthly_price_cents" json:"monthlyPriceCents"`
	StripePriceIDs    []string   `yaml:"stripe_price_ids" json:"-"`
	Limits            PlanLimits `yaml:"limits" json:"limits"`
}

// Catalog is the set of configured plans.
type Catalog struct {
	plans   []Plan
	byTier  map[Tier]Plan
	byPrice map[string]Tier
}

// LoadCatalog reads plans from path, or the built-in plans when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultPlans)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plans file: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in plans.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultPlans)
	if err != nil {
		panic(fmt.Sprintf("embedded plans are invalid: %v", err))
	}
	return c
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing plans: %w", err)
	}

	c := &Catalog{byTier: map[Tier]Plan{}, byPrice: map[string]Tier{}}
	for _, p := range doc.Plans {
		tier, err := ParseTier(string(p.Tier))
		if err != nil {
			return nil, err
		}
		p.Tier = tier
		if _, dup := c.byTier[tier]; dup {
			return nil, fmt.Errorf("plan %q defined twice", tier)
		}
		for _, price := range p.StripePriceIDs {
			if other, dup := c.byPrice[price]; dup {
				return nil, fmt.Errorf("price %q mapped to both %q and %q", price, other, tier)
			}
			c.byPrice[price] = tier
		}
		c.byTier[tier] = p
		c.plans = append(c.plans, p)
	}
	if _, ok := c.byTier[TierFree]; !ok {
		return nil, fmt.Errorf("plans must define the %q tier", TierFree)
	}
	return c, nil
}

func (c *Catalog) Plans() []Plan {
	return append([]Plan(nil), c.plans...)
}

func (c *Catalog) Plan(tier Tier) (Plan, bool) {
	p, ok := c.byTier[tier]
	return p, ok
}

// Limits returns the caps for tier, falling back to the free tier.
func (c *Catalog) Limits(tier Tier) PlanLimits {
	if p, ok := c.byTier[tier]; ok {
		return p.Limits
	}
	return c.byTier[TierFree].Limits
}

// TierForPrice maps a Stripe price id onto its tier.
func (c *Catalog) TierForPrice(priceID string) (Tier, bool) {
	t, ok := c.byPrice[priceID]
	return t, ok
}

// PriceForTier returns the first configured price of tier.
func (c *Catalog) PriceForTier(tier Tier) (string, bool) {
	p, ok := c.byTier[tier]
	if !ok || len(p.StripePriceIDs) == 0 {
		return "", false
	}
	return p.StripePriceIDs[0], true
}
