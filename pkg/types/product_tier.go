package types

import "strings"

// ProductTierRule maps marketplace product ids containing Match to Tier.
type ProductTierRule struct {
	Match string           `json:"match" mapstructure:"match"`
	Tier  SubscriptionTier `json:"tier" mapstructure:"tier"`
}

// DefaultProductTierRules tracks the growth_* catalog. Ultimate is listed first so that
// a product id never resolves to the lower tier by accident.
var DefaultProductTierRules = []ProductTierRule{
	{Match: "ultimate", Tier: SubscriptionTierUltimate},
	{Match: "pro", Tier: SubscriptionTierPro},
}

// ProductTierTable resolves product ids to tiers. The first matching rule wins.
type ProductTierTable []ProductTierRule

// Resolve returns the tier for productID and false when no rule matches.
func (t ProductTierTable) Resolve(productID string) (SubscriptionTier, bool) {
	if productID == "" {
		return "", false
	}
	id := strings.ToLower(productID)
	for _, rule := range t {
		if rule.Match == "" {
			continue
		}
		if strings.Contains(id, strings.ToLower(rule.Match)) {
			return rule.Tier, true
		}
	}
	return "", false
}
