// Package tier implements the subscription tier policy consumed by the vault
// directory and the recovery/emergency initialization gates: per-tier storage
// capacity, feature availability, pricing, and the upgrade matrix.
package tier

// --------------------------------------------------------------------------
// Tiers
// --------------------------------------------------------------------------

// Tier is the subscription level of a vault owner. The discriminant values
// are persisted and must never be renumbered or reused.
type Tier uint8

const (
	Free       Tier = 0 // 1KB storage
	Basic      Tier = 1 // 10KB storage
	Premium    Tier = 2 // 100KB storage, social recovery
	Enterprise Tier = 3 // 1MB storage, all features
)

func (t Tier) String() string {
	switch t {
	case Free:
		return "free"
	case Basic:
		return "basic"
	case Premium:
		return "premium"
	case Enterprise:
		return "enterprise"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t <= Enterprise
}

// --------------------------------------------------------------------------
// Features
// --------------------------------------------------------------------------

// Feature represents gated capabilities as bit flags.
type Feature uint64

const (
	FeatureSocialRecovery  Feature = 1 << iota // Guardian-based threshold recovery
	FeatureEmergencyAccess                     // Dead-man's-switch emergency contacts
	FeatureCategories                          // User-defined entry categories
)

func (f Feature) String() string {
	switch f {
	case FeatureSocialRecovery:
		return "SocialRecovery"
	case FeatureEmergencyAccess:
		return "EmergencyAccess"
	case FeatureCategories:
		return "Categories"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Policy Queries
// --------------------------------------------------------------------------

const (
	// SubscriptionDuration is the length of one paid period in seconds (30 days).
	SubscriptionDuration uint64 = 30 * 24 * 60 * 60
)

// MaxCapacity returns the total storage this tier may use, in bytes.
func (t Tier) MaxCapacity() uint64 {
	switch t {
	case Free:
		return 1024
	case Basic:
		return 10_240
	case Premium:
		return 102_400
	case Enterprise:
		return 1_048_576
	default:
		return 0
	}
}

// MonthlyCost returns the fee for one subscription period, in the smallest
// unit of the external payment collaborator. Free is 0.
func (t Tier) MonthlyCost() uint64 {
	switch t {
	case Free:
		return 0
	case Basic:
		return 1_000_000
	case Premium:
		return 10_000_000
	case Enterprise:
		return 100_000_000
	default:
		return 0
	}
}

// SupportsFeature reports whether the tier includes the given feature(s).
// Multiple features can be checked at once using bitwise OR.
func (t Tier) SupportsFeature(f Feature) bool {
	var have Feature
	switch t {
	case Free, Basic:
		have = FeatureCategories
	case Premium, Enterprise:
		have = FeatureCategories | FeatureSocialRecovery | FeatureEmergencyAccess
	}
	return have&f == f
}

// CanUpgradeTo reports whether a tier change is a strict upgrade. Downgrades
// go through the dedicated downgrade path, never through upgrade.
func (t Tier) CanUpgradeTo(target Tier) bool {
	return target.Valid() && target > t
}
