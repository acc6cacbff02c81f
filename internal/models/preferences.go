package models

import (
	"fmt"
	"time"
)

// Preference bounds
const (
	MinPreferenceScore = 1
	MaxPreferenceScore = 10
)

// InvestmentPreferences holds a user's ten risk-profile scores, each in [1,10].
// One row per user.
type InvestmentPreferences struct {
	ID                  string    `json:"id" db:"id"`
	UserID              string    `json:"userId" db:"user_id"`
	RiskAversion        int       `json:"riskAversion" db:"risk_aversion"`
	VolatilityTolerance int       `json:"volatilityTolerance" db:"volatility_tolerance"`
	GrowthFocus         int       `json:"growthFocus" db:"growth_focus"`
	CryptoExperience    int       `json:"cryptoExperience" db:"crypto_experience"`
	InnovationTrust     int       `json:"innovationTrust" db:"innovation_trust"`
	ImpactInterest      int       `json:"impactInterest" db:"impact_interest"`
	Diversification     int       `json:"diversification" db:"diversification"`
	HoldingPatience     int       `json:"holdingPatience" db:"holding_patience"`
	MonitoringFrequency int       `json:"monitoringFrequency" db:"monitoring_frequency"`
	AdviceOpenness      int       `json:"adviceOpenness" db:"advice_openness"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// PreferencesUpdate is a partial set of scores. Nil fields are left unchanged.
type PreferencesUpdate struct {
	RiskAversion        *int `json:"riskAversion,omitempty"`
	VolatilityTolerance *int `json:"volatilityTolerance,omitempty"`
	GrowthFocus         *int `json:"growthFocus,omitempty"`
	CryptoExperience    *int `json:"cryptoExperience,omitempty"`
	InnovationTrust     *int `json:"innovationTrust,omitempty"`
	ImpactInterest      *int `json:"impactInterest,omitempty"`
	Diversification     *int `json:"diversification,omitempty"`
	HoldingPatience     *int `json:"holdingPatience,omitempty"`
	MonitoringFrequency *int `json:"monitoringFrequency,omitempty"`
	AdviceOpenness      *int `json:"adviceOpenness,omitempty"`
}

// PreferenceField pairs a score's API name with its column and accessors.
type PreferenceField struct {
	Name   string
	Column string
	update func(u *PreferencesUpdate) **int
	value  func(p *InvestmentPreferences) *int
}

// PreferenceFields lists the scores in canonical order.
var PreferenceFields = []PreferenceField{
	{"riskAversion", "risk_aversion",
		func(u *PreferencesUpdate) **int { return &u.RiskAversion },
		func(p *InvestmentPreferences) *int { return &p.RiskAversion }},
	{"volatilityTolerance", "volatility_tolerance",
		func(u *PreferencesUpdate) **int { return &u.VolatilityTolerance },
		func(p *InvestmentPreferences) *int { return &p.VolatilityTolerance }},
	{"growthFocus", "growth_focus",
		func(u *PreferencesUpdate) **int { return &u.GrowthFocus },
		func(p *InvestmentPreferences) *int { return &p.GrowthFocus }},
	{"cryptoExperience", "crypto_experience",
		func(u *PreferencesUpdate) **int { return &u.CryptoExperience },
		func(p *InvestmentPreferences) *int { return &p.CryptoExperience }},
	{"innovationTrust", "innovation_trust",
		func(u *PreferencesUpdate) **int { return &u.InnovationTrust },
		func(p *InvestmentPreferences) *int { return &p.InnovationTrust }},
	{"impactInterest", "impact_interest",
		func(u *PreferencesUpdate) **int { return &u.ImpactInterest },
		func(p *InvestmentPreferences) *int { return &p.ImpactInterest }},
	{"diversification", "diversification",
		func(u *PreferencesUpdate) **int { return &u.Diversification },
		func(p *InvestmentPreferences) *int { return &p.Diversification }},
	{"holdingPatience", "holding_patience",
		func(u *PreferencesUpdate) **int { return &u.HoldingPatience },
		func(p *InvestmentPreferences) *int { return &p.HoldingPatience }},
	{"monitoringFrequency", "monitoring_frequency",
		func(u *PreferencesUpdate) **int { return &u.MonitoringFrequency },
		func(p *InvestmentPreferences) *int { return &p.MonitoringFrequency }},
	{"adviceOpenness", "advice_openness",
		func(u *PreferencesUpdate) **int { return &u.AdviceOpenness },
		func(p *InvestmentPreferences) *int { return &p.AdviceOpenness }},
}

// Get returns the score for field f in u, or nil when not provided.
func (f PreferenceField) Get(u *PreferencesUpdate) *int {
	return *f.update(u)
}

// Value returns the score for field f in p.
func (f PreferenceField) Value(p *InvestmentPreferences) int {
	return *f.value(p)
}

// Addr returns the address of field f in u.
func (f PreferenceField) Addr(u *PreferencesUpdate) **int {
	return f.update(u)
}

// Ptr returns the address of field f in p, for scanning.
func (f PreferenceField) Ptr(p *InvestmentPreferences) *int {
	return f.value(p)
}

// FirstMissing returns the name of the first unset field in canonical order,
// or "" when every field is present.
func (u *PreferencesUpdate) FirstMissing() string {
	for _, f := range PreferenceFields {
		if f.Get(u) == nil {
			return f.Name
		}
	}
	return ""
}

// IsEmpty reports whether no field is set
func (u *PreferencesUpdate) IsEmpty() bool {
	for _, f := range PreferenceFields {
		if f.Get(u) != nil {
			return false
		}
	}
	return true
}

// CheckRange returns an error naming the first provided field outside [1,10].
func (u *PreferencesUpdate) CheckRange() error {
	for _, f := range PreferenceFields {
		v := f.Get(u)
		if v != nil && (*v < MinPreferenceScore || *v > MaxPreferenceScore) {
			return fmt.Errorf("%s must be between %d and %d", f.Name, MinPreferenceScore, MaxPreferenceScore)
		}
	}
	return nil
}

// ApplyTo copies every provided field onto p.
func (u *PreferencesUpdate) ApplyTo(p *InvestmentPreferences) {
	for _, f := range PreferenceFields {
		if v := f.Get(u); v != nil {
			*f.value(p) = *v
		}
	}
}

// ToUpdate returns a full update carrying every score of p.
func (p *InvestmentPreferences) ToUpdate() *PreferencesUpdate {
	u := &PreferencesUpdate{}
	for _, f := range PreferenceFields {
		v := f.Value(p)
		*f.update(u) = &v
	}
	return u
}
