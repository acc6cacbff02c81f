package api

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/jellydator/validation"

	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var blockchainRules = []validation.Rule{
	validation.Required.Error("Blockchain is required"),
	validation.In(string(types.BlockchainBitcoin), string(types.BlockchainEthereum)).Error("Blockchain must be bitcoin or ethereum"),
}

type registerRequest struct {
	Email       string              `json:"email"`
	Password    string              `json:"password"`
	Preferences *preferencesPayload `json:"preferences,omitempty"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("Invalid email format"), validation.Match(emailPattern).Error("Invalid email format")),
		validation.Field(&r.Password, validation.Required.Error("Password must be at least 8 characters"), validation.RuneLength(8, 0).Error("Password must be at least 8 characters")),
		validation.Field(&r.Preferences, validation.By(func(interface{}) error {
			if r.Preferences == nil {
				return nil
			}
			return r.Preferences.validate(true)
		})),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("Invalid email format"), validation.Match(emailPattern).Error("Invalid email format")),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

type tokenRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r refreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required.Error("Refresh token is required")),
	)
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r updatePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required.Error("Current password is required")),
		validation.Field(&r.NewPassword, validation.Required.Error("New password must be at least 8 characters"), validation.RuneLength(8, 0).Error("New password must be at least 8 characters")),
	)
}

// preferencesPayload carries any subset of the ten scores.
type preferencesPayload struct {
	models.PreferencesUpdate
}

func (p *preferencesPayload) Validate() error {
	return p.validate(false)
}

// validate checks every provided score is in range; requireAll also demands
// all ten.
func (p *preferencesPayload) validate(requireAll bool) error {
	fields := make([]*validation.FieldRules, 0, len(models.PreferenceFields))
	for _, f := range models.PreferenceFields {
		rules := []validation.Rule{validation.By(scoreInRange)}
		if requireAll {
			rules = append([]validation.Rule{validation.NotNil.Error(f.Name + " is required")}, rules...)
		}
		fields = append(fields, validation.Field(f.Addr(&p.PreferencesUpdate), rules...))
	}
	return validation.ValidateStruct(p, fields...)
}

func scoreInRange(value interface{}) error {
	v, _ := value.(*int)
	if v == nil {
		return nil
	}
	if *v < models.MinPreferenceScore || *v > models.MaxPreferenceScore {
		return fmt.Errorf("must be between %d and %d", models.MinPreferenceScore, models.MaxPreferenceScore)
	}
	return nil
}

type connectWalletRequest struct {
	WalletAddress string  `json:"walletAddress"`
	Blockchain    string  `json:"blockchain"`
	Nickname      *string `json:"nickname,omitempty"`
}

func (r connectWalletRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.WalletAddress, validation.Required.Error("Wallet address is required")),
		validation.Field(&r.Blockchain, blockchainRules...),
		validation.Field(&r.Nickname, validation.RuneLength(0, 50).Error("Nickname must be at most 50 characters")),
	)
}

type generateAnalysisRequest struct {
	WalletAddress string `json:"walletAddress"`
	Blockchain    string `json:"blockchain"`
}

func (r generateAnalysisRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.WalletAddress, validation.Required.Error("Wallet address is required")),
		validation.Field(&r.Blockchain, blockchainRules...),
	)
}

// fieldErrors flattens validation errors into a stable, field-sorted list.
// Nested errors are named parent.child.
func fieldErrors(err error) []FieldError {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []FieldError{{Message: err.Error()}}
	}

	var out []FieldError
	flattenErrors("", errs, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func flattenErrors(prefix string, errs validation.Errors, out *[]FieldError) {
	for field, err := range errs {
		name := field
		if prefix != "" {
			name = prefix + "." + field
		}

		var nested validation.Errors
		if errors.As(err, &nested) {
			flattenErrors(name, nested, out)
			continue
		}
		*out = append(*out, FieldError{Field: name, Message: err.Error()})
	}
}
