package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wallet-insights/internal/adapter"
	"github.com/wallet-insights/internal/circuitbreaker"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/retry"
	"github.com/wallet-insights/internal/types"
)

// Investor profiles derived from preferences
const (
	ProfileConservative = "conservative"
	ProfileBalanced     = "balanced"
	ProfileAggressive   = "aggressive"
)

const quickSummaryFallback = "Analysis complete."

// ErrEmptyInsight is returned when the model answers with blank text
var ErrEmptyInsight = errors.New("Empty response from Gemini")

// TextGenerator produces text for a prompt
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// AIAnalysisPayload is the wallet summary handed to the model
type AIAnalysisPayload struct {
	types.ProfitLossResult
	Blockchain   types.Blockchain `json:"blockchain"`
	Balance      float64          `json:"balance"`
	CurrentPrice float64          `json:"currentPrice"`
}

// InsightService turns analysis metrics into personalised advice
type InsightService struct {
	generator TextGenerator
	policy    retry.Policy
	breaker   *circuitbreaker.CircuitBreaker
}

// NewInsightService creates an insight service
func NewInsightService(generator TextGenerator) *InsightService {
	return &InsightService{
		generator: generator,
		policy:    retry.DefaultPolicy("gemini"),
	}
}

// WithRetryPolicy replaces the retry policy
func (s *InsightService) WithRetryPolicy(p retry.Policy) *InsightService {
	s.policy = p
	return s
}

// WithCircuitBreaker guards generation with cb. A retried call counts as one
// outcome; while cb is open generation fails fast with a 503.
func (s *InsightService) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *InsightService {
	s.breaker = cb
	return s
}

// generate runs the retried generation through the breaker, when one is set.
func (s *InsightService) generate(ctx context.Context, op retry.Op[string]) (string, error) {
	if s.breaker == nil {
		return retry.Do(ctx, s.policy, op)
	}

	var text string
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = retry.Do(ctx, s.policy, op)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return "", apperrors.NewServiceUnavailableError("gemini")
	}
	return text, err
}

// ClassifyInvestor maps preferences to an investor profile using the mean of
// risk aversion, inverted volatility tolerance and inverted growth focus.
func ClassifyInvestor(p *models.InvestmentPreferences) string {
	avg := float64(p.RiskAversion+(10-p.VolatilityTolerance)+(10-p.GrowthFocus)) / 3
	switch {
	case avg >= 7:
		return ProfileConservative
	case avg >= 4:
		return ProfileBalanced
	default:
		return ProfileAggressive
	}
}

var preferenceLabels = []struct {
	label string
	value func(p *models.InvestmentPreferences) int
}{
	{"Risk Aversion", func(p *models.InvestmentPreferences) int { return p.RiskAversion }},
	{"Volatility Tolerance", func(p *models.InvestmentPreferences) int { return p.VolatilityTolerance }},
	{"Growth Focus", func(p *models.InvestmentPreferences) int { return p.GrowthFocus }},
	{"Crypto Experience", func(p *models.InvestmentPreferences) int { return p.CryptoExperience }},
	{"Innovation Trust", func(p *models.InvestmentPreferences) int { return p.InnovationTrust }},
	{"Impact Interest", func(p *models.InvestmentPreferences) int { return p.ImpactInterest }},
	{"Diversification Preference", func(p *models.InvestmentPreferences) int { return p.Diversification }},
	{"Holding Patience", func(p *models.InvestmentPreferences) int { return p.HoldingPatience }},
	{"Monitoring Frequency", func(p *models.InvestmentPreferences) int { return p.MonitoringFrequency }},
	{"Advice Openness", func(p *models.InvestmentPreferences) int { return p.AdviceOpenness }},
}

// BuildInsightPrompt renders the advisor prompt. Output is deterministic for
// equal inputs.
func BuildInsightPrompt(data AIAnalysisPayload, prefs *models.InvestmentPreferences, chain types.Blockchain) (string, error) {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis payload: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert cryptocurrency investment advisor. Analyze the following %s wallet data and provide personalized investment insights.\n\n", chain)
	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&b, "- Investor Type: %s\n", ClassifyInvestor(prefs))
	for _, l := range preferenceLabels {
		fmt.Fprintf(&b, "- %s: %d/10\n", l.label, l.value(prefs))
	}
	b.WriteString("\nWALLET ANALYSIS DATA:\n")
	b.Write(payload)
	b.WriteString("\n\nPlease provide:\n")
	b.WriteString("1. A brief assessment of the wallet's investment performance\n")
	b.WriteString("2. Risk analysis tailored to the user's profile\n")
	b.WriteString("3. 2-3 specific, actionable recommendations based on their preferences\n")
	b.WriteString("4. A risk score (1-10) for this portfolio given the user's profile\n\n")
	b.WriteString("Format your response in a clear, professional manner. Keep it concise (max 300 words).")

	return b.String(), nil
}

// BuildQuickSummaryPrompt renders the one-sentence summary prompt
func BuildQuickSummaryPrompt(profitLoss float64, chain types.Blockchain) string {
	performance := "profit"
	if profitLoss < 0 {
		performance = "loss"
	}
	return fmt.Sprintf(
		"In one sentence (under 50 words), summarize a %s wallet with a %s %s net %s. Be neutral and professional.",
		chain,
		strconv.FormatFloat(math.Abs(profitLoss), 'f', -1, 64),
		chain.Ticker(),
		performance,
	)
}

// GenerateInsights asks the model for advice on data given prefs. Blank
// answers are retried like any other failure.
func (s *InsightService) GenerateInsights(ctx context.Context, data AIAnalysisPayload, prefs *models.InvestmentPreferences, chain types.Blockchain) (string, error) {
	if !s.generator.Configured() {
		return "", adapter.ErrMissingGeminiKey
	}

	prompt, err := BuildInsightPrompt(data, prefs, chain)
	if err != nil {
		return "", err
	}

	return s.generate(ctx, func(ctx context.Context) (string, error) {
		text, err := s.generator.GenerateContent(ctx, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyInsight
		}
		return text, nil
	})
}

// GenerateQuickSummary returns a one-sentence description of a wallet's net
// result. A blank answer yields a fixed fallback.
func (s *InsightService) GenerateQuickSummary(ctx context.Context, profitLoss float64, chain types.Blockchain) (string, error) {
	if !s.generator.Configured() {
		return "", adapter.ErrMissingGeminiKey
	}

	prompt := BuildQuickSummaryPrompt(profitLoss, chain)
	return s.generate(ctx, func(ctx context.Context) (string, error) {
		text, err := s.generator.GenerateContent(ctx, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return quickSummaryFallback, nil
		}
		return text, nil
	})
}
