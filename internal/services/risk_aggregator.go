package services

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Hidden-risk thresholds recovered from the fundamental screens.
const (
	leveragedGrowthDE   = 2.0
	leveragedGrowthPE   = 40.0
	thinCushionCurrent  = 1.25
	thinCushionFCFYield = 0.01
	highBetaThreshold   = 1.5
	thinMarginPct       = 5.0
	accrualGapFCFRatio  = 0.30
	dedupOverlapRatio   = 0.6
)

// hiddenRiskRule is one ordered heuristic: a predicate over the aggregated
// view plus a message builder. Each rule fires at most once per assessment.
type hiddenRiskRule struct {
	name    string
	applies func(*riskContext) bool
	message func(*riskContext) string
}

// riskContext carries everything the hidden-risk pass inspects.
type riskContext struct {
	fundamentals *models.FundamentalSnapshot
	forecast     *models.ForecastResult
	leverage     models.ComponentRisk
	liquidity    models.ComponentRisk
	earnings     *models.EarningsStabilityReport
	overallScore float64
	margin       float64
}

// RiskAggregator folds the component risk levels into the overall 0-100
// score, buckets it, and runs the ordered hidden-risk pass.
type RiskAggregator struct {
	config config.RiskConfig
	rules  []hiddenRiskRule
	logger *logrus.Logger
}

// NewRiskAggregator creates an aggregator with the configured component
// weights. Weights are normalized so only their proportions matter.
func NewRiskAggregator(cfg config.RiskConfig, logger *logrus.Logger) *RiskAggregator {
	total := cfg.LeverageWeight + cfg.LiquidityWeight + cfg.EarningsWeight
	if total <= 0 {
		cfg.LeverageWeight, cfg.LiquidityWeight, cfg.EarningsWeight = 1, 1, 1
		total = 3
	}
	cfg.LeverageWeight /= total
	cfg.LiquidityWeight /= total
	cfg.EarningsWeight /= total
	if cfg.BoundaryMargin <= 0 {
		cfg.BoundaryMargin = 5
	}

	return &RiskAggregator{
		config: cfg,
		rules:  hiddenRiskRules(),
		logger: logger,
	}
}

// Aggregate produces the full risk assessment for one query.
func (ra *RiskAggregator) Aggregate(
	fundamentals *models.FundamentalSnapshot,
	forecast *models.ForecastResult,
	leverage, liquidity models.ComponentRisk,
	earnings *models.EarningsStabilityReport,
) models.RiskAssessment {
	earningsLevel := models.RiskModerate
	if earnings != nil {
		earningsLevel = earnings.RiskLevel
	}

	score, overall := ra.CombineLevels(leverage.Level, liquidity.Level, earningsLevel)

	keyRisks := ra.collectKeyRisks(leverage, liquidity, earnings)

	ctx := &riskContext{
		fundamentals: fundamentals,
		forecast:     forecast,
		leverage:     leverage,
		liquidity:    liquidity,
		earnings:     earnings,
		overallScore: score,
		margin:       ra.config.BoundaryMargin,
	}

	hidden := ra.runHiddenRiskPass(ctx, keyRisks)

	ra.logger.WithFields(logrus.Fields{
		"overall_risk": overall,
		"score":        score,
		"hidden_risks": len(hidden),
		"key_risks":    len(keyRisks),
	}).Debug("aggregated risk assessment")

	return models.RiskAssessment{
		OverallRisk:       overall,
		OverallRiskScore:  score,
		LeverageRisk:      leverage.Level,
		LiquidityRisk:     liquidity.Level,
		EarningsStability: earningsLevel,
		HiddenRisks:       hidden,
		KeyRisks:          keyRisks,
	}
}

// CombineLevels computes the weighted 0-100 score and its bucket from three
// component levels. The scenario simulator reuses this for its stressed
// outlook so both paths bucket identically.
func (ra *RiskAggregator) CombineLevels(leverage, liquidity, earnings models.RiskLevel) (float64, models.RiskLevel) {
	score := leverage.Score()*ra.config.LeverageWeight +
		liquidity.Score()*ra.config.LiquidityWeight +
		earnings.Score()*ra.config.EarningsWeight
	return score, models.BucketRiskScore(score)
}

func (ra *RiskAggregator) collectKeyRisks(leverage, liquidity models.ComponentRisk, earnings *models.EarningsStabilityReport) []string {
	risks := []string{}
	risks = append(risks, leverage.Flags...)
	risks = append(risks, liquidity.Flags...)
	if earnings != nil {
		switch earnings.Classification {
		case models.EarningsHighlyVolatile:
			risks = append(risks, "earnings history is highly volatile year to year")
		case models.EarningsModeratelyVolatile:
			risks = append(risks, "earnings show meaningful year-to-year swings")
		case models.EarningsInsufficientData:
			risks = append(risks, "earnings record too short to judge stability")
		}
		if earnings.Trend == models.TrendDeclining {
			risks = append(risks, "net income has been trending down")
		}
	}
	return risks
}

func (ra *RiskAggregator) runHiddenRiskPass(ctx *riskContext, keyRisks []string) []string {
	hidden := []string{}
	for _, rule := range ra.rules {
		if !rule.applies(ctx) {
			continue
		}
		msg := rule.message(ctx)
		if isDuplicateRisk(msg, keyRisks) || isDuplicateRisk(msg, hidden) {
			continue
		}
		hidden = append(hidden, msg)
	}
	return hidden
}

// hiddenRiskRules returns the ordered heuristic list. Rules predicated on
// raw fundamentals cannot fire when those figures are unreported.
func hiddenRiskRules() []hiddenRiskRule {
	return []hiddenRiskRule{
		{
			name: "fragile_classification",
			applies: func(c *riskContext) bool {
				return nearestBoundaryDistance(c.overallScore) < c.margin
			},
			message: func(c *riskContext) string {
				return fmt.Sprintf("risk score %.1f sits near a classification boundary, small changes could reclassify it", c.overallScore)
			},
		},
		{
			name: "compounding_risk",
			applies: func(c *riskContext) bool {
				return len(c.liquidity.Flags) > 0 && c.leverage.Level.AtLeast(models.RiskHigh)
			},
			message: func(c *riskContext) string {
				return "high leverage combined with liquidity strain compounds refinancing risk"
			},
		},
		{
			name: "forecast_fundamentals_tension",
			applies: func(c *riskContext) bool {
				return c.earnings != nil &&
					c.earnings.Classification == models.EarningsHighlyVolatile &&
					c.forecast != nil && c.forecast.Direction == models.DirectionUpward
			},
			message: func(c *riskContext) string {
				return "upward forecast rests on a highly volatile earnings base"
			},
		},
		{
			name: "leveraged_growth_premium",
			applies: func(c *riskContext) bool {
				de, deOK := c.fundamentals.DebtToEquityRatio()
				f := c.fundamentals
				return deOK && f != nil && f.PERatio != nil &&
					de > leveragedGrowthDE && *f.PERatio > leveragedGrowthPE
			},
			message: func(c *riskContext) string {
				de, _ := c.fundamentals.DebtToEquityRatio()
				return fmt.Sprintf("growth premium (P/E %.1f) is financed with heavy leverage (D/E %.1f)", *c.fundamentals.PERatio, de)
			},
		},
		{
			name: "thin_liquidity_cushion",
			applies: func(c *riskContext) bool {
				current, currentOK := c.fundamentals.CurrentRatio()
				fcfYield, yieldOK := c.fundamentals.FCFYield()
				return currentOK && yieldOK &&
					current < thinCushionCurrent && fcfYield < thinCushionFCFYield
			},
			message: func(c *riskContext) string {
				current, _ := c.fundamentals.CurrentRatio()
				return fmt.Sprintf("current ratio %.2f with weak free cash flow leaves little liquidity cushion", current)
			},
		},
		{
			name: "high_beta_thin_margin",
			applies: func(c *riskContext) bool {
				f := c.fundamentals
				return f != nil && f.Beta != nil && f.NetMarginPct != nil &&
					*f.Beta > highBetaThreshold && *f.NetMarginPct < thinMarginPct
			},
			message: func(c *riskContext) string {
				return fmt.Sprintf("high market sensitivity (beta %.2f) with thin margins (%.1f%%) amplifies downside", *c.fundamentals.Beta, *c.fundamentals.NetMarginPct)
			},
		},
		{
			name: "earnings_quality_accrual_gap",
			applies: func(c *riskContext) bool {
				ratio, ok := c.fundamentals.FCFToNetIncome()
				return ok && ratio < accrualGapFCFRatio
			},
			message: func(c *riskContext) string {
				ratio, _ := c.fundamentals.FCFToNetIncome()
				return fmt.Sprintf("free cash flow is only %.0f%% of reported net income, earnings quality may be weak", ratio*100)
			},
		},
	}
}

func nearestBoundaryDistance(score float64) float64 {
	nearest := math.Inf(1)
	for _, boundary := range models.RiskBoundaries() {
		if d := math.Abs(score - boundary); d < nearest {
			nearest = d
		}
	}
	return nearest
}

// isDuplicateRisk reports whether a candidate message restates one already
// listed, by token overlap on normalized text.
func isDuplicateRisk(candidate string, existing []string) bool {
	candidateTokens := riskTokens(candidate)
	for _, msg := range existing {
		if tokenOverlap(candidateTokens, riskTokens(msg)) >= dedupOverlapRatio {
			return true
		}
	}
	return false
}

var riskTextNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func riskTokens(s string) map[string]bool {
	normalized, _, err := transform.String(riskTextNormalizer, strings.ToLower(s))
	if err != nil {
		normalized = strings.ToLower(s)
	}
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(tok) > 2 {
			tokens[tok] = true
		}
	}
	return tokens
}

func tokenOverlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	var shared int
	for tok := range smaller {
		if larger[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(smaller))
}
