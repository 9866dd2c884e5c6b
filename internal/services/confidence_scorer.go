package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Label thresholds for the reconciled score.
const (
	labelHighFloor         = 0.80
	labelModerateHighFloor = 0.65
	labelModerateFloor     = 0.50
	labelLowFloor          = 0.35
)

// ConfidenceScorer folds contradiction severities and uncertainty flags into
// one scalar. It reads only the two lists; the reduction is order-independent
// and monotone non-increasing as worse items are added.
type ConfidenceScorer struct {
	config config.ConfidenceConfig
	logger *logrus.Logger
}

// NewConfidenceScorer creates a scorer with the configured penalty table.
func NewConfidenceScorer(cfg config.ConfidenceConfig, logger *logrus.Logger) *ConfidenceScorer {
	return &ConfidenceScorer{config: cfg, logger: logger}
}

// Score reduces the lists to a clamped [0,1] scalar with a label and the
// per-penalty breakdown behind it.
func (cs *ConfidenceScorer) Score(contradictions []models.Contradiction, uncertainties []models.Uncertainty) models.ConfidenceScore {
	score := 1.0
	factors := []models.ConfidenceFactor{}

	for _, c := range contradictions {
		penalty := cs.contradictionPenalty(c.Severity)
		score -= penalty
		factors = append(factors, models.ConfidenceFactor{
			Factor: fmt.Sprintf("%s_contradiction", c.Severity),
			Impact: -penalty,
			Detail: c.Message,
		})
	}

	for _, u := range uncertainties {
		penalty := cs.uncertaintyPenalty(u.Severity)
		score -= penalty
		factors = append(factors, models.ConfidenceFactor{
			Factor: fmt.Sprintf("%s_uncertainty", u.Severity),
			Impact: -penalty,
			Detail: u.Message,
		})
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	label := LabelForScore(score)
	cs.logger.WithFields(logrus.Fields{
		"score":          score,
		"label":          label,
		"contradictions": len(contradictions),
		"uncertainties":  len(uncertainties),
	}).Debug("confidence scored")

	return models.ConfidenceScore{Score: score, Label: label, Factors: factors}
}

func (cs *ConfidenceScorer) contradictionPenalty(severity models.ContradictionSeverity) float64 {
	switch severity {
	case models.SeverityCritical:
		return cs.config.CriticalContradiction
	case models.SeverityWarning:
		return cs.config.WarningContradiction
	default:
		return cs.config.NoteContradiction
	}
}

func (cs *ConfidenceScorer) uncertaintyPenalty(severity models.UncertaintySeverity) float64 {
	switch severity {
	case models.UncertaintyHigh:
		return cs.config.HighUncertainty
	case models.UncertaintyMedium:
		return cs.config.MediumUncertainty
	default:
		return cs.config.LowUncertainty
	}
}

// LabelForScore maps a score onto the qualitative scale.
func LabelForScore(score float64) models.ConfidenceLabel {
	switch {
	case score >= labelHighFloor:
		return models.ConfidenceHigh
	case score >= labelModerateHighFloor:
		return models.ConfidenceModerateHigh
	case score >= labelModerateFloor:
		return models.ConfidenceModerate
	case score >= labelLowFloor:
		return models.ConfidenceLow
	default:
		return models.ConfidenceVeryLow
	}
}
