package services

import (
	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// ForecastEnsemble combines the per-model directional forecasts into one
// call. Disagreement between models lowers confidence but never suppresses
// the call.
type ForecastEnsemble struct {
	config config.EnsembleConfig
	logger *logrus.Logger
}

// NewForecastEnsemble creates a combiner with the configured disagreement
// penalty.
func NewForecastEnsemble(cfg config.EnsembleConfig, logger *logrus.Logger) *ForecastEnsemble {
	if cfg.DisagreementPenalty <= 0 || cfg.DisagreementPenalty > 1 {
		cfg.DisagreementPenalty = 0.85
	}
	return &ForecastEnsemble{config: cfg, logger: logger}
}

// Combine reduces the model outputs to a single forecast. No outputs means
// the ticker is outside the trained universe; that is a valid result with
// direction "unavailable", not an error.
func (fe *ForecastEnsemble) Combine(outputs []models.ModelForecast) models.ForecastResult {
	switch len(outputs) {
	case 0:
		return models.ForecastResult{
			Direction:  models.DirectionUnavailable,
			ModelsUsed: []string{},
		}
	case 1:
		return fe.single(outputs[0])
	default:
		return fe.blend(outputs)
	}
}

func (fe *ForecastEnsemble) single(m models.ModelForecast) models.ForecastResult {
	probUp := m.ProbUp
	probDown := m.ProbDown
	confidence := m.Confidence

	result := models.ForecastResult{
		Direction:      directionFor(probUp),
		ProbUp:         &probUp,
		ProbDown:       &probDown,
		Confidence:     &confidence,
		ModelsUsed:     []string{m.Model},
		ModelAgreement: true,
	}
	if m.ExpectedMovePct != nil {
		move := *m.ExpectedMovePct
		result.ExpectedMovePct = &move
	}
	return result
}

func (fe *ForecastEnsemble) blend(outputs []models.ModelForecast) models.ForecastResult {
	var probUp, confidence, movePct float64
	var moveCount int
	used := make([]string, 0, len(outputs))

	agreement := true
	firstSide := sideOf(outputs[0].ProbUp)
	for _, m := range outputs {
		probUp += m.ProbUp
		confidence += m.Confidence
		used = append(used, m.Model)
		if sideOf(m.ProbUp) != firstSide {
			agreement = false
		}
		if m.ExpectedMovePct != nil {
			movePct += *m.ExpectedMovePct
			moveCount++
		}
	}

	n := float64(len(outputs))
	probUp /= n
	confidence /= n
	probDown := 1 - probUp

	if !agreement {
		confidence *= fe.config.DisagreementPenalty
		fe.logger.WithFields(logrus.Fields{
			"models":     used,
			"penalty":    fe.config.DisagreementPenalty,
			"confidence": confidence,
		}).Debug("models split on direction, confidence penalized")
	}

	result := models.ForecastResult{
		Direction:      directionFor(probUp),
		ProbUp:         &probUp,
		ProbDown:       &probDown,
		Confidence:     &confidence,
		ModelsUsed:     used,
		ModelAgreement: agreement,
	}
	if moveCount > 0 {
		move := movePct / float64(moveCount)
		result.ExpectedMovePct = &move
	}
	return result
}

// directionFor maps a combined probability to a direction. Exactly 0.5 is
// neutral.
func directionFor(probUp float64) models.ForecastDirection {
	switch {
	case probUp > 0.5:
		return models.DirectionUpward
	case probUp < 0.5:
		return models.DirectionDownward
	default:
		return models.DirectionNeutral
	}
}

// sideOf collapses a probability onto the half it falls on; exactly 0.5
// agrees with neither side.
func sideOf(probUp float64) int {
	switch {
	case probUp > 0.5:
		return 1
	case probUp < 0.5:
		return -1
	default:
		return 0
	}
}
