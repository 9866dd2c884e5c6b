package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/quantfold/equilens-ai-go/internal/cache"
	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/metrics"
	"github.com/quantfold/equilens-ai-go/internal/models"
	"github.com/quantfold/equilens-ai-go/internal/telemetry"
	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
	"github.com/quantfold/equilens-ai-go/pkg/marketdata"
)

const signalsCacheTTL = 120 * time.Second

// Alerter dispatches notifications for results that carry critical
// contradictions.
type Alerter interface {
	AlertCriticalContradictions(ctx context.Context, result *models.AnalysisResult)
}

// AnalysisService orchestrates the reconciliation pipeline: cache check,
// input fetch, one-way flow through the pure components, then persistence,
// metrics and alerting. Concurrent identical requests collapse onto one
// computation via single-flight.
type AnalysisService struct {
	config   *config.Config
	provider marketdata.DataProvider
	cache    interfaces.AnalysisCache
	repo     interfaces.AnalysisRepository
	metrics  *metrics.Metrics
	alerter  Alerter
	tracer   *telemetry.BusinessTracer
	logger   *logrus.Logger

	normalizer *SignalNormalizer
	ensemble   *ForecastEnsemble
	aggregator *RiskAggregator
	detector   *ContradictionDetector
	tracker    *UncertaintyTracker
	scorer     *ConfidenceScorer
	simulator  *ScenarioSimulator
	peers      *PeerComparator
	universe   map[string]bool

	flight singleflight.Group
}

// NewAnalysisService wires the pipeline. Repository, metrics and alerter are
// optional; a nil repository disables history, nil metrics and alerter are
// no-ops.
func NewAnalysisService(
	cfg *config.Config,
	provider marketdata.DataProvider,
	resultCache interfaces.AnalysisCache,
	repo interfaces.AnalysisRepository,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *AnalysisService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	aggregator := NewRiskAggregator(cfg.Risk, logger)
	universe := make(map[string]bool, len(cfg.Universe.Tickers))
	for _, t := range cfg.Universe.Tickers {
		universe[strings.ToUpper(t)] = true
	}

	return &AnalysisService{
		config:     cfg,
		provider:   provider,
		cache:      resultCache,
		repo:       repo,
		metrics:    m,
		tracer:     telemetry.NewBusinessTracer(),
		logger:     logger,
		normalizer: NewSignalNormalizer(cfg.Freshness, logger),
		ensemble:   NewForecastEnsemble(cfg.Ensemble, logger),
		aggregator: aggregator,
		detector:   NewContradictionDetector(cfg.Ensemble, logger),
		tracker:    NewUncertaintyTracker(logger),
		scorer:     NewConfidenceScorer(cfg.Confidence, logger),
		simulator:  NewScenarioSimulator(aggregator, logger),
		peers:      NewPeerComparator(logger),
		universe:   universe,
	}
}

// SetAlerter attaches the notification sink for critical contradictions.
func (s *AnalysisService) SetAlerter(a Alerter) {
	s.alerter = a
}

// Analyze runs one research query end to end. Cached results are returned
// as-is; misses compute once per key regardless of concurrent callers.
func (s *AnalysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = models.AnalysisFull
		if req.Scenario != "" {
			analysisType = models.AnalysisScenario
		}
	}
	if !models.ValidAnalysisType(analysisType) {
		return nil, fmt.Errorf("unknown analysis type %q", analysisType)
	}

	// An invalid scenario key is fatal to this call, before any fetch.
	var scenarioKey models.ScenarioKey
	if analysisType == models.AnalysisScenario || req.Scenario != "" {
		assumptions, err := ResolveScenario(req.Scenario)
		if err != nil {
			return nil, err
		}
		scenarioKey = assumptions.Key
	}

	key := cache.AnalysisKey(ticker, analysisType)
	if scenarioKey != "" {
		key = cache.ScenarioKey(ticker, analysisType, scenarioKey)
	}

	if result, ok := s.cachedResult(ctx, key); ok {
		s.metrics.RecordCacheLookup(true)
		s.metrics.ObserveAnalysis(string(analysisType), metrics.OutcomeCacheHit, 0)
		return result, nil
	}
	s.metrics.RecordCacheLookup(false)

	value, err, shared := s.flight.Do(key, func() (interface{}, error) {
		return s.compute(ctx, ticker, analysisType, scenarioKey, req.Peers, key)
	})
	if err != nil {
		s.metrics.ObserveAnalysis(string(analysisType), metrics.OutcomeError, 0)
		return nil, err
	}
	if shared {
		s.logger.WithFields(logrus.Fields{
			"ticker": ticker,
			"key":    key,
		}).Debug("analysis shared with concurrent caller")
	}

	return value.(*models.AnalysisResult), nil
}

func (s *AnalysisService) cachedResult(ctx context.Context, key string) (*models.AnalysisResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("discarding undecodable cached result")
		return nil, false
	}
	return &result, true
}

func (s *AnalysisService) compute(
	ctx context.Context,
	ticker string,
	analysisType models.AnalysisType,
	scenarioKey models.ScenarioKey,
	peerTickers []string,
	cacheKey string,
) (*models.AnalysisResult, error) {
	start := time.Now()
	ctx, span := s.tracer.TraceAnalysisPipeline(ctx, ticker, string(analysisType))
	defer span.Finish()

	inputs, err := s.provider.FetchAnalysisInputs(ctx, ticker, peerTickers)
	if err != nil {
		s.metrics.RecordProviderFailure()
		return nil, fmt.Errorf("failed to fetch inputs for %s: %w", ticker, err)
	}

	result, err := s.runPipeline(inputs, analysisType, scenarioKey)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	s.tracer.RecordPipelineResult(span, telemetry.PipelineMetrics{
		Confidence:         result.Confidence,
		ConfidenceLabel:    string(result.ConfidenceLabel),
		OverallRisk:        string(result.Risk.OverallRisk),
		Outlook:            result.Outlook,
		ContradictionCount: len(result.Contradictions),
		UncertaintyCount:   len(result.Uncertainties),
		Duration:           elapsed,
	})
	s.finish(ctx, result, cacheKey, elapsed)
	return result, nil
}

// runPipeline is the one-way flow: normalize, combine, aggregate, detect,
// track, score, then synthesize the envelope. Pure given its inputs.
func (s *AnalysisService) runPipeline(
	inputs *models.AnalysisInputs,
	analysisType models.AnalysisType,
	scenarioKey models.ScenarioKey,
) (*models.AnalysisResult, error) {
	inUniverse := inputs.InUniverse && s.inUniverse(inputs.Ticker)

	earnings := AnalyzeEarningsStability(inputs.Fundamentals)
	peerReport := s.peers.Compare(inputs.Fundamentals, inputs.Peers)
	signals := s.normalizer.Normalize(inputs, peerReport, earnings)

	modelOutputs := inputs.ModelOutputs
	if !inUniverse {
		modelOutputs = nil
	}
	forecast := s.ensemble.Combine(modelOutputs)

	leverage := AnalyzeLeverage(inputs.Fundamentals)
	liquidity := AnalyzeLiquidity(inputs.Fundamentals)
	risk := s.aggregator.Aggregate(inputs.Fundamentals, &forecast, leverage, liquidity, earnings)

	contradictions := s.detector.Detect(&DetectionContext{
		Ticker:   inputs.Ticker,
		Signals:  signals,
		Forecast: &forecast,
		Risk:     &risk,
		Peers:    peerReport,
		Earnings: earnings,
	})

	earningsYears := 0
	if inputs.Fundamentals != nil {
		earningsYears = len(inputs.Fundamentals.EarningsHistory)
	}
	uncertainties := s.tracker.Track(
		inputs.Ticker, analysisType, signals, &forecast,
		inUniverse, len(inputs.Peers), earningsYears,
	)

	confidence := s.scorer.Score(contradictions, uncertainties)

	for _, c := range contradictions {
		s.metrics.RecordContradiction(string(c.Severity), c.Type)
	}
	for _, u := range uncertainties {
		s.metrics.RecordUncertainty(string(u.Severity))
	}

	result := &models.AnalysisResult{
		ID:                uuid.New().String(),
		Ticker:            inputs.Ticker,
		AnalysisType:      analysisType,
		GeneratedAt:       time.Now().UTC(),
		Forecast:          forecast,
		Risk:              risk,
		Contradictions:    contradictions,
		Uncertainties:     uncertainties,
		Confidence:        confidence.Score,
		ConfidenceLabel:   confidence.Label,
		ConfidenceFactors: confidence.Factors,
		PeerPositioning:   peerReport,
		Outlook:           SynthesizeOutlook(&forecast, &risk, confidence.Score),
		KeyMetrics:        BuildKeyMetrics(inputs.Fundamentals),
	}
	result.Risk.HiddenRisks = CapHiddenRisks(result.Risk.HiddenRisks)

	if scenarioKey != "" {
		adjustment, err := s.simulator.Simulate(string(scenarioKey), inputs.Fundamentals, &forecast)
		if err != nil {
			return nil, err
		}
		result.Scenario = adjustment
	}

	return result, nil
}

// finish handles the side effects of a fresh result: cache write, history
// persistence, metrics and alerting.
func (s *AnalysisService) finish(ctx context.Context, result *models.AnalysisResult, cacheKey string, elapsed time.Duration) {
	if s.cache != nil {
		if payload, err := json.Marshal(result); err == nil {
			ttl := s.config.Cache.TTLFor(string(result.AnalysisType))
			if err := s.cache.Set(ctx, cacheKey, payload, ttl); err != nil {
				s.logger.WithError(err).WithField("key", cacheKey).Warn("failed to cache result")
			}
		}
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, result); err != nil {
			s.logger.WithError(err).WithField("ticker", result.Ticker).Warn("failed to persist analysis")
		}
	}

	s.metrics.ObserveAnalysis(string(result.AnalysisType), metrics.OutcomeOK, elapsed.Seconds())

	if s.alerter != nil && len(result.CriticalContradictions()) > 0 {
		s.metrics.RecordAlert()
		go s.alerter.AlertCriticalContradictions(context.WithoutCancel(ctx), result)
	}

	s.logger.WithFields(logrus.Fields{
		"ticker":         result.Ticker,
		"analysis_type":  result.AnalysisType,
		"confidence":     result.Confidence,
		"overall_risk":   result.Risk.OverallRisk,
		"contradictions": len(result.Contradictions),
		"duration_ms":    elapsed.Milliseconds(),
	}).Info("analysis completed")
}

// NormalizedSignals exposes the signal-set view for one ticker, cached
// briefly under its own key.
func (s *AnalysisService) NormalizedSignals(ctx context.Context, ticker string) (*models.SignalSet, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	key := cache.SignalsKey(ticker)
	if s.cache != nil {
		if payload, found, err := s.cache.Get(ctx, key); err == nil && found {
			var set models.SignalSet
			if err := json.Unmarshal(payload, &set); err == nil {
				return &set, nil
			}
		}
	}

	value, err, _ := s.flight.Do(key, func() (interface{}, error) {
		inputs, err := s.provider.FetchAnalysisInputs(ctx, ticker, nil)
		if err != nil {
			s.metrics.RecordProviderFailure()
			return nil, fmt.Errorf("failed to fetch inputs for %s: %w", ticker, err)
		}
		earnings := AnalyzeEarningsStability(inputs.Fundamentals)
		peerReport := s.peers.Compare(inputs.Fundamentals, inputs.Peers)
		set := s.normalizer.Normalize(inputs, peerReport, earnings)

		if s.cache != nil {
			if payload, err := json.Marshal(set); err == nil {
				if err := s.cache.Set(ctx, key, payload, signalsCacheTTL); err != nil {
					s.logger.WithError(err).Warn("failed to cache signal set")
				}
			}
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*models.SignalSet), nil
}

// GetStored retrieves a persisted result by id.
func (s *AnalysisService) GetStored(ctx context.Context, id string) (*interfaces.StoredAnalysis, error) {
	if s.repo == nil {
		return nil, models.ErrAnalysisNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// History lists a ticker's persisted results, newest first.
func (s *AnalysisService) History(ctx context.Context, ticker string, limit int) ([]interfaces.StoredAnalysis, error) {
	if s.repo == nil {
		return []interfaces.StoredAnalysis{}, nil
	}
	return s.repo.ListByTicker(ctx, ticker, limit)
}

// InvalidateTicker drops every cached entry for a ticker.
func (s *AnalysisService) InvalidateTicker(ctx context.Context, ticker string) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	var removed int64
	for _, prefix := range cache.TickerPrefix(ticker) {
		n, err := s.cache.DeletePrefix(ctx, prefix)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// CacheStats snapshots the result-cache counters.
func (s *AnalysisService) CacheStats() interfaces.CacheStats {
	if s.cache == nil {
		return interfaces.CacheStats{}
	}
	return s.cache.GetStats()
}

func (s *AnalysisService) inUniverse(ticker string) bool {
	if len(s.universe) == 0 {
		return true
	}
	return s.universe[strings.ToUpper(ticker)]
}
