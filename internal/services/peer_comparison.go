package services

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Peer-relative thresholds.
const (
	valuationBand    = 0.20
	marginWideBandPP = 10.0
	marginSlimBandPP = 5.0
	leverageBand     = 0.30
)

// PeerComparator positions a ticker against its peer group on valuation,
// profitability and leverage. Averages ignore peers that did not report the
// figure.
type PeerComparator struct {
	logger *logrus.Logger
}

// NewPeerComparator creates a comparator.
func NewPeerComparator(logger *logrus.Logger) *PeerComparator {
	return &PeerComparator{logger: logger}
}

// Compare builds the positioning report. With no peers every position reads
// peer_data_unavailable.
func (pc *PeerComparator) Compare(f *models.FundamentalSnapshot, peers []models.PeerCompany) *models.PeerReport {
	report := &models.PeerReport{
		PeerCount:         len(peers),
		ValuationPosition: models.PeerDataUnavailable,
		MarginPosition:    models.PeerDataUnavailable,
		LeveragePosition:  models.PeerDataUnavailable,
	}
	if len(peers) == 0 || f == nil {
		report.Summary = "no peer group available"
		return report
	}

	report.ValuationPosition = pc.valuationPosition(f, peers)
	report.MarginPosition = pc.marginPosition(f, peers)
	report.LeveragePosition = pc.leveragePosition(f, peers)
	report.Summary = summarizePositions(report)

	pc.logger.WithFields(logrus.Fields{
		"ticker":    f.Ticker,
		"peers":     len(peers),
		"valuation": report.ValuationPosition,
		"margin":    report.MarginPosition,
		"leverage":  report.LeveragePosition,
	}).Debug("peer positioning computed")

	return report
}

func (pc *PeerComparator) valuationPosition(f *models.FundamentalSnapshot, peers []models.PeerCompany) string {
	if f.PERatio == nil {
		return models.PeerDataUnavailable
	}
	avg, ok := peerAverage(peers, func(p models.PeerCompany) *float64 { return p.PERatio })
	if !ok || avg <= 0 {
		return models.PeerDataUnavailable
	}

	switch {
	case *f.PERatio > avg*(1+valuationBand):
		return models.PeerPremiumValuation
	case *f.PERatio < avg*(1-valuationBand):
		return models.PeerUndervalued
	default:
		return models.PeerInLine
	}
}

func (pc *PeerComparator) marginPosition(f *models.FundamentalSnapshot, peers []models.PeerCompany) string {
	if f.NetMarginPct == nil {
		return models.PeerDataUnavailable
	}
	avg, ok := peerAverage(peers, func(p models.PeerCompany) *float64 { return p.NetMarginPct })
	if !ok {
		return models.PeerDataUnavailable
	}

	diff := *f.NetMarginPct - avg
	switch {
	case diff > marginWideBandPP:
		return models.PeerAbove
	case diff > marginSlimBandPP:
		return models.PeerSlightlyAbove
	case diff < -marginWideBandPP:
		return models.PeerBelow
	case diff < -marginSlimBandPP:
		return models.PeerSlightlyBelow
	default:
		return models.PeerInLine
	}
}

func (pc *PeerComparator) leveragePosition(f *models.FundamentalSnapshot, peers []models.PeerCompany) string {
	de, ok := f.DebtToEquityRatio()
	if !ok {
		return models.PeerDataUnavailable
	}
	avg, avgOK := peerAverage(peers, func(p models.PeerCompany) *float64 { return p.DebtToEquity })
	if !avgOK || avg <= 0 {
		return models.PeerDataUnavailable
	}

	switch {
	case de > avg*(1+leverageBand):
		return models.PeerHigherLeverage
	case de < avg*(1-leverageBand):
		return models.PeerLowerLeverage
	default:
		return models.PeerSimilarLeverage
	}
}

func peerAverage(peers []models.PeerCompany, pick func(models.PeerCompany) *float64) (float64, bool) {
	var sum float64
	var n int
	for _, p := range peers {
		if v := pick(p); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func summarizePositions(report *models.PeerReport) string {
	parts := []string{}
	if report.ValuationPosition != models.PeerDataUnavailable {
		parts = append(parts, fmt.Sprintf("valuation %s", humanizeLabel(report.ValuationPosition)))
	}
	if report.MarginPosition != models.PeerDataUnavailable {
		parts = append(parts, fmt.Sprintf("margins %s", humanizeLabel(report.MarginPosition)))
	}
	if report.LeveragePosition != models.PeerDataUnavailable {
		parts = append(parts, fmt.Sprintf("leverage %s", humanizeLabel(report.LeveragePosition)))
	}
	if len(parts) == 0 {
		return "peer figures unavailable"
	}
	return fmt.Sprintf("versus %d peers: %s", report.PeerCount, strings.Join(parts, ", "))
}

func humanizeLabel(label string) string {
	return strings.ReplaceAll(label, "_", " ")
}
