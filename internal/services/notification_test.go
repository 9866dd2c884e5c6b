package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/database"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// notifyPoolAdapter wraps pgxmock.PgxPoolIface to implement DatabasePool.
type notifyPoolAdapter struct {
	mock pgxmock.PgxPoolIface
}

func newNotifyPoolAdapter(mock pgxmock.PgxPoolIface) database.DatabasePool {
	return &notifyPoolAdapter{mock: mock}
}

func (a *notifyPoolAdapter) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return a.mock.QueryRow(ctx, sql, args...)
}

func (a *notifyPoolAdapter) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	result, err := a.mock.Exec(ctx, sql, args...)
	if err == nil {
		rows := result.RowsAffected()
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT %d", rows)), nil
	}
	return pgconn.CommandTag{}, err
}

func (a *notifyPoolAdapter) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return a.mock.Query(ctx, sql, args...)
}

// recordingSender captures outgoing Telegram messages.
type recordingSender struct {
	mu       sync.Mutex
	messages []*bot.SendMessageParams
}

func (r *recordingSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, params)
	return &tgmodels.Message{}, nil
}

func (r *recordingSender) sent() []*bot.SendMessageParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*bot.SendMessageParams{}, r.messages...)
}

func newTestNotificationService(sender telegramSender, cfg config.TelegramConfig) *NotificationService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &NotificationService{
		sender: sender,
		config: cfg,
		logger: logger,
	}
}

func criticalResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:     "test-id",
		Ticker: "XOM",
		Risk:   models.RiskAssessment{OverallRisk: models.RiskHigh},
		Contradictions: []models.Contradiction{
			{
				Type:     models.ContradictionProfitabilityVsCashflow,
				Severity: models.SeverityCritical,
				Message:  "XOM reports positive net income but free cash flow covers only 20% of it",
			},
		},
		Confidence:      0.55,
		ConfidenceLabel: models.ConfidenceModerate,
		Outlook:         models.OutlookCautious,
	}
}

func TestNotificationService_AlertSentToAlertChat(t *testing.T) {
	sender := &recordingSender{}
	ns := newTestNotificationService(sender, config.TelegramConfig{AlertChat: 42})

	ns.AlertCriticalContradictions(context.Background(), criticalResult())

	messages := sender.sent()
	require.Len(t, messages, 1)
	assert.Equal(t, int64(42), messages[0].ChatID)
	assert.Contains(t, messages[0].Text, "Critical Contradiction: XOM")
	assert.Contains(t, messages[0].Text, "free cash flow")
	assert.Contains(t, messages[0].Text, "Overall risk: *high*")
}

func TestNotificationService_NoCriticalsNoSend(t *testing.T) {
	sender := &recordingSender{}
	ns := newTestNotificationService(sender, config.TelegramConfig{AlertChat: 42})

	result := criticalResult()
	result.Contradictions[0].Severity = models.SeverityWarning

	ns.AlertCriticalContradictions(context.Background(), result)

	assert.Empty(t, sender.sent())
}

func TestNotificationService_DisabledWithoutSender(t *testing.T) {
	ns := newTestNotificationService(nil, config.TelegramConfig{AlertChat: 42})

	assert.False(t, ns.Enabled())
	// Must not panic with no sender wired.
	ns.AlertCriticalContradictions(context.Background(), criticalResult())
}

func TestNotificationService_DeliversToSubscribers(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	chatID := "777"
	rows := pgxmock.NewRows([]string{"id", "email", "telegram_chat_id", "created_at", "updated_at"}).
		AddRow("user-1", "a@b.com", &chatID, testSignalTime(), testSignalTime())
	mockPool.ExpectQuery("SELECT id, email, telegram_chat_id").WillReturnRows(rows)
	mockPool.ExpectExec("INSERT INTO alert_notifications").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sender := &recordingSender{}
	ns := newTestNotificationService(sender, config.TelegramConfig{})
	ns.pool = newNotifyPoolAdapter(mockPool)

	ns.AlertCriticalContradictions(context.Background(), criticalResult())

	messages := sender.sent()
	require.Len(t, messages, 1)
	assert.Equal(t, int64(777), messages[0].ChatID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestNotificationService_InvalidChatIDSkipped(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	chatID := "not-a-number"
	rows := pgxmock.NewRows([]string{"id", "email", "telegram_chat_id", "created_at", "updated_at"}).
		AddRow("user-1", "a@b.com", &chatID, testSignalTime(), testSignalTime())
	mockPool.ExpectQuery("SELECT id, email, telegram_chat_id").WillReturnRows(rows)

	sender := &recordingSender{}
	ns := newTestNotificationService(sender, config.TelegramConfig{})
	ns.pool = newNotifyPoolAdapter(mockPool)

	ns.AlertCriticalContradictions(context.Background(), criticalResult())

	assert.Empty(t, sender.sent())
}

func TestFormatAnalysisSummary(t *testing.T) {
	confidence := 0.72
	result := &models.AnalysisResult{
		Ticker:       "AAPL",
		AnalysisType: models.AnalysisFull,
		Forecast: models.ForecastResult{
			Direction:      models.DirectionUpward,
			Confidence:     &confidence,
			ModelsUsed:     []string{models.ModelTFT},
			ModelAgreement: true,
		},
		Risk: models.RiskAssessment{
			OverallRisk: models.RiskModerate,
			HiddenRisks: []string{"high leverage combined with liquidity strain compounds refinancing risk"},
		},
		Confidence:      0.8,
		ConfidenceLabel: models.ConfidenceHigh,
		Outlook:         models.OutlookPositive,
	}

	summary := FormatAnalysisSummary(result)

	assert.Contains(t, summary, "*AAPL*")
	assert.Contains(t, summary, "upward")
	assert.Contains(t, summary, "confidence 72%")
	assert.Contains(t, summary, "Hidden risks")
	assert.Contains(t, summary, "refinancing risk")
}

func TestFormatAnalysisSummary_UnavailableForecast(t *testing.T) {
	result := &models.AnalysisResult{
		Ticker:       "ZZZZ",
		AnalysisType: models.AnalysisFull,
		Forecast:     models.ForecastResult{Direction: models.DirectionUnavailable},
		Risk:         models.RiskAssessment{OverallRisk: models.RiskLow},
		Outlook:      models.OutlookNeutral,
	}

	summary := FormatAnalysisSummary(result)

	assert.Contains(t, summary, "unavailable for this ticker")
}
