package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/database"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// telegramSender is the slice of the bot API the service uses. The real bot
// satisfies it; tests substitute a recorder.
type telegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// NotificationService pushes analysis alerts over Telegram. It implements
// Alerter: results carrying critical contradictions go to the configured
// alert chat and to every subscribed user.
type NotificationService struct {
	pool   database.DatabasePool
	sender telegramSender
	config config.TelegramConfig
	logger *logrus.Logger
}

// NewNotificationService creates the notification service. With no bot token
// the service stays constructed but silent.
func NewNotificationService(pool database.DatabasePool, cfg config.TelegramConfig, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var sender telegramSender
	if cfg.BotToken != "" {
		if b, err := bot.New(cfg.BotToken); err == nil {
			sender = b
		} else {
			logger.WithError(err).Warn("telegram bot initialization failed, notifications disabled")
		}
	}

	return &NotificationService{
		pool:   pool,
		sender: sender,
		config: cfg,
		logger: logger,
	}
}

// Enabled reports whether a Telegram sender is wired.
func (ns *NotificationService) Enabled() bool {
	return ns.sender != nil
}

// AlertCriticalContradictions notifies subscribers about a result whose
// views are in critical conflict.
func (ns *NotificationService) AlertCriticalContradictions(ctx context.Context, result *models.AnalysisResult) {
	criticals := result.CriticalContradictions()
	if ns.sender == nil || len(criticals) == 0 {
		return
	}

	message := ns.formatCriticalAlert(result, criticals)
	sent := 0

	if ns.config.AlertChat != 0 {
		if err := ns.send(ctx, ns.config.AlertChat, message); err != nil {
			ns.logger.WithError(err).Warn("failed to send alert to alert chat")
		} else {
			sent++
		}
	}

	for _, user := range ns.eligibleUsers(ctx) {
		chatID, err := strconv.ParseInt(*user.TelegramChatID, 10, 64)
		if err != nil {
			ns.logger.WithField("user_id", user.ID).Warn("invalid telegram chat id")
			continue
		}
		if err := ns.send(ctx, chatID, message); err != nil {
			ns.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to send alert")
			continue
		}
		ns.logDelivery(ctx, user.ID, "critical_contradiction_alert")
		sent++
	}

	ns.logger.WithFields(logrus.Fields{
		"ticker":         result.Ticker,
		"contradictions": len(criticals),
		"deliveries":     sent,
	}).Info("critical contradiction alert dispatched")
}

func (ns *NotificationService) send(ctx context.Context, chatID int64, text string) error {
	_, err := ns.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// formatCriticalAlert renders the alert message for one result.
func (ns *NotificationService) formatCriticalAlert(result *models.AnalysisResult, criticals []models.Contradiction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 *Critical Contradiction: %s*\n\n", result.Ticker)
	fmt.Fprintf(&b, "The reconciled views on %s are in direct conflict:\n\n", result.Ticker)

	shown := criticals
	if len(shown) > 3 {
		shown = shown[:3]
	}
	for i, c := range shown {
		fmt.Fprintf(&b, "*%d.* %s\n", i+1, c.Message)
	}
	if len(criticals) > 3 {
		fmt.Fprintf(&b, "...and %d more\n", len(criticals)-3)
	}

	fmt.Fprintf(&b, "\n📊 Overall risk: *%s*\n", result.Risk.OverallRisk)
	fmt.Fprintf(&b, "🎯 Confidence: *%.0f%%* (%s)\n", result.Confidence*100, result.ConfidenceLabel)
	fmt.Fprintf(&b, "🧭 Outlook: *%s*\n", strings.ReplaceAll(result.Outlook, "_", " "))
	b.WriteString("\nUse /analyze " + result.Ticker + " for the full picture")

	return b.String()
}

// FormatAnalysisSummary renders the compact result view used for command
// replies.
func FormatAnalysisSummary(result *models.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📈 *%s* (%s analysis)\n\n", result.Ticker, result.AnalysisType)
	fmt.Fprintf(&b, "🧭 Outlook: *%s*\n", strings.ReplaceAll(result.Outlook, "_", " "))
	if result.Forecast.Available() {
		fmt.Fprintf(&b, "🔮 Forecast: *%s*", result.Forecast.Direction)
		if result.Forecast.Confidence != nil {
			fmt.Fprintf(&b, " (confidence %.0f%%)", *result.Forecast.Confidence*100)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("🔮 Forecast: unavailable for this ticker\n")
	}
	fmt.Fprintf(&b, "📊 Risk: *%s*\n", result.Risk.OverallRisk)
	fmt.Fprintf(&b, "🎯 Confidence: *%.0f%%* (%s)\n", result.Confidence*100, result.ConfidenceLabel)

	if len(result.Contradictions) > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d contradiction(s) detected:\n", len(result.Contradictions))
		shown := result.Contradictions
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for _, c := range shown {
			fmt.Fprintf(&b, "• [%s] %s\n", c.Severity, c.Message)
		}
	}
	if len(result.Risk.HiddenRisks) > 0 {
		b.WriteString("\n🔍 Hidden risks:\n")
		for _, r := range result.Risk.HiddenRisks {
			fmt.Fprintf(&b, "• %s\n", r)
		}
	}

	return b.String()
}

// eligibleUsers returns users with a Telegram chat id on file.
func (ns *NotificationService) eligibleUsers(ctx context.Context) []models.User {
	if ns.pool == nil {
		return nil
	}

	query := `
		SELECT id, email, telegram_chat_id, created_at, updated_at
		FROM users
		WHERE telegram_chat_id IS NOT NULL AND telegram_chat_id != ''
	`
	rows, err := ns.pool.Query(ctx, query)
	if err != nil {
		ns.logger.WithError(err).Warn("failed to query alert subscribers")
		return nil
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.TelegramChatID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			ns.logger.WithError(err).Warn("failed to scan subscriber row")
			continue
		}
		users = append(users, user)
	}
	return users
}

// logDelivery records the delivery in alert_notifications.
func (ns *NotificationService) logDelivery(ctx context.Context, userID, content string) {
	if ns.pool == nil {
		return
	}

	query := `
		INSERT INTO alert_notifications (user_id, notification_type, content, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	now := time.Now()
	if _, err := ns.pool.Exec(ctx, query, userID, "telegram", content, now, now); err != nil {
		ns.logger.WithError(err).WithField("user_id", userID).Warn("failed to log notification")
	}
}
