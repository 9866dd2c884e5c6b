package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/database"
	"github.com/quantfold/equilens-ai-go/internal/models"
	"github.com/quantfold/equilens-ai-go/internal/services"
)

// MessageSender is the slice of the bot API the webhook handler uses.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramHandler processes webhook updates from the research bot: command
// parsing, on-demand analyses and subscriber registration.
type TelegramHandler struct {
	pool     database.DatabasePool
	analysis AnalysisAPI
	sender   MessageSender
	config   config.TelegramConfig
	logger   *logrus.Logger

	titler cases.Caser
}

// NewTelegramHandler creates the handler. Without a bot token the webhook
// answers 503.
func NewTelegramHandler(pool database.DatabasePool, analysis AnalysisAPI, cfg config.TelegramConfig, logger *logrus.Logger) *TelegramHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var sender MessageSender
	if cfg.BotToken != "" {
		if b, err := bot.New(cfg.BotToken); err == nil {
			sender = b
		} else {
			logger.WithError(err).Warn("telegram bot initialization failed, webhook disabled")
		}
	}

	return &TelegramHandler{
		pool:     pool,
		analysis: analysis,
		sender:   sender,
		config:   cfg,
		logger:   logger,
		titler:   cases.Title(language.English),
	}
}

// HandleWebhook handles POST /api/v1/telegram/webhook. Processing happens
// asynchronously; Telegram only needs the acknowledgment.
func (h *TelegramHandler) HandleWebhook(c *gin.Context) {
	if h.sender == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram bot not available"})
		return
	}

	var update tgmodels.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update format"})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.processUpdate(ctx, &update); err != nil {
			h.logger.WithError(err).Warn("failed to process telegram update")
		}
	}()

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *TelegramHandler) processUpdate(ctx context.Context, update *tgmodels.Update) error {
	if update.Message == nil {
		return nil
	}
	message := update.Message
	if message.Chat.ID == 0 {
		return fmt.Errorf("update carries no chat id")
	}

	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/") {
		return h.reply(ctx, message.Chat.ID, "I work with commands. Try /help to see what I can do.")
	}
	return h.handleCommand(ctx, message.Chat.ID, text)
}

func (h *TelegramHandler) handleCommand(ctx context.Context, chatID int64, command string) error {
	fields := strings.Fields(command)
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	switch name {
	case "start":
		return h.handleStart(ctx, chatID)
	case "analyze":
		return h.handleAnalyze(ctx, chatID, args)
	case "scenario":
		return h.handleScenario(ctx, chatID, args)
	case "signals":
		return h.handleSignals(ctx, chatID, args)
	case "help":
		return h.handleHelp(ctx, chatID)
	default:
		return h.reply(ctx, chatID, "Unknown command. Use /help to see available commands.")
	}
}

func (h *TelegramHandler) handleStart(ctx context.Context, chatID int64) error {
	chatIDStr := strconv.FormatInt(chatID, 10)

	if h.pool != nil {
		var existingID string
		err := h.pool.QueryRow(ctx,
			"SELECT id FROM users WHERE telegram_chat_id = $1", chatIDStr).Scan(&existingID)
		switch {
		case err == nil:
			return h.reply(ctx, chatID, "Welcome back. You are registered and receive contradiction alerts.\n\nUse /analyze TICKER to run a fresh analysis.")
		case errors.Is(err, pgx.ErrNoRows):
			now := time.Now().UTC()
			_, err := h.pool.Exec(ctx, `
				INSERT INTO users (id, email, password_hash, telegram_chat_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New().String(),
				fmt.Sprintf("telegram_%s@equilens.ai", chatIDStr),
				"", chatIDStr, now, now)
			if err != nil {
				return fmt.Errorf("failed to register subscriber: %w", err)
			}
		default:
			return fmt.Errorf("subscriber lookup failed: %w", err)
		}
	}

	welcome := `Welcome to EquiLens.

You are registered for critical contradiction alerts.

Commands:
/analyze TICKER - reconciled analysis with forecast, risk and contradictions
/scenario TICKER KEY - stress an analysis (recession, rate_hike, sector_downturn)
/signals TICKER - normalized signal set with provenance
/help - all commands`
	return h.reply(ctx, chatID, welcome)
}

func (h *TelegramHandler) handleAnalyze(ctx context.Context, chatID int64, args []string) error {
	if len(args) == 0 {
		return h.reply(ctx, chatID, "Usage: /analyze TICKER")
	}

	result, err := h.analysis.Analyze(ctx, models.AnalysisRequest{Ticker: args[0]})
	if err != nil {
		return h.reply(ctx, chatID, "Analysis failed: "+publicError(err))
	}
	return h.replyMarkdown(ctx, chatID, services.FormatAnalysisSummary(result))
}

func (h *TelegramHandler) handleScenario(ctx context.Context, chatID int64, args []string) error {
	if len(args) < 2 {
		return h.reply(ctx, chatID, "Usage: /scenario TICKER KEY (recession, rate_hike, sector_downturn)")
	}

	result, err := h.analysis.Analyze(ctx, models.AnalysisRequest{
		Ticker:       args[0],
		AnalysisType: models.AnalysisScenario,
		Scenario:     strings.ToLower(args[1]),
	})
	if err != nil {
		return h.reply(ctx, chatID, "Scenario failed: "+publicError(err))
	}
	return h.replyMarkdown(ctx, chatID, services.FormatAnalysisSummary(result))
}

func (h *TelegramHandler) handleSignals(ctx context.Context, chatID int64, args []string) error {
	if len(args) == 0 {
		return h.reply(ctx, chatID, "Usage: /signals TICKER")
	}

	ticker := strings.ToUpper(args[0])
	set, err := h.analysis.NormalizedSignals(ctx, ticker)
	if err != nil {
		return h.reply(ctx, chatID, "Signal lookup failed: "+publicError(err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Signals for *%s*\n\n", ticker)
	shown := 0
	for _, field := range set.Fields() {
		signal, ok := set.Get(field)
		if !ok || signal.IsMissing {
			continue
		}
		label := h.titler.String(strings.ReplaceAll(field, "_", " "))
		marker := ""
		if signal.IsStale {
			marker = " (stale)"
		}
		fmt.Fprintf(&b, "%s: %v%s\n", label, signal.Value, marker)
		shown++
		if shown >= 15 {
			break
		}
	}
	if shown == 0 {
		b.WriteString("No signals available for this ticker.")
	}
	return h.replyMarkdown(ctx, chatID, b.String())
}

func (h *TelegramHandler) handleHelp(ctx context.Context, chatID int64) error {
	help := `EquiLens commands:

/start - register for critical contradiction alerts
/analyze TICKER - full reconciled analysis
/scenario TICKER KEY - stress with recession, rate_hike or sector_downturn
/signals TICKER - normalized signal set
/help - this message`
	return h.reply(ctx, chatID, help)
}

func (h *TelegramHandler) reply(ctx context.Context, chatID int64, text string) error {
	_, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func (h *TelegramHandler) replyMarkdown(ctx context.Context, chatID int64, text string) error {
	_, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	return err
}

// publicError keeps upstream detail out of chat replies except for input
// mistakes the user can fix.
func publicError(err error) string {
	if models.IsInvalidScenario(err) || strings.Contains(err.Error(), "ticker is required") {
		return err.Error()
	}
	return "upstream data unavailable, try again shortly"
}
