package applications

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"resty.dev/v3"

	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/tracing"
)

const DefaultTelegramBaseURL = "https://api.telegram.org"

var (
	envNamePattern  = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
	chatNamePattern = regexp.MustCompile(`^@[a-zA-Z0-9_]{5,32}$`)
)

// ValidateEnvName checks that name can hold the bot token.
func ValidateEnvName(name string) error {
	if !envNamePattern.MatchString(name) {
		return fmt.Errorf("invalid environment variable name %q: use upper-case letters, digits and underscores, not starting with a digit", name)
	}
	return nil
}

// ValidateChatID accepts an integer chat id or a public @channel name.
func ValidateChatID(chatID string) error {
	if _, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return nil
	}
	if chatNamePattern.MatchString(chatID) {
		return nil
	}
	return fmt.Errorf("invalid telegram chat id %q", chatID)
}

// TelegramConfig configures the notifier.
type TelegramConfig struct {
	TokenEnv string
	ChatID   string
	BaseURL  string
	Timeout  time.Duration
}

// TelegramNotifier posts a message to a Telegram chat for every new application.
type TelegramNotifier struct {
	client   *resty.Client
	tokenEnv string
	chatID   string
	tracer   trace.Tracer
}

// NewTelegramNotifier creates a notifier. The bot token is read from the
// environment on every send, so it can be rotated without a restart.
func NewTelegramNotifier(cfg TelegramConfig, tracer trace.Tracer) (*TelegramNotifier, error) {
	if err := ValidateEnvName(cfg.TokenEnv); err != nil {
		return nil, err
	}
	if err := ValidateChatID(cfg.ChatID); err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("applications")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &TelegramNotifier{
		client:   client,
		tokenEnv: cfg.TokenEnv,
		chatID:   cfg.ChatID,
		tracer:   tracer,
	}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Notify sends the new-application message for app.
func (n *TelegramNotifier) Notify(ctx context.Context, app *Application) error {
	ctx, span := n.tracer.Start(ctx, tracing.SpanNotify, trace.WithAttributes(
		attribute.String(tracing.AttrNotifyChannel, "telegram"),
		attribute.String(tracing.AttrApplicationID, app.GUID),
	))
	defer span.End()

	err := n.send(ctx, Message(app))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	token := os.Getenv(n.tokenEnv)
	if token == "" {
		return fmt.Errorf("telegram token variable %s is not set", n.tokenEnv)
	}

	var result, failure botResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetPathParam("token", token).
		SetBody(sendMessageRequest{ChatID: n.chatID, Text: text, ParseMode: "HTML"}).
		SetResult(&result).
		SetError(&failure).
		Post("/bot{token}/sendMessage")
	if err != nil {
		// The request URL carries the token; report only the cause.
		return fmt.Errorf("telegram sendMessage: %w", unwrapURLError(err))
	}
	if resp.IsError() {
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode(), failure.Description)
	}
	if !result.OK {
		return fmt.Errorf("telegram sendMessage: not ok: %s", result.Description)
	}
	return nil
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// Close releases the HTTP client.
func (n *TelegramNotifier) Close() error {
	return n.client.Close()
}

// OnSaved sends a notification for newly created applications. Failures are
// logged and never reach the writer.
func (n *TelegramNotifier) OnSaved(ctx context.Context, ev entity.SavedEvent) {
	if !ev.Created || ev.Deleted {
		return
	}
	app, ok := ev.Instance.(*Application)
	if !ok {
		return
	}
	if err := n.Notify(ctx, app); err != nil {
		log.ErrorErr(log.CatNotify, "application notification failed", err, "application", app.GUID)
		return
	}
	log.Info(log.CatNotify, "application notification sent", "application", app.GUID)
}

// Connect subscribes the notifier to application writes on signal.
func (n *TelegramNotifier) Connect(signal *entity.Signal) {
	signal.Connect(entity.TypeOf[*Application](), n.OnSaved)
}

// Message renders the HTML notification text for app.
func Message(app *Application) string {
	return fmt.Sprintf("<b>New application!</b>\nName: %s\nSettlement: %s\nPhone: %s\n",
		html.EscapeString(app.RequesterName),
		html.EscapeString(app.Settlement),
		html.EscapeString(app.Phone))
}
