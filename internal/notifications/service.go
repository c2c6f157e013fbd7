package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"onemin/internal/config"
	"onemin/internal/logging"
)

const userAgent = "onemin/0.1"

// errPartialDelivery marks a notification whose main text arrived but whose
// attachment did not.
var errPartialDelivery = errors.New("partial delivery")

// IsPartialDelivery reports whether err only concerns an attachment.
func IsPartialDelivery(err error) bool {
	return errors.Is(err, errPartialDelivery)
}

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Name() string
}

// NewService builds the configured transports. Telegram is used when a bot
// token and chat id are set, ntfy when a topic URL is set, both when both are
// set. With neither, a noop service is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var services []Service
	if n.TelegramBotToken != "" && n.TelegramChatID != "" {
		services = append(services, &telegramService{
			baseURL: strings.TrimRight(n.TelegramBaseURL, "/"),
			token:   n.TelegramBotToken,
			chatID:  n.TelegramChatID,
			client:  client,
		})
	}
	if topic := strings.TrimSpace(n.NtfyTopic); topic != "" {
		services = append(services, &ntfyService{endpoint: topic, client: client})
	}
	switch len(services) {
	case 0:
		return noopService{}
	case 1:
		return services[0]
	default:
		return fanout(services)
	}
}

// IsNoop reports whether svc discards everything.
func IsNoop(svc Service) bool {
	_, ok := svc.(noopService)
	return svc == nil || ok
}

type fanout []Service

func (f fanout) Name() string {
	names := make([]string, 0, len(f))
	for _, svc := range f {
		names = append(names, svc.Name())
	}
	return strings.Join(names, "+")
}

// Publish delivers to every transport. It fails only when all of them fail.
func (f fanout) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range f {
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(f) {
		return errors.Join(errs...)
	}
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Name() string                                  { return "none" }

// Notifier wraps a Service with best-effort semantics: failures are logged and
// never returned.
type Notifier struct {
	svc    Service
	logger *slog.Logger
}

// NewNotifier wraps svc. A nil svc behaves like the noop service.
func NewNotifier(svc Service, logger *slog.Logger) *Notifier {
	if svc == nil {
		svc = noopService{}
	}
	return &Notifier{svc: svc, logger: logging.NewComponentLogger(logger, "notifications")}
}

// Notify publishes event and reports whether the main message was delivered.
func (n *Notifier) Notify(ctx context.Context, event Event, payload Payload) bool {
	if n == nil || IsNoop(n.svc) {
		return false
	}
	logger := logging.WithContext(ctx, n.logger)
	err := n.svc.Publish(ctx, event, payload)
	switch {
	case err == nil:
		logger.Debug("notification delivered", logging.String("event", string(event)), logging.String("transport", n.svc.Name()))
		return true
	case IsPartialDelivery(err):
		logging.WarnWithContext(logger, "notification attachment failed", "notification_partial",
			logging.String("event", string(event)),
			logging.String("transport", n.svc.Name()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "message sent without preview image"),
			logging.String(logging.FieldErrorHint, "check the thumbnail file and transport limits"),
		)
		return true
	default:
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.String("transport", n.svc.Name()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operator was not notified; use 'onemin status' to review"),
			logging.String(logging.FieldErrorHint, "check notification credentials and connectivity"),
		)
		return false
	}
}

// Transport names the configured delivery path.
func (n *Notifier) Transport() string {
	if n == nil {
		return "none"
	}
	return n.svc.Name()
}
