// Package notify sends transactional messages to senders, beneficiaries
// and staff. Delivery is best-effort: a failed send produces a manual
// wa.me link, never an error that aborts the business operation.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"remesitas-go/internal/models"

	"go.uber.org/zap"
)

const twilioMessagesURL = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"

// Result reports what happened to one notification attempt.
type Result struct {
	Sent       bool
	Channel    string // "sms", "whatsapp", "link"
	ManualLink string
	Err        error
}

// Notifier sends one message to one phone number.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) Result
}

// Service routes messages by phone prefix: +1 numbers get Twilio SMS,
// +53 numbers get Twilio WhatsApp with a wa.me fallback link, anything
// else gets a manual link only.
type Service struct {
	cfg    models.NotifyConfig
	client *http.Client

	logDisabledOnce sync.Once
}

func NewService(cfg models.NotifyConfig) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Enabled reports whether Twilio credentials are configured.
func (s *Service) Enabled() bool {
	return s.cfg.TwilioAccountSID != "" && s.cfg.TwilioAuthToken != ""
}

func (s *Service) Notify(ctx context.Context, phone, message string) Result {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return Result{Channel: "link", Err: fmt.Errorf("no phone number")}
	}

	link := WhatsAppLink(phone, message)

	if !s.Enabled() {
		s.logDisabledOnce.Do(func() {
			zap.L().Info("Twilio disabled, producing manual links only")
		})
		return Result{Channel: "link", ManualLink: link}
	}

	switch {
	case strings.HasPrefix(phone, "+1"):
		if err := s.sendTwilio(ctx, s.cfg.TwilioSMSFrom, phone, message); err != nil {
			zap.L().Warn("SMS send failed", zap.String("to", phone), zap.Error(err))
			return Result{Channel: "sms", ManualLink: link, Err: err}
		}
		return Result{Sent: true, Channel: "sms"}

	case strings.HasPrefix(phone, "+53"):
		from := "whatsapp:" + s.cfg.TwilioWhatsAppFrom
		to := "whatsapp:" + phone
		if err := s.sendTwilio(ctx, from, to, message); err != nil {
			zap.L().Warn("WhatsApp send failed, falling back to manual link",
				zap.String("to", phone), zap.Error(err))
			return Result{Channel: "whatsapp", ManualLink: link, Err: err}
		}
		return Result{Sent: true, Channel: "whatsapp"}

	default:
		return Result{Channel: "link", ManualLink: link}
	}
}

func (s *Service) sendTwilio(ctx context.Context, from, to, message string) error {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", message)

	endpoint := fmt.Sprintf(twilioMessagesURL, s.cfg.TwilioAccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("unable to build request: %w", err)
	}
	req.SetBasicAuth(s.cfg.TwilioAccountSID, s.cfg.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// WhatsAppLink builds a wa.me link that opens a prefilled chat.
func WhatsAppLink(phone, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(message))
}
