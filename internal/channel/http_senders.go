package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
)

const senderTimeout = 15 * time.Second

// SMSSender posts to an SMS gateway.
type SMSSender struct {
	cfg    config.ChannelConfig
	client *http.Client
	logger *zap.Logger
}

// NewSMSSender creates the sender.
func NewSMSSender(cfg config.ChannelConfig, logger *zap.Logger) *SMSSender {
	return &SMSSender{cfg: cfg, client: &http.Client{Timeout: senderTimeout}, logger: logger}
}

func (s *SMSSender) Channel() domain.Channel { return domain.ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, address, content string) error {
	if s.cfg.SMSEndpoint == "" {
		s.logger.Debug("sms endpoint not configured, logging only",
			zap.String("to", address))
		return nil
	}
	form := url.Values{}
	form.Set("To", address)
	form.Set("From", s.cfg.SMSFrom)
	form.Set("Body", content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SMSEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SMSAPIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return doSend(s.client, req, "sms")
}

// EmailSender posts to an email gateway.
type EmailSender struct {
	cfg    config.ChannelConfig
	client *http.Client
	logger *zap.Logger
}

// NewEmailSender creates the sender.
func NewEmailSender(cfg config.ChannelConfig, logger *zap.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, client: &http.Client{Timeout: senderTimeout}, logger: logger}
}

func (s *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, address, content string) error {
	if s.cfg.EmailEndpoint == "" {
		s.logger.Debug("email endpoint not configured, logging only",
			zap.String("to", address))
		return nil
	}
	payload, err := json.Marshal(map[string]string{
		"from": s.cfg.EmailFrom,
		"to":   address,
		"body": content,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.EmailEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doSend(s.client, req, "email")
}

// WhatsAppSender posts to a chat message gateway.
type WhatsAppSender struct {
	cfg    config.ChannelConfig
	client *http.Client
	logger *zap.Logger
}

// NewWhatsAppSender creates the sender.
func NewWhatsAppSender(cfg config.ChannelConfig, logger *zap.Logger) *WhatsAppSender {
	return &WhatsAppSender{cfg: cfg, client: &http.Client{Timeout: senderTimeout}, logger: logger}
}

func (s *WhatsAppSender) Channel() domain.Channel { return domain.ChannelWhatsApp }

func (s *WhatsAppSender) Send(ctx context.Context, address, content string) error {
	if s.cfg.WhatsAppEndpoint == "" {
		s.logger.Debug("whatsapp endpoint not configured, logging only",
			zap.String("to", address))
		return nil
	}
	payload, err := json.Marshal(map[string]any{
		"recipient_type": "individual",
		"to":             digitsOnly(address),
		"type":           "text",
		"text":           map[string]string{"body": content},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WhatsAppEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.WhatsAppAPIKey)
	req.Header.Set("Content-Type", "application/json")
	return doSend(s.client, req, "whatsapp")
}

// LetterSender writes a printable letter file for the mailing workflow.
type LetterSender struct {
	cfg    config.ChannelConfig
	logger *zap.Logger
}

// NewLetterSender creates the sender.
func NewLetterSender(cfg config.ChannelConfig, logger *zap.Logger) *LetterSender {
	return &LetterSender{cfg: cfg, logger: logger}
}

func (s *LetterSender) Channel() domain.Channel { return domain.ChannelLetter }

func (s *LetterSender) Send(ctx context.Context, address, content string) error {
	dir := s.cfg.LetterOutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("letter_%s_%s.txt", time.Now().Format("20060102"), uuid.NewString())
	body := fmt.Sprintf("NOTICE\nDate: %s\nRecipient: %s\n\n%s\n", time.Now().Format("02/01/2006"), address, content)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return err
	}
	s.logger.Info("letter written", zap.String("path", path))
	return nil
}

func doSend(client *http.Client, req *http.Request, channel string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s send: %w", channel, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s provider returned %d", channel, resp.StatusCode)
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
