package mail

import (
	"context"
	"fmt"
	"net/http"
	netmail "net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/pkg/config"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

// Message is a single outbound email.
type Message struct {
	To      netmail.Address
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a SendGrid sender when an API key is configured and a
// log-only sender otherwise.
func New(cfg config.MailConfig, logger *zap.Logger) Sender {
	if cfg.SendGridAPIKey == "" {
		return NewLogSender(logger)
	}
	return NewSendGridSender(cfg, defaultHost)
}

// SendGridSender posts messages to the SendGrid v3 API.
type SendGridSender struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridSender(cfg config.MailConfig, host string) *SendGridSender {
	if host == "" {
		host = defaultHost
	}
	prefix := ""
	if cfg.FromName != "" {
		prefix = "[" + cfg.FromName + "] "
	}
	return &SendGridSender{
		key:        cfg.SendGridAPIKey,
		host:       host,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjPrefix: prefix,
	}
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if msg.To.Address == "" {
		return fmt.Errorf("mail: missing recipient")
	}
	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, strings.TrimSpace(res.Body))
	}
	return nil
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a sender that only logs; a nil logger discards.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the recipient and subject. The body may carry payment links and
// is never logged.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mail not delivered (no provider configured)",
		zap.String("to", msg.To.String()),
		zap.String("subject", msg.Subject),
	)
	return nil
}
