// Package mailer sends the administrative notification emitted when a
// program is published.
package mailer

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/wild-series/internal/config"
	"github.com/iliyamo/wild-series/internal/model"
)

const subjectPublished = "A new program has just been published!"

//go:embed templates/*.html
var templateFS embed.FS

var publishedTpl = template.Must(template.ParseFS(templateFS, "templates/program_published.html"))

// Sender delivers prepared messages.  *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Notifier renders and sends notification emails.
type Notifier struct {
	sender  Sender
	from    string
	to      string
	baseURL string
}

// NewSMTPClient builds a go-mail client for the configured relay.  Auth
// is only enabled when a user is configured; TLS is used when offered.
func NewSMTPClient(cfg config.MailConfig) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	return mail.NewClient(cfg.Host, opts...)
}

func NewNotifier(sender Sender, cfg config.MailConfig, baseURL string) *Notifier {
	return &Notifier{
		sender:  sender,
		from:    cfg.From,
		to:      cfg.Admin,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ProgramPublished emails the administrative address about a program that
// was just persisted.  The program must carry its id and slug.
func (n *Notifier) ProgramPublished(ctx context.Context, p *model.Program) error {
	m := mail.NewMsg()
	if err := m.From(n.from); err != nil {
		return fmt.Errorf("mail from %q: %w", n.from, err)
	}
	if err := m.To(n.to); err != nil {
		return fmt.Errorf("mail to %q: %w", n.to, err)
	}
	m.Subject(subjectPublished)

	data := struct {
		Program *model.Program
		Link    string
	}{Program: p, Link: n.link(p)}
	if err := m.SetBodyHTMLTemplate(publishedTpl, data); err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	if err := n.sender.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send notification for program %d: %w", p.ID, err)
	}
	return nil
}

func (n *Notifier) link(p *model.Program) string {
	return n.baseURL + "/program/" + p.Slug
}
