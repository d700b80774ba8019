package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/velasur/inventory-cli/internal/model"
)

// EmailOptions configures the SMTP notifier.
type EmailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

// EmailNotifier sends run reports as multipart HTML+text email.
type EmailNotifier struct {
	opts EmailOptions
}

// NewEmailNotifier creates an SMTP-backed notifier.
func NewEmailNotifier(opts EmailOptions) *EmailNotifier {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.From == "" {
		opts.From = opts.Username
	}
	return &EmailNotifier{opts: opts}
}

func (n *EmailNotifier) NotifyReport(ctx context.Context, report *model.RunReport) error {
	subject, htmlBody, textBody, err := renderReport(report)
	if err != nil {
		return err
	}
	return n.send(ctx, subject, htmlBody, textBody)
}

func (n *EmailNotifier) NotifyError(ctx context.Context, runID string, runErr error) error {
	subject := "Inventory update failed - action required"
	textBody := fmt.Sprintf("The inventory sync run %s aborted.\n\nError: %v\n", runID, runErr)
	htmlBody := fmt.Sprintf(
		"<html><body><h2>Inventory Update Failed</h2><p>Run <code>%s</code> aborted.</p><pre>%v</pre></body></html>",
		runID, runErr,
	)
	return n.send(ctx, subject, htmlBody, textBody)
}

// send connects to the SMTP server and delivers the message. Port 465 uses
// implicit TLS; other ports use STARTTLS.
func (n *EmailNotifier) send(ctx context.Context, subject, htmlBody, textBody string) error {
	msg, err := buildMessage(n.opts.From, n.opts.To, subject, htmlBody, textBody)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(n.opts.Host, fmt.Sprintf("%d", n.opts.Port))
	zap.L().Debug("notify: connecting to smtp server", zap.String("addr", addr))

	dialer := &net.Dialer{Timeout: n.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return eris.Wrapf(err, "notify: dial smtp %s", addr)
	}

	tlsCfg := &tls.Config{ServerName: n.opts.Host}
	if n.opts.Port == 465 {
		conn = tls.Client(conn, tlsCfg)
	}

	client, err := smtp.NewClient(conn, n.opts.Host)
	if err != nil {
		conn.Close()
		return eris.Wrap(err, "notify: smtp handshake")
	}
	defer client.Close() //nolint:errcheck

	if n.opts.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return eris.Wrap(err, "notify: starttls")
			}
		}
	}

	auth := smtp.PlainAuth("", n.opts.Username, n.opts.Password, n.opts.Host)
	if err := client.Auth(auth); err != nil {
		return eris.Wrap(err, "notify: smtp auth")
	}

	if err := client.Mail(n.opts.From); err != nil {
		return eris.Wrap(err, "notify: smtp mail from")
	}
	for _, to := range n.opts.To {
		if err := client.Rcpt(to); err != nil {
			return eris.Wrapf(err, "notify: smtp rcpt %s", to)
		}
	}

	w, err := client.Data()
	if err != nil {
		return eris.Wrap(err, "notify: smtp data")
	}
	if _, err := w.Write(msg); err != nil {
		return eris.Wrap(err, "notify: write message")
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "notify: finish message")
	}

	if err := client.Quit(); err != nil {
		return eris.Wrap(err, "notify: smtp quit")
	}

	zap.L().Info("notify: report email sent",
		zap.Strings("to", n.opts.To),
		zap.String("subject", subject))

	return nil
}

// buildMessage assembles a multipart/alternative message with plain text and
// HTML parts.
func buildMessage(from string, to []string, subject, htmlBody, textBody string) ([]byte, error) {
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "notify: create text part")
	}
	if _, err := textPart.Write([]byte(textBody)); err != nil {
		return nil, eris.Wrap(err, "notify: write text part")
	}

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "notify: create html part")
	}
	if _, err := htmlPart.Write([]byte(htmlBody)); err != nil {
		return nil, eris.Wrap(err, "notify: write html part")
	}

	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "notify: close multipart writer")
	}

	return []byte(buf.String()), nil
}
