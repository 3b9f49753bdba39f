package notify

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

const defaultSMTPPort = 587

// sendEmail mails the run summary to the configured recipients, attaching
// the HTML report when one was generated.
func (n *Notifier) sendEmail(run gate.Run, failures, warnings []finding.Finding, htmlReport []byte) {
	e := n.cfg.Email

	msg := mail.NewMsg()
	if err := msg.From(e.From); err != nil {
		slog.Warn("notification: bad email sender", "from", e.From, "err", err)
		return
	}
	if err := msg.To(e.To...); err != nil {
		slog.Warn("notification: bad email recipient", "err", err)
		return
	}
	msg.Subject(subject(run))
	msg.SetBodyString(mail.TypeTextPlain, emailBody(run, failures, warnings))
	if len(htmlReport) > 0 {
		if err := msg.AttachReader("scangate-report.html", bytes.NewReader(htmlReport)); err != nil {
			slog.Warn("notification: attaching report", "err", err)
		}
	}

	port := e.Port
	if port == 0 {
		port = defaultSMTPPort
	}
	tlsPolicy := mail.TLSMandatory
	if e.Insecure {
		tlsPolicy = mail.NoTLS
	}
	opts := []mail.Option{mail.WithPort(port), mail.WithTLSPolicy(tlsPolicy)}
	if e.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.Username),
			mail.WithPassword(e.Password),
		)
	}

	client, err := mail.NewClient(e.Host, opts...)
	if err != nil {
		slog.Warn("notification: smtp client", "host", e.Host, "err", err)
		return
	}
	if err := client.DialAndSend(msg); err != nil {
		slog.Warn("notification: email delivery failed", "host", e.Host, "err", err)
	}
}

// emailBody renders the plain-text run summary.
func emailBody(run gate.Run, failures, warnings []finding.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", run.Verdict.Summary())
	if run.Pipeline != "" {
		fmt.Fprintf(&b, "Pipeline: %s\n", run.Pipeline)
	}
	if run.Build != "" {
		fmt.Fprintf(&b, "Build:    %s\n", run.Build)
	}
	if run.Commit != "" {
		fmt.Fprintf(&b, "Commit:   %s\n", run.Commit)
	}
	if run.Policy != "" {
		fmt.Fprintf(&b, "Policy:   %s\n", run.Policy)
	}
	if len(failures) > 0 {
		b.WriteString("\nBlocking findings:\n")
		for i := range failures {
			b.WriteString("  " + textLine(failures[i]) + "\n")
		}
	}
	if len(warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for i := range warnings {
			b.WriteString("  " + textLine(warnings[i]) + "\n")
		}
	}
	return b.String()
}

func textLine(f finding.Finding) string {
	line := fmt.Sprintf("[%s] %s", f.Severity, f.RuleID)
	if f.Location != "" {
		line += " at " + f.Location
	}
	if f.Description != "" {
		line += ": " + f.Description
	}
	return line
}
