// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/wardenlog/wardenlog/internal/models"
)

// EmailChannel delivers an Alert by SMTP, built raw (not via net/smtp's
// SendMail helper) so it can use an explicit dial timeout and opportunistic
// STARTTLS against arbitrary relays.
type EmailChannel struct {
	host           string
	port           int
	from           string
	to             []string
	defaultTimeout time.Duration
}

// NewEmailChannel builds an email channel. A zero-value host means email
// delivery is not configured for this deployment.
func NewEmailChannel(host string, port int, from string, to []string) *EmailChannel {
	return &EmailChannel{
		host:           host,
		port:           port,
		from:           from,
		to:             to,
		defaultTimeout: 30 * time.Second,
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, alert *models.Alert) error {
	if c.host == "" || len(c.to) == 0 {
		return fmt.Errorf("email channel not configured")
	}

	msg := c.buildMessage(alert)
	for _, recipient := range c.to {
		if err := c.sendSMTP(ctx, recipient, msg); err != nil {
			return fmt.Errorf("send to %s: %w", recipient, err)
		}
	}
	return nil
}

func (c *EmailChannel) buildMessage(alert *models.Alert) string {
	var msg strings.Builder

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)

	msg.WriteString(fmt.Sprintf("From: WardenLog <%s>\r\n", c.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(c.to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("X-Alert-ID: %s\r\n", alert.ID))
	msg.WriteString(fmt.Sprintf("X-Alert-Severity: %s\r\n", alert.Severity))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Rule:        %s\r\n", alert.RuleName))
	msg.WriteString(fmt.Sprintf("Severity:    %s\r\n", alert.Severity))
	msg.WriteString(fmt.Sprintf("Source:      %s\r\n", alert.SourceEvent.Source))
	msg.WriteString(fmt.Sprintf("Event type:  %s\r\n", alert.SourceEvent.EventType))
	msg.WriteString(fmt.Sprintf("Detected at: %s\r\n\r\n", alert.Timestamp.Format(time.RFC3339)))
	msg.WriteString(alert.Description)
	msg.WriteString("\r\n")

	return msg.String()
}

func (c *EmailChannel) sendSMTP(ctx context.Context, to, msg string) error {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)

	dialer := &net.Dialer{Timeout: c.defaultTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: c.host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	}

	if err := client.Mail(c.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}
