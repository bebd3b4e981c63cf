// Package mail dispatches notification emails through the Gmail API using an
// OAuth client and token provisioned by cmd/oauth-init.
package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Sender delivers one rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Credentials locates the OAuth client and token, each as either inline JSON
// or a file path.
type Credentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
	From       string
}

// GmailSender sends mail via the authenticated user's Gmail account.
type GmailSender struct {
	svc  *gmail.Service
	from string
}

var _ Sender = (*GmailSender)(nil)

// NewGmailSender builds a Gmail client from OAuth credentials.
func NewGmailSender(ctx context.Context, creds Credentials) (*GmailSender, error) {
	clientBytes, err := readCredential(creds.ClientJSON, creds.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("load OAuth client: %w", err)
	}
	tokenBytes, err := readCredential(creds.TokenJSON, creds.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("load OAuth token: %w", err)
	}

	cfg, err := google.ConfigFromJSON(clientBytes, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	if creds.From == "" {
		return nil, errors.New("missing sender address")
	}

	return &GmailSender{svc: svc, from: creds.From}, nil
}

// Send delivers a single HTML email.
func (s *GmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)

	msg := &gmail.Message{
		Raw: base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(b.String())),
	}

	if _, err := s.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func readCredential(inlineJSON, file string) ([]byte, error) {
	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	default:
		return nil, errors.New("no credential provided")
	}
}
