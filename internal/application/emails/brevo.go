package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SplitAssigned is the data of a "you received a split" notification.
type SplitAssigned struct {
	ToEmail    string
	ToName     string
	DealName   string
	OwnerName  string
	Percentage string
	Amount     string
	DealURL    string
}

// Sender sends transactional emails. Nil = no-op.
type Sender interface {
	SendSplitAssigned(ctx context.Context, msg SplitAssigned) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API. Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
	// Endpoint overrides the Brevo API URL (tests).
	Endpoint string
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@dealsplit.app"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, toName, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "DealSplit"},
		To:          []BrevoTo{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@dealsplit.app", Name: "DealSplit Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendSplitAssigned tells a payee they were allocated part of a deal.
func (c *BrevoClient) SendSplitAssigned(ctx context.Context, msg SplitAssigned) error {
	if c.APIKey == "" || msg.ToEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("You have been allocated %s%% of %s", msg.Percentage, msg.DealName)
	return c.send(ctx, msg.ToEmail, msg.ToName, subject, EmailLayout(splitAssignedContent(msg)))
}

func splitAssignedContent(msg SplitAssigned) string {
	name := msg.ToName
	if name == "" {
		name = "there"
	}
	owner := msg.OwnerName
	if owner == "" {
		owner = "The deal owner"
	}
	return fmt.Sprintf(`
    <h1>You've Received a Deal Split</h1>
    <p>Hi %s,</p>
    <p>%s has allocated you <strong>%s%%</strong> of <strong>%s</strong>, worth <strong>%s</strong>.</p>
    <center>
      <a href="%s" class="ds-button">View Deal</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      Your share will appear in your activity feed and compensation reports.
    </p>
    <p>The DealSplit Team</p>
`, EscapeHTML(name), EscapeHTML(owner), EscapeHTML(msg.Percentage), EscapeHTML(msg.DealName), EscapeHTML(msg.Amount), msg.DealURL)
}
