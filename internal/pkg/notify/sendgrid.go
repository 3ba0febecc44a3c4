package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendgridURL = "https://api.sendgrid.com/v3/mail/send"

type sendgridClient struct {
	httpClient *http.Client
	apiKey     string
	fromEmail  string
	fromName   string
}

func newSendgridClient(apiKey, fromEmail, fromName string) *sendgridClient {
	return &sendgridClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
	}
}

type sendgridMail struct {
	Personalizations []struct {
		To []sendgridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendgridAddress   `json:"from"`
	Subject string            `json:"subject"`
	Content []sendgridContent `json:"content"`
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *sendgridClient) send(ctx context.Context, toEmail, subject, body string) error {
	mail := sendgridMail{
		From:    sendgridAddress{Email: c.fromEmail, Name: c.fromName},
		Subject: subject,
		Content: []sendgridContent{{Type: "text/plain", Value: body}},
	}
	mail.Personalizations = append(mail.Personalizations, struct {
		To []sendgridAddress `json:"to"`
	}{To: []sendgridAddress{{Email: toEmail}}})

	payload, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("failed to encode sendgrid request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendgridURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("sendgrid api call failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sendgrid api returned non-2xx status: %d, body: %s", resp.StatusCode, string(raw))
	}
	return nil
}
