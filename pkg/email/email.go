// Package email sends billing lifecycle emails through the Resend API.
// Delivery is best effort everywhere: a failed email never fails a webhook
// or a checkout.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"
)

type Service struct {
	apiKey    string
	from      string
	templates *template.Template
	client    *http.Client
}

type emailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

type premiumActivatedData struct {
	Name    string
	EndDate time.Time
}

type premiumCancelledData struct {
	Name string
}

type expiryWarningData struct {
	Name       string
	DaysLeft   int
	ExpiryDate time.Time
}

func NewService(apiKey string) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &Service{
		apiKey:    apiKey,
		from:      "ChefScan.IA <noreply@chefscan.app>",
		templates: templates,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *Service) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	payload, err := json.Marshal(emailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.resend.com/emails", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

func (s *Service) SendPremiumActivated(to, name string, endDate time.Time) error {
	if name == "" {
		name = "chef"
	}
	return s.sendTemplateEmail(to, "Bienvenido a ChefScan.IA Premium", "premium_activated", premiumActivatedData{
		Name:    name,
		EndDate: endDate,
	})
}

func (s *Service) SendPremiumCancelled(to, name string) error {
	if name == "" {
		name = "chef"
	}
	return s.sendTemplateEmail(to, "Tu suscripcion premium fue cancelada", "premium_cancelled", premiumCancelledData{
		Name: name,
	})
}

func (s *Service) SendExpiryWarning(to, name string, daysLeft int, expiryDate time.Time) error {
	if name == "" {
		name = "chef"
	}
	subject := fmt.Sprintf("Tu premium vence en %d dias", daysLeft)
	return s.sendTemplateEmail(to, subject, "expiry_warning", expiryWarningData{
		Name:       name,
		DaysLeft:   daysLeft,
		ExpiryDate: expiryDate,
	})
}
