// Package login collects the API connection settings interactively.
package login

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user cancels the form.
var ErrAborted = errors.New("login cancelled")

// Credentials are the values gathered by the form.
type Credentials struct {
	BaseURL string
	Token   string
}

// NewForm builds the login form bound to c. Fields start with the values
// already in c.
func NewForm(c *Credentials) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Base URL").
				Description("SMS Expert API root (e.g., https://api.smsexpert.example/api/v1)").
				Placeholder("https://api.smsexpert.example/api/v1").
				Value(&c.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API Token").
				Description("Bearer token issued for your account").
				EchoMode(huh.EchoModePassword).
				Value(&c.Token).
				Validate(validateRequired("Token")),
		),
	).WithWidth(72)
}

// Run shows the form on the terminal and returns the trimmed values.
func Run(defaults Credentials) (Credentials, error) {
	c := defaults
	if err := NewForm(&c).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Credentials{}, ErrAborted
		}
		return Credentials{}, fmt.Errorf("running login form: %w", err)
	}
	return Normalize(c), nil
}

// Normalize trims whitespace and the trailing slash of the base URL.
func Normalize(c Credentials) Credentials {
	return Credentials{
		BaseURL: strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"),
		Token:   strings.TrimSpace(c.Token),
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}
