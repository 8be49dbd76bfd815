// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied where the config file and flags are silent.
const (
	DefaultConcurrency  = 5
	DefaultPageBudget   = 15
	DefaultEmailTarget  = 5
	DefaultHelloDomain  = "mailsleuth.local"
	DefaultProbeSender  = "verify@mailsleuth.local"
	DefaultFetchTimeout = 20 * time.Second
	DefaultSMTPTimeout  = 8 * time.Second
	DefaultVerifyBudget = 30 * time.Second
)

// Config is the CLI configuration, loadable from a JSON file. All fields are
// optional; zero values fall back to the defaults above.
type Config struct {
	// Crawl behavior
	Concurrency int  `json:"concurrency,omitempty" validate:"omitempty,min=1,max=10"` // parallel URLs in batch mode
	PageBudget  int  `json:"page_budget,omitempty" validate:"omitempty,min=1,max=50"` // pages crawled per URL
	EmailTarget int  `json:"email_target,omitempty" validate:"omitempty,min=1"`       // unique emails that stop the crawl early
	UseBrowser  bool `json:"use_browser,omitempty"`                                   // allow headless-browser escalation
	Verbose     bool `json:"verbose,omitempty"`                                       // print detailed progress

	// SMTP probing
	HelloDomain string `json:"hello_domain,omitempty" validate:"omitempty,fqdn"`  // domain announced in HELO
	ProbeSender string `json:"probe_sender,omitempty" validate:"omitempty,email"` // MAIL FROM address
	SkipVerify  bool   `json:"skip_verify,omitempty"`                             // extract without SMTP probing

	// Timeouts, in seconds
	FetchTimeoutSecs int `json:"fetch_timeout_secs,omitempty" validate:"omitempty,min=1,max=120"`
	SMTPTimeoutSecs  int `json:"smtp_timeout_secs,omitempty" validate:"omitempty,min=1,max=60"`
	VerifyBudgetSecs int `json:"verify_budget_secs,omitempty" validate:"omitempty,min=1,max=300"`

	// Optional AI fallback
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks field ranges and formats via struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("config error: field %q fails %q validation", first.Field(), first.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// ApplyDefaults returns a copy with zero-valued fields filled in.
func (c *Config) ApplyDefaults() Config {
	result := *c
	if result.Concurrency == 0 {
		result.Concurrency = DefaultConcurrency
	}
	if result.PageBudget == 0 {
		result.PageBudget = DefaultPageBudget
	}
	if result.EmailTarget == 0 {
		result.EmailTarget = DefaultEmailTarget
	}
	if result.HelloDomain == "" {
		result.HelloDomain = DefaultHelloDomain
	}
	if result.ProbeSender == "" {
		result.ProbeSender = DefaultProbeSender
	}
	if result.FetchTimeoutSecs == 0 {
		result.FetchTimeoutSecs = int(DefaultFetchTimeout / time.Second)
	}
	if result.SMTPTimeoutSecs == 0 {
		result.SMTPTimeoutSecs = int(DefaultSMTPTimeout / time.Second)
	}
	if result.VerifyBudgetSecs == 0 {
		result.VerifyBudgetSecs = int(DefaultVerifyBudget / time.Second)
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	return result
}

// FetchTimeout returns the page fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// SMTPTimeout returns the per-host SMTP timeout as a duration.
func (c *Config) SMTPTimeout() time.Duration {
	return time.Duration(c.SMTPTimeoutSecs) * time.Second
}

// VerifyBudget returns the batch verification ceiling as a duration.
func (c *Config) VerifyBudget() time.Duration {
	return time.Duration(c.VerifyBudgetSecs) * time.Second
}
