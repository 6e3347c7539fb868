package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config carries every runtime-tunable setting. It is built once at startup
// and passed explicitly into constructors; nothing reads settings at call
// time.
type Config struct {
	// API credentials for the classic NVP API.
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Signature string `yaml:"signature"`

	APIVersion string `yaml:"api_version"`
	Sandbox    bool   `yaml:"sandbox"`

	// Overrides the NVP endpoint derived from Sandbox, used in tests.
	EndpointOverride string `yaml:"endpoint_override"`
	// Overrides the www redirect host derived from Sandbox, used in tests.
	RedirectOverride string `yaml:"redirect_override"`

	// Merchant policy.
	Currency      string `yaml:"currency"`
	PaymentAction string `yaml:"payment_action"`

	// Buyer confirms the order on PayPal instead of a merchant preview page.
	BuyerPaysOnPayPal bool `yaml:"buyer_pays_on_paypal"`

	// Display customisation, all optional.
	Locale                string `yaml:"locale"`
	BrandName             string `yaml:"brand_name"`
	PageStyle             string `yaml:"page_style"`
	HeaderImage           string `yaml:"header_image"`
	HeaderBackColor       string `yaml:"header_back_color"`
	HeaderBorderColor     string `yaml:"header_border_color"`
	PayflowColor          string `yaml:"payflow_color"`
	SolutionType          string `yaml:"solution_type"`
	LandingPage           string `yaml:"landing_page"`
	CustomerServiceNumber string `yaml:"customer_service_number"`

	AllowNote       bool `yaml:"allow_note"`
	ConfirmShipping bool `yaml:"confirm_shipping"`

	// Seconds PayPal waits for the instant-update callback.
	CallbackTimeout int `yaml:"callback_timeout"`

	// Base URL PayPal uses to reach us for return/cancel/callback, e.g.
	// https://shop.example.com.
	PublicURL string `yaml:"public_url"`

	ListenAddr string `yaml:"listen_addr"`

	// Ledger storage: sqlite3, postgres or memory.
	DatabaseDriver string `yaml:"database_driver"`
	DatabaseDSN    string `yaml:"database_dsn"`

	// Merchant support API auth.
	DevToken  string `yaml:"dev_token"`
	JWTSecret string `yaml:"jwt_secret"`

	// Flat-rate shipping zones answered on the instant-update callback.
	ShippingZones []ShippingZone `yaml:"shipping_zones"`
}

// ShippingZone maps destination countries to the flat-rate methods offered
// there. The first method listed is the default shown to the buyer.
type ShippingZone struct {
	Countries []string               `yaml:"countries"`
	Methods   []ShippingMethodConfig `yaml:"methods"`
}

type ShippingMethodConfig struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Charge      string `yaml:"charge"`
}

// Default returns the documented defaults. API version 119 is the last
// classic release; USD ceilings and locale validation live in the gateway.
func Default() Config {
	return Config{
		APIVersion:      "119",
		Sandbox:         true,
		Currency:        "GBP",
		PaymentAction:   "Sale",
		AllowNote:       true,
		CallbackTimeout: 3,
		ListenAddr:      ":8080",
		DatabaseDriver:  "sqlite3",
		DatabaseDSN:     "expresspay.db",
	}
}

// Load reads path (when it exists) over the defaults, then applies
// EXPRESSPAY_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.ParseBool(v); err == nil {
				*dst = parsed
			}
		}
	}

	setString(&c.User, "EXPRESSPAY_API_USER")
	setString(&c.Password, "EXPRESSPAY_API_PASSWORD")
	setString(&c.Signature, "EXPRESSPAY_API_SIGNATURE")
	setString(&c.APIVersion, "EXPRESSPAY_API_VERSION")
	setBool(&c.Sandbox, "EXPRESSPAY_SANDBOX")
	setString(&c.Currency, "EXPRESSPAY_CURRENCY")
	setString(&c.PaymentAction, "EXPRESSPAY_PAYMENT_ACTION")
	setString(&c.PublicURL, "EXPRESSPAY_PUBLIC_URL")
	setString(&c.ListenAddr, "EXPRESSPAY_LISTEN_ADDR")
	setString(&c.DatabaseDriver, "EXPRESSPAY_DB_DRIVER")
	setString(&c.DatabaseDSN, "EXPRESSPAY_DB_DSN")
	setString(&c.DevToken, "EXPRESSPAY_DEV_TOKEN")
	setString(&c.JWTSecret, "EXPRESSPAY_JWT_SECRET")
}

// Endpoint is the NVP API endpoint for the configured environment.
func (c Config) Endpoint() string {
	if c.EndpointOverride != "" {
		return c.EndpointOverride
	}
	if c.Sandbox {
		return "https://api-3t.sandbox.paypal.com/nvp"
	}
	return "https://api-3t.paypal.com/nvp"
}

// RedirectBase is the www host the buyer is sent to with the checkout token.
func (c Config) RedirectBase() string {
	if c.RedirectOverride != "" {
		return c.RedirectOverride
	}
	if c.Sandbox {
		return "https://www.sandbox.paypal.com/webscr"
	}
	return "https://www.paypal.com/webscr"
}
