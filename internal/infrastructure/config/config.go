package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const DefaultFileName = "minishop.yaml"

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Payment  PaymentConfig  `yaml:"payment"`
	Shipping ShippingConfig `yaml:"shipping"`
	Refund   RefundConfig   `yaml:"refund"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

type ServiceConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
	Addr string `yaml:"addr"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`
}

type PaymentConfig struct {
	InstallmentInterestPercent float64 `yaml:"installment_interest_percent"`
	InstantDiscountPercent     float64 `yaml:"instant_discount_percent"`
	FraudClearProbability      float64 `yaml:"fraud_clear_probability"`
	AuthorizationProbability   float64 `yaml:"authorization_probability"`
	RefundProbability          float64 `yaml:"refund_probability"`
	RegistrationGuard          string  `yaml:"registration_guard"`
}

type ShippingConfig struct {
	UnitRate float64 `yaml:"unit_rate"`
	Cap      float64 `yaml:"cap"`
}

type RefundConfig struct {
	AutoProcess bool `yaml:"auto_process"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type CatalogConfig struct {
	Seed []ProductSeed `yaml:"seed"`
}

type ProductSeed struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Stock       int     `yaml:"stock"`
	Category    string  `yaml:"category"`
}

func Default() Config {
	return Config{
		Service: ServiceConfig{Name: "minishop", Env: "dev", Addr: ":8080", LogLevel: "info"},
		Payment: PaymentConfig{
			InstallmentInterestPercent: 2.0,
			InstantDiscountPercent:     5.0,
			FraudClearProbability:      0.95,
			AuthorizationProbability:   0.90,
			RefundProbability:          0.95,
			RegistrationGuard:          string(order.GuardLenient),
		},
		Shipping: ShippingConfig{UnitRate: 5.00, Cap: 50.00},
		Kafka:    KafkaConfig{Topic: "minishop.checkout.events"},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. Environment overrides are applied last, then the result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SERVICE_NAME"); v != "" {
		c.Service.Name = v
	}
	if v := getenv("ENV"); v != "" {
		c.Service.Env = v
	}
	if v := getenv("HTTP_ADDR"); v != "" {
		c.Service.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Service.LogLevel = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitCSV(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Service.Name == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if c.Service.Addr == "" {
		errs = append(errs, errors.New("service.addr is required"))
	}
	for key, pct := range map[string]float64{
		"payment.installment_interest_percent": c.Payment.InstallmentInterestPercent,
		"payment.instant_discount_percent":     c.Payment.InstantDiscountPercent,
	} {
		if pct < 0 || pct > 100 {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 100, got %v", key, pct))
		}
	}
	if err := c.PolicyConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("payment probabilities: %w", err))
	}
	if !order.PaymentGuard(c.Payment.RegistrationGuard).Valid() {
		errs = append(errs, fmt.Errorf("payment.registration_guard must be lenient or strict, got %q", c.Payment.RegistrationGuard))
	}
	if err := c.ShippingRate().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	seen := make(map[string]bool, len(c.Catalog.Seed))
	for i, p := range c.Catalog.Seed {
		if _, err := p.Product(); err != nil {
			errs = append(errs, fmt.Errorf("catalog.seed[%d]: %w", i, err))
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("catalog.seed[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (c Config) InterestPercent() decimal.Decimal {
	return decimal.NewFromFloat(c.Payment.InstallmentInterestPercent)
}

func (c Config) DiscountPercent() decimal.Decimal {
	return decimal.NewFromFloat(c.Payment.InstantDiscountPercent)
}

func (c Config) PolicyConfig() payment.PolicyConfig {
	return payment.PolicyConfig{
		FraudClearProbability:    c.Payment.FraudClearProbability,
		AuthorizationProbability: c.Payment.AuthorizationProbability,
		RefundProbability:        c.Payment.RefundProbability,
	}
}

func (c Config) Guard() order.PaymentGuard {
	return order.PaymentGuard(c.Payment.RegistrationGuard)
}

func (c Config) ShippingRate() order.ShippingRate {
	return order.ShippingRate{
		UnitRate: decimal.NewFromFloat(c.Shipping.UnitRate),
		Cap:      decimal.NewFromFloat(c.Shipping.Cap),
	}
}

func (p ProductSeed) Product() (*catalog.Product, error) {
	return catalog.NewProduct(p.ID, p.Name, p.Description, decimal.NewFromFloat(p.Price), p.Stock, p.Category)
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
