package broker

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

const (
	// DefaultBaseURL is the production KIS Open API host.
	DefaultBaseURL = "https://openapi.koreainvestment.com:9443"
	// DefaultProductCode is the account product code used when the account
	// number carries only the 8 digit CANO.
	DefaultProductCode = "01"
	defaultTimeout     = 30 * time.Second
	defaultCustType    = "P"
)

// Config contains brokerage connection settings.
type Config struct {
	BaseURL     string        `yaml:"base_url" json:"base_url" jsonschema:"title=Base URL,description=KIS Open API host" default:"https://openapi.koreainvestment.com:9443" validate:"required,url"`
	AppKey      string        `yaml:"app_key" json:"app_key" jsonschema:"title=App Key" validate:"required"`
	AppSecret   string        `yaml:"app_secret" json:"app_secret" jsonschema:"title=App Secret" validate:"required"`
	AccountNo   string        `yaml:"account_no" json:"account_no" jsonschema:"title=Account Number,description=10 digit account or 8 digit CANO"`
	ProductCode string        `yaml:"account_product_code" json:"account_product_code" default:"01"`
	CustType    string        `yaml:"cust_type" json:"cust_type" default:"P" validate:"oneof=P B"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" default:"30s"`
	// UseFallback substitutes synthetic quotes on connectivity failures
	UseFallback bool `yaml:"use_fallback" json:"use_fallback"`
}

// Validate validates the Config struct. Missing credentials are reported as
// authentication errors so callers fail before any request is made.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AppKey) == "" || strings.TrimSpace(c.AppSecret) == "" {
		return errors.New(errors.ErrCodeAuthentication, "app key and app secret are required")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid broker config", err)
	}

	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}

	return c.Timeout
}

func (c Config) custType() string {
	if c.CustType == "" {
		return defaultCustType
	}

	return c.CustType
}

// Account is a parsed brokerage account number.
type Account struct {
	// CANO is the 8 digit comprehensive account number
	CANO string
	// ProductCode is the 2 digit ACNT_PRDT_CD
	ProductCode string
}

// ParseAccount splits an account number into CANO and product code.
// Ten digits split 8+2. Shorter inputs are zero padded to 8 digits and use
// productCode. Longer inputs are truncated to their first ten digits.
func ParseAccount(accountNo string, productCode string) (Account, error) {
	digits := accountDigits(accountNo)

	if digits == "" {
		return Account{}, errors.New(errors.ErrCodeInvalidAccount, "account number is empty")
	}

	if productCode == "" {
		productCode = DefaultProductCode
	}

	switch {
	case len(digits) > 10:
		digits = digits[:10]

		fallthrough
	case len(digits) == 10:
		return Account{CANO: digits[:8], ProductCode: digits[8:]}, nil
	case len(digits) > 8:
		return Account{CANO: digits[:8], ProductCode: productCode}, nil
	default:
		return Account{CANO: strings.Repeat("0", 8-len(digits)) + digits, ProductCode: productCode}, nil
	}
}

// accountDigits drops every non-digit from an account number.
func accountDigits(accountNo string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, accountNo)
}
