package broker

import (
	"testing"

	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestValidate() {
	cfg := Config{BaseURL: DefaultBaseURL, AppKey: "key", AppSecret: "secret"}
	suite.NoError(cfg.Validate())

	missing := Config{BaseURL: DefaultBaseURL, AppKey: "key", AppSecret: "  "}
	suite.Equal(errors.ErrCodeAuthentication, errors.GetCode(missing.Validate()))

	badURL := Config{BaseURL: "not a url", AppKey: "key", AppSecret: "secret"}
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(badURL.Validate()))

	badCustType := Config{BaseURL: DefaultBaseURL, AppKey: "key", AppSecret: "secret", CustType: "X"}
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(badCustType.Validate()))
}

func (suite *ConfigTestSuite) TestParseAccount() {
	testCases := []struct {
		name        string
		accountNo   string
		productCode string
		expected    Account
	}{
		{"ten digits", "1234567801", "", Account{CANO: "12345678", ProductCode: "01"}},
		{"dashed", "12345678-22", "", Account{CANO: "12345678", ProductCode: "22"}},
		{"eight digits default product", "12345678", "", Account{CANO: "12345678", ProductCode: "01"}},
		{"eight digits explicit product", "12345678", "03", Account{CANO: "12345678", ProductCode: "03"}},
		{"nine digits", "123456789", "", Account{CANO: "12345678", ProductCode: "01"}},
		{"short is padded", "12345", "", Account{CANO: "00012345", ProductCode: "01"}},
		{"long is truncated", "123456780199", "", Account{CANO: "12345678", ProductCode: "01"}},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			account, err := ParseAccount(tc.accountNo, tc.productCode)
			suite.Require().NoError(err)
			suite.Equal(tc.expected, account)
		})
	}

	_, err := ParseAccount("--", "")
	suite.Equal(errors.ErrCodeInvalidAccount, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestParseNumbers() {
	suite.Equal(71500.0, parseFloat(" 71500 "))
	suite.Equal(0.0, parseFloat(""))
	suite.InDelta(-3.21, parseFloat("-3.21"), 1e-9)
	suite.Equal(int64(1234), parseInt64("1234.9"))
	suite.Equal("71000", formatPrice(71000.99))
}
