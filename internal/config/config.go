package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"polymarket-tax-go/internal/tax"
)

// Config holds all configuration for the application.
type Config struct {
	Polymarket Polymarket `mapstructure:"polymarket"`
	Tax        Tax        `mapstructure:"tax"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// Polymarket holds the configuration for the Polymarket APIs.
type Polymarket struct {
	ClobBaseURL    string  `mapstructure:"clob_base_url"`
	GammaBaseURL   string  `mapstructure:"gamma_base_url"`
	DataApiBaseURL string  `mapstructure:"data_api_base_url"`
	PageLimit      int     `mapstructure:"page_limit"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Tax holds the configuration for tax calculations.
type Tax struct {
	Year            int       `mapstructure:"year"`
	Treatment       string    `mapstructure:"treatment"`
	CostBasisMethod string    `mapstructure:"cost_basis_method"`
	Rates           tax.Rates `mapstructure:"rates"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("polymarket.clob_base_url", "https://clob.polymarket.com")
	viper.SetDefault("polymarket.gamma_base_url", "https://gamma-api.polymarket.com")
	viper.SetDefault("polymarket.data_api_base_url", "https://data-api.polymarket.com")
	viper.SetDefault("polymarket.page_limit", 500)
	viper.SetDefault("polymarket.rate_limit", 5) // requests per second
	viper.SetDefault("polymarket.rate_limit_burst", 2)

	viper.SetDefault("tax.year", time.Now().Year())
	viper.SetDefault("tax.treatment", string(tax.TreatmentCapitalGains))
	viper.SetDefault("tax.cost_basis_method", string(tax.MethodFIFO))

	rates := tax.DefaultRates()
	viper.SetDefault("tax.rates.max_ordinary_rate", rates.MaxOrdinaryRate)
	viper.SetDefault("tax.rates.max_long_term_rate", rates.MaxLongTermRate)
	viper.SetDefault("tax.rates.self_employment_rate", rates.SelfEmploymentRate)
	viper.SetDefault("tax.rates.se_taxable_factor", rates.SETaxableFactor)
	viper.SetDefault("tax.rates.se_wage_base", rates.SEWageBase)
	viper.SetDefault("tax.rates.medicare_rate", rates.MedicareRate)
	viper.SetDefault("tax.rates.capital_loss_deduction_cap", rates.CapitalLossDeductionCap)
	viper.SetDefault("tax.rates.gambling_loss_deduction_rate", rates.GamblingLossDeductionRate)

	viper.SetDefault("database.dsn", "polymarket_tax.db")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logger.level", "info")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
