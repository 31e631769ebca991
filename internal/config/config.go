package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/openterm/pinpad-bridge/internal/dsixml"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	PairingKeyEnv string        `mapstructure:"pairing_key_env"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	JWTSecretEnv  string        `mapstructure:"jwt_secret_env"`
}

// TerminalConfig identifies the merchant and the PIN pad. Every field
// except Sandbox is mandatory; absence fails Load.
type TerminalConfig struct {
	MerchantID       string        `mapstructure:"merchant_id"`
	OnlineMerchantID string        `mapstructure:"online_merchant_id"`
	Sandbox          bool          `mapstructure:"sandbox"`
	SecureDevice     string        `mapstructure:"secure_device"`
	OperatorID       string        `mapstructure:"operator_id"`
	POSPackageID     string        `mapstructure:"pos_package_id"`
	PinPadAddress    string        `mapstructure:"pinpad_ip_address"`
	PinPadPort       string        `mapstructure:"pinpad_ip_port"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
}

type ProfilesConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
	Active      string   `mapstructure:"active"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.shutdown_timeout", "15s")
	viper.SetDefault("auth.pairing_key_env", "PPB_PAIRING_KEY")
	viper.SetDefault("auth.jwt_secret_env", "PPB_JWT_SECRET")
	viper.SetDefault("auth.session_ttl", "12h")
	viper.SetDefault("terminal.sandbox", true)
	viper.SetDefault("terminal.dial_timeout", "5s")
	viper.SetDefault("profiles.search_paths", []string{"profiles"})

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PPB")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Terminal.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate fails fast on any missing required field so the bridge never
// starts half-configured.
func (t TerminalConfig) Validate() error {
	required := map[string]string{
		"terminal.merchant_id":        t.MerchantID,
		"terminal.online_merchant_id": t.OnlineMerchantID,
		"terminal.secure_device":      t.SecureDevice,
		"terminal.operator_id":        t.OperatorID,
		"terminal.pos_package_id":     t.POSPackageID,
		"terminal.pinpad_ip_address":  t.PinPadAddress,
		"terminal.pinpad_ip_port":     t.PinPadPort,
	}
	for field, value := range required {
		if value == "" {
			return fmt.Errorf("missing required config field: %s", field)
		}
	}
	return nil
}

// Wire converts the terminal section into the request builder's view of it.
func (t TerminalConfig) Wire() dsixml.TerminalConfig {
	return dsixml.TerminalConfig{
		MerchantID:       t.MerchantID,
		OnlineMerchantID: t.OnlineMerchantID,
		Sandbox:          t.Sandbox,
		SecureDevice:     t.SecureDevice,
		OperatorID:       t.OperatorID,
		POSPackageID:     t.POSPackageID,
		PinPadAddress:    t.PinPadAddress,
		PinPadPort:       t.PinPadPort,
	}
}

// Addr returns the PIN pad's dial address.
func (t TerminalConfig) Addr() string {
	return net.JoinHostPort(t.PinPadAddress, t.PinPadPort)
}

// PairingKey reads the app pairing key from the configured environment
// variable.
func (a AuthConfig) PairingKey() string {
	return os.Getenv(a.PairingKeyEnv)
}

// JWTSecret reads the session signing secret from the configured
// environment variable, with a development fallback.
func (a AuthConfig) JWTSecret() string {
	secret := os.Getenv(a.JWTSecretEnv)
	if secret == "" {
		return "dev-secret-change-in-production-min-32-chars"
	}
	return secret
}
