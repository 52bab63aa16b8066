package cnwlicense

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// ConfigEnvPrefix prefixes every Config environment variable.
const ConfigEnvPrefix = "CNW_LICENSE"

// Config tells a Gate where the license artifacts live and what to require.
type Config struct {
	LicenseFile   string `envconfig:"FILE" validate:"required"`
	PublicKeyFile string `envconfig:"PUBLIC_KEY_FILE" validate:"required"`
	ProgramID     string `envconfig:"PROGRAM_ID" default:"emv" validate:"required"`
	Role          string `envconfig:"ROLE"`
	Feature       string `envconfig:"FEATURE"`
	DeviceCheck   bool   `envconfig:"DEVICE_CHECK" default:"true"`
}

// LoadConfig reads Config from CNW_LICENSE_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(ConfigEnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load license config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that all required settings are present.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid license config: %w", err)
	}
	return nil
}
