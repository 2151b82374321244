package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Credentials holds secrets read from the environment at startup.
type Credentials struct {
	APIKey  string `envconfig:"GROQ_API_KEY" required:"true"`
	BaseURL string `envconfig:"GROQ_BASE_URL"`
}

// LoadCredentials exports envFile (if given, or ./.env if present) into the
// process environment and then reads the provider credentials. Variables
// already set in the environment win over the file. A missing API key is a
// *ConfigError; callers treat it as fatal.
func LoadCredentials(envFile string) (Credentials, error) {
	if envFile != "" {
		if err := exportEnvFile(envFile); err != nil {
			return Credentials{}, &ConfigError{Message: fmt.Sprintf("loading env file %s: %v", envFile, err)}
		}
	} else if err := exportEnvFileIfExists(".env"); err != nil {
		return Credentials{}, &ConfigError{Message: "loading .env: " + err.Error()}
	}

	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return Credentials{}, &ConfigError{Message: "GROQ_API_KEY environment variable not set: " + err.Error()}
	}
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	if creds.APIKey == "" {
		return Credentials{}, &ConfigError{Message: "GROQ_API_KEY environment variable not set"}
	}
	return creds, nil
}

func exportEnvFileIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvFile(path)
}

func exportEnvFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		name := strings.ToUpper(k)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
