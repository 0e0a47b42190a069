package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"jansarthi-be/client"
)

// CLIConfig is read from ~/.jansarthi/config.yaml unless --config says otherwise.
type CLIConfig struct {
	BaseURL       string `yaml:"base_url"`
	SessionPath   string `yaml:"session_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

func DefaultConfig() CLIConfig {
	session, err := client.DefaultSessionPath()
	if err != nil {
		session = "session.json"
	}
	return CLIConfig{
		BaseURL:       client.DefaultBaseURL,
		SessionPath:   session,
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "jansarthi",
	}
}

var (
	cliConfig CLIConfig
	loadOnce  sync.Once
	loadErr   error
)

// LoadConfig reads the file once per process, writing defaults on first run.
func LoadConfig(path string) (CLIConfig, error) {
	loadOnce.Do(func() {
		cliConfig, loadErr = readConfig(path)
	})
	return cliConfig, loadErr
}

func readConfig(path string) (CLIConfig, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return CLIConfig{}, fmt.Errorf("could not find the user's home directory: %w", err)
		}
		path = filepath.Join(home, ".jansarthi", "config.yaml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "First run, writing default config to %s\n", path)
		if err := writeDefault(path); err != nil {
			return CLIConfig{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return CLIConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
