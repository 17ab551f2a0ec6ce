package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	GCPProject  string
	GCPZone     string
	MachineType string
	NamePrefix  string

	InstanceLifetime   time.Duration
	RateCeiling        int
	RateWindow         time.Duration
	GatewayCallTimeout time.Duration

	AuditLogPath string
	SecretsDir   string

	VerifyEndpoint string
	VerifySecret   string

	SweepSchedule string
	SweepTZ       string

	LogLevel    string
	LogFormat   string
	HTTPPort    string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{
		GCPProject:     os.Getenv(envKeyGCPProject),
		GCPZone:        getEnvOrDefault(envKeyGCPZone, "us-east1-c"),
		MachineType:    getEnvOrDefault(envKeyMachineType, "e2-micro"),
		NamePrefix:     getEnvOrDefault(envKeyNamePrefix, "demo-"),
		AuditLogPath:   getEnvOrDefault(envKeyAuditLogPath, "data/deployments.json"),
		SecretsDir:     getEnvOrDefault(envKeySecretsDir, "/opt/project-orchestrator/secrets"),
		VerifyEndpoint: os.Getenv(envKeyVerifyEndpoint),
		VerifySecret:   os.Getenv(envKeyVerifySecret),
		SweepSchedule:  getEnvOrDefault(envKeySweepSchedule, "*/5 * * * *"),
		SweepTZ:        os.Getenv(envKeySweepTZ),
		LogLevel:       getEnvOrDefault(envKeyLogLevel, "info"),
		LogFormat:      getEnvOrDefault(envKeyLogFormat, "json"),
		HTTPPort:       getEnvOrDefault(envKeyHTTPPort, "8080"),
		MetricsPort:    getEnvOrDefault(envKeyMetricsPort, "9090"),
	}

	if cfg.GCPProject == "" {
		return nil, fmt.Errorf("%s is required", envKeyGCPProject)
	}

	var err error

	cfg.InstanceLifetime, err = parseDurationEnv(envKeyInstanceLifetime, "2h", envMinInstanceLifetime)
	if err != nil {
		return nil, err
	}

	cfg.RateWindow, err = parseDurationEnv(envKeyRateWindow, "1h", envMinRateWindow)
	if err != nil {
		return nil, err
	}

	cfg.GatewayCallTimeout, err = parseDurationEnv(envKeyGatewayCallTimeout, "2m", envMinGatewayCallTimeout)
	if err != nil {
		return nil, err
	}

	ceilingStr := getEnvOrDefault(envKeyRateCeiling, "3")

	ceiling, err := strconv.Atoi(ceilingStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", envKeyRateCeiling, err)
	}

	if ceiling < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", envKeyRateCeiling, ceiling)
	}

	cfg.RateCeiling = ceiling

	return cfg, nil
}

func parseDurationEnv(key, defaultValue string, minValue time.Duration) (time.Duration, error) {
	value, err := time.ParseDuration(getEnvOrDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if value < minValue {
		return 0, fmt.Errorf("%s must be at least %s, got %s", key, minValue, value)
	}

	return value, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}
