package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted when the file leaves a value unset.
const (
	EnvBackend          = "RUSTYBUS_BACKEND"
	EnvServiceNamespace = "AZURE_SERVICE_BUS_NAMESPACE"
	EnvPolicyName       = "AZURE_POLICY_NAME"
	EnvPolicyKey        = "AZURE_POLICY_KEY"
	EnvRedisAddr        = "RUSTYBUS_REDIS_ADDR"
	EnvSQLitePath       = "RUSTYBUS_SQLITE_PATH"
	EnvAWSRegion        = "AWS_REGION"
)

func (c *Config) normalize() error {
	c.normalizeBackend()
	c.normalizeServiceBus()
	c.normalizeSQS()
	c.normalizeRedis()
	return c.normalizeSQLite()
}

func (c *Config) normalizeBackend() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = strings.ToLower(lookupEnv(EnvBackend))
	}
	if c.Backend == "" {
		c.Backend = defaultBackend
	}
}

func (c *Config) normalizeServiceBus() {
	sb := &c.ServiceBus
	sb.Namespace = firstNonEmpty(sb.Namespace, lookupEnv(EnvServiceNamespace))
	sb.PolicyName = firstNonEmpty(sb.PolicyName, lookupEnv(EnvPolicyName))
	if sb.PolicyKey == "" {
		sb.PolicyKey = lookupEnv(EnvPolicyKey)
	}
	sb.Endpoint = strings.TrimRight(strings.TrimSpace(sb.Endpoint), "/")
	if sb.RequestTimeoutSeconds <= 0 {
		sb.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeSQS() {
	c.SQS.Region = firstNonEmpty(c.SQS.Region, lookupEnv(EnvAWSRegion))
	c.SQS.Endpoint = strings.TrimSpace(c.SQS.Endpoint)
	c.SQS.QueueURL = strings.TrimSpace(c.SQS.QueueURL)
	if c.SQS.LockSeconds <= 0 {
		c.SQS.LockSeconds = defaultLockSeconds
	}
}

func (c *Config) normalizeRedis() {
	c.Redis.Addr = firstNonEmpty(c.Redis.Addr, lookupEnv(EnvRedisAddr), defaultRedisAddr)
	c.Redis.KeyPrefix = firstNonEmpty(c.Redis.KeyPrefix, defaultRedisKeyPrefix)
	if c.Redis.LockSeconds <= 0 {
		c.Redis.LockSeconds = defaultLockSeconds
	}
}

func (c *Config) normalizeSQLite() error {
	path := firstNonEmpty(c.SQLite.Path, lookupEnv(EnvSQLitePath), defaultSQLitePath)
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("sqlite.path: %w", err)
	}
	c.SQLite.Path = expanded
	if c.SQLite.LockSeconds <= 0 {
		c.SQLite.LockSeconds = defaultLockSeconds
	}
	return nil
}

func lookupEnv(key string) string {
	value, _ := os.LookupEnv(key)
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
