package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredential marks a required backend credential that was not supplied.
var ErrMissingCredential = errors.New("missing credential")

// CredentialError names the missing setting. Its message is shown to the
// user verbatim.
type CredentialError struct {
	Setting string
	Message string
}

func (e *CredentialError) Error() string {
	return e.Message
}

func (e *CredentialError) Unwrap() error {
	return ErrMissingCredential
}

// Validate ensures the configuration is usable for the selected backend.
func (c *Config) Validate() error {
	if err := c.validateDispatch(); err != nil {
		return err
	}
	switch c.Backend {
	case BackendServiceBus:
		return c.validateServiceBus()
	case BackendSQS:
		return c.validateSQS()
	case BackendRedis:
		return c.validateRedis()
	case BackendSQLite:
		return c.validateSQLite()
	default:
		return fmt.Errorf("backend %q is not supported (expected %s)", c.Backend, strings.Join(Backends(), ", "))
	}
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendServiceBus, BackendSQS, BackendRedis, BackendSQLite}
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.GracePeriodMS < 0 {
		return errors.New("dispatch.grace_period_ms must be zero or positive")
	}
	if c.Dispatch.PeekTimeoutSeconds <= 0 {
		return errors.New("dispatch.peek_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateServiceBus() error {
	sb := c.ServiceBus
	if sb.Namespace == "" && sb.Endpoint == "" {
		return &CredentialError{Setting: EnvServiceNamespace, Message: "Service Bus Namespace not found in .env file"}
	}
	if sb.PolicyName == "" {
		return &CredentialError{Setting: EnvPolicyName, Message: "Policy name not found in .env file"}
	}
	if sb.PolicyKey == "" {
		return &CredentialError{Setting: EnvPolicyKey, Message: "Policy key not found in .env file"}
	}
	return nil
}

func (c *Config) validateSQS() error {
	if c.SQS.WaitSeconds < 0 || c.SQS.WaitSeconds > 20 {
		return errors.New("sqs.wait_seconds must be between 0 and 20")
	}
	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis.Addr == "" {
		return errors.New("redis.addr must be set")
	}
	if c.Redis.DB < 0 {
		return errors.New("redis.db must be zero or positive")
	}
	return nil
}

func (c *Config) validateSQLite() error {
	if c.SQLite.Path == "" {
		return errors.New("sqlite.path must be set")
	}
	return nil
}
