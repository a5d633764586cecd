package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rustybus/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvBackend,
		config.EnvServiceNamespace,
		config.EnvPolicyName,
		config.EnvPolicyKey,
		config.EnvRedisAddr,
		config.EnvSQLitePath,
		config.EnvAWSRegion,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesServiceBusEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvServiceNamespace, "contoso")
	t.Setenv(config.EnvPolicyName, "RootManageSharedAccessKey")
	t.Setenv(config.EnvPolicyKey, "secret")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Backend != config.BackendServiceBus {
		t.Fatalf("expected servicebus backend, got %q", cfg.Backend)
	}
	if cfg.ServiceBus.Namespace != "contoso" || cfg.ServiceBus.PolicyKey != "secret" {
		t.Fatalf("expected credentials from env, got %+v", cfg.ServiceBus)
	}
	if cfg.GracePeriod() != time.Second {
		t.Fatalf("unexpected grace period %s", cfg.GracePeriod())
	}
	if cfg.PeekTimeout() != 3*time.Second {
		t.Fatalf("unexpected peek timeout %s", cfg.PeekTimeout())
	}
}

func TestLoadReportsMissingServiceBusCredentials(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		message string
	}{
		{
			name:    "namespace",
			env:     map[string]string{},
			message: "Service Bus Namespace not found in .env file",
		},
		{
			name:    "policy name",
			env:     map[string]string{config.EnvServiceNamespace: "ns"},
			message: "Policy name not found in .env file",
		},
		{
			name:    "policy key",
			env:     map[string]string{config.EnvServiceNamespace: "ns", config.EnvPolicyName: "p"},
			message: "Policy key not found in .env file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HOME", t.TempDir())
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, _, _, err := config.Load("")
			if !errors.Is(err, config.ErrMissingCredential) {
				t.Fatalf("expected ErrMissingCredential, got %v", err)
			}
			if err.Error() != tt.message {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestLoadFileValuesAndBackendOverride(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "rustybus.toml")
	content := `backend = "redis"

[dispatch]
grace_period_ms = 250
peek_timeout_seconds = 5

[redis]
addr = "cache:6380"
db = 2

[sqlite]
path = "~/queues/local.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file %s to be used, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Backend != config.BackendRedis || cfg.Redis.Addr != "cache:6380" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.GracePeriod() != 250*time.Millisecond || cfg.PeekTimeout() != 5*time.Second {
		t.Fatalf("unexpected dispatch config %+v", cfg.Dispatch)
	}
	if cfg.SQLite.Path != filepath.Join(home, "queues", "local.db") {
		t.Fatalf("expected expanded sqlite path, got %q", cfg.SQLite.Path)
	}

	overridden, _, _, err := config.Load(path, config.WithBackend("sqlite"))
	if err != nil {
		t.Fatalf("Load with override: %v", err)
	}
	if overridden.Backend != config.BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", overridden.Backend)
	}
}

func TestLoadBackendFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvBackend, "SQLite")
	t.Setenv(config.EnvSQLitePath, filepath.Join(t.TempDir(), "q.db"))

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != config.BackendSQLite {
		t.Fatalf("expected sqlite backend from env, got %q", cfg.Backend)
	}
	if cfg.SQLite.LockSeconds != 30 {
		t.Fatalf("unexpected lock seconds %d", cfg.SQLite.LockSeconds)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "kafka"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown backend to fail")
	}

	cfg = config.Default()
	cfg.Backend = config.BackendSQS
	cfg.SQS.WaitSeconds = 30
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected wait_seconds > 20 to fail")
	}

	cfg = config.Default()
	cfg.Backend = config.BackendSQS
	cfg.Dispatch.PeekTimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero peek timeout to fail")
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "AZURE_POLICY_NAME=from-file\nAZURE_POLICY_KEY=file-key\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(config.EnvPolicyName, "from-env")

	loaded, err := config.LoadEnvFile(path)
	if err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if !loaded {
		t.Fatal("expected env file to be loaded")
	}
	if got := os.Getenv(config.EnvPolicyName); got != "from-env" {
		t.Fatalf("existing variable overridden: %q", got)
	}
	if got := os.Getenv(config.EnvPolicyKey); got != "file-key" {
		t.Fatalf("expected variable from file, got %q", got)
	}
	os.Unsetenv(config.EnvPolicyKey)

	missing, err := config.LoadEnvFile(filepath.Join(dir, "absent.env"))
	if err != nil || missing {
		t.Fatalf("expected missing env file to be ignored, got %v %v", missing, err)
	}
}
