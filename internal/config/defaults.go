package config

const (
	defaultBackend               = BackendServiceBus
	defaultGracePeriodMS         = 1000
	defaultPeekTimeoutSeconds    = 3
	defaultRequestTimeoutSeconds = 90
	defaultSQSWaitSeconds        = 1
	defaultLockSeconds           = 30
	defaultRedisAddr             = "localhost:6379"
	defaultRedisKeyPrefix        = "rustybus"
	defaultSQLitePath            = "~/.local/share/rustybus/queue.db"
	defaultConfigPath            = "~/.config/rustybus/config.toml"
	projectConfigName            = "rustybus.toml"
)

// Default returns a Config populated with repository defaults. Backend and
// credentials are left empty so the environment can supply them.
func Default() Config {
	return Config{
		Dispatch: Dispatch{
			GracePeriodMS:      defaultGracePeriodMS,
			PeekTimeoutSeconds: defaultPeekTimeoutSeconds,
		},
		ServiceBus: ServiceBus{
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		SQS: SQS{
			WaitSeconds: defaultSQSWaitSeconds,
			LockSeconds: defaultLockSeconds,
		},
		Redis: Redis{
			KeyPrefix:   defaultRedisKeyPrefix,
			LockSeconds: defaultLockSeconds,
		},
		SQLite: SQLite{
			LockSeconds: defaultLockSeconds,
		},
	}
}
