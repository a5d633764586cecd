package queueaccess

import (
	"context"
	"time"

	"rustybus/internal/config"
	"rustybus/internal/queue"
	"rustybus/internal/transport/redisq"
	"rustybus/internal/transport/servicebus"
	"rustybus/internal/transport/sqlitequeue"
	"rustybus/internal/transport/sqs"
)

// DefaultOpeners maps every supported backend name to its transport.
func DefaultOpeners() map[string]Opener {
	return map[string]Opener{
		config.BackendServiceBus: openServiceBus,
		config.BackendSQS:        openSQS,
		config.BackendRedis:      openRedis,
		config.BackendSQLite:     openSQLite,
	}
}

func openServiceBus(_ context.Context, cfg *config.Config, queueName string) (queue.Client, error) {
	sb := cfg.ServiceBus
	return servicebus.New(servicebus.Options{
		Namespace:        sb.Namespace,
		Queue:            queueName,
		PolicyName:       sb.PolicyName,
		PolicyKey:        sb.PolicyKey,
		Endpoint:         sb.Endpoint,
		OperationTimeout: seconds(sb.RequestTimeoutSeconds),
	})
}

func openSQS(ctx context.Context, cfg *config.Config, queueName string) (queue.Client, error) {
	return sqs.Open(ctx, sqs.Options{
		Queue:       queueName,
		QueueURL:    cfg.SQS.QueueURL,
		Region:      cfg.SQS.Region,
		Endpoint:    cfg.SQS.Endpoint,
		WaitSeconds: int32(cfg.SQS.WaitSeconds),
		LockSeconds: int32(cfg.SQS.LockSeconds),
	})
}

func openRedis(ctx context.Context, cfg *config.Config, queueName string) (queue.Client, error) {
	return redisq.Open(ctx, redisq.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		Prefix:       cfg.Redis.KeyPrefix,
		Queue:        queueName,
		LockDuration: seconds(cfg.Redis.LockSeconds),
	})
}

func openSQLite(ctx context.Context, cfg *config.Config, queueName string) (queue.Client, error) {
	return sqlitequeue.Open(ctx, sqlitequeue.Options{
		Path:         cfg.SQLite.Path,
		Queue:        queueName,
		LockDuration: seconds(cfg.SQLite.LockSeconds),
	})
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
