package config

import (
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter returns nil when no brokers are configured.
func (c *Config) NewKafkaWriter() *kafka.Writer {
	if len(c.KafkaBrokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.KafkaBrokers...),
		Topic:                  c.KafkaTopic,
		Balancer:               &kafka.Hash{}, // events of one order stay in one partition
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// NewRedisClient returns nil when REDIS_ADDR is empty.
func (c *Config) NewRedisClient() *redis.Client {
	if c.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: c.RedisAddr,
	})
}
