package broker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IBroker is the topic collaborator the transport bridge publishes to.
// Messages are keyed by userId; one stream per topic.
type IBroker interface {
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Connected(ctx context.Context) bool
}

type redisBroker struct {
	client *redis.Client
}

func New() IBroker {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to broker at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to broker: %v", err))
	} else {
		logrus.Info("Successfully connected to broker")
	}

	return &redisBroker{client: client}
}

func (b *redisBroker) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	logrus.Debug(fmt.Sprintf("Publishing to topic %s with key %s (%d bytes)", topic, key, len(payload)))

	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":   key,
			"value": payload,
		},
	}).Err()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error publishing to topic %s: %v", topic, err))
		return err
	}

	logrus.Debug(fmt.Sprintf("Successfully published to topic %s", topic))
	return nil
}

// Connected reports the broker connectivity status signal consumed by the
// capture side to gate video-recording affordances.
func (b *redisBroker) Connected(ctx context.Context) bool {
	_, err := b.client.Ping(ctx).Result()
	return err == nil
}
