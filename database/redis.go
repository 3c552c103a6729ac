package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetRedisClient connects to redis and verifies the connection with a ping.
// Redis is optional; callers pass an empty addr to run fully in-memory.
func GetRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
