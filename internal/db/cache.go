package club

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	model "github.com/glkeru/vipclub/internal/models"
)

// Кэш месячного рейтинга для витрины.
// Кэшируется только read-only отображение - балансы счетов всегда читаются из базы
type CacheService struct {
	client *redis.Client
}

func NewCacheService() (serv *CacheService, err error) {
	// config
	addr := os.Getenv("CLUB_CACHE_URL")
	if addr == "" {
		return nil, fmt.Errorf("env CLUB_CACHE_URL is not set")
	}
	user := os.Getenv("CLUB_CACHE_USER")
	if user == "" {
		return nil, fmt.Errorf("env CLUB_CACHE_USER is not set")
	}
	pwd := os.Getenv("CLUB_CACHE_PWD")
	if pwd == "" {
		return nil, fmt.Errorf("env CLUB_CACHE_PWD is not set")
	}
	// redis
	db := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    pwd,
		Username:    user,
		DB:          0,
		MaxRetries:  5,
		DialTimeout: 10 * time.Second,
	})
	err = db.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return &CacheService{db}, nil
}

func leaderboardKey(month int, year int) string {
	return fmt.Sprintf("leaderboard:%d-%02d", year, month)
}

func (c *CacheService) GetLeaderboard(ctx context.Context, month int, year int) (accounts []model.PointsAccount, err error) {
	val, err := c.client.Get(ctx, leaderboardKey(month, year)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("leaderboard %w", model.ErrNotFound)
	} else if err != nil {
		return nil, err
	}
	err = json.Unmarshal([]byte(val), &accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *CacheService) SetLeaderboard(ctx context.Context, month int, year int, accounts []model.PointsAccount) (err error) {
	val, err := json.Marshal(accounts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, leaderboardKey(month, year), val, 5*time.Minute).Err()
}

func (c *CacheService) InvalidateLeaderboard(ctx context.Context, month int, year int) error {
	return c.client.Del(ctx, leaderboardKey(month, year)).Err()
}
