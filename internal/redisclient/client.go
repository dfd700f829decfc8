package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// incrWindow bumps key and sets its expiry on the first hit, in one round trip.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Hit counts one request against a fixed window and reports the count so far
// and the time left in the window.
func (c *Client) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	res, err := incrWindow.Run(ctx, c.redisdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return int(res[0]), ttl, nil
}
