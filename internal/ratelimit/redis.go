package ratelimit

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/redis/go-redis/v9"
)

// admitScript — то же фиксированное окно, атомарно на стороне Redis.
// KEYS[1] — ключ счётчика, ARGV[1] — лимит, ARGV[2] — окно в мс.
var admitScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
	return 0
end
current = redis.call("INCR", KEYS[1])
if current == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// Redis — ограничитель со счётчиками в Redis, общими для всех экземпляров
// сервиса. При недоступности Redis решение принимает fallback.
type Redis struct {
	rdb      redis.Scripter
	prefix   string
	rule     Rule
	fallback Limiter
}

// NewRedis создаёт ограничитель. prefix отделяет области (например,
// "site:rl:generate:"). Если fallback nil, используется Memory с тем же правилом.
func NewRedis(rdb redis.Scripter, prefix string, rule Rule, fallback Limiter) *Redis {
	rule = rule.Normalize()

	if fallback == nil {
		fallback = NewMemory(rule)
	}

	return &Redis{rdb: rdb, prefix: prefix, rule: rule, fallback: fallback}
}

// Rule возвращает действующее правило.
func (r *Redis) Rule() Rule { return r.rule }

// Admit допускает попытку по счётчику в Redis.
func (r *Redis) Admit(ctx context.Context, identity string) bool {
	const op = "ratelimit/redis/Admit"

	res, err := admitScript.Run(ctx, r.rdb, []string{r.prefix + identity},
		r.rule.Limit, r.rule.Window.Milliseconds()).Int()
	if err != nil {
		log.From(ctx).With("op", op).WarnContext(ctx, "rate_limit_backend_failed", "err", err)
		return r.fallback.Admit(ctx, identity)
	}

	return res == 1
}

// DialRedis создаёт клиент Redis из URL (redis://:pass@host:6379/0)
// и проверяет соединение.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	const op = "ratelimit/redis/DialRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rdb, nil
}
