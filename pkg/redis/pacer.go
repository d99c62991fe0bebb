package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SharedPacer spaces requests to one upstream across every process that
// shares the Redis instance. Each caller reserves the next free slot.
// ⭐ SSOT: 프로세스 간 요청 간격 조절은 여기서만
type SharedPacer struct {
	client *Client
	prefix string
}

// PacingConfig names an upstream and the minimum gap between its requests
type PacingConfig struct {
	Key     string        // e.g. "mcx"
	Spacing time.Duration // 요청 사이 최소 간격
}

// NewSharedPacer creates a pacer keyed under prefix
func NewSharedPacer(client *Client, prefix string) *SharedPacer {
	return &SharedPacer{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the pacer is backed by Redis
func (p *SharedPacer) Enabled() bool {
	return p.client != nil && p.client.Enabled()
}

// reserveScript stores the next free slot (unix ms) and returns how long the
// caller must wait for the slot it just took.
var reserveScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local spacing = tonumber(ARGV[2])

	local slot = tonumber(redis.call('GET', key) or '0')
	if slot < now then
		slot = now
	end

	redis.call('SET', key, slot + spacing, 'PX', (slot - now) + spacing * 2)
	return slot - now
`)

// Reserve takes the next slot and returns the delay until it starts
func (p *SharedPacer) Reserve(ctx context.Context, cfg PacingConfig) (time.Duration, error) {
	if !p.Enabled() || cfg.Spacing <= 0 {
		return 0, nil
	}

	key := fmt.Sprintf("%s:pacing:%s", p.prefix, cfg.Key)
	delay, err := reserveScript.Run(ctx, p.client.Redis(), []string{key},
		time.Now().UnixMilli(),
		cfg.Spacing.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("pacing script failed: %w", err)
	}
	return time.Duration(delay) * time.Millisecond, nil
}

// Wait reserves a slot and sleeps until it starts or ctx is cancelled
func (p *SharedPacer) Wait(ctx context.Context, cfg PacingConfig) error {
	delay, err := p.Reserve(ctx, cfg)
	if err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
