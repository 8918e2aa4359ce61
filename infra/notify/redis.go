package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/monitoring"
)

// RedisConfig selects the Redis server and channel naming.
type RedisConfig struct {
	URL           string `json:"url"`
	ChannelPrefix string `json:"channel_prefix"`
	// Stream, when set, also appends every event to this stream so late
	// consumers can replay recent history.
	Stream       string        `json:"stream"`
	StreamMaxLen int64         `json:"stream_max_len"`
	Timeout      time.Duration `json:"timeout"`
}

// RedisPublisher publishes events on Redis pub/sub channels named
// <prefix><topic>.
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	stream  string
	maxLen  int64
	timeout time.Duration
	log     logger.Logger
}

// NewRedisPublisher parses the URL and pings the server.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig, log logger.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	p := &RedisPublisher{
		client:  redis.NewClient(opts),
		prefix:  cfg.ChannelPrefix,
		stream:  cfg.Stream,
		maxLen:  cfg.StreamMaxLen,
		timeout: cfg.Timeout,
		log:     logger.OrNop(log),
	}
	if p.prefix == "" {
		p.prefix = "haulshare:"
	}
	if p.maxLen <= 0 {
		p.maxLen = 1000
	}
	if p.timeout <= 0 {
		p.timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.Ping(pctx).Err(); err != nil {
		_ = p.client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	p.log.Infof("connected to redis %s", opts.Addr)
	return p, nil
}

// Channel returns the pub/sub channel for an event topic.
func (p *RedisPublisher) Channel(topic string) string { return p.prefix + topic }

func (p *RedisPublisher) Publish(ctx context.Context, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Topic(), err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	channel := p.Channel(ev.Topic())
	if p.stream == "" {
		err = p.client.Publish(ctx, channel, payload).Err()
	} else {
		pipe := p.client.TxPipeline()
		pipe.Publish(ctx, channel, payload)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]any{"topic": ev.Topic(), "payload": string(payload)},
		})
		_, err = pipe.Exec(ctx)
	}
	if err != nil {
		monitoring.Capture(err, "publish", "module", "redis", "topic", ev.Topic())
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	p.log.Debugf("published %s", channel)
	return nil
}

func (p *RedisPublisher) Close() error { return p.client.Close() }
