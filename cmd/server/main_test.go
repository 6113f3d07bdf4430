package main

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/adapter/notifier"
	"github.com/iho/rewardledger/internal/infrastructure/config"
	"github.com/iho/rewardledger/internal/infrastructure/eventpublisher"
)

func TestNewNotifierFollowsConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	if _, ok := newNotifier(&config.Config{Notifier: config.NotifierLog}, client, zerolog.Nop()).(*notifier.LogNotifier); !ok {
		t.Fatalf("expected a log notifier by default")
	}

	if _, ok := newNotifier(&config.Config{Notifier: config.NotifierRedis}, client, zerolog.Nop()).(*notifier.RedisNotifier); !ok {
		t.Fatalf("expected a redis notifier when configured")
	}
}

func TestNewOutboxPublisherFollowsConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	if _, ok := newOutboxPublisher(&config.Config{OutboxPublisher: config.NotifierLog}, client, zerolog.Nop()).(*eventpublisher.LogPublisher); !ok {
		t.Fatalf("expected a log publisher by default")
	}

	if _, ok := newOutboxPublisher(&config.Config{OutboxPublisher: config.NotifierRedis}, client, zerolog.Nop()).(*eventpublisher.RedisPublisher); !ok {
		t.Fatalf("expected a redis publisher when configured")
	}
}
