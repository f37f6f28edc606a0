package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/congo-pay/walletcore/internal/config"
	"github.com/congo-pay/walletcore/internal/logging"
	"github.com/congo-pay/walletcore/internal/store/memory"
	"github.com/congo-pay/walletcore/internal/walletlock"
)

func TestOpenFallsBackToMemory(t *testing.T) {
	logger := logging.Discard()
	b, err := Open(context.Background(), config.Config{AppEnv: "development"}, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close(logger)

	if _, ok := b.Store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", b.Store)
	}
	if _, ok := b.Locker.(*walletlock.Local); !ok {
		t.Fatalf("expected local locker, got %T", b.Locker)
	}
}

func TestOpenUsesRedisLocker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	logger := logging.Discard()
	b, err := Open(context.Background(), config.Config{AppEnv: "development", RedisURL: "redis://" + mr.Addr()}, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close(logger)

	if _, ok := b.Locker.(*walletlock.Redis); !ok {
		t.Fatalf("expected redis locker, got %T", b.Locker)
	}
	release, err := b.Locker.Acquire(context.Background(), "w1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}
