package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/board-hub/community-board/internal/infrastructure/websession"
	"github.com/board-hub/community-board/pkg/circuitbreaker"
)

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())

	cfg.Host, cfg.Port = "cache", 6380
	assert.Equal(t, "cache:6380", cfg.Addr())
}

func TestSessionStore_Key(t *testing.T) {
	s := NewSessionStore(&Client{})
	assert.Equal(t, "board:session:abc", s.key("abc"))
}

func TestWindowKey(t *testing.T) {
	assert.Equal(t, "board:ratelimit:10.0.0.1:1700000000", windowKey("10.0.0.1", 1700000000))
}

func TestSessionStore_OpenBreakerFailsFast(t *testing.T) {
	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(1))
	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("down") })
	require.True(t, cb.IsOpen())

	// The zero Client would panic if the breaker let the call through.
	s := NewSessionStore(&Client{}, WithBreaker(cb))

	err := s.Save(context.Background(), websession.Record{ID: "abc"}, time.Minute)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)

	_, err = s.Load(context.Background(), "abc")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)

	assert.ErrorIs(t, s.Delete(context.Background(), "abc"), circuitbreaker.ErrCircuitOpen)
}

func TestSessionStore_RejectsEmptyID(t *testing.T) {
	s := NewSessionStore(&Client{})
	assert.Error(t, s.Save(context.Background(), websession.Record{}, time.Minute))

	rec, err := s.Load(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}
