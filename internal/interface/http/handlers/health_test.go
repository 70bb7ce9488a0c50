package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.AddCheck("database", func(context.Context) error { return nil })
	c.AddDetail("sessions", func() any { return 3 })

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "OK", status.Checks["database"].Message)
	assert.Equal(t, 3, status.Details["sessions"])

	c.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "Some checks failed: redis", status.Message)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
}
