package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResetContextOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.Equal(t, ctx, ResetContextOnError(ctx))

	cancel()
	reset := ResetContextOnError(ctx)
	assert.NoError(t, reset.Err())
}
