package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	c, err := Open(ctx, "redis://"+s.Addr()+"/2", zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 2, c.Options().DB)
	require.NoError(t, c.Set(ctx, "k", "v", 0).Err())

	s.Select(2)
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "://bad-url", zerolog.Nop())
	assert.ErrorContains(t, err, "parse redis url")
}

func TestOpenFailsWhenServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	url := "redis://" + s.Addr()
	s.Close()

	_, err := Open(context.Background(), url, zerolog.Nop())
	assert.ErrorContains(t, err, "ping redis")
}

func TestCheckTracksServerHealth(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	c, err := Open(ctx, "redis://"+s.Addr(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Check(ctx))

	s.SetError("LOADING")
	assert.Error(t, c.Check(ctx))

	s.SetError("")
	assert.NoError(t, c.Check(ctx))
}
