package rendezvous

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_Shape(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), code)
}

func TestRegistry_RegisterLookupRemove(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(ctx)
	defer r.Stop()

	e, err := r.Register(ctx, "10.0.0.5:7070")
	require.NoError(t, err)
	assert.Len(t, e.ID, 6)

	got, err := r.Lookup(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	require.NoError(t, r.Remove(ctx, e.ID))
	_, err = r.Lookup(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Remove(ctx, e.ID), ErrNotFound)
}

func TestRegistry_RetriesOnCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	gen := func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	ctx := context.Background()
	r := newRegistry(ctx, gen)
	defer r.Stop()

	first, err := r.Register(ctx, "a:1")
	require.NoError(t, err)
	second, err := r.Register(ctx, "b:2")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.ID)
	assert.Equal(t, "BBBBBB", second.ID)
}

func TestRegistry_GeneratorFailure(t *testing.T) {
	boom := errors.New("no entropy")
	ctx := context.Background()
	r := newRegistry(ctx, func() (string, error) { return "", boom })
	defer r.Stop()

	_, err := r.Register(ctx, "a:1")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_StoppedRejects(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(ctx)
	r.Stop()

	_, err := r.Lookup(ctx, "AAAAAA")
	assert.ErrorIs(t, err, ErrStopped)
}
