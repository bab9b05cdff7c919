package forest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadUnknownObjectResolvesEmpty(t *testing.T) {
	p := NewPreloader(nil, map[string]map[string]string{})

	h := p.Preload(context.Background(), "Bush")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	set, err := h.Await(ctx)
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestPreloadSharesHandles(t *testing.T) {
	p := NewPreloader(nil, map[string]map[string]string{})

	a := p.Preload(context.Background(), "TreeNaked")
	b := p.Preload(context.Background(), "TreeNaked")
	assert.Same(t, a, b)

	h, ok := p.Handle("TreeNaked")
	require.True(t, ok)
	assert.Same(t, a, h)

	_, ok = p.Handle("TrunkLarge")
	assert.False(t, ok)
}

func TestAwaitHonorsContext(t *testing.T) {
	h := &PreloadHandle{objectID: "TreeNaked", done: make(chan struct{})}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Await(ctx)
	assert.Error(t, err)
}
