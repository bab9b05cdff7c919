package assets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFirstWriteWins(t *testing.T) {
	s := NewItemStore()
	s.Set(Item{Name: "tree", Type: TypeGLTFModel, Payload: "first"})
	s.Set(Item{Name: "tree", Type: TypeGLTFModel, Payload: "second"})

	item, ok := s.Get("tree")
	require.True(t, ok)
	assert.Equal(t, "first", item.Payload)
	assert.Equal(t, 1, s.Len())
}

func TestStoreNamesOfType(t *testing.T) {
	s := NewItemStore()
	s.Set(Item{Name: "a", Type: TypeTexture})
	s.Set(Item{Name: "b", Type: TypeGLTFModel})
	s.Set(Item{Name: "c", Type: TypeTexture})

	assert.Equal(t, []string{"a", "c"}, s.NamesOfType(TypeTexture))
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
}

func TestStoreFirstOfType(t *testing.T) {
	s := NewItemStore()
	s.Set(Item{Name: "late", Type: TypeTexture, Payload: 1})

	_, ok := s.FirstOfType(TypeGLTFModel)
	assert.False(t, ok)

	s.Set(Item{Name: "model", Type: TypeGLTFModel, Payload: 2})
	item, ok := s.FirstOfType(TypeGLTFModel)
	require.True(t, ok)
	assert.Equal(t, "model", item.Name)
}

func TestWaitForAlreadyPresent(t *testing.T) {
	s := NewItemStore()
	s.Set(Item{Name: "tree", Type: TypeGLTFModel})

	item, err := s.WaitFor(context.Background(), "tree")
	require.NoError(t, err)
	assert.Equal(t, "tree", item.Name)
}

func TestWaitForReleasedBySet(t *testing.T) {
	s := NewItemStore()

	done := make(chan Item, 1)
	go func() {
		item, err := s.WaitFor(context.Background(), "tree")
		if err == nil {
			done <- item
		}
	}()

	// Give the waiter time to register before the write lands.
	time.Sleep(10 * time.Millisecond)
	s.Set(Item{Name: "tree", Type: TypeGLTFModel})

	select {
	case item := <-done:
		assert.Equal(t, "tree", item.Name)
	case <-time.After(time.Second):
		t.Fatal("waiter never released")
	}
}

func TestWaitForTimesOut(t *testing.T) {
	s := NewItemStore()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.WaitFor(ctx, "never")
	assert.Error(t, err)
}

func TestCacheResetAndReuse(t *testing.T) {
	c := NewCache()
	c.Put(Item{Name: "tree", Payload: "first"})
	c.Put(Item{Name: "tree", Payload: "second"})

	item, ok := c.Get("tree")
	require.True(t, ok)
	assert.Equal(t, "first", item.Payload)

	c.Reset()
	_, ok = c.Get("tree")
	assert.False(t, ok)
}

func TestReplaceOverwritesInPlace(t *testing.T) {
	s := NewItemStore()
	s.Set(Item{Name: "a", Type: TypeTexture, Payload: 1})
	s.Set(Item{Name: "b", Type: TypeTexture, Payload: 1})

	s.Replace(Item{Name: "a", Type: TypeTexture, Payload: 2})

	item, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, item.Payload)
	assert.Equal(t, []string{"a", "b"}, s.Names())

	// An unknown name behaves like a regular Set.
	s.Replace(Item{Name: "c", Type: TypeTexture, Payload: 3})
	assert.Equal(t, 3, s.Len())
}
