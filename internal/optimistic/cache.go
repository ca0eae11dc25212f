package optimistic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Cache is the durable fallback replica, a JSON array on disk. It is
// written after successful store writes and read only when hydration
// cannot reach the store.
type Cache[T any] struct {
	Path string
}

func (c *Cache[T]) Load() ([]T, error) {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode fallback cache: %w", err)
	}
	return items, nil
}

func (c *Cache[T]) Store(items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return atomic.WriteFile(c.Path, bytes.NewReader(raw))
}
