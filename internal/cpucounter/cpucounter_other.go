//go:build !linux

package cpucounter

import (
	"fmt"

	"github.com/23skdu/longbow-bench/internal/result"
)

// Counter is unavailable on this platform.
type Counter struct{}

func Open() (*Counter, error) {
	return nil, fmt.Errorf("instruction counter: %w", result.ErrApiNotCapable)
}

func (c *Counter) Start() error { return result.ErrApiNotCapable }

func (c *Counter) Stop() (uint64, error) { return 0, result.ErrApiNotCapable }

func (c *Counter) Close() error { return nil }
