package anchors

import (
	"sync"

	"github.com/nvr-ai/go-retinaface/images"
	"github.com/pkg/errors"
)

// ErrUnknownStride is returned when a grid is requested for a stride with no canonical anchors.
var ErrUnknownStride = errors.New("unknown stride")

// Key identifies a cached anchor grid.
type Key struct {
	Stride      int
	InputWidth  int
	InputHeight int
}

// Cache memoizes anchor grids per (stride, network input size).
//
// Grids depend only on static network geometry, so every frame of the same
// model configuration reuses them. A miss is computed outside the lock; two
// racing misses both compute and the last store wins, which is harmless because
// the grids are value-identical. Returned grids are shared and must not be modified.
type Cache struct {
	fpn FPN

	mu    sync.Mutex
	grids map[Key]*Grid
}

// NewCache creates an empty cache over the given canonical anchors.
func NewCache(fpn FPN) *Cache {
	return &Cache{
		fpn:   fpn,
		grids: make(map[Key]*Grid),
	}
}

// Grid returns the anchor grid for key, expanding it over height x width on a miss.
//
// Arguments:
//   - key: The stride and network input size.
//   - height, width: The spatial size used to expand the grid on a miss.
//
// Returns:
//   - *Grid: The cached or new grid. On a hit its size is the one it was first
//     expanded with; callers compare it against their tensors.
//   - bool: Whether the grid came from the cache.
//   - error: ErrUnknownStride when key.Stride has no canonical anchors.
func (c *Cache) Grid(key Key, height, width int) (*Grid, bool, error) {
	c.mu.Lock()
	g, ok := c.grids[key]
	c.mu.Unlock()
	if ok {
		return g, true, nil
	}

	canonical, ok := c.fpn[key.Stride]
	if !ok {
		return nil, false, errors.Wrapf(ErrUnknownStride, "stride %d", key.Stride)
	}
	g = Expand(canonical, key.Stride, height, width)

	c.mu.Lock()
	c.grids[key] = g
	c.mu.Unlock()
	return g, false, nil
}

// Len returns the number of cached grids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.grids)
}

// Canonical returns the canonical anchors of a stride.
func (c *Cache) Canonical(stride int) ([]images.Box, bool) {
	a, ok := c.fpn[stride]
	return a, ok
}
