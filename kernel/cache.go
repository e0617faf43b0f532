package kernel

import "sync"

// Kind identifies the kernel family in a cache key.
type Kind uint8

const (
	KindGaussian Kind = iota + 1
	KindDiffusion
)

// Key is the full parameter set of a cached kernel.
type Key struct {
	Kind   Kind
	Width  int
	Spread float32
	Color  [3]float32
	Mode   Mode
}

// GaussianKey returns the cache key of Gaussian(width, sigma).
func GaussianKey(width int, sigma float32) Key {
	return Key{Kind: KindGaussian, Width: width, Spread: sigma}
}

// DiffusionKey returns the cache key of Diffusion(width, spread, color, mode).
func DiffusionKey(width int, spread float32, color [3]float32, mode Mode) Key {
	return Key{Kind: KindDiffusion, Width: width, Spread: spread, Color: color, Mode: mode}
}

type entry struct {
	weights []float32
	profile *Profile
}

// Cache memoizes kernels. It is safe for concurrent use.
// Returned slices and profiles are shared and must not be modified.
type Cache struct {
	mu     sync.RWMutex
	cache  map[Key]entry
	maxLen int
}

var defaultCache = NewCache(64)

// NewCache creates a cache holding at most maxLen kernels.
func NewCache(maxLen int) *Cache {
	if maxLen < 2 {
		maxLen = 2
	}
	return &Cache{
		cache:  make(map[Key]entry),
		maxLen: maxLen,
	}
}

// Len returns the number of cached kernels.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) lookup(k Key) (entry, bool) {
	c.mu.RLock()
	e, ok := c.cache[k]
	c.mu.RUnlock()
	return e, ok
}

func (c *Cache) store(k Key, e entry) {
	c.mu.Lock()
	if len(c.cache) >= c.maxLen {
		// Simple eviction: drop half the entries
		count := 0
		for old := range c.cache {
			delete(c.cache, old)
			count++
			if count >= c.maxLen/2 {
				break
			}
		}
	}
	c.cache[k] = e
	c.mu.Unlock()
}

// Gaussian returns a cached Gaussian(width, sigma).
func (c *Cache) Gaussian(width int, sigma float32) []float32 {
	k := GaussianKey(width, sigma)
	if e, ok := c.lookup(k); ok {
		return e.weights
	}
	w := Gaussian(width, sigma)
	c.store(k, entry{weights: w})
	return w
}

// Diffusion returns a cached Diffusion(width, spread, color, mode).
func (c *Cache) Diffusion(width int, spread float32, color [3]float32, mode Mode) *Profile {
	k := DiffusionKey(width, spread, color, mode)
	if e, ok := c.lookup(k); ok {
		return e.profile
	}
	p := Diffusion(width, spread, color, mode)
	c.store(k, entry{profile: p})
	return p
}

// CachedGaussian returns Gaussian(width, sigma) from the shared cache.
func CachedGaussian(width int, sigma float32) []float32 {
	return defaultCache.Gaussian(width, sigma)
}

// CachedDiffusion returns Diffusion(width, spread, color, mode) from the
// shared cache.
func CachedDiffusion(width int, spread float32, color [3]float32, mode Mode) *Profile {
	return defaultCache.Diffusion(width, spread, color, mode)
}
