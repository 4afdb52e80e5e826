package engine

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mj1618/desktop-automation/internal/config"
	"github.com/mj1618/desktop-automation/internal/metrics"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// caches groups the engine's optional caches. None of them is consulted by
// the actionability gates, which always read fresh state.
type caches struct {
	props   *expirable.LRU[string, platform.Properties]
	native  *expirable.LRU[string, platform.Node]
	trees   *TreeCache
	metrics *metrics.Collector
}

func newCaches(cfg config.ResolverConfig, m *metrics.Collector) *caches {
	return &caches{
		props:   expirable.NewLRU[string, platform.Properties](cfg.PropertyCacheSize, nil, cfg.PropertyCacheTTL),
		native:  expirable.NewLRU[string, platform.Node](cfg.NativeIDCacheSize, nil, cfg.NativeIDCacheTTL),
		trees:   NewTreeCache(cfg.TreeCacheTTL),
		metrics: m,
	}
}

// properties returns the cached attributes of n. A hit on a node that no
// longer exists evicts the entry and reports the node as detached.
func (c *caches) properties(n platform.Node) (platform.Properties, bool, error) {
	key := n.Key()
	p, ok := c.props.Get(key)
	if !ok {
		c.metrics.RecordCacheMiss("properties")
		return platform.Properties{}, false, nil
	}
	if !n.Alive() {
		c.props.Remove(key)
		c.metrics.RecordCacheMiss("properties")
		return platform.Properties{}, false,
			platform.Errorf(platform.CodeElementDetached, "element %s no longer exists", key)
	}
	c.metrics.RecordCacheHit("properties")
	return p, true, nil
}

func (c *caches) storeProperties(key string, p platform.Properties) {
	c.props.Add(key, p)
}

// nativeNode returns the node last resolved for a native id under a scope.
func (c *caches) nativeNode(scope, id string) (platform.Node, bool) {
	n, ok := c.native.Get(scope + "\x00" + id)
	if ok && n.Alive() {
		c.metrics.RecordCacheHit("native_id")
		return n, true
	}
	if ok {
		c.native.Remove(scope + "\x00" + id)
	}
	c.metrics.RecordCacheMiss("native_id")
	return nil, false
}

func (c *caches) storeNative(scope, id string, n platform.Node) {
	c.native.Add(scope+"\x00"+id, n)
}

func (c *caches) purge() {
	c.props.Purge()
	c.trees.InvalidateAll()
}

// treeKey identifies one window-tree snapshot request.
type treeKey struct {
	PID      int
	Title    string
	Mode     PropertyMode
	MaxDepth int
}

type treeEntry struct {
	tree      *model.Node
	timestamp time.Time
}

// TreeCache is a TTL cache of window-tree snapshots.
type TreeCache struct {
	mu      sync.Mutex
	entries map[treeKey]treeEntry
	ttl     time.Duration
}

// NewTreeCache creates a cache. A ttl of 0 disables caching.
func NewTreeCache(ttl time.Duration) *TreeCache {
	return &TreeCache{
		entries: make(map[treeKey]treeEntry),
		ttl:     ttl,
	}
}

// Tree returns the cached snapshot for key if it is younger than the TTL,
// otherwise it builds and stores a fresh one. build runs without the cache
// lock held.
func (c *TreeCache) Tree(key treeKey, build func() (*model.Node, error)) (*model.Node, bool, error) {
	if c.ttl == 0 {
		t, err := build()
		return t, false, err
	}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && time.Since(entry.timestamp) < c.ttl {
		c.mu.Unlock()
		return entry.tree, true, nil
	}
	c.mu.Unlock()

	tree, err := build()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	c.entries[key] = treeEntry{tree: tree, timestamp: time.Now()}
	c.mu.Unlock()
	return tree, false, nil
}

// InvalidateAll clears the cache.
func (c *TreeCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[treeKey]treeEntry)
}
