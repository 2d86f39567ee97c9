package speech

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// CacheKey identifies one synthesized clip. Any change of voice or
// prosody is a different clip.
type CacheKey struct {
	VoiceID string
	Prosody Prosody
	Text    string
}

func (k CacheKey) hash() string {
	raw := fmt.Sprintf("%s|%.2f|%.2f|%.2f|%s", k.VoiceID, k.Prosody.Rate, k.Prosody.Pitch, k.Prosody.Volume, k.Text)
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// AudioCache is a two-tier cache (bounded memory + optional disk) for
// synthesized audio. Replays of the same answer hit the memory tier; the
// disk tier gives a warm start across runs.
//
//	diskWrite=true  -> reads from mem, then disk; writes to both.
//	diskWrite=false -> reads from mem, then disk; writes to mem only.
type AudioCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	log        *logger.Logger
	cacheDir   string
	diskWrite  bool
	hits       int64
	misses     int64
}

type cacheEntry struct {
	key  string
	data []byte
}

// NewAudioCache creates an audio cache. An empty cacheDir disables the
// disk tier. maxEntries <= 0 means unbounded.
func NewAudioCache(cacheDir string, diskWrite bool, maxEntries int, log *logger.Logger) *AudioCache {
	c := &AudioCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		log:        log,
		cacheDir:   cacheDir,
		diskWrite:  diskWrite,
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}
	return c
}

// Get returns cached audio and true, or nil and false.
func (c *AudioCache) Get(k CacheKey) ([]byte, bool) {
	key := k.hash()

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		data := el.Value.(*cacheEntry).data
		c.mu.Unlock()
		c.log.Debug("cache hit (mem): %s", truncate(k.Text, 40))
		return data, true
	}
	c.mu.Unlock()

	if c.cacheDir != "" {
		if data, err := os.ReadFile(c.diskPath(key)); err == nil {
			c.mu.Lock()
			c.insertLocked(key, data)
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache hit (disk): %s", truncate(k.Text, 40))
			return data, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio. Always writes to memory; writes to disk only when
// diskWrite is enabled.
func (c *AudioCache) Put(k CacheKey, audio []byte) {
	key := k.hash()

	c.mu.Lock()
	c.insertLocked(key, audio)
	c.mu.Unlock()

	if c.cacheDir != "" && c.diskWrite {
		path := c.diskPath(key)
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			c.log.Error("cache: disk write failed for %s: %v", path, err)
		}
	}
}

// Has reports whether the clip is cached in either tier.
func (c *AudioCache) Has(k CacheKey) bool {
	key := k.hash()

	c.mu.Lock()
	_, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return true
	}
	if c.cacheDir != "" {
		_, err := os.Stat(c.diskPath(key))
		return err == nil
	}
	return false
}

// Len returns the number of in-memory entries.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *AudioCache) insertLocked(key string, data []byte) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).data = data
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, data: data})
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}
