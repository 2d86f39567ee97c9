// Package preset provides the canned video clips that can stand in for a
// generated performance, and the overlay that shows them.
package preset

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Compile-time interface check.
var _ domain.PresetCatalog = (*MemoryCatalog)(nil)

// DefaultClipDir is where the built-in clips live.
const DefaultClipDir = "presets"

// MemoryCatalog holds presets in memory. Safe for concurrent reads.
type MemoryCatalog struct {
	mu      sync.RWMutex
	presets map[string]*domain.Preset
	clipDir string
	log     *logger.Logger
}

// NewMemoryCatalog creates a catalog preloaded with the built-in clips,
// resolved under clipDir.
func NewMemoryCatalog(clipDir string, log *logger.Logger) *MemoryCatalog {
	if clipDir == "" {
		clipDir = DefaultClipDir
	}
	c := &MemoryCatalog{
		presets: make(map[string]*domain.Preset),
		clipDir: strings.TrimRight(clipDir, "/"),
		log:     log,
	}
	c.seed()
	return c
}

// List returns every preset sorted by title.
func (c *MemoryCatalog) List(ctx context.Context) ([]domain.Preset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Preset, 0, len(c.presets))
	for _, p := range c.presets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Get returns a preset by ID.
func (c *MemoryCatalog) Get(ctx context.Context, id string) (*domain.Preset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.presets[id]
	if !ok {
		c.log.Debug("preset not found: %s", id)
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Add registers or replaces a preset.
func (c *MemoryCatalog) Add(p domain.Preset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presets[p.ID] = &p
}

// Match returns the preset whose keywords best cover the question. Each
// keyword must appear as whole words; the preset with the most matching
// keywords wins, ties broken by ID.
func (c *MemoryCatalog) Match(ctx context.Context, question string) (*domain.Preset, error) {
	text := " " + normalize(question) + " "
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrNotFound
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *domain.Preset
	bestScore := 0
	for _, p := range c.presets {
		score := 0
		for _, kw := range p.Keywords {
			if strings.Contains(text, " "+normalize(kw)+" ") {
				score++
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && p.ID < best.ID) {
			best, bestScore = p, score
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	c.log.Debug("preset %s matched %q (%d keywords)", best.ID, question, bestScore)
	cp := *best
	return &cp, nil
}

// normalize lower-cases text and turns punctuation into single spaces.
func normalize(s string) string {
	f := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
	})
	return strings.Join(f, " ")
}

// seed populates the catalog with built-in clips.
func (c *MemoryCatalog) seed() {
	presets := []domain.Preset{
		{ID: "solar-system", Title: "The Solar System", Duration: 94,
			Keywords: []string{"solar system", "planets", "planet", "sun", "orbit"}},
		{ID: "volcano", Title: "How Volcanoes Erupt", Duration: 71,
			Keywords: []string{"volcano", "volcanoes", "lava", "magma", "erupt"}},
		{ID: "water-cycle", Title: "The Water Cycle", Duration: 82,
			Keywords: []string{"water cycle", "rain", "clouds", "evaporation"}},
		{ID: "photosynthesis", Title: "How Plants Make Food", Duration: 66,
			Keywords: []string{"photosynthesis", "plants", "leaves", "chlorophyll"}},
		{ID: "dinosaurs", Title: "Dinosaurs", Duration: 88,
			Keywords: []string{"dinosaur", "dinosaurs", "fossil", "fossils", "t rex"}},
	}
	for i := range presets {
		presets[i].Clip = c.clipDir + "/" + presets[i].ID + ".mp4"
		c.presets[presets[i].ID] = &presets[i]
	}
	c.log.Debug("seeded %d presets", len(presets))
}
