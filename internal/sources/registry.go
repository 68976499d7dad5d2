package sources

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/dailymanna/manna/internal/logger"
)

// Options carries the shared dependencies a source factory may use.
// LessonCache is optional; sources fall back to live lookups when nil.
type Options struct {
	Logger      logger.Logger
	Client      *http.Client
	LessonCache LessonCache
}

// LessonCache caches per-volume lesson indexes so boundary validation does
// not refetch the volume page on every rollover check. Implementations must
// be best-effort: a cache error is never fatal.
type LessonCache interface {
	GetVolumeLessons(volume int) ([]int, bool)
	SetVolumeLessons(volume int, lessons []int)
}

// Factory builds a ContentSource from shared options.
type Factory func(opts Options) ContentSource

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a source factory under a name. Called from each source
// package's init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// New constructs the named source. The name is matched case-insensitively
// after trimming, mirroring how the CONTENT_SOURCE setting is handled.
func New(name string, opts Options) (ContentSource, error) {
	registryMu.RLock()
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown content source: %s (available: %s)",
			name, strings.Join(Available(), ", "))
	}
	return f(opts), nil
}

// Available lists registered source names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
