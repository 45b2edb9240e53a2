// Package formats picks a format reader for each file and presents it to the
// importer as a single Reader.
package formats

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/vmunix/pixport/internal/formats/pixraw"
	"github.com/vmunix/pixport/internal/importer"
)

// FormatReader is a Reader for one concrete format.
type FormatReader interface {
	importer.Reader
	FormatName() string
	Accepts(path string) bool
}

// Factory creates a fresh reader for one format.
type Factory func(log *slog.Logger) FormatReader

// suggestThreshold is the minimum Jaro-Winkler similarity for a "did you mean" hint.
const suggestThreshold = 0.7

// Registry maps format names to reader factories. Detection tries formats in
// registration order.
type Registry struct {
	names     []string
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a format. Registering a name twice replaces the factory.
func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(name)
	if _, ok := r.factories[name]; !ok {
		r.names = append(r.names, name)
	}
	r.factories[name] = f
}

// Names returns the registered format names in registration order.
func (r *Registry) Names() []string { return slices.Clone(r.names) }

// Lookup returns the factory for name. Unknown names fail with
// importer.ErrUnknownFormat and, when one is close enough, a suggestion.
func (r *Registry) Lookup(name string) (Factory, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := r.factories[key]; ok {
		return f, nil
	}
	if s := r.suggest(key); s != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", importer.ErrUnknownFormat, name, s)
	}
	return nil, fmt.Errorf("%w: %q", importer.ErrUnknownFormat, name)
}

func (r *Registry) suggest(name string) string {
	best, bestScore := "", float32(0)
	for _, n := range r.names {
		if score := edlib.JaroWinklerSimilarity(name, n); score > bestScore {
			best, bestScore = n, score
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return best
}

// Detect returns a new reader for the first format accepting path.
func (r *Registry) Detect(path string, log *slog.Logger) (FormatReader, error) {
	for _, n := range r.names {
		fr := r.factories[n](log)
		if fr.Accepts(path) {
			return fr, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", importer.ErrUnknownFormat, path)
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pixraw.Name, func(log *slog.Logger) FormatReader { return pixraw.New(log) })
	return r
}
