package dataset

import (
	"fmt"
	"io"
	"os"
)

// Loader parses the file at path. path is "" when the track has no file for
// the role, and the loader must then return the zero value and no error.
type Loader[T any] func(path string) (T, error)

// Property binds a role to the loader that parses it. Several properties may
// read the same role; each is cached under its Name, or under Role and the
// value type when Name is empty.
type Property[T any] struct {
	Name string
	Role string
	Load Loader[T]
}

func (p Property[T]) key() string {
	if p.Name != "" {
		return p.Name
	}
	var zero T
	return fmt.Sprintf("%s:%T", p.Role, &zero)
}

// Get returns the parsed value for t, running the loader on first access only.
// Errors are returned to the caller and not cached.
func (p Property[T]) Get(t *Track) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := p.key()
	if c, ok := t.cache[key]; ok {
		if v, ok := c.(T); ok || c == nil {
			return v, nil
		}
	}
	v, err := p.Load(t.Path(p.Role))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("track %s: loading %s: %w", t.ID, p.Role, err)
	}
	t.cache[key] = v
	return v, nil
}

// Open runs parse over the file at path and closes it on every exit path. An
// empty path yields the zero value.
func Open[T any](path string, parse func(r io.Reader) (T, error)) (T, error) {
	var zero T
	if path == "" {
		return zero, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}
