// Package datasets lists the dataset loaders shipped with mirdata.
package datasets

import (
	"errors"
	"fmt"
	"sort"

	"mirdata/core/dataset"
	"mirdata/datasets/beatles"
	"mirdata/datasets/ikala"
)

// ErrUnknownDataset is returned for names missing from the registry.
var ErrUnknownDataset = errors.New("datasets: unknown dataset")

var registry = map[string]func() dataset.Config{
	"beatles": beatles.Config,
	"ikala":   ikala.Config,
}

// Names returns the registered dataset names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the definition of the named dataset.
func Config(name string) (dataset.Config, error) {
	cfg, ok := registry[name]
	if !ok {
		return dataset.Config{}, fmt.Errorf("%w: %q, choose from %v", ErrUnknownDataset, name, Names())
	}
	return cfg(), nil
}

// Load creates the named dataset.
func Load(name string, opts ...dataset.Option) (*dataset.Dataset, error) {
	cfg, err := Config(name)
	if err != nil {
		return nil, err
	}
	return dataset.New(cfg, opts...), nil
}
