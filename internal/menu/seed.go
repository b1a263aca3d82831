package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

// Seeder writes catalog entries, replacing existing ones with the same id.
type Seeder interface {
	Upsert(ctx context.Context, items []domain.MenuItem) error
}

type seedFile struct {
	Items []domain.MenuItem `yaml:"items"`
}

// LoadSeed parses a YAML catalog of the form
//
//	items:
//	  - id: pasta-1
//	    name: Creamy Alfredo Pasta
//	    price: 11.99
func LoadSeed(r io.Reader) ([]domain.MenuItem, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.MenuItem{}, nil
		}
		return nil, fmt.Errorf("decode menu seed: %w", err)
	}

	seen := make(map[string]bool, len(f.Items))
	for i, item := range f.Items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("menu item %d: id is required", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("menu item %d: duplicate id %q", i, id)
		}
		seen[id] = true

		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("menu item %q: name is required", id)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("menu item %q: price must not be negative", id)
		}
		if !item.Price.Equal(item.Price.Truncate(2)) {
			return nil, fmt.Errorf("menu item %q: price must have at most 2 decimal places", id)
		}
		f.Items[i].ID = id
	}

	if f.Items == nil {
		f.Items = []domain.MenuItem{}
	}
	return f.Items, nil
}

func LoadSeedFile(path string) ([]domain.MenuItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open menu seed: %w", err)
	}
	defer func() { _ = file.Close() }()

	return LoadSeed(file)
}

// Seed loads path and writes its items through s. It returns the number of
// items written.
func Seed(ctx context.Context, s Seeder, path string) (int, error) {
	items, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := s.Upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("write menu seed: %w", err)
	}
	return len(items), nil
}
