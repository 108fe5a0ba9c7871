// Package feed parses supplier catalog feeds: a YAML document carrying
// shop metadata, categories and goods for a full catalog import.
package feed

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformed reports a feed that does not match the expected shape.
var ErrMalformed = errors.New("malformed feed")

// Document is the root of a supplier feed
type Document struct {
	Shop       ShopMeta   `yaml:"shop"`
	Categories []Category `yaml:"categories"`
	Goods      []Item     `yaml:"goods"`
}

// ShopMeta identifies the shop the feed belongs to
type ShopMeta struct {
	Name string `yaml:"name"`
	Site string `yaml:"site"`
}

// Category is a feed category entry; the id is supplier-assigned and
// referenced by items
type Category struct {
	ID   uint   `yaml:"id"`
	Name string `yaml:"name"`
}

// Item is a single goods entry
type Item struct {
	Article    uint              `yaml:"id"`
	Category   uint              `yaml:"category"`
	Name       string            `yaml:"name"`
	Model      string            `yaml:"model"`
	Price      float64           `yaml:"price"`
	PriceRRC   uint              `yaml:"price_rrc"`
	Quantity   uint              `yaml:"quantity"`
	Parameters map[string]string `yaml:"parameters"`
}

// Parse decodes and validates a feed document. Any shape violation is
// reported as ErrMalformed so callers can translate it to a single
// validation failure before touching the database.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	if d.Shop.Name == "" {
		return fmt.Errorf("%w: missing shop name", ErrMalformed)
	}
	if len(d.Goods) == 0 {
		return fmt.Errorf("%w: missing goods", ErrMalformed)
	}
	categories := make(map[uint]bool, len(d.Categories))
	for i, category := range d.Categories {
		if category.ID == 0 || category.Name == "" {
			return fmt.Errorf("%w: category %d missing id or name", ErrMalformed, i)
		}
		categories[category.ID] = true
	}
	for i, item := range d.Goods {
		switch {
		case item.Article == 0:
			return fmt.Errorf("%w: item %d missing id", ErrMalformed, i)
		case item.Name == "":
			return fmt.Errorf("%w: item %d missing name", ErrMalformed, i)
		case item.Category == 0:
			return fmt.Errorf("%w: item %d missing category", ErrMalformed, i)
		case !categories[item.Category]:
			return fmt.Errorf("%w: item %d references unknown category %d", ErrMalformed, i, item.Category)
		case item.Price <= 0:
			return fmt.Errorf("%w: item %d missing price", ErrMalformed, i)
		case item.Parameters == nil:
			return fmt.Errorf("%w: item %d missing parameters", ErrMalformed, i)
		}
	}
	return nil
}
