package vending

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item is a product the machine offers. Stock is shown to customers but is
// never decremented by a sale.
type Item struct {
	Name  string `json:"name" yaml:"name" cbor:"name"`
	Price int    `json:"price" yaml:"price" cbor:"price"`
	Stock int    `json:"stock" yaml:"stock" cbor:"stock"`
}

// InStock reports whether the item can be sold.
func (i Item) InStock() bool {
	return i.Stock > 0
}

// Availability is the label a front end shows next to the item.
func (i Item) Availability() string {
	if i.InStock() {
		return "in stock"
	}

	return "sold out"
}

// Catalog is the fixed, ordered list of items a machine sells. The zero value
// is an empty catalog.
type Catalog struct {
	items []Item
}

// NewCatalog validates items and returns a catalog holding a copy of them.
func NewCatalog(items ...Item) (Catalog, error) {
	if len(items) == 0 {
		return Catalog{}, fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		switch {
		case name == "":
			return Catalog{}, fmt.Errorf("%w: item %d has no name", ErrInvalidCatalog, i)
		case item.Price < 0:
			return Catalog{}, fmt.Errorf("%w: %s has a negative price", ErrInvalidCatalog, name)
		case item.Stock < 0:
			return Catalog{}, fmt.Errorf("%w: %s has a negative stock", ErrInvalidCatalog, name)
		}

		key := strings.ToLower(name)
		if seen[key] {
			return Catalog{}, fmt.Errorf("%w: duplicate item %s", ErrInvalidCatalog, name)
		}
		seen[key] = true
	}

	dup := make([]Item, len(items))
	copy(dup, items)

	return Catalog{items: dup}, nil
}

// MustNewCatalog is NewCatalog that panics on invalid input.
func MustNewCatalog(items ...Item) Catalog {
	c, err := NewCatalog(items...)
	if err != nil {
		panic(err)
	}

	return c
}

// ReferenceCatalog returns the catalog machines start with when none is
// configured.
func ReferenceCatalog() Catalog {
	return MustNewCatalog(
		Item{Name: "Coke", Price: 20, Stock: 3},
		Item{Name: "Water", Price: 10, Stock: 2},
		Item{Name: "Snack", Price: 15, Stock: 0},
	)
}

// Items returns the items in catalog order.
func (c Catalog) Items() []Item {
	dup := make([]Item, len(c.items))
	copy(dup, c.items)

	return dup
}

// Len returns the number of items.
func (c Catalog) Len() int {
	return len(c.items)
}

// Lookup finds an item by name. An exact match wins; otherwise names are
// compared case-insensitively.
func (c Catalog) Lookup(name string) (Item, bool) {
	name = strings.TrimSpace(name)

	for _, item := range c.items {
		if item.Name == name {
			return item, true
		}
	}

	for _, item := range c.items {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}

	return Item{}, false
}

// MarshalJSON encodes the catalog as an array of items.
func (c Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Items())
}

type catalogFile struct {
	Items []Item `yaml:"items"`
}

// LoadCatalog reads a YAML catalog of the form
//
//	items:
//	  - name: Coke
//	    price: 20
//	    stock: 3
func LoadCatalog(r io.Reader) (Catalog, error) {
	var f catalogFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	return NewCatalog(f.Items...)
}

// LoadCatalogFile is LoadCatalog on a file path.
func LoadCatalogFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, err
	}
	defer f.Close()

	c, err := LoadCatalog(f)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}
