// Package registry holds the fixed catalog of companies the dashboard can
// analyze.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// AllSectors selects every company in ListBySector.
const AllSectors = "All"

// ErrNotFound is returned by Lookup for tickers outside the catalog.
var ErrNotFound = errors.New("no such company")

//go:embed companies.yaml
var catalogYAML []byte

type catalog struct {
	Companies []models.Company `yaml:"companies"`
}

// Registry is an immutable, ticker-indexed set of companies that keeps
// the order they were given in.
type Registry struct {
	byTicker map[string]models.Company
	ordered  []models.Company
	sectors  []string
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the registry built from the embedded catalog.
// It panics if the embedded catalog is malformed, which is a build defect.
func Default() *Registry {
	defaultOnce.Do(func() {
		var c catalog
		if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
			defaultErr = fmt.Errorf("decode embedded catalog: %w", err)
			return
		}
		defaultReg, defaultErr = New(c.Companies)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultReg
}

// New builds a registry from an explicit company list.
func New(companies []models.Company) (*Registry, error) {
	r := &Registry{byTicker: make(map[string]models.Company, len(companies))}
	seenSector := make(map[string]bool)

	for _, c := range companies {
		c.Ticker = utils.NormalizeTicker(c.Ticker)
		c.Name = strings.TrimSpace(c.Name)
		if c.Ticker == "" || c.Name == "" {
			return nil, fmt.Errorf("company %+v: ticker and name are required", c)
		}
		if _, dup := r.byTicker[c.Ticker]; dup {
			return nil, fmt.Errorf("duplicate ticker %q", c.Ticker)
		}
		r.byTicker[c.Ticker] = c
		r.ordered = append(r.ordered, c)
		if c.Sector != "" && !seenSector[c.Sector] {
			seenSector[c.Sector] = true
			r.sectors = append(r.sectors, c.Sector)
		}
	}

	sort.Strings(r.sectors)
	return r, nil
}

// Lookup returns the company for ticker.
func (r *Registry) Lookup(ticker string) (models.Company, error) {
	key := utils.NormalizeTicker(ticker)
	c, ok := r.byTicker[key]
	if !ok {
		return models.Company{}, fmt.Errorf("%w: %q", ErrNotFound, strings.TrimSpace(ticker))
	}
	return c, nil
}

// ListBySector returns the companies in sector in catalog order.
// An empty sector or AllSectors returns the full catalog.
func (r *Registry) ListBySector(sector string) []models.Company {
	sector = strings.TrimSpace(sector)
	all := sector == "" || strings.EqualFold(sector, AllSectors)

	out := make([]models.Company, 0, len(r.ordered))
	for _, c := range r.ordered {
		if all || strings.EqualFold(c.Sector, sector) {
			out = append(out, c)
		}
	}
	return out
}

// Sectors returns the distinct sectors, sorted.
func (r *Registry) Sectors() []string {
	out := make([]string, len(r.sectors))
	copy(out, r.sectors)
	return out
}

// Len returns the number of companies.
func (r *Registry) Len() int { return len(r.ordered) }
