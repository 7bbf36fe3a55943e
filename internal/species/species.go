// Package species provides the read-only marine species catalog. The catalog
// is loaded once at startup and is immutable for the process lifetime.
package species

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/logging"
)

//go:embed data/catalog.json
var catalogFiles embed.FS

// UnknownID is the catalog id returned for unidentifiable images.
const UnknownID = "unknown"

// Region is a named location where a species is commonly found.
type Region struct {
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Population string  `json:"population"`
}

// Record describes a single species in the catalog.
type Record struct {
	ID                 string   `json:"id"`
	CommonName         string   `json:"common_name"`
	ScientificName     string   `json:"scientific_name"`
	ConservationStatus string   `json:"conservation_status"`
	Description        string   `json:"description"`
	FunFact            string   `json:"fun_fact"`
	Habitat            string   `json:"habitat"`
	Diet               string   `json:"diet"`
	Size               string   `json:"size"`
	Threats            string   `json:"threats"`
	PopulationTrend    string   `json:"population_trend"`
	Premium            bool     `json:"premium"`
	Regions            []Region `json:"regions"`
}

// Catalog is an immutable set of species records keyed by id.
type Catalog struct {
	records map[string]Record
	ordered []string // ids in load order, for stable listings
	logger  *slog.Logger
}

// New loads the catalog from the given JSON file path, or from the embedded
// default dataset when path is empty.
func New(path string) (*Catalog, error) {
	var data []byte
	var err error

	if path == "" {
		data, err = catalogFiles.ReadFile("data/catalog.json")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.New(err).
			Component("species-catalog").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.New(err).
			Component("species-catalog").
			Category(errors.CategoryCatalog).
			Context("operation", "parse-catalog").
			Build()
	}
	if len(records) == 0 {
		return nil, errors.Newf("species catalog is empty").
			Component("species-catalog").
			Category(errors.CategoryCatalog).
			Build()
	}

	c := &Catalog{
		records: make(map[string]Record, len(records)),
		logger:  logging.ForService("species-catalog"),
	}
	for _, r := range records {
		id := strings.ToLower(r.ID)
		if id == "" {
			return nil, errors.Newf("species record %q has empty id", r.CommonName).
				Component("species-catalog").
				Category(errors.CategoryCatalog).
				Build()
		}
		if _, exists := c.records[id]; exists {
			return nil, errors.Newf("duplicate species id %q in catalog", id).
				Component("species-catalog").
				Category(errors.CategoryCatalog).
				Build()
		}
		c.records[id] = r
		c.ordered = append(c.ordered, id)
	}

	c.logger.Info("species catalog loaded", "species", len(c.records))
	return c, nil
}

// Len returns the number of records in the catalog, premium included.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Get returns the record for the given id. Lookup is case-insensitive.
func (c *Catalog) Get(id string) (Record, bool) {
	r, ok := c.records[strings.ToLower(id)]
	return r, ok
}

// Unknown returns the placeholder record for unidentified species.
func (c *Catalog) Unknown() Record {
	if r, ok := c.records[UnknownID]; ok {
		return r
	}
	// Catalog files without an unknown entry still get a usable placeholder.
	return Record{
		ID:                 UnknownID,
		CommonName:         "Unknown",
		ScientificName:     "Unknown",
		ConservationStatus: "Unknown",
		Description:        "The species could not be identified.",
	}
}

// All returns every record in load order. Premium records are excluded
// unless includePremium is set.
func (c *Catalog) All(includePremium bool) []Record {
	out := make([]Record, 0, len(c.ordered))
	for _, id := range c.ordered {
		r := c.records[id]
		if r.Premium && !includePremium {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Search returns records whose id, common name or scientific name contains
// the filter, case-insensitively. An empty filter matches everything.
func (c *Catalog) Search(filter string, includePremium bool) []Record {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return c.All(includePremium)
	}

	var out []Record
	for _, id := range c.ordered {
		r := c.records[id]
		if r.Premium && !includePremium {
			continue
		}
		if strings.Contains(id, filter) ||
			strings.Contains(strings.ToLower(r.CommonName), filter) ||
			strings.Contains(strings.ToLower(r.ScientificName), filter) {
			out = append(out, r)
		}
	}
	return out
}

// Distribution returns the static distribution regions for a species id,
// sorted by region name for stable output.
func (c *Catalog) Distribution(id string) ([]Region, error) {
	r, ok := c.Get(id)
	if !ok {
		return nil, errors.Newf("species %q not found in catalog", id).
			Component("species-catalog").
			Category(errors.CategoryNotFound).
			Build()
	}
	regions := make([]Region, len(r.Regions))
	copy(regions, r.Regions)
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
	return regions, nil
}

// MatchLabel maps a free-form label (e.g. from the Vision API) onto a catalog
// id. Matching is case-insensitive and tolerant of singular/plural forms.
func (c *Catalog) MatchLabel(label string) (Record, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return Record{}, false
	}

	for _, id := range c.ordered {
		if id == UnknownID {
			continue
		}
		r := c.records[id]
		name := strings.ToLower(r.CommonName)
		if strings.Contains(label, name) || strings.Contains(name, label) {
			return r, true
		}
		// "sharks" should still find "blue-shark"
		if base := strings.TrimSuffix(label, "s"); base != "" && strings.Contains(id, strings.ReplaceAll(base, " ", "-")) {
			return r, true
		}
	}
	return Record{}, false
}

// String implements fmt.Stringer for catalog inspection output.
func (r Record) String() string {
	return fmt.Sprintf("%s (%s), %s", r.CommonName, r.ScientificName, r.ConservationStatus)
}
