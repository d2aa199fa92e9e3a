package bandar

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"idxscreener/pkg/model"
)

//go:embed brokers.yaml
var defaultBrokersYAML []byte

// BrokerTable is a versioned broker code to category lookup
type BrokerTable struct {
	Version string                          `yaml:"version"`
	Brokers map[string]model.BrokerCategory `yaml:"brokers"`
}

// DefaultBrokerTable returns the built-in table
func DefaultBrokerTable() *BrokerTable {
	t, err := ParseBrokerTable(defaultBrokersYAML)
	if err != nil {
		// The embedded file is part of the build
		panic(fmt.Sprintf("bandar: embedded broker table: %v", err))
	}
	return t
}

// LoadBrokerTable reads a table from path, or returns the built-in one when path is empty
func LoadBrokerTable(path string) (*BrokerTable, error) {
	if path == "" {
		return DefaultBrokerTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading broker table: %w", err)
	}
	return ParseBrokerTable(data)
}

// ParseBrokerTable decodes a YAML broker table and validates its categories
func ParseBrokerTable(data []byte) (*BrokerTable, error) {
	var t BrokerTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing broker table: %w", err)
	}

	normalized := make(map[string]model.BrokerCategory, len(t.Brokers))
	for code, cat := range t.Brokers {
		if !validCategory(cat) {
			return nil, fmt.Errorf("broker %s: unknown category %q", code, cat)
		}
		normalized[strings.ToUpper(strings.TrimSpace(code))] = cat
	}
	t.Brokers = normalized
	return &t, nil
}

func validCategory(c model.BrokerCategory) bool {
	for _, known := range model.BrokerCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Category returns the category of a broker code, Unknown if not listed
func (t *BrokerTable) Category(code string) model.BrokerCategory {
	if t == nil {
		return model.CategoryUnknown
	}
	if cat, ok := t.Brokers[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return cat
	}
	return model.CategoryUnknown
}

// Annotate sets each entry's category from the table. Codes the table does not
// list keep a recognised provider category, anything else becomes Unknown.
// Tags outside the known set are cleared so they get derived.
func (t *BrokerTable) Annotate(flow *model.DailyBrokerFlow) {
	for i := range flow.TopBuyers {
		t.annotate(&flow.TopBuyers[i])
	}
	for i := range flow.TopSellers {
		t.annotate(&flow.TopSellers[i])
	}
	flow.AccDistTag = model.ParseAccDistTag(string(flow.AccDistTag))
}

func (t *BrokerTable) annotate(e *model.BrokerEntry) {
	if cat := t.Category(e.BrokerCode); cat != model.CategoryUnknown {
		e.Category = cat
		return
	}
	e.Category = model.ParseBrokerCategory(string(e.Category))
}
