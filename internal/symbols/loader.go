package symbols

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"idxscreener/pkg/model"
)

// Loader resolves ticker lists and sector assignments
type Loader struct {
	sectors map[string]string
}

// NewLoader creates a loader seeded with the built-in LQ45 sectors
func NewLoader() *Loader {
	sectors := make(map[string]string, len(lq45))
	for _, l := range lq45 {
		sectors[l.ticker] = l.sector
	}
	return &Loader{sectors: sectors}
}

// LoadSymbols normalizes a user-supplied ticker list, dropping invalid and duplicate entries
func (l *Loader) LoadSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		for _, part := range strings.Split(sym, ",") {
			t := NormalizeTicker(part)
			if !isValidSymbol(t) || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// LoadFile reads one ticker per line; blank lines and # comments are ignored
func (l *Loader) LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ticker file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ticker file: %w", err)
	}
	return l.LoadSymbols(lines), nil
}

// sectorFile is the YAML layout of a sector override file:
//
//	Financials: [BBCA, BBRI]
//	Energy: [ADRO]
type sectorFile map[string][]string

// LoadSectorFile merges sector assignments from a YAML file over the built-in ones
func (l *Loader) LoadSectorFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading sector file: %w", err)
	}
	var sf sectorFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parsing sector file: %w", err)
	}
	for sector, tickers := range sf {
		for _, t := range tickers {
			l.sectors[NormalizeTicker(t)] = sector
		}
	}
	return nil
}

// Sectors returns a copy of the ticker to sector map
func (l *Loader) Sectors() map[string]string {
	out := make(map[string]string, len(l.sectors))
	for k, v := range l.sectors {
		out[k] = v
	}
	return out
}

// Stocks describes tickers with name and sector where known
func (l *Loader) Stocks(tickers []string) []model.Stock {
	names := make(map[string]string, len(lq45))
	for _, ls := range lq45 {
		names[ls.ticker] = ls.name
	}

	stocks := make([]model.Stock, len(tickers))
	for i, t := range tickers {
		sector, ok := l.sectors[t]
		if !ok {
			sector = "Unknown"
		}
		name := names[t]
		if name == "" {
			name = t
		}
		stocks[i] = model.Stock{Symbol: t, Name: name, Sector: sector}
	}
	return stocks
}

// NormalizeTicker uppercases and strips a .JK suffix
func NormalizeTicker(s string) string {
	t := strings.ToUpper(strings.TrimSpace(s))
	return strings.TrimSuffix(t, ".JK")
}

// isValidSymbol checks for a 4-letter IDX code (some warrants and rights carry a 5th letter or digit)
func isValidSymbol(symbol string) bool {
	if len(symbol) < 4 || len(symbol) > 5 {
		return false
	}
	for _, c := range symbol {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
