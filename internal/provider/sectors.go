package provider

import "strings"

// UnknownSector is reported for tickers without an assignment
const UnknownSector = "Unknown"

// StaticSectors is a fixed ticker to sector map
type StaticSectors struct {
	sectors map[string]string
}

// NewStaticSectors copies m, uppercasing tickers
func NewStaticSectors(m map[string]string) *StaticSectors {
	sectors := make(map[string]string, len(m))
	for t, s := range m {
		sectors[strings.ToUpper(t)] = s
	}
	return &StaticSectors{sectors: sectors}
}

// GetSector returns the ticker's sector or UnknownSector
func (s *StaticSectors) GetSector(ticker string) string {
	if sector, ok := s.sectors[strings.ToUpper(ticker)]; ok && sector != "" {
		return sector
	}
	return UnknownSector
}
