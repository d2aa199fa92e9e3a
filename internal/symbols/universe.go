package symbols

import "strings"

// Universe represents a predefined stock universe
type Universe string

const (
	UniverseLQ45  Universe = "lq45"
	UniverseIDX30 Universe = "idx30"
	UniverseBanks Universe = "banks"
	UniverseTest  Universe = "test" // Small set for testing
)

// Universes lists the predefined universes
var Universes = []Universe{UniverseLQ45, UniverseIDX30, UniverseBanks, UniverseTest}

// GetUniverse returns the list of tickers for a given universe
func GetUniverse(u Universe) []string {
	switch Universe(strings.ToLower(string(u))) {
	case UniverseLQ45:
		return tickersOf(lq45)
	case UniverseIDX30:
		return IDX30Symbols
	case UniverseBanks:
		return tickersInSector("Financials")
	case UniverseTest:
		return TestSymbols
	default:
		return nil
	}
}

// TestSymbols is a small set for quick testing
var TestSymbols = []string{
	"BBCA", "BBRI", "BMRI", "TLKM", "ASII",
}

// IDX30Symbols is the IDX30 basket
var IDX30Symbols = []string{
	"ACES", "ADRO", "AMRT", "ANTM", "ASII", "BBCA", "BBNI", "BBRI", "BMRI", "BRPT",
	"CPIN", "GOTO", "ICBP", "INCO", "INDF", "INKP", "ISAT", "ITMG", "KLBF", "MDKA",
	"MEDC", "PGAS", "PTBA", "SMGR", "TLKM", "TOWR", "UNTR", "UNVR", "AKRA", "MBMA",
}

type listing struct {
	ticker string
	name   string
	sector string
}

// lq45 is the LQ45 basket with IDX-IC sectors
var lq45 = []listing{
	// Financials
	{"BBCA", "Bank Central Asia", "Financials"},
	{"BBRI", "Bank Rakyat Indonesia", "Financials"},
	{"BMRI", "Bank Mandiri", "Financials"},
	{"BBNI", "Bank Negara Indonesia", "Financials"},
	{"BRIS", "Bank Syariah Indonesia", "Financials"},
	{"ARTO", "Bank Jago", "Financials"},
	{"BBTN", "Bank Tabungan Negara", "Financials"},

	// Infrastructure
	{"TLKM", "Telkom Indonesia", "Infrastructures"},
	{"ISAT", "Indosat Ooredoo Hutchison", "Infrastructures"},
	{"EXCL", "XL Axiata", "Infrastructures"},
	{"TOWR", "Sarana Menara Nusantara", "Infrastructures"},
	{"JSMR", "Jasa Marga", "Infrastructures"},

	// Energy
	{"ADRO", "Alamtri Resources Indonesia", "Energy"},
	{"PTBA", "Bukit Asam", "Energy"},
	{"ITMG", "Indo Tambangraya Megah", "Energy"},
	{"MEDC", "Medco Energi Internasional", "Energy"},
	{"PGAS", "Perusahaan Gas Negara", "Energy"},
	{"AKRA", "AKR Corporindo", "Energy"},
	{"HRUM", "Harum Energy", "Energy"},

	// Basic materials
	{"ANTM", "Aneka Tambang", "Basic Materials"},
	{"INCO", "Vale Indonesia", "Basic Materials"},
	{"MDKA", "Merdeka Copper Gold", "Basic Materials"},
	{"MBMA", "Merdeka Battery Materials", "Basic Materials"},
	{"INKP", "Indah Kiat Pulp & Paper", "Basic Materials"},
	{"BRPT", "Barito Pacific", "Basic Materials"},
	{"SMGR", "Semen Indonesia", "Basic Materials"},
	{"INTP", "Indocement Tunggal Prakarsa", "Basic Materials"},
	{"TPIA", "Chandra Asri Pacific", "Basic Materials"},

	// Consumer non-cyclicals
	{"ICBP", "Indofood CBP Sukses Makmur", "Consumer Non-Cyclicals"},
	{"INDF", "Indofood Sukses Makmur", "Consumer Non-Cyclicals"},
	{"UNVR", "Unilever Indonesia", "Consumer Non-Cyclicals"},
	{"CPIN", "Charoen Pokphand Indonesia", "Consumer Non-Cyclicals"},
	{"AMRT", "Sumber Alfaria Trijaya", "Consumer Non-Cyclicals"},
	{"MYOR", "Mayora Indah", "Consumer Non-Cyclicals"},

	// Consumer cyclicals
	{"ACES", "Aspirasi Hidup Indonesia", "Consumer Cyclicals"},
	{"MAPI", "Mitra Adiperkasa", "Consumer Cyclicals"},

	// Industrials
	{"ASII", "Astra International", "Industrials"},
	{"UNTR", "United Tractors", "Industrials"},

	// Healthcare
	{"KLBF", "Kalbe Farma", "Healthcare"},
	{"MIKA", "Mitra Keluarga Karyasehat", "Healthcare"},

	// Technology
	{"GOTO", "GoTo Gojek Tokopedia", "Technology"},
	{"BUKA", "Bukalapak.com", "Technology"},
	{"EMTK", "Elang Mahkota Teknologi", "Technology"},

	// Property
	{"CTRA", "Ciputra Development", "Properties & Real Estate"},
	{"BSDE", "Bumi Serpong Damai", "Properties & Real Estate"},
}

func tickersOf(ls []listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.ticker
	}
	return out
}

func tickersInSector(sector string) []string {
	var out []string
	for _, l := range lq45 {
		if l.sector == sector {
			out = append(out, l.ticker)
		}
	}
	return out
}
