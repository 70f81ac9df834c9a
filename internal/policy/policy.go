// Package policy holds the static per-jurisdiction retrieval and instruction table.
package policy

import (
	"fmt"
	"strings"

	"github.com/spherical/hs-classifier/internal/connector"
	"github.com/spherical/hs-classifier/internal/domain"
)

// ToolSelection lists the retrieval tools enabled for the model call.
type ToolSelection struct {
	WebSearch bool `json:"webSearch"`
}

// Active reports whether any retrieval tool is enabled.
func (t ToolSelection) Active() bool {
	return t.WebSearch
}

// Policy is the fixed configuration for one region.
type Policy struct {
	Region           domain.Region
	Tools            ToolSelection
	Connectors       []connector.Name
	SearchStatus     string
	CodeFormat       string
	TaxConvention    string
	CitationPhrase   string
	ComplianceBodies []string
	Notes            []string
	FallbackNote     string
}

// Instructions renders the region-specific instruction block for the prompt.
func (p Policy) Instructions() string {
	var b strings.Builder
	fmt.Fprintf(&b, "REGION-SPECIFIC RULES (%s):\n", p.Region.DisplayName())
	fmt.Fprintf(&b, "- HS code format: %s\n", p.CodeFormat)
	fmt.Fprintf(&b, "- Duty and tax: %s\n", p.TaxConvention)
	if len(p.ComplianceBodies) > 0 {
		fmt.Fprintf(&b, "- Check restrictions and permits with: %s\n", strings.Join(p.ComplianceBodies, ", "))
	}
	for _, n := range p.Notes {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	fmt.Fprintf(&b, "- When citing, write: %q\n", p.CitationPhrase)
	fmt.Fprintf(&b, "- If no authoritative match is found: %s\n", p.FallbackNote)
	return b.String()
}

const genericFallback = "infer the code from the WCO Harmonized System General Interpretative Rules, state that the result is an AI inference, and keep confidenceScore at or below 70"

var table = map[domain.Region]Policy{
	domain.RegionSingapore: {
		Region:           domain.RegionSingapore,
		Tools:            ToolSelection{WebSearch: true},
		Connectors:       []connector.Name{connector.NameSingapore},
		SearchStatus:     "Searching Singapore TradeNet & AHTN...",
		CodeFormat:       "8-digit AHTN code (e.g. 8518.30.10)",
		TaxConvention:    "most goods carry 0% customs duty; state GST at 9% on CIF value plus duty; excise applies only to liquor, tobacco, motor vehicles and petroleum",
		CitationPhrase:   "Source: Singapore Customs / AHTN 2022 via TradeNet",
		ComplianceBodies: []string{"Singapore Customs", "IMDA", "HSA", "SFA", "NParks"},
		Notes: []string{
			"Controlled items require a Competent Authority permit declared through TradeNet",
			"Telecommunication equipment must meet IMDA registration requirements",
		},
		FallbackNote: genericFallback,
	},
	domain.RegionUAE: {
		Region:           domain.RegionUAE,
		Tools:            ToolSelection{WebSearch: true},
		Connectors:       []connector.Name{connector.NameUAE},
		SearchStatus:     "Searching UAE Federal Customs tariff...",
		CodeFormat:       "8-digit GCC Common Customs Tariff code",
		TaxConvention:    "apply the GCC common external tariff (generally 5% on CIF value) and state VAT at 5%",
		CitationPhrase:   "Source: UAE Federal Authority for Identity, Citizenship, Customs & Port Security (GCC CET)",
		ComplianceBodies: []string{"ICP Customs", "Dubai Customs", "MOIAT", "TDRA", "ECAS"},
		Notes: []string{
			"Electronics with radio functions need TDRA type approval",
			"Regulated products need an ECAS/ECAS-mark conformity certificate",
		},
		FallbackNote: genericFallback,
	},
	domain.RegionSaudiArabia: {
		Region:           domain.RegionSaudiArabia,
		Tools:            ToolSelection{WebSearch: true},
		Connectors:       []connector.Name{connector.NameSaudiArabia},
		SearchStatus:     "Searching ZATCA integrated tariff...",
		CodeFormat:       "12-digit Saudi integrated tariff code",
		TaxConvention:    "apply the ZATCA tariff duty rate (commonly 5%, higher for protected goods) and state VAT at 15%",
		CitationPhrase:   "Source: ZATCA Integrated Customs Tariff",
		ComplianceBodies: []string{"ZATCA", "SASO (SABER platform)", "SFDA", "CITC"},
		Notes: []string{
			"Most consumer products require a SABER product certificate of conformity",
		},
		FallbackNote: genericFallback,
	},
	domain.RegionUSA: {
		Region:           domain.RegionUSA,
		Tools:            ToolSelection{WebSearch: true},
		SearchStatus:     "Searching USITC Harmonized Tariff Schedule...",
		CodeFormat:       "10-digit HTSUS code (e.g. 8518.30.2000)",
		TaxConvention:    "state the general (MFN) column 1 duty rate, any Section 301 additional duty for goods of Chinese origin, and note there is no federal VAT",
		CitationPhrase:   "Source: USITC HTS / CBP CROSS rulings",
		ComplianceBodies: []string{"CBP", "FCC", "FDA", "CPSC", "USDA APHIS"},
		Notes: []string{
			"Prefer a matching CBP CROSS ruling when one exists",
		},
		FallbackNote: genericFallback,
	},
	domain.RegionEU: {
		Region:           domain.RegionEU,
		Tools:            ToolSelection{WebSearch: true},
		SearchStatus:     "Searching EU TARIC database...",
		CodeFormat:       "10-digit TARIC code (8-digit CN plus 2 TARIC digits)",
		TaxConvention:    "state the third-country conventional duty from TARIC and note that VAT is charged at the member state rate (17%-27%)",
		CitationPhrase:   "Source: EU TARIC / Combined Nomenclature",
		ComplianceBodies: []string{"National customs authority", "CE marking (New Legislative Framework)", "REACH/RoHS"},
		Notes: []string{
			"Mention Binding Tariff Information (BTI) where relevant",
		},
		FallbackNote: genericFallback,
	},
	domain.RegionUK: {
		Region:           domain.RegionUK,
		Tools:            ToolSelection{WebSearch: true},
		SearchStatus:     "Searching UK Trade Tariff...",
		CodeFormat:       "10-digit UK commodity code",
		TaxConvention:    "state the UK Global Tariff duty rate and import VAT at 20% (5% or 0% where reduced rates apply)",
		CitationPhrase:   "Source: UK Trade Tariff (HMRC)",
		ComplianceBodies: []string{"HMRC", "UKCA marking (OPSS)", "Food Standards Agency", "DEFRA"},
		FallbackNote:     genericFallback,
	},
	domain.RegionChina: {
		Region:           domain.RegionChina,
		Tools:            ToolSelection{WebSearch: true},
		SearchStatus:     "Searching China Customs tariff...",
		CodeFormat:       "10-digit China Customs commodity code",
		TaxConvention:    "state the MFN import duty, VAT at 13% (9% for some goods) and consumption tax where applicable",
		CitationPhrase:   "Source: General Administration of Customs of China (GACC) tariff",
		ComplianceBodies: []string{"GACC", "CCC certification (SAMR)", "MIIT"},
		FallbackNote:     genericFallback,
	},
	domain.RegionIndia: {
		Region:           domain.RegionIndia,
		Tools:            ToolSelection{WebSearch: true},
		SearchStatus:     "Searching CBIC Indian Customs tariff...",
		CodeFormat:       "8-digit ITC-HS code",
		TaxConvention:    "state Basic Customs Duty, Social Welfare Surcharge (10% of BCD) and IGST rate",
		CitationPhrase:   "Source: CBIC Customs Tariff of India",
		ComplianceBodies: []string{"CBIC", "DGFT", "BIS (CRS registration)", "FSSAI", "WPC"},
		FallbackNote:     genericFallback,
	},
	domain.RegionJapan: {
		Region:           domain.RegionJapan,
		Tools:            ToolSelection{WebSearch: true},
		SearchStatus:     "Searching Japan Customs tariff schedule...",
		CodeFormat:       "9-digit Japanese statistical code",
		TaxConvention:    "state the WTO/general duty rate and consumption tax at 10% (8% reduced rate for food)",
		CitationPhrase:   "Source: Japan Customs Tariff Schedule",
		ComplianceBodies: []string{"Japan Customs", "METI (PSE mark)", "MIC (Giteki)", "MHLW"},
		FallbackNote:     genericFallback,
	},
	domain.RegionGlobal: {
		Region:           domain.RegionGlobal,
		Tools:            ToolSelection{WebSearch: true},
		SearchStatus:     "Searching WCO Harmonized System nomenclature...",
		CodeFormat:       "6-digit WCO HS code",
		TaxConvention:    "duty and tax vary by destination; give typical MFN ranges and say so explicitly",
		CitationPhrase:   "Source: WCO Harmonized System Nomenclature 2022",
		ComplianceBodies: []string{"Destination-country customs authority"},
		FallbackNote:     genericFallback,
	},
}

func init() {
	if missing := Missing(); len(missing) > 0 {
		panic(fmt.Sprintf("policy: regions without a policy entry: %v", missing))
	}
}

// Missing returns every supported region that lacks a table entry.
func Missing() []domain.Region {
	var missing []domain.Region
	for _, r := range domain.AllRegions() {
		if _, ok := table[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// For returns the policy for region. Every supported region has an entry;
// anything else resolves to the global policy.
func For(region domain.Region) Policy {
	if p, ok := table[region]; ok {
		return clone(p)
	}
	return clone(table[domain.RegionGlobal])
}

func clone(p Policy) Policy {
	p.Connectors = append([]connector.Name(nil), p.Connectors...)
	p.ComplianceBodies = append([]string(nil), p.ComplianceBodies...)
	p.Notes = append([]string(nil), p.Notes...)
	return p
}
