package finance

// CostItem is the cost line a subsidy reduces.
type CostItem string

const (
	CostCapex CostItem = "capex"
	CostOpex  CostItem = "opex"
	CostDebt  CostItem = "debt"
)

// Subsidy reduces one cost item for one technology in one country over
// [StartYear, EndYear]. EndYear 0 means open ended.
//
// Absolute is in the unit of the cost item ($/t for capex and opex, a rate
// for debt). Relative is a fraction of the unsubsidized value.
type Subsidy struct {
	Name       string   `yaml:"name" json:"name"`
	Country    string   `yaml:"country" json:"country"`
	Technology string   `yaml:"technology" json:"technology"`
	CostItem   CostItem `yaml:"cost_item" json:"cost_item"`
	StartYear  int      `yaml:"start_year" json:"start_year"`
	EndYear    int      `yaml:"end_year" json:"end_year"`
	Absolute   float64  `yaml:"absolute" json:"absolute"`
	Relative   float64  `yaml:"relative" json:"relative"`
}

func (s Subsidy) ActiveIn(year int) bool {
	if year < s.StartYear {
		return false
	}
	return s.EndYear == 0 || year <= s.EndYear
}

// ApplySubsidy reduces base by the absolute and relative components of every
// subsidy active in year. The result is floored at floor: 0 for capex and
// opex, the risk-free rate for cost of debt.
//
// With no active subsidy, base is returned unchanged even if it is already
// below floor.
func ApplySubsidy(base float64, subsidies []Subsidy, year int, floor float64) float64 {
	reduction := 0.0
	active := false
	for _, s := range subsidies {
		if !s.ActiveIn(year) {
			continue
		}
		active = true
		reduction += s.Absolute + base*s.Relative
	}
	if !active {
		return base
	}
	v := base - reduction
	if v < floor {
		return floor
	}
	return v
}

// FilterSubsidies keeps the subsidies for one country, technology and cost
// item. An empty Country or Technology on a subsidy matches any value.
func FilterSubsidies(subsidies []Subsidy, country, technology string, item CostItem) []Subsidy {
	var out []Subsidy
	for _, s := range subsidies {
		if s.CostItem != item {
			continue
		}
		if s.Country != "" && s.Country != country {
			continue
		}
		if s.Technology != "" && s.Technology != technology {
			continue
		}
		out = append(out, s)
	}
	return out
}
