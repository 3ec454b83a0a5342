package model

import (
	"fmt"
	"sort"
	"strings"
)

// Product is what a furnace group produces. Cost curves and capacity
// limits are kept per product.
type Product string

const (
	ProductIron  Product = "iron"
	ProductSteel Product = "steel"
)

// Technology is the closed set of furnace technologies an asset can run.
// Keep these values stable; they are used as keys in scenario files.
type Technology string

const (
	TechBF    Technology = "BF"    // blast furnace
	TechDRING Technology = "DRING" // direct reduction, natural gas
	TechDRIH2 Technology = "DRIH2" // direct reduction, hydrogen
	TechESF   Technology = "ESF"   // electric smelting furnace
	TechBOF   Technology = "BOF"   // basic oxygen furnace
	TechEAF   Technology = "EAF"   // electric arc furnace
	TechMOE   Technology = "MOE"   // molten oxide electrolysis
)

// CapexClass distinguishes building on an empty site from rebuilding or
// converting an existing one.
type CapexClass string

const (
	CapexGreenfield CapexClass = "greenfield"
	CapexBrownfield CapexClass = "brownfield"
)

// TechnologySpec is the registry entry for a technology: what it makes, the
// inputs its bill of materials must carry, and where it may switch to.
type TechnologySpec struct {
	Name        Technology   `json:"name"`
	Product     Product      `json:"product"`
	Description string       `json:"description"`
	Materials   []Key        `json:"materials"`
	Energy      []Key        `json:"energy"`
	Transitions []Technology `json:"transitions"`
}

var registry = map[Technology]TechnologySpec{
	TechBF: {
		Name: TechBF, Product: ProductIron,
		Description: "Blast furnace reducing sintered ore with coke",
		Materials:   []Key{"iron_ore", "coking_coal"},
		Energy:      []Key{"electricity"},
		Transitions: []Technology{TechDRING, TechDRIH2, TechESF},
	},
	TechDRING: {
		Name: TechDRING, Product: ProductIron,
		Description: "Shaft furnace direct reduction on natural gas",
		Materials:   []Key{"iron_ore_pellets"},
		Energy:      []Key{"natural_gas", "electricity"},
		Transitions: []Technology{TechDRIH2, TechESF},
	},
	TechDRIH2: {
		Name: TechDRIH2, Product: ProductIron,
		Description: "Shaft furnace direct reduction on hydrogen",
		Materials:   []Key{"iron_ore_pellets"},
		Energy:      []Key{"hydrogen", "electricity"},
	},
	TechESF: {
		Name: TechESF, Product: ProductIron,
		Description: "Electric smelting furnace melting DRI into hot metal",
		Materials:   []Key{"iron_ore_pellets"},
		Energy:      []Key{"electricity"},
		Transitions: []Technology{TechDRIH2},
	},
	TechBOF: {
		Name: TechBOF, Product: ProductSteel,
		Description: "Basic oxygen furnace converting hot metal and scrap",
		Materials:   []Key{"hot_metal", "scrap"},
		Energy:      []Key{"electricity"},
		Transitions: []Technology{TechEAF, TechMOE},
	},
	TechEAF: {
		Name: TechEAF, Product: ProductSteel,
		Description: "Electric arc furnace melting scrap and DRI",
		Materials:   []Key{"scrap"},
		Energy:      []Key{"electricity"},
		Transitions: []Technology{TechMOE},
	},
	TechMOE: {
		Name: TechMOE, Product: ProductSteel,
		Description: "Molten oxide electrolysis directly from ore",
		Materials:   []Key{"iron_ore"},
		Energy:      []Key{"electricity"},
	},
}

// Spec returns the registry entry for t.
func (t Technology) Spec() (TechnologySpec, bool) {
	s, ok := registry[t]
	return s, ok
}

func (t Technology) Product() Product {
	return registry[t].Product
}

func (t Technology) Valid() bool {
	_, ok := registry[t]
	return ok
}

// ParseTechnology maps a loosely written name ("dri-ng", " eaf ") onto the
// enum. Normalization happens here, once, at the input boundary.
func ParseTechnology(s string) (Technology, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	t := Technology(norm)
	if !t.Valid() {
		return "", fmt.Errorf("unknown technology %q", s)
	}
	return t, nil
}

// Technologies lists the registry in a stable order.
func Technologies() []TechnologySpec {
	out := make([]TechnologySpec, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TechnologyState is the technology an asset currently runs, with the
// capital cost it was financed at and its bill of materials.
// It is replaced wholesale on a technology switch.
type TechnologyState struct {
	Kind           Technology `json:"kind"`
	Product        Product    `json:"product"`
	Capex          float64    `json:"capex"` // $/t capacity, after subsidies
	CapexNoSubsidy float64    `json:"capex_no_subsidy"`
	CapexClass     CapexClass `json:"capex_class"`
	BOM            BOM        `json:"bom"`
}
