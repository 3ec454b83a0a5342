package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Key identifies a material or energy carrier in a bill of materials.
// Always build keys through NormalizeKey.
type Key string

var keyReplacer = strings.NewReplacer(" ", "_", "-", "_", "/", "_", ".", "_")

// NormalizeKey lower-cases and snake-cases a raw input name so that
// "Iron Ore", "iron-ore" and "iron_ore" are the same key.
func NormalizeKey(s string) Key {
	k := keyReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	for strings.Contains(k, "__") {
		k = strings.ReplaceAll(k, "__", "_")
	}
	return Key(strings.Trim(k, "_"))
}

// BOMEntry is one line of a bill of materials.
// Demand is per tonne of product; UnitCost is $ per unit of the input;
// TotalCost is Demand × UnitCost × ProductVolume.
type BOMEntry struct {
	Demand        float64 `yaml:"demand" json:"demand"`
	UnitCost      float64 `yaml:"unit_cost" json:"unit_cost"`
	TotalCost     float64 `yaml:"total_cost" json:"total_cost"`
	ProductVolume float64 `yaml:"product_volume" json:"product_volume"`
}

// BOM is a bill of materials split into material and energy sections.
type BOM struct {
	Materials map[Key]BOMEntry `yaml:"materials" json:"materials"`
	Energy    map[Key]BOMEntry `yaml:"energy" json:"energy"`
}

var ErrBOMShape = errors.New("bill of materials is missing a section")

// Repair fills missing sections with empty ones when the asset produces
// nothing. A producing asset without materials or energy is a data error.
func (b *BOM) Repair(utilization float64) error {
	if b.Materials != nil && b.Energy != nil {
		return nil
	}
	if utilization > 0 {
		var missing []string
		if b.Materials == nil {
			missing = append(missing, "materials")
		}
		if b.Energy == nil {
			missing = append(missing, "energy")
		}
		return fmt.Errorf("%w: %s (utilization %.2f)", ErrBOMShape, strings.Join(missing, ", "), utilization)
	}
	if b.Materials == nil {
		b.Materials = map[Key]BOMEntry{}
	}
	if b.Energy == nil {
		b.Energy = map[Key]BOMEntry{}
	}
	return nil
}

// Clone returns a deep copy; BOMs are mutated by Reprice.
func (b BOM) Clone() BOM {
	out := BOM{}
	if b.Materials != nil {
		out.Materials = make(map[Key]BOMEntry, len(b.Materials))
		for k, v := range b.Materials {
			out.Materials[k] = v
		}
	}
	if b.Energy != nil {
		out.Energy = make(map[Key]BOMEntry, len(b.Energy))
		for k, v := range b.Energy {
			out.Energy[k] = v
		}
	}
	return out
}

// Normalized rebuilds both sections with normalized keys. Entries whose
// keys collide after normalization have their demand summed.
func (b BOM) Normalized() BOM {
	norm := func(in map[Key]BOMEntry) map[Key]BOMEntry {
		if in == nil {
			return nil
		}
		out := make(map[Key]BOMEntry, len(in))
		for k, v := range in {
			nk := NormalizeKey(string(k))
			e := out[nk]
			e.Demand += v.Demand
			e.UnitCost = v.UnitCost
			out[nk] = e
		}
		return out
	}
	return BOM{Materials: norm(b.Materials), Energy: norm(b.Energy)}
}

// Demands merges both sections into input key → demand per tonne.
func (b BOM) Demands() map[string]float64 {
	out := make(map[string]float64, len(b.Materials)+len(b.Energy))
	for k, v := range b.Materials {
		out[string(k)] += v.Demand
	}
	for k, v := range b.Energy {
		out[string(k)] += v.Demand
	}
	return out
}

// UnitCost is the variable cost of one tonne of product.
func (b BOM) UnitCost() float64 {
	total := 0.0
	for _, k := range sortedKeys(b.Materials) {
		e := b.Materials[k]
		total += e.Demand * e.UnitCost
	}
	for _, k := range sortedKeys(b.Energy) {
		e := b.Energy[k]
		total += e.Demand * e.UnitCost
	}
	return total
}

// Reprice sets the unit cost of every line from price and the total cost
// for productVolume tonnes of output.
func (b *BOM) Reprice(price func(Key) (float64, error), productVolume float64) error {
	for _, section := range []map[Key]BOMEntry{b.Materials, b.Energy} {
		for _, k := range sortedKeys(section) {
			p, err := price(k)
			if err != nil {
				return err
			}
			e := section[k]
			e.UnitCost = p
			e.ProductVolume = productVolume
			e.TotalCost = e.Demand * p * productVolume
			section[k] = e
		}
	}
	return nil
}

// MissingKeys reports which of the keys a technology requires are absent.
func (b BOM) MissingKeys(spec TechnologySpec) []Key {
	var missing []Key
	for _, k := range spec.Materials {
		if _, ok := b.Materials[k]; !ok {
			missing = append(missing, k)
		}
	}
	for _, k := range spec.Energy {
		if _, ok := b.Energy[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func sortedKeys(m map[Key]BOMEntry) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
