package market

import (
	"errors"
	"fmt"
	"sort"

	"github.com/systemiqofficial/steel-iq-sub000/internal/finance"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

// Config controls how the yearly market state is built.
type Config struct {
	Thresholds
	// Lag is how many years ahead the forecast curve looks.
	Lag            int
	ScarcityBuffer map[model.Product]float64
}

// PricePoint is the cleared market for one product in one year.
type PricePoint struct {
	Year          int           `json:"year"`
	Product       model.Product `json:"product"`
	Demand        float64       `json:"demand"`
	Supply        float64       `json:"supply"`
	Price         float64       `json:"price"`
	ForecastPrice float64       `json:"forecast_price"`
	Scarce        bool          `json:"scarce"`
}

// State is the frozen market every decision in a year reads from.
type State struct {
	Year     int
	Current  map[model.Product]Curve
	Forecast map[model.Product]Curve
	Points   map[model.Product]PricePoint
}

// BuildState builds the current and forecast curves for every product with
// demand, and clears them. Products without supply have no price.
//
// The forecast curve adds to the current one every asset under
// construction that starts operating within (year, year+Lag].
func BuildState(year int, assets []*model.Asset, in *model.Inputs, cfg Config) (*State, error) {
	s := &State{
		Year:     year,
		Current:  map[model.Product]Curve{},
		Forecast: map[model.Product]Curve{},
		Points:   map[model.Product]PricePoint{},
	}
	for _, p := range in.Products() {
		buffer := cfg.ScarcityBuffer[p]
		cur := BuildCurve(p, assets, cfg.Thresholds, buffer)
		fc := buildForecast(p, year, assets, cfg, buffer)
		s.Current[p] = cur
		s.Forecast[p] = fc
		if len(cur.Entries) == 0 {
			continue
		}

		demand, err := in.DemandFor(p, year)
		if err != nil {
			return nil, err
		}
		price, err := cur.ExtractPrice(demand)
		if err != nil {
			return nil, fmt.Errorf("market %s %d: %w", p, year, err)
		}
		pt := PricePoint{
			Year: year, Product: p, Demand: demand, Supply: cur.TotalCapacity(),
			Price: price, ForecastPrice: price, Scarce: demand > cur.TotalCapacity(),
		}
		if cfg.Lag > 0 {
			fd, err := in.DemandFor(p, year+cfg.Lag)
			if err != nil {
				return nil, err
			}
			if fp, err := fc.ExtractPrice(fd); err == nil {
				pt.ForecastPrice = fp
			} else if !errors.Is(err, ErrEmptyCurve) {
				return nil, err
			}
		}
		s.Points[p] = pt
	}
	return s, nil
}

func buildForecast(p model.Product, year int, assets []*model.Asset, cfg Config, buffer float64) Curve {
	c := BuildCurve(p, assets, cfg.Thresholds, buffer)
	if cfg.Lag <= 0 {
		return c
	}
	within := func(y int) bool { return y > year && y <= year+cfg.Lag }
	for _, a := range assets {
		if a.Status != model.StatusConstruction || a.Product() != p || !cfg.Thresholds.Eligible(a) {
			continue
		}
		if within(a.ActiveYear) {
			c.add(a)
		}
	}
	c.accumulate()
	return c
}

// Price is the clearing price of p this year.
func (s *State) Price(p model.Product) (float64, bool) {
	pt, ok := s.Points[p]
	return pt.Price, ok
}

// ForecastPrice is the clearing price of p on the forecast curve.
func (s *State) ForecastPrice(p model.Product) (float64, bool) {
	pt, ok := s.Points[p]
	return pt.ForecastPrice, ok
}

// PriceSeries is the price path decisions are evaluated against: this
// year's price followed by the forecast price for the remaining years.
func (s *State) PriceSeries(p model.Product, years int) ([]float64, bool) {
	pt, ok := s.Points[p]
	if !ok || years <= 0 {
		return nil, ok
	}
	out := finance.Flat(pt.ForecastPrice, years)
	out[0] = pt.Price
	return out, true
}

// PricePoints lists the cleared markets in product order.
func (s *State) PricePoints() []PricePoint {
	out := make([]PricePoint, 0, len(s.Points))
	for _, pt := range s.Points {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}
