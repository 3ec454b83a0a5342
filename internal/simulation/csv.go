package simulation

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	return writeFile(path, func(w io.Writer) error { return WriteLedger(w, ledger) })
}

func WritePricesCSV(path string, prices []market.PricePoint) error {
	return writeFile(path, func(w io.Writer) error { return WritePrices(w, prices) })
}

func WriteCommandsCSV(path string, cmds []model.Command) error {
	return writeFile(path, func(w io.Writer) error { return WriteCommands(w, cmds) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}

func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	header := []string{
		"year",
		"asset_id",
		"name",
		"location",
		"technology",
		"product",
		"status",
		"capacity",
		"utilization",
		"production",
		"unit_vopex",
		"unit_carbon",
		"fixed_cost",
		"debt_service",
		"legacy_debt",
		"unit_total_cost",
		"price",
		"balance",
		"historic_balance",
		"emissions_per_unit",
		"emissions",
		"command",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Year),
			r.AssetID.String(),
			r.Name,
			r.Location,
			string(r.Technology),
			string(r.Product),
			string(r.Status),
			fmtFloat(r.Capacity),
			fmtFloat(r.Utilization),
			fmtFloat(r.Production),
			fmtFloat(r.UnitVOPEX),
			fmtFloat(r.UnitCarbon),
			fmtFloat(r.FixedCost),
			fmtFloat(r.DebtService),
			fmtFloat(r.LegacyDebt),
			fmtFloat(r.UnitTotalCost),
			fmtFloat(r.Price),
			fmtFloat(r.Balance),
			fmtFloat(r.HistoricBalance),
			fmtFloat(r.EmissionsPerUnit),
			fmtFloat(r.Emissions),
			string(r.Command),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func WritePrices(out io.Writer, prices []market.PricePoint) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"year", "product", "demand", "supply", "price", "forecast_price", "scarce"}); err != nil {
		return err
	}
	for _, p := range prices {
		row := []string{
			strconv.Itoa(p.Year),
			string(p.Product),
			fmtFloat(p.Demand),
			fmtFloat(p.Supply),
			fmtFloat(p.Price),
			fmtFloat(p.ForecastPrice),
			strconv.FormatBool(p.Scarce),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func WriteCommands(out io.Writer, cmds []model.Command) error {
	w := csv.NewWriter(out)
	header := []string{"id", "year", "kind", "asset_id", "technology", "from_status", "to_status", "npv", "cost", "effective_year", "reason"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range cmds {
		row := []string{
			c.ID.String(),
			strconv.Itoa(c.Year),
			string(c.Kind),
			c.AssetID.String(),
			string(c.Technology),
			string(c.FromStatus),
			string(c.ToStatus),
			fmtFloat(c.NPV),
			fmtFloat(c.Cost),
			strconv.Itoa(c.EffectiveYear),
			c.Reason,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
