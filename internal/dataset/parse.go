package dataset

import (
	"fmt"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// Accepted header spellings per canonical column; source names first.
var (
	colRegionID       = []string{"COM", "region_id", "insee", "code_insee"}
	colInsuredValue   = []string{"patrimoine", "insured_value"}
	colLossProb       = []string{"prob", "loss_probability"}
	colCurrentPremium = []string{"model_premium", "current_premium"}
	colName           = []string{"nom", "name", "l_ar"}
	colCensus         = []string{"index", "census_count"}
	colMedianIncome   = []string{"DISP_MED18", "median_income"}
)

// ExposureRow is one census line of the exposure table
type ExposureRow struct {
	RegionID    string
	CensusCount int64
}

// IncomeRow is one line of the socioeconomic income table
type IncomeRow struct {
	RegionID     string
	MedianIncome float64
	Known        bool
}

// GeographyRow is one region of the geography table
type GeographyRow struct {
	RegionID string
	Name     string
	Geometry []byte
}

// MissingColumnError is returned when a table lacks a required header
type MissingColumnError struct {
	Table  string
	Column []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s table: missing required column %q", e.Table, e.Column[0])
}

func (e *MissingColumnError) Unwrap() error { return domain.ErrInvalidInput }

func requireColumn(t *Table, table string, names []string) (int, error) {
	idx, ok := t.Column(names...)
	if !ok {
		return -1, &MissingColumnError{Table: table, Column: names}
	}
	return idx, nil
}

func skipped(table string, line int, format string, args ...interface{}) domain.Warning {
	return domain.DataWarning(domain.CodeRowSkipped, "", "%s line %d: %s", table, line, fmt.Sprintf(format, args...))
}

// ParseCustomers maps the customers table to domain customers in row order.
func ParseCustomers(t *Table) ([]domain.Customer, []domain.Warning, error) {
	const table = "customers"
	cols := make([]int, 4)
	for i, names := range [][]string{colRegionID, colInsuredValue, colLossProb, colCurrentPremium} {
		idx, err := requireColumn(t, table, names)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = idx
	}

	customers := make([]domain.Customer, 0, len(t.Rows))
	var warnings []domain.Warning
	for i := range t.Rows {
		line := t.Lines[i]
		region := NormalizeRegionID(t.Value(i, cols[0]))
		if region == "" {
			warnings = append(warnings, skipped(table, line, "empty region id"))
			continue
		}

		var values [3]float64
		ok := true
		for j := 0; j < 3; j++ {
			v, err := parseNumber(t.Value(i, cols[j+1]))
			if err != nil {
				warnings = append(warnings, skipped(table, line, "column %q: %v", t.Header[cols[j+1]], err))
				ok = false
				break
			}
			values[j] = v
		}
		if !ok {
			continue
		}

		c := domain.Customer{
			RegionID:        region,
			InsuredValue:    values[0],
			LossProbability: values[1],
			CurrentPremium:  values[2],
		}
		switch {
		case c.InsuredValue < 0:
			warnings = append(warnings, skipped(table, line, "negative insured value %g", c.InsuredValue))
			continue
		case c.LossProbability < 0 || c.LossProbability > 1:
			warnings = append(warnings, skipped(table, line, "loss probability %g outside [0, 1]", c.LossProbability))
			continue
		case c.CurrentPremium < 0:
			warnings = append(warnings, skipped(table, line, "negative premium %g", c.CurrentPremium))
			continue
		}
		customers = append(customers, c)
	}
	return customers, warnings, nil
}

// ParseExposure maps the census table.
func ParseExposure(t *Table) ([]ExposureRow, []domain.Warning, error) {
	const table = "exposure"
	regionCol, err := requireColumn(t, table, colRegionID)
	if err != nil {
		return nil, nil, err
	}
	censusCol, err := requireColumn(t, table, colCensus)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]ExposureRow, 0, len(t.Rows))
	var warnings []domain.Warning
	for i := range t.Rows {
		region := NormalizeRegionID(t.Value(i, regionCol))
		v, err := parseNumber(t.Value(i, censusCol))
		if region == "" || err != nil || v < 0 {
			warnings = append(warnings, skipped(table, t.Lines[i], "invalid census row %q/%q", t.Value(i, regionCol), t.Value(i, censusCol)))
			continue
		}
		rows = append(rows, ExposureRow{RegionID: region, CensusCount: int64(v)})
	}
	return rows, warnings, nil
}

// ParseIncome maps the income table. Empty income cells are kept as unknown.
func ParseIncome(t *Table) ([]IncomeRow, []domain.Warning, error) {
	const table = "income"
	regionCol, err := requireColumn(t, table, colRegionID)
	if err != nil {
		return nil, nil, err
	}
	incomeCol, err := requireColumn(t, table, colMedianIncome)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]IncomeRow, 0, len(t.Rows))
	var warnings []domain.Warning
	for i := range t.Rows {
		region := NormalizeRegionID(t.Value(i, regionCol))
		if region == "" {
			warnings = append(warnings, skipped(table, t.Lines[i], "empty region id"))
			continue
		}
		raw := t.Value(i, incomeCol)
		if raw == "" {
			rows = append(rows, IncomeRow{RegionID: region})
			continue
		}
		v, err := parseNumber(raw)
		if err != nil || v < 0 {
			warnings = append(warnings, skipped(table, t.Lines[i], "invalid median income %q", raw))
			continue
		}
		rows = append(rows, IncomeRow{RegionID: region, MedianIncome: v, Known: true})
	}
	return rows, warnings, nil
}

// ParseGeographyTable maps a CSV/XLSX geography table without geometry.
func ParseGeographyTable(t *Table) ([]GeographyRow, []domain.Warning, error) {
	const table = "geography"
	regionCol, err := requireColumn(t, table, colRegionID)
	if err != nil {
		return nil, nil, err
	}
	nameCol, hasName := t.Column(colName...)

	rows := make([]GeographyRow, 0, len(t.Rows))
	var warnings []domain.Warning
	for i := range t.Rows {
		region := NormalizeRegionID(t.Value(i, regionCol))
		if region == "" {
			warnings = append(warnings, skipped(table, t.Lines[i], "empty region id"))
			continue
		}
		name := region
		if hasName && t.Value(i, nameCol) != "" {
			name = t.Value(i, nameCol)
		}
		rows = append(rows, GeographyRow{RegionID: region, Name: name})
	}
	return rows, warnings, nil
}
