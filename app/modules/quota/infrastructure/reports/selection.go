package quotareports

import (
	"bytes"
	"fmt"
	"sort"

	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
	"github.com/xuri/excelize/v2"
)

const (
	selectionSheet = "Сонгогдсон"
	summarySheet   = "Нэгтгэл"
)

var selectionHeader = []interface{}{"№", "Ангилал", "Овог нэр", "Сургууль", "Аймаг/дүүрэг", "Оноо", "Байр", "Төрөл"}

// SelectionWorkbook renders a stage's selections as an XLSX file: one row per
// selected contestant plus a per region and category summary.
func SelectionWorkbook(stage quotadomain.Stage, selections []quotadomain.Selection) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), selectionSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeRow(f, selectionSheet, 1, selectionHeader); err != nil {
		return nil, err
	}
	for i, s := range selections {
		row := []interface{}{i + 1, s.Category, s.Name, s.School, s.Region, s.Total, rankCell(s.Rank), s.Label}
		if err := writeRow(f, selectionSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}
	if err := writeRow(f, summarySheet, 1, []interface{}{"Үе шат", string(stage)}); err != nil {
		return nil, err
	}
	if err := writeRow(f, summarySheet, 3, []interface{}{"Аймаг/дүүрэг", "Ангилал", "Төрөл", "Тоо"}); err != nil {
		return nil, err
	}
	for i, c := range summarize(selections) {
		if err := writeRow(f, summarySheet, i+4, []interface{}{c.region, c.category, c.label, c.count}); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write selection workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type summaryRow struct {
	region   string
	category string
	label    string
	count    int
}

func summarize(selections []quotadomain.Selection) []summaryRow {
	idx := make(map[[3]string]int)
	var out []summaryRow
	for _, s := range selections {
		k := [3]string{s.Region, s.Category, s.Label}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, summaryRow{region: s.Region, category: s.Category, label: s.Label})
		}
		out[i].count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].region != out[j].region {
			return out[i].region < out[j].region
		}
		return out[i].category < out[j].category
	})
	return out
}

func rankCell(rank int) interface{} {
	if rank <= 0 {
		return ""
	}
	return rank
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
