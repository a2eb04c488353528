package quotaparsers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoInfoBlock   = errors.New("quota workbook has no category info block")
	ErrNoRegionTable = errors.New("quota workbook has no region table")
	ErrNoCategories  = errors.New("quota workbook lists no categories")
)

// Words that start a section rather than name a category.
var sectionWords = map[string]bool{"аймгууд": true, "аймаг": true, "дүүрэг": true}

// ReadWorkbookFile opens and parses a quota workbook from disk.
func ReadWorkbookFile(path string) (quotadomain.Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return quotadomain.Workbook{}, fmt.Errorf("failed to read quota workbook: %w", err)
	}
	return ParseWorkbook(bytes.NewReader(data))
}

// ParseWorkbook reads the first sheet of a quota workbook.
//
// The sheet holds an info block, introduced by a row whose first cell
// mentions "ангилал" or "мэдээлэл", with one row per category:
//
//	category | source contest | third round contest | fourth round contest
//
// followed by a region table whose header starts with "ID" or mentions
// "аймаг":
//
//	ID | Нэр | <category> | <category> ...
func ParseWorkbook(r io.Reader) (quotadomain.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return quotadomain.Workbook{}, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return quotadomain.Workbook{}, fmt.Errorf("XLSX file has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return quotadomain.Workbook{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	infoStart, regionStart := findSections(rows)
	if infoStart < 0 {
		return quotadomain.Workbook{}, fmt.Errorf("sheet %q: %w", sheet, ErrNoInfoBlock)
	}
	if regionStart < 0 {
		return quotadomain.Workbook{}, fmt.Errorf("sheet %q: %w", sheet, ErrNoRegionTable)
	}

	categories, err := parseCategories(sheet, rows[infoStart+1:regionStart], infoStart+1)
	if err != nil {
		return quotadomain.Workbook{}, err
	}
	if len(categories) == 0 {
		return quotadomain.Workbook{}, fmt.Errorf("sheet %q: %w", sheet, ErrNoCategories)
	}

	regions, err := parseRegions(sheet, rows, regionStart)
	if err != nil {
		return quotadomain.Workbook{}, err
	}

	return quotadomain.Workbook{Categories: categories, Regions: regions}, nil
}

func findSections(rows [][]string) (infoStart, regionStart int) {
	infoStart, regionStart = -1, -1
	for i, row := range rows {
		first := strings.TrimSpace(cell(row, 0))
		lower := strings.ToLower(first)
		if infoStart < 0 {
			if strings.Contains(lower, "мэдээлэл") || strings.Contains(lower, "ангилал") {
				infoStart = i
			}
			continue
		}
		if strings.ToUpper(first) == "ID" || strings.Contains(lower, "аймаг") {
			return infoStart, i
		}
	}
	return infoStart, -1
}

func parseCategories(sheet string, rows [][]string, offset int) ([]quotadomain.CategoryContests, error) {
	var out []quotadomain.CategoryContests
	seen := make(map[string]bool)
	for i, row := range rows {
		category := strings.TrimSpace(cell(row, 0))
		if category == "" || sectionWords[strings.ToLower(category)] {
			continue
		}
		source, ok := parseID(cell(row, 1))
		if !ok {
			// header rows such as "Ангилал | 2-р даваа | ..." land here
			continue
		}
		if seen[category] {
			return nil, fmt.Errorf("sheet %q row %d: category %q listed twice", sheet, offset+i+1, category)
		}
		seen[category] = true

		cc := quotadomain.CategoryContests{Category: category, SourceContestID: source}
		if id, ok := parseID(cell(row, 2)); ok {
			cc.ThirdContestID = id
		}
		if id, ok := parseID(cell(row, 3)); ok {
			cc.FourthContestID = id
		}
		out = append(out, cc)
	}
	return out, nil
}

func parseRegions(sheet string, rows [][]string, headerIdx int) ([]quotadomain.RegionRow, error) {
	header := rows[headerIdx]
	columns := make(map[int]string)
	for j := 1; j < len(header); j++ {
		name := strings.TrimSpace(header[j])
		if name == "" || name == "Нэр" {
			continue
		}
		columns[j] = name
	}

	var out []quotadomain.RegionRow
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		regionID, ok := parseID(cell(row, 0))
		if !ok {
			continue
		}
		rr := quotadomain.RegionRow{
			RegionID: regionID,
			Name:     strings.TrimSpace(cell(row, 1)),
			Values:   make(map[string]float64),
		}
		for j, category := range columns {
			raw := strings.TrimSpace(cell(row, j))
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				axis, _ := excelize.CoordinatesToCellName(j+1, i+1)
				return nil, fmt.Errorf("sheet %q cell %s (region %d, category %s): invalid number %q", sheet, axis, regionID, category, raw)
			}
			rr.Values[category] = v
		}
		out = append(out, rr)
	}
	return out, nil
}

// parseID accepts integers, including spreadsheet floats such as "105.0".
func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 {
			return 0, false
		}
		return id, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) || f <= 0 {
		return 0, false
	}
	return int64(f), true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
