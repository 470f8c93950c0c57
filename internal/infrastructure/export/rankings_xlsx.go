// Package export renders club data as downloadable files.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
	"github.com/mahdygh/bookclub/pkg/logger"
	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// ErrGenerateFailed is returned when the workbook cannot be serialized.
var ErrGenerateFailed = errors.New("failed to generate workbook")

// RankingSource loads rankings.
type RankingSource interface {
	Ranking(ctx context.Context, q query.GetRankingsQuery) (*leaderboard.Ranking, error)
}

// RankingsWorkbook exports the overall and the current-week rankings as an
// XLSX workbook with one sheet each.
type RankingsWorkbook struct {
	rankings RankingSource
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewRankingsWorkbook creates the exporter.
func NewRankingsWorkbook(rankings RankingSource, loc *time.Location, now func() time.Time, log *zap.Logger) *RankingsWorkbook {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &RankingsWorkbook{
		rankings: rankings,
		loc:      loc,
		now:      now,
		logger:   log.With(logger.Component("rankings_export")),
	}
}

const (
	overallSheet = "Overall"
	weeklySheet  = "Weekly"
)

// Build renders the workbook. A non-empty group restricts the overall sheet
// to that group. It returns the file body and a suggested filename.
func (w *RankingsWorkbook) Build(ctx context.Context, group string) (*bytes.Buffer, string, error) {
	now := w.now()

	overallQuery := query.GetRankingsQuery{Kind: query.RankingOverall}
	if group != "" {
		overallQuery = query.GetRankingsQuery{Kind: query.RankingGroup, Group: group}
	}
	overall, err := w.rankings.Ranking(ctx, overallQuery)
	if err != nil {
		return nil, "", fmt.Errorf("export rankings: %w", err)
	}
	week, err := w.rankings.Ranking(ctx, query.GetRankingsQuery{Kind: query.RankingWeekly, WeekOf: now})
	if err != nil {
		return nil, "", fmt.Errorf("export rankings: %w", err)
	}
	weekStart, weekEnd := weekly.Week(now, w.loc)

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	overallTitle := "Overall ranking"
	if group != "" {
		overallTitle = fmt.Sprintf("Ranking of group %s", group)
	}
	if err := writeSheet(f, overallSheet, overallTitle, "Total score", overall, headerStyle); err != nil {
		return nil, "", fmt.Errorf("export rankings: %w", err)
	}
	weeklyTitle := fmt.Sprintf("Week %s to %s", timeutil.FormatCivil(weekStart), timeutil.FormatCivil(weekEnd))
	if err := writeSheet(f, weeklySheet, weeklyTitle, "Weekly score", week, headerStyle); err != nil {
		return nil, "", fmt.Errorf("export rankings: %w", err)
	}

	if idx, err := f.GetSheetIndex(overallSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		w.logger.Error("failed to write workbook", zap.Error(err))
		return nil, "", ErrGenerateFailed
	}

	filename := fmt.Sprintf("rankings_%s.xlsx", timeutil.FormatCivil(timeutil.CivilDate(now, w.loc)))
	return buf, filename, nil
}

var columns = []struct {
	header string
	width  float64
}{
	{"Rank", 8},
	{"Member", 28},
	{"Group", 14},
	{"", 14}, // score column, titled per sheet
	{"Total score", 14},
	{"Completed books", 18},
}

func writeSheet(f *excelize.File, sheet, title, scoreHeader string, ranking *leaderboard.Ranking, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}

	last := colName(len(columns) - 1)
	_ = f.SetCellValue(sheet, "A1", title)
	_ = f.MergeCell(sheet, "A1", last+"1")
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	for i, c := range columns {
		col := colName(i)
		_ = f.SetColWidth(sheet, col, col, c.width)
		header := c.header
		if header == "" {
			header = scoreHeader
		}
		_ = f.SetCellValue(sheet, cell(col, 2), header)
	}
	_ = f.SetCellStyle(sheet, "A2", last+"2", headerStyle)

	for i, e := range ranking.Entries() {
		row := i + 3
		values := []interface{}{e.Rank, e.FullName, e.GroupName, e.Score, e.TotalScore, e.CompletedBooks}
		if err := f.SetSheetRow(sheet, cell("A", row), &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}
	return nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
