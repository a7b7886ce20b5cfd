package excel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/rally/internal/ledger"
	"github.com/derekprior/rally/internal/pairing"
	"github.com/derekprior/rally/internal/schedule"
	"github.com/derekprior/rally/internal/session"
)

// Sheet names used by the workbook.
const (
	SheetSchedule  = "Schedule"
	SheetCoverage  = "Coverage"
	SheetStandings = "Standings"
)

// TimeLayout is how match start times are written.
const TimeLayout = "15:04"

// ScheduleHeaders are the columns of the Schedule sheet, in order.
var ScheduleHeaders = []string{"#", "Court", "Time", "Type", "Team 1", "Team 2", "Score 1", "Score 2"}

// ErrNoMatches means a session has nothing to export.
var ErrNoMatches = errors.New("no matches to export")

// Generate creates a workbook with the schedule, a sheet per participant and
// a coverage summary.
func Generate(s *session.Session) (*excelize.File, error) {
	if len(s.Matches) == 0 {
		return nil, ErrNoMatches
	}
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	if err := writeScheduleSheet(f, s.Matches); err != nil {
		return nil, fmt.Errorf("writing schedule sheet: %w", err)
	}
	if err := writeParticipantSheets(f, s); err != nil {
		return nil, fmt.Errorf("writing participant sheets: %w", err)
	}
	if s.Report != nil {
		if err := writeCoverageSheet(f, s.Report); err != nil {
			return nil, fmt.Errorf("writing coverage sheet: %w", err)
		}
	}
	if s.Ledger != nil && s.Ledger.Scored() > 0 {
		if err := WriteStandings(f, s.Ledger.Standings()); err != nil {
			return nil, err
		}
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

func headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 14, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return style
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	if style := headerStyle(f); style != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), style)
	}
}

func writeScheduleSheet(f *excelize.File, matches []schedule.ScheduledMatch) error {
	sheet := SheetSchedule
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeaders(f, sheet, ScheduleHeaders)

	centered, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 14, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, m := range matches {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), m.Number)
		f.SetCellValue(sheet, cellRef(2, row), m.Court)
		f.SetCellValue(sheet, cellRef(3, row), m.Time.Format(TimeLayout))
		f.SetCellValue(sheet, cellRef(4, row), string(m.Type))
		f.SetCellValue(sheet, cellRef(5, row), m.Team1.String())
		f.SetCellValue(sheet, cellRef(6, row), m.Team2.String())
		if m.HasScore() {
			f.SetCellValue(sheet, cellRef(7, row), *m.Score1)
			f.SetCellValue(sheet, cellRef(8, row), *m.Score2)
		}
		if centered != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(ScheduleHeaders), row), centered)
		}
	}

	widths := map[string]float64{"A": 6, "B": 8, "C": 10, "D": 10, "E": 30, "F": 30, "G": 10, "H": 10}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	// Rows with only one score entered are highlighted.
	lastRow := len(matches) + 1
	amber, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFEB9C"}},
	})
	f.SetConditionalFormat(sheet, fmt.Sprintf("G2:H%d", lastRow), []excelize.ConditionalFormatOptions{
		{
			Type:     "formula",
			Criteria: `OR(AND($G2="",$H2<>""),AND($G2<>"",$H2=""))`,
			Format:   &amber,
		},
	})
	return nil
}

func writeParticipantSheets(f *excelize.File, s *session.Session) error {
	headers := []string{"Match", "Time", "Court", "Partner", "Opponents", "Result"}
	sheets := sheetNames(s.Roster.Names())
	for _, name := range s.Roster.Names() {
		sheet := sheets[name]
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("sheet for %s: %w", name, err)
		}
		writeHeaders(f, sheet, headers)

		row := 2
		for _, m := range s.Matches {
			if !m.Involves(name) {
				continue
			}
			own, other := m.Team1, m.Team2
			ownScore, otherScore := m.Score1, m.Score2
			if !own.Contains(name) {
				own, other = other, own
				ownScore, otherScore = otherScore, ownScore
			}
			var partner string
			for _, p := range own.Members() {
				if p != name {
					partner = p
				}
			}
			f.SetCellValue(sheet, cellRef(1, row), m.Label())
			f.SetCellValue(sheet, cellRef(2, row), m.Time.Format(TimeLayout))
			f.SetCellValue(sheet, cellRef(3, row), m.Court)
			f.SetCellValue(sheet, cellRef(4, row), partner)
			f.SetCellValue(sheet, cellRef(5, row), other.String())
			if m.HasScore() {
				f.SetCellValue(sheet, cellRef(6, row), resultText(*ownScore, *otherScore))
			}
			row++
		}

		widths := map[string]float64{"A": 12, "B": 10, "C": 8, "D": 20, "E": 30, "F": 12}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}
	return nil
}

func resultText(own, other int) string {
	switch {
	case own > other:
		return fmt.Sprintf("W %d-%d", own, other)
	case own < other:
		return fmt.Sprintf("L %d-%d", own, other)
	default:
		return fmt.Sprintf("D %d-%d", own, other)
	}
}

func writeCoverageSheet(f *excelize.File, report *session.Report) error {
	sheet := SheetCoverage
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeaders(f, sheet, []string{"Participant", "Matches", "Target", "Status"})

	under := make(map[string]bool)
	for _, name := range report.Coverage.Under {
		under[name] = true
	}
	row := 2
	for _, name := range pie.Sort(pie.Keys(report.Coverage.Counts)) {
		status := "ok"
		if under[name] {
			status = "under"
		}
		f.SetCellValue(sheet, cellRef(1, row), name)
		f.SetCellValue(sheet, cellRef(2, row), report.Coverage.Counts[name])
		f.SetCellValue(sheet, cellRef(3, row), report.Coverage.Target)
		f.SetCellValue(sheet, cellRef(4, row), status)
		row++
	}
	for _, name := range report.SitOut {
		f.SetCellValue(sheet, cellRef(1, row), name)
		f.SetCellValue(sheet, cellRef(2, row), 0)
		f.SetCellValue(sheet, cellRef(4, row), "sits out")
		row++
	}

	if row > 2 {
		redFill, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
		})
		f.SetConditionalFormat(sheet, fmt.Sprintf("A2:D%d", row-1), []excelize.ConditionalFormatOptions{
			{Type: "formula", Criteria: `$D2<>"ok"`, Format: &redFill},
		})
	}

	if repeated := repeatedMatchups(report.Repeats); len(repeated) > 0 {
		row++
		f.SetCellValue(sheet, cellRef(1, row), "Repeated matchups")
		f.SetCellValue(sheet, cellRef(2, row), "Times")
		for _, label := range pie.Sort(pie.Keys(repeated)) {
			row++
			f.SetCellValue(sheet, cellRef(1, row), label)
			f.SetCellValue(sheet, cellRef(2, row), repeated[label])
		}
		row++
	}

	if len(report.Warnings) > 0 {
		row++
		f.SetCellValue(sheet, cellRef(1, row), "Warnings")
		for _, w := range report.Warnings {
			row++
			f.SetCellValue(sheet, cellRef(1, row), w)
		}
	}

	f.SetColWidth(sheet, "A", "A", 24)
	f.SetColWidth(sheet, "B", "D", 12)
	return nil
}

func repeatedMatchups(repeats map[schedule.CandidateKey]int) map[string]int {
	out := make(map[string]int)
	for key, n := range repeats {
		if n > 1 {
			out[key.String()] = n
		}
	}
	return out
}

// WriteStandings replaces the Standings sheet with the given records.
func WriteStandings(f *excelize.File, records []ledger.Record) error {
	sheet := SheetStandings
	if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("replacing standings: %w", err)
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeaders(f, sheet, []string{"Rank", "Participant", "Played", "W", "L", "D", "Points For", "Points Against", "Diff", "Win %"})

	for i, r := range records {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), i+1)
		f.SetCellValue(sheet, cellRef(2, row), r.Name)
		f.SetCellValue(sheet, cellRef(3, row), r.Played)
		f.SetCellValue(sheet, cellRef(4, row), r.Wins)
		f.SetCellValue(sheet, cellRef(5, row), r.Losses)
		f.SetCellValue(sheet, cellRef(6, row), r.Draws)
		f.SetCellValue(sheet, cellRef(7, row), r.PointsFor)
		f.SetCellValue(sheet, cellRef(8, row), r.PointsAgainst)
		f.SetCellValue(sheet, cellRef(9, row), r.PointDiff())
		f.SetCellValue(sheet, cellRef(10, row), fmt.Sprintf("%.0f%%", r.WinRate()*100))
	}
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "G", "H", 14)
	return nil
}

// Row is one match read back from the Schedule sheet, with its score cells
// as entered.
type Row struct {
	Row    int
	Match  schedule.ScheduledMatch
	Score1 string
	Score2 string
}

// ReadMatches parses the Schedule sheet. Score cells are returned raw so a
// bad entry can be reported without losing the rest.
func ReadMatches(f *excelize.File) ([]Row, error) {
	rows, err := f.GetRows(SheetSchedule)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", SheetSchedule, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet is empty", SheetSchedule)
	}
	for i, h := range ScheduleHeaders {
		if i >= len(rows[0]) || strings.TrimSpace(rows[0][i]) != h {
			return nil, fmt.Errorf("%s sheet: column %s should be %q", SheetSchedule, colLetter(i+1), h)
		}
	}

	var out []Row
	for i, cells := range rows[1:] {
		rowNum := i + 2
		if len(cells) == 0 || strings.TrimSpace(cells[0]) == "" {
			continue
		}
		cell := func(col int) string {
			if col < len(cells) {
				return strings.TrimSpace(cells[col])
			}
			return ""
		}

		m, err := parseMatch(cell)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		out = append(out, Row{Row: rowNum, Match: m, Score1: cell(6), Score2: cell(7)})
	}
	return out, nil
}

func parseMatch(cell func(int) string) (schedule.ScheduledMatch, error) {
	var m schedule.ScheduledMatch
	var err error
	if m.Number, err = strconv.Atoi(cell(0)); err != nil {
		return m, fmt.Errorf("invalid match number %q", cell(0))
	}
	if m.Court, err = strconv.Atoi(cell(1)); err != nil {
		return m, fmt.Errorf("invalid court %q", cell(1))
	}
	if m.Time, err = time.Parse(TimeLayout, cell(2)); err != nil {
		return m, fmt.Errorf("invalid time %q", cell(2))
	}
	if m.Type, err = pairing.ParseMatchType(cell(3)); err != nil {
		return m, err
	}
	if m.Team1, err = pairing.ParseTeam(cell(4)); err != nil {
		return m, err
	}
	if m.Team2, err = pairing.ParseTeam(cell(5)); err != nil {
		return m, err
	}
	return m, nil
}

// Entries turns the score cells of rows into ledger entries keyed by match
// index. Rows with both cells blank are left out.
func Entries(rows []Row) map[int]string {
	entries := make(map[int]string)
	for i, r := range rows {
		if r.Score1 == "" && r.Score2 == "" {
			continue
		}
		entries[i] = r.Score1 + ":" + r.Score2
	}
	return entries
}

// Matches returns the parsed matches of rows.
func Matches(rows []Row) []schedule.ScheduledMatch {
	out := make([]schedule.ScheduledMatch, len(rows))
	for i, r := range rows {
		out[i] = r.Match
	}
	return out
}

// WriteScores writes recorded scores back into the Schedule sheet.
func WriteScores(f *excelize.File, rows []Row, matches []schedule.ScheduledMatch) {
	for i, r := range rows {
		if i >= len(matches) || !matches[i].HasScore() {
			continue
		}
		f.SetCellValue(SheetSchedule, cellRef(7, r.Row), *matches[i].Score1)
		f.SetCellValue(SheetSchedule, cellRef(8, r.Row), *matches[i].Score2)
	}
}

const maxSheetName = 31

// sheetName makes a participant name usable as a sheet name.
func sheetName(name string) string {
	s := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	for _, reserved := range []string{SheetSchedule, SheetCoverage, SheetStandings} {
		if strings.EqualFold(s, reserved) {
			s += " (player)"
		}
	}
	return truncate(s, maxSheetName)
}

// sheetNames gives every participant a distinct sheet. Excel compares sheet
// names case-insensitively, so names that collide after folding or
// truncation get a numbered suffix.
func sheetNames(names []string) map[string]string {
	taken := make(map[string]bool)
	for _, s := range []string{SheetSchedule, SheetCoverage, SheetStandings, "Sheet1"} {
		taken[strings.ToLower(s)] = true
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		base := sheetName(name)
		sheet := base
		for n := 2; taken[strings.ToLower(sheet)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			sheet = truncate(base, maxSheetName-len(suffix)) + suffix
		}
		taken[strings.ToLower(sheet)] = true
		out[name] = sheet
	}
	return out
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
