// Package frame wraps gota dataframes for previewing tabular files: frames are
// loaded from string records with type detection, read through formats
// registered by extension, and rendered without row labels.
package frame

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// missingCell is rendered for empty or absent cells.
const missingCell = "NaN"

// naValues are read as missing, as a dataframe CSV reader does by default.
var naValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<NA>", "#N/A"}

// Frame is an in-memory table of rows under named columns
type Frame struct {
	columns []string
	df      dataframe.DataFrame
}

// New loads rows under columns into a gota dataframe, detecting column types.
// Rows shorter than the header are padded with missing cells; extra cells are
// dropped. Blank or repeated column names are made unique.
func New(columns []string, rows [][]string) (*Frame, error) {
	f := &Frame{columns: uniqueColumns(columns)}
	if len(f.columns) == 0 || len(rows) == 0 {
		return f, nil
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, f.columns)
	for _, row := range rows {
		records = append(records, normalizeRow(row, len(f.columns)))
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", df.Err)
	}
	f.df = df
	return f, nil
}

func normalizeRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func uniqueColumns(columns []string) []string {
	out := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

// Columns returns the column names in order
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if len(f.columns) == 0 {
		return 0
	}
	return f.df.Nrow()
}

// Types returns the detected type of each column
func (f *Frame) Types() []series.Type {
	if f.Len() == 0 {
		types := make([]series.Type, len(f.columns))
		for i := range types {
			types[i] = series.String
		}
		return types
	}
	return f.df.Types()
}

// Row returns row i as rendered cells
func (f *Frame) Row(i int) []string {
	return f.cells()[i]
}

// Head returns a frame holding at most the first n rows
func (f *Frame) Head(n int) *Frame {
	if n >= f.Len() {
		return f
	}
	if n <= 0 {
		return &Frame{columns: f.columns}
	}
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	return &Frame{columns: f.columns, df: f.df.Subset(indexes)}
}

// cells renders every value row-major: floats share one precision per
// column, missing values print as NaN.
func (f *Frame) cells() [][]string {
	rows := make([][]string, f.Len())
	for i := range rows {
		rows[i] = make([]string, len(f.columns))
	}
	if len(rows) == 0 {
		return rows
	}
	for j, name := range f.columns {
		for i, cell := range renderSeries(f.df.Col(name)) {
			rows[i][j] = cell
		}
	}
	return rows
}

func renderSeries(s series.Series) []string {
	switch s.Type() {
	case series.Float:
		return formatFloats(s.Float())
	case series.Bool:
		cells := s.Records()
		for i, cell := range cells {
			if cell != missingCell {
				cells[i] = strings.ToUpper(cell[:1]) + cell[1:]
			}
		}
		return cells
	default:
		cells := s.Records()
		for i, cell := range cells {
			if cell == "" {
				cells[i] = missingCell
			}
		}
		return cells
	}
}

// formatFloats prints every value with the fewest decimals that represent
// all of them exactly, and at least one.
func formatFloats(values []float64) []string {
	decimals := 1
	for _, v := range values {
		if v != v {
			continue
		}
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > decimals {
			decimals = len(s) - dot - 1
		}
	}
	cells := make([]string, len(values))
	for i, v := range values {
		if v != v {
			cells[i] = missingCell
			continue
		}
		cells[i] = strconv.FormatFloat(v, 'f', decimals, 64)
	}
	return cells
}

// String renders the frame without row labels. Every column is right-aligned
// to its widest cell and columns are separated by one space.
func (f *Frame) String() string {
	rows := f.cells()
	widths := make([]int, len(f.columns))
	for i, name := range f.columns {
		widths[i] = utf8.RuneCountInString(name)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderLine(f.columns, widths))
	for _, row := range rows {
		lines = append(lines, renderLine(row, widths))
	}
	return strings.Join(lines, "\n")
}

func renderLine(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
		b.WriteString(cell)
	}
	return b.String()
}
