package source

// Column names of the history table.
const (
	ColumnWage  = "Wage"
	ColumnDate  = "Date"
	ColumnTotal = "Total_Expense"
)

// Period layouts accepted when reading tables.
const (
	MonthLayout = "2006-01"
	DayLayout   = "2006-01-02"
)

// indexHeaders are header names treated as the leading row-index column.
var indexHeaders = map[string]bool{
	"":           true,
	"index":      true,
	"Unnamed: 0": true,
}

// DiscoveredFile describes a history file found on disk.
type DiscoveredFile struct {
	Path    string
	MtimeNs int64
	Size    int64
}

// RawTable is the parsed form of the plain-text expense listing: one row
// per month with a month index, category values and a total.
type RawTable struct {
	Categories []string
	Months     []int       // 1-12, one per row
	Values     [][]float64 // [row][category]
	Totals     []float64
}

// Len returns the number of data rows.
func (t RawTable) Len() int { return len(t.Months) }
