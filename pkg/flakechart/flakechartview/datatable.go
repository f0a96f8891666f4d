package flakechartview

import (
	"fmt"
	"time"
)

// Column types and roles understood by google.visualization.DataTable.
const (
	ColumnDate   = "date"
	ColumnNumber = "number"
	ColumnString = "string"

	RoleTooltip = "tooltip"
)

type ColumnProperties struct {
	HTML bool `json:"html"`
}

type Column struct {
	Type  string            `json:"type"`
	Label string            `json:"label,omitempty"`
	Role  string            `json:"role,omitempty"`
	P     *ColumnProperties `json:"p,omitempty"`
}

// Cell holds a single value. A nil V is drawn as a gap in the series.
type Cell struct {
	V interface{} `json:"v"`
}

type Row struct {
	C []Cell `json:"c"`
}

// DataTable is the JSON literal form accepted by the google.visualization.DataTable constructor.
type DataTable struct {
	Cols []Column `json:"cols"`
	Rows []Row    `json:"rows"`
}

func (d *DataTable) addColumn(typ, label string) {
	d.Cols = append(d.Cols, Column{Type: typ, Label: label})
}

func (d *DataTable) addTooltipColumn() {
	d.Cols = append(d.Cols, Column{Type: ColumnString, Role: RoleTooltip, P: &ColumnProperties{HTML: true}})
}

func (d *DataTable) addRow(values ...interface{}) {
	row := Row{C: make([]Cell, 0, len(values))}
	for _, v := range values {
		row.C = append(row.C, Cell{V: v})
	}
	d.Rows = append(d.Rows, row)
}

// dateValue renders date in the "Date(year, month, day)" form, months counting from zero.
func dateValue(date time.Time) string {
	return fmt.Sprintf("Date(%d, %d, %d)", date.Year(), int(date.Month())-1, date.Day())
}

type Axis struct {
	Title    string   `json:"title"`
	MinValue *float64 `json:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty"`
}

type Series struct {
	TargetAxisIndex int `json:"targetAxisIndex"`
}

type TooltipOptions struct {
	Trigger string `json:"trigger"`
	IsHTML  bool   `json:"isHtml"`
}

// Options is the subset of LineChart options the dashboard sets. Sizing is left to the browser.
type Options struct {
	Title      string         `json:"title"`
	PointSize  int            `json:"pointSize"`
	PointShape string         `json:"pointShape"`
	Series     map[int]Series `json:"series,omitempty"`
	VAxes      map[int]Axis   `json:"vAxes"`
	Colors     []string       `json:"colors,omitempty"`
	Tooltip    TooltipOptions `json:"tooltip"`
}

func newOptions(title string, axes ...Axis) Options {
	o := Options{
		Title:      title,
		PointSize:  10,
		PointShape: "circle",
		VAxes:      map[int]Axis{},
		Tooltip:    TooltipOptions{Trigger: "selection", IsHTML: true},
	}
	for i, axis := range axes {
		o.VAxes[i] = axis
	}
	return o
}

func percentAxis(title string) Axis {
	low, high := 0.0, 100.0
	return Axis{Title: title, MinValue: &low, MaxValue: &high}
}

// Chart is a single line chart of the dashboard.
type Chart struct {
	ID      string    `json:"id"`
	Data    DataTable `json:"data"`
	Options Options   `json:"options"`
}
