package models

const (
	ColumnName     = "name"
	ColumnOptions  = "options"
	ColumnAnswer   = "answer"
	ColumnFeedback = "feedback"
)

type ColumnKind string

const (
	KindText    ColumnKind = "text"
	KindInteger ColumnKind = "integer"
	KindFloat   ColumnKind = "float"
	KindSelect  ColumnKind = "select"
)

// DefaultValue is the value an empty cell of this kind starts with.
func (k ColumnKind) DefaultValue() string {
	switch k {
	case KindInteger, KindFloat:
		return "0"
	default:
		return ""
	}
}

type Option struct {
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// Column is one fixed entry of the answer sheet schema.
type Column struct {
	Column    string     `json:"column"`
	Kind      ColumnKind `json:"kind"`
	Label     string     `json:"label"`
	MaxLength int        `json:"max_length"`
	Editable  bool       `json:"editable"`
	Visible   bool       `json:"visible"`
	Options   []Option   `json:"options,omitempty"`
}

// Clone returns a copy that shares no option slice with c.
func (c Column) Clone() Column {
	out := c
	if c.Options != nil {
		out.Options = make([]Option, len(c.Options))
		copy(out.Options, c.Options)
	}
	return out
}

// OptionNames lists the candidate names of a select column.
func (c Column) OptionNames() []string {
	names := make([]string, len(c.Options))
	for i, o := range c.Options {
		names[i] = o.Name
	}
	return names
}

// Cell pairs a row value with the display metadata of its column.
type Cell struct {
	Column    string     `json:"column"`
	Kind      ColumnKind `json:"kind"`
	Value     string     `json:"value"`
	Label     string     `json:"label"`
	MaxLength int        `json:"max_length"`
	Editable  bool       `json:"editable"`
	Visible   bool       `json:"visible"`
	Options   []Option   `json:"options,omitempty"`
}

// MergeColumnIntoCell decorates cell with the metadata of col. The column is never modified;
// select options are copied and flagged selected when their name equals the cell value. An
// empty value selects the first (placeholder) option.
func MergeColumnIntoCell(cell Cell, col Column) Cell {
	out := Cell{
		Column:    col.Column,
		Kind:      col.Kind,
		Value:     cell.Value,
		Label:     col.Label,
		MaxLength: col.MaxLength,
		Editable:  col.Editable,
		Visible:   col.Visible,
	}
	if col.Kind == KindSelect {
		out.Options = SelectOptions(col.OptionNames(), cell.Value)
	}
	return out
}

// SelectOptions builds an option list with exactly the matching entry selected.
func SelectOptions(names []string, value string) []Option {
	opts := make([]Option, len(names))
	matched := false
	for i, name := range names {
		opts[i] = Option{Name: name, Selected: name == value}
		matched = matched || opts[i].Selected
	}
	if !matched && value == "" && len(opts) > 0 {
		opts[0].Selected = true
	}
	return opts
}

// Truncated returns the value cut to MaxLength characters for text cells.
func (c Cell) Truncated() string {
	if c.Kind != KindText || c.MaxLength <= 0 {
		return c.Value
	}
	runes := []rune(c.Value)
	if len(runes) <= c.MaxLength {
		return c.Value
	}
	return string(runes[:c.MaxLength])
}
