// Package loader parses daily metrics CSV into a typed Row Set.
package loader

import (
	"strings"

	"github.com/okian/quickshop/internal/domain/model"
)

// Kind is the semantic type a column coerces to.
type Kind int

// Column kinds.
const (
	KindDate  Kind = iota // calendar date
	KindCount             // non-negative integer
	KindMoney             // non-negative decimal
	KindLabel             // non-blank text
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindCount:
		return "count"
	case KindMoney:
		return "money"
	case KindLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Column is one required column of a Schema.
type Column struct {
	Name string
	Kind Kind
}

// Schema is the ordered list of required columns.
type Schema []Column

// DefaultSchema describes the dashboard input file.
var DefaultSchema = Schema{
	{Name: model.ColDate, Kind: KindDate},
	{Name: model.ColVisitors, Kind: KindCount},
	{Name: model.ColOrders, Kind: KindCount},
	{Name: model.ColRevenue, Kind: KindMoney},
	{Name: model.ColSegment, Kind: KindLabel},
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Resolve maps each schema column to its index in header. Header cells are
// trimmed and a leading UTF-8 BOM is ignored; extra columns are allowed.
// It returns a *SchemaError listing every missing column.
func (s Schema) Resolve(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := make([]int, len(s))
	var missing []string
	for i, c := range s {
		p, ok := pos[c.Name]
		if !ok {
			missing = append(missing, c.Name)
			continue
		}
		idx[i] = p
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Required: s.Names()}
	}
	return idx, nil
}
