package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ms-gatepass/internal/models"
)

type Column string

const (
	ColumnID        Column = "id"
	ColumnName      Column = "name"
	ColumnEmail     Column = "email"
	ColumnPhone     Column = "phone"
	ColumnDateStart Column = "dateStart"
	ColumnDateEnd   Column = "dateEnd"
	ColumnReason    Column = "reason"
	ColumnAddress   Column = "address"
	ColumnActions   Column = "actions"
)

// AllColumns is the fixed column set in display order
var AllColumns = []Column{
	ColumnID, ColumnName, ColumnEmail, ColumnPhone, ColumnDateStart,
	ColumnDateEnd, ColumnReason, ColumnAddress, ColumnActions,
}

var DefaultVisibleColumns = []Column{
	ColumnName, ColumnPhone, ColumnDateStart, ColumnDateEnd, ColumnReason, ColumnActions,
}

const displayDateLayout = "2006-01-02 15:04"

func (c Column) Header() string {
	switch c {
	case ColumnDateStart:
		return "START DATE"
	case ColumnDateEnd:
		return "END DATE"
	default:
		return strings.ToUpper(string(c))
	}
}

func (c Column) valid() bool {
	for _, col := range AllColumns {
		if col == c {
			return true
		}
	}
	return false
}

// Sortable reports whether rows can be ordered by the column
func (c Column) Sortable() bool {
	return c.valid() && c != ColumnActions
}

// Cell formats the column value of a pass for display
func (c Column) Cell(p models.VisitorPass) string {
	switch c {
	case ColumnID:
		return strconv.FormatInt(p.ID, 10)
	case ColumnName:
		return p.Name
	case ColumnEmail:
		return p.Email
	case ColumnPhone:
		return p.Phone
	case ColumnDateStart:
		return p.DateStart.Format(displayDateLayout)
	case ColumnDateEnd:
		return p.DateEnd.Format(displayDateLayout)
	case ColumnReason:
		return p.Reason
	case ColumnAddress:
		return p.Address
	case ColumnActions:
		return "view | edit | delete"
	default:
		return ""
	}
}

// compare orders two passes on the raw value of the column
func compare(c Column, a, b models.VisitorPass) int {
	switch c {
	case ColumnID:
		return compareInt64(a.ID, b.ID)
	case ColumnDateStart:
		return compareTime(a.DateStart, b.DateStart)
	case ColumnDateEnd:
		return compareTime(a.DateEnd, b.DateEnd)
	default:
		return strings.Compare(c.Cell(a), c.Cell(b))
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

func parseColumn(name string) (Column, error) {
	c := Column(name)
	if !c.valid() {
		return "", fmt.Errorf("unknown column %q", name)
	}
	return c, nil
}
