package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ms-gatepass/internal/models"
)

var (
	ErrEditUnsupported   = errors.New("editing passes is not supported")
	ErrInvalidPageSize   = errors.New("rows per page must be 5, 10 or 15")
	ErrNoVisibleColumns  = errors.New("at least one column must stay visible")
	ErrNoPendingDelete   = errors.New("no delete awaiting confirmation")
	ErrDeleteInProgress  = errors.New("another delete is in progress")
	ErrPassNotInSnapshot = errors.New("pass is not in the table")
)

// PageSizes are the selectable rows-per-page values
var PageSizes = []int{5, 10, 15}

const NotificationTTL = 3 * time.Second

const (
	msgDeleteSucceeded = "The visitor pass has been successfully deleted."
	msgDeleteFailed    = "Failed to delete the pass. Please try again."
	msgLoadFailed      = "Failed to load passes. Please refresh the page."
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("unknown sort direction %q", s)
	}
}

type SortDescriptor struct {
	Column    Column
	Direction Direction
}

type PassSource interface {
	ListPasses(ctx context.Context) ([]models.VisitorPass, error)
}

type PassDeleter interface {
	DeletePass(ctx context.Context, id int64) error
}

// Controller is the state of one passes table view
type Controller struct {
	mu sync.Mutex

	source  PassSource
	deleter PassDeleter

	passes      []models.VisitorPass
	filter      string
	sort        SortDescriptor
	rowsPerPage int
	page        int
	visible     map[Column]bool

	deleteState DeleteState
	pendingID   int64

	notification *Notification

	// OnDeleteTransition observes every delete state change
	OnDeleteTransition func(from, to DeleteState)
	Now                func() time.Time
}

func NewController(source PassSource, deleter PassDeleter) *Controller {
	c := &Controller{
		source:      source,
		deleter:     deleter,
		sort:        SortDescriptor{Column: ColumnID, Direction: Descending},
		rowsPerPage: PageSizes[0],
		page:        1,
		visible:     make(map[Column]bool),
		Now:         time.Now,
	}
	for _, col := range DefaultVisibleColumns {
		c.visible[col] = true
	}
	return c
}

// Load fetches the snapshot once; there is no live refresh afterwards
func (c *Controller) Load(ctx context.Context) error {
	passes, err := c.source.ListPasses(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.notify(NotificationError, msgLoadFailed)
		return err
	}
	c.passes = passes
	c.page = 1
	return nil
}

// SetFilter sets the case-insensitive search text and returns to page 1
func (c *Controller) SetFilter(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = text
	c.page = 1
}

func (c *Controller) Filter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) SetSort(column Column, direction Direction) error {
	if !column.Sortable() {
		return fmt.Errorf("column %q is not sortable", column)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sort = SortDescriptor{Column: column, Direction: direction}
	return nil
}

func (c *Controller) Sort() SortDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

func (c *Controller) SetRowsPerPage(n int) error {
	for _, size := range PageSizes {
		if size == n {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.rowsPerPage = n
			c.page = 1
			return nil
		}
	}
	return ErrInvalidPageSize
}

func (c *Controller) RowsPerPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rowsPerPage
}

func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Pages is the page count of the filtered set, 0 when nothing matches
func (c *Controller) Pages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages(len(c.filtered()))
}

func (c *Controller) pages(n int) int {
	return (n + c.rowsPerPage - 1) / c.rowsPerPage
}

func (c *Controller) NextPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page < c.pages(len(c.filtered())) {
		c.page++
	}
}

func (c *Controller) PreviousPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page > 1 {
		c.page--
	}
}

// SetPage jumps to page, clamped to [1, Pages()]
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.pages(len(c.filtered()))
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	c.page = page
}

// Total is the size of the whole snapshot
func (c *Controller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.passes)
}

func (c *Controller) FilteredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filtered())
}

// Items returns the current page: filtered, then sorted, then sliced
func (c *Controller) Items() []models.VisitorPass {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := c.filtered()
	sortDesc := c.sort
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := compare(sortDesc.Column, rows[i], rows[j])
		if sortDesc.Direction == Descending {
			return cmp > 0
		}
		return cmp < 0
	})

	start := (c.page - 1) * c.rowsPerPage
	if start >= len(rows) {
		return []models.VisitorPass{}
	}
	end := start + c.rowsPerPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func (c *Controller) filtered() []models.VisitorPass {
	out := make([]models.VisitorPass, 0, len(c.passes))
	needle := strings.ToLower(c.filter)
	for _, p := range c.passes {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Email), needle) ||
			strings.Contains(strings.ToLower(p.Phone), needle) {
			out = append(out, p)
		}
	}
	return out
}

// SetVisibleColumns replaces the visible set; it may not be empty
func (c *Controller) SetVisibleColumns(names ...string) error {
	if len(names) == 0 {
		return ErrNoVisibleColumns
	}
	visible := make(map[Column]bool, len(names))
	for _, name := range names {
		col, err := parseColumn(name)
		if err != nil {
			return err
		}
		visible[col] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = visible
	return nil
}

// VisibleColumns returns the visible columns in display order
func (c *Controller) VisibleColumns() []Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	cols := make([]Column, 0, len(c.visible))
	for _, col := range AllColumns {
		if c.visible[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// Edit is offered in the row actions but passes cannot be changed once issued
func (c *Controller) Edit(id int64) error {
	return ErrEditUnsupported
}
