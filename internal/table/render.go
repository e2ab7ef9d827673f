package table

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes the current page, the pager line and any live notification
func (c *Controller) Render(w io.Writer) error {
	cols := c.VisibleColumns()
	items := c.Items()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	headers := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = col.Header()
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, p := range items {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = col.Cell(p)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sortDesc := c.Sort()
	fmt.Fprintf(w, "\npage %d of %d, %d of %d passes, sorted by %s %s\n",
		c.Page(), c.Pages(), c.FilteredCount(), c.Total(), sortDesc.Column, sortDesc.Direction)

	if n := c.Notification(); n != nil {
		fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Message)
	}
	return nil
}
