package tracker

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

// Timeline writes a plain-text view of an order's progress.
type Timeline struct {
	w   io.Writer
	now func() time.Time
}

func NewTimeline(w io.Writer) *Timeline {
	return &Timeline{w: w, now: time.Now}
}

func (t *Timeline) Render(snapshot *domain.Order, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
		_, _ = fmt.Fprintln(t.w, "Order not found")
		return
	}

	if snapshot == nil {
		if err != nil {
			_, _ = fmt.Fprintf(t.w, "Waiting for order: %v\n", err)
		}
		return
	}

	_, _ = fmt.Fprintf(t.w, "Order %s  total %s  placed %s ago\n",
		snapshot.ID, snapshot.Total.StringFixed(2), snapshot.Elapsed(t.now()).Round(time.Second))

	current := snapshot.Status.Rank()
	for _, status := range domain.Statuses() {
		mark := " "
		switch {
		case status.Rank() < current:
			mark = "x"
		case status.Rank() == current:
			mark = ">"
		}
		_, _ = fmt.Fprintf(t.w, "  [%s] %s\n", mark, status)
	}

	if err != nil {
		_, _ = fmt.Fprintf(t.w, "  (stale: %v)\n", err)
	}
}
