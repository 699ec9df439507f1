package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// RowProgress reports rows streamed through a chunked operation. With a
// known total it draws a bar and redraws only when the whole percentage
// changes; otherwise it shows a running row and chunk count.
type RowProgress struct {
	mu      sync.Mutex
	w       io.Writer
	title   string
	total   int64
	rows    int64
	chunks  int
	width   int
	lastPct int
	start   time.Time
	now     func() time.Time
}

// NewRowProgress creates a progress display for title. A non-positive
// total means unknown.
func NewRowProgress(w io.Writer, title string, total int64) *RowProgress {
	return &RowProgress{
		w:       w,
		title:   title,
		total:   total,
		width:   40,
		lastPct: -1,
		start:   time.Now(),
		now:     time.Now,
	}
}

// Observe records one processed chunk of rows. Its signature matches the
// fingerprint service's chunk observer.
func (p *RowProgress) Observe(rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows += int64(rows)
	p.chunks++

	if p.total > 0 {
		pct := p.percent()
		if pct == p.lastPct {
			return
		}
		p.lastPct = pct
	}
	p.render()
}

// Rows returns the number of rows observed so far.
func (p *RowProgress) Rows() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rows
}

// Finish draws the final state with the elapsed time and ends the line.
func (p *RowProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	elapsed := p.now().Sub(p.start).Round(time.Millisecond)
	fmt.Fprintf(p.w, " in %s\n", elapsed)
}

func (p *RowProgress) percent() int {
	if p.total <= 0 {
		return 0
	}
	pct := int(p.rows * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (p *RowProgress) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s rows (%d chunks)", p.title, humanize.Comma(p.rows), p.chunks)
		return
	}

	pct := p.percent()
	filled := p.width * pct / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(p.w, "\r%s [%s] %3d%% (%s/%s rows)",
		p.title,
		bar,
		pct,
		humanize.Comma(p.rows),
		humanize.Comma(p.total),
	)
}
