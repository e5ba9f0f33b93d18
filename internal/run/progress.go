package run

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Progress reports periodic evaluation progress to a run context. The
// total can grow mid-run when a synchronous step completes more work
// than the remaining budget; SetTotal clamps current progress into the
// new range.
type Progress struct {
	ctx      *Context
	label    string
	total    int
	current  int
	started  time.Time
	lastLog  time.Time
	interval time.Duration
}

func NewProgress(ctx *Context, label string, total int) *Progress {
	return &Progress{
		ctx:      ctx,
		label:    label,
		total:    total,
		started:  time.Now(),
		interval: 5 * time.Second,
	}
}

// SetTotal adjusts the target, clamping current progress into range.
func (p *Progress) SetTotal(total int) {
	p.total = total
	if p.current > total {
		p.current = total
	}
}

// Add advances progress and emits a log line at most once per interval.
func (p *Progress) Add(n int) {
	p.current += n
	if p.current > p.total {
		p.current = p.total
	}
	if time.Since(p.lastLog) < p.interval && p.current < p.total {
		return
	}
	p.lastLog = time.Now()
	p.ctx.Printf("%s: %s/%s (%.1f%%), elapsed %s",
		p.label,
		humanize.Comma(int64(p.current)),
		humanize.Comma(int64(p.total)),
		100*float64(p.current)/float64(max(p.total, 1)),
		humanize.RelTime(p.started, time.Now(), "", ""))
}

// Current reports the progress count.
func (p *Progress) Current() int { return p.current }
