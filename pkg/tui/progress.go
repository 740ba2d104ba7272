package tui

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress reports walked cases on a progress bar. The bar is created on
// the first update, once the pool size is known.
type Progress struct {
	w           io.Writer
	description string
	bar         *progressbar.ProgressBar
	total       int
}

// NewProgress creates a progress reporter writing to w.
func NewProgress(w io.Writer, description string) *Progress {
	return &Progress{w: w, description: description}
}

func (p *Progress) newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(p.description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Update matches the generator's progress callback.
func (p *Progress) Update(done, total int) {
	if p.bar == nil || p.total != total {
		p.bar = p.newBar(total)
		p.total = total
	}
	p.bar.Set(done)
	if done >= total {
		p.bar.Finish()
	}
}
