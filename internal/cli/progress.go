package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// Progress reports how many of a known number of inputs have been handled.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar for total items. A total below two
// renders nothing, since a single file finishes before a bar is useful.
func NewProgress(w io.Writer, total int, description string) *Progress {
	if total < 2 {
		return &Progress{}
	}
	return &Progress{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[green][bold]"+description+"[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(w); err != nil {
					slog.Warn("Failed to write newline after progress bar", "error", err)
				}
			}),
		),
	}
}

// Step marks one item as done.
func (p *Progress) Step() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Describe changes the label shown next to the bar.
func (p *Progress) Describe(description string) {
	if p.bar != nil {
		p.bar.Describe("[green][bold]" + description + "[reset]")
	}
}
