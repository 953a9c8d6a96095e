// Package progress reports bulk-load progress against a known row total.
// Reporters are purely observational: they never influence control flow or
// the committed result.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives absolute load positions. Implementations may coalesce
// repaints, but after Finish the displayed position must equal the last
// Advance position.
type Reporter interface {
	// Advance moves the reporter to an absolute position (rows done so far).
	Advance(position int64)
	// Finish completes the reporter with a closing message.
	Finish(message string)
}

// Nop returns a Reporter that discards everything. It is the default for
// embedded use where console output is unwanted.
func Nop() Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) Advance(int64) {}
func (nopReporter) Finish(string) {}

// out is where bars render. Tests point it at a buffer.
var out io.Writer = os.Stderr

// bar renders a console progress bar: elapsed time, a fixed-width bar, and
// the current/total row count.
type bar struct {
	pb *progressbar.ProgressBar
}

// NewBar returns a console Reporter sized to total rows. A total of zero is
// valid: the bar renders complete immediately, since there is nothing to do.
func NewBar(total int64, description string) Reporter {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(65 * time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerPadding: "-",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	}

	if total <= 0 {
		pb := progressbar.NewOptions64(1, opts...)
		_ = pb.Set64(1)
		return &bar{pb: pb}
	}

	opts = append(opts, progressbar.OptionShowCount())
	return &bar{pb: progressbar.NewOptions64(total, opts...)}
}

func (b *bar) Advance(position int64) {
	_ = b.pb.Set64(position)
}

func (b *bar) Finish(message string) {
	b.pb.Describe(message)
	_ = b.pb.Finish()
}
