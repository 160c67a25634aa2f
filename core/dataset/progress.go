package dataset

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress wraps an mpb bar. A nil *progress is a no-op so callers never need
// to check whether progress output was requested.
type progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func startProgress(w io.Writer, name string, total int) *progress {
	if w == nil {
		return nil
	}
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(64))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	return &progress{p: p, bar: bar}
}

func (pr *progress) Increment() {
	if pr == nil {
		return
	}
	pr.bar.Increment()
}

// Done flushes the bar. A bar that did not reach its total is aborted so Wait
// returns.
func (pr *progress) Done() {
	if pr == nil {
		return
	}
	if !pr.bar.Completed() {
		pr.bar.Abort(false)
	}
	pr.p.Wait()
}
