package utils

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"
)

var spinnerSequence = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	spinnerDelay = 100 * time.Millisecond
	clearLine    = "\r\033[K"
)

// StartSpinner draws a progress indicator on w until the returned stop
// function is called or ctx is done. stop cancels the drawing goroutine and
// waits for it to clear its line before returning, so output written after
// stop never interleaves with a frame. stop may be called more than once.
func StartSpinner(ctx context.Context, w io.Writer, message string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	style := pterm.NewStyle(pterm.FgLightBlue)

	g.Go(func() error {
		ticker := time.NewTicker(spinnerDelay)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r%s %s", style.Sprint(spinnerSequence[frame%len(spinnerSequence)]), message)

			select {
			case <-ctx.Done():
				fmt.Fprint(w, clearLine)
				return nil
			case <-ticker.C:
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = g.Wait()
		})
	}
}
