package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

// startInlineSpinner starts a simple inline spinner animation on a single line.
// It displays rotating animation frames followed by the provided text, updating
// the same line in the terminal. The spinner runs in a separate goroutine and
// can be stopped by calling the returned function, which also clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				// Clear the spinner line completely, then return
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

// areaSpinner is a header spinner drawn in a pterm area while a command runs.
type areaSpinner struct {
	area *pterm.AreaPrinter
	stop chan struct{}
	wg   sync.WaitGroup
}

// startAreaSpinner hides the cursor and animates text until Stop is called.
// It returns nil when the terminal cannot host an area.
func startAreaSpinner(text string) *areaSpinner {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return nil
	}
	sp := &areaSpinner{area: area, stop: make(chan struct{})}
	frames := []string{"|", "/", "-", "\\"}
	sp.wg.Add(1)
	go func() {
		defer sp.wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				i++
				area.Update(fmt.Sprintf("%s %s", frames[i%len(frames)], text))
			case <-sp.stop:
				return
			}
		}
	}()
	return sp
}

// Stop ends the animation, removes the area and shows the cursor again.
func (sp *areaSpinner) Stop() {
	if sp == nil {
		return
	}
	close(sp.stop)
	sp.wg.Wait()
	_ = sp.area.Stop()
	cursor.Show()
}
