package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const spinInterval = 100 * time.Millisecond

var spinFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\033[K"

// Spinner animates a message while one long SQL statement runs, such as
// a snapshot copy or a rollback, where no row progress is available.
type Spinner struct {
	w       io.Writer
	message string

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewSpinner returns a stopped spinner for message.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{w: w, message: message, quit: make(chan struct{})}
}

// Start draws the first frame and animates until Stop, Success or Fail.
func (s *Spinner) Start() {
	s.wg.Add(1)
	go s.spin()
}

func (s *Spinner) spin() {
	defer s.wg.Done()
	tick := time.NewTicker(spinInterval)
	defer tick.Stop()
	for frame := 0; ; frame = (frame + 1) % len(spinFrames) {
		fmt.Fprintf(s.w, "\r%s %s", spinFrames[frame], s.message)
		select {
		case <-s.quit:
			return
		case <-tick.C:
		}
	}
}

// finish stops the animation and replaces the line with final, which may
// be empty.
func (s *Spinner) finish(final string) {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
	fmt.Fprint(s.w, clearLine+final)
}

// Stop clears the spinner line.
func (s *Spinner) Stop() { s.finish("") }

// Success replaces the spinner with a check mark and message.
func (s *Spinner) Success(message string) { s.finish("✓ " + message + "\n") }

// Fail replaces the spinner with a cross and message.
func (s *Spinner) Fail(message string) { s.finish("✗ " + message + "\n") }
