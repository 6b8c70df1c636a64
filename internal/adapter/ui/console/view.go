package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// View renders player state as lines on a terminal.
// The progress line is redrawn in place with a carriage return.
type View struct {
	mu  sync.Mutex
	out io.Writer

	title    string
	artist   string
	playing  bool
	shuffle  bool
	repeat   bool
	position int64
	duration int64

	progressShown bool
}

// NewView creates a view writing to out.
func NewView(out io.Writer) *View {
	return &View{out: out}
}

// FormatTime renders milliseconds as m:ss.
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// SetTrackInfo prints the title and artist of the track being loaded.
func (v *View) SetTrackInfo(title, artist string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.title, v.artist = title, artist
	v.printLocked(text.Bold.Sprintf("%s", title) + " - " + artist)
}

// SetPlayState switches the progress line between the play and pause marks.
func (v *View) SetPlayState(playing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = playing
	v.drawProgressLocked()
}

// SetProgress redraws the progress line with the position and the track length.
func (v *View) SetProgress(positionMs, durationMs int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.position, v.duration = positionMs, durationMs
	v.drawProgressLocked()
}

// SetModes shows the active shuffle and repeat flags on the progress line.
func (v *View) SetModes(shuffle, repeat bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shuffle, v.repeat = shuffle, repeat
	v.drawProgressLocked()
}

// ShowNotification prints an informational line.
func (v *View) ShowNotification(title, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printLocked(text.FgCyan.Sprintf("[%s]", title) + " " + message)
}

// ShowError prints an error line in red.
func (v *View) ShowError(title, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printLocked(text.FgRed.Sprintf("[%s]", title) + " " + message)
}

// printLocked writes a full line, moving off the progress line first.
func (v *View) printLocked(line string) {
	if v.progressShown {
		_, _ = fmt.Fprintln(v.out)
		v.progressShown = false
	}
	_, _ = fmt.Fprintln(v.out, line)
}

func (v *View) drawProgressLocked() {
	if v.title == "" {
		return
	}

	state := "❚❚"
	if v.playing {
		state = "▶"
	}
	modes := ""
	if v.shuffle {
		modes += " [shuffle]"
	}
	if v.repeat {
		modes += " [repeat]"
	}

	_, _ = fmt.Fprintf(v.out, "\r%s %s / %s%s\x1b[K", state, FormatTime(v.position), FormatTime(v.duration), modes)
	v.progressShown = true
}

var _ ports.View = (*View)(nil)
