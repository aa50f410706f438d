package observability

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[96m"
	colorMag    = "\033[95m"
)

// Rows of the serve-mode screen. Logs scroll below statusRow.
const (
	statusRow = 9
	scrollRow = 11
)

const banner = `
 _____         _    ____  _ _       _
|_   _|_ _ ___| | _|  _ \(_) | ___ | |_
  | |/ _' / __| |/ / |_) | | |/ _ \| __|
  | | (_| \__ \   <|  __/| | | (_) | |_
  |_|\__,_|___/_|\_\_|   |_|_|\___/ \__|
`

var spinnerFrames = []string{"◜", "◝", "◞", "◟"}

// termMu serialises every write to the terminal so the status line's
// cursor save/restore is never split by a log line.
var termMu sync.Mutex

type lockedWriter struct{ w io.Writer }

func (lw lockedWriter) Write(p []byte) (int, error) {
	termMu.Lock()
	defer termMu.Unlock()
	return lw.w.Write(p)
}

// NewTermWriter returns a writer for log.SetOutput that shares the
// dashboard's terminal lock.
func NewTermWriter() io.Writer {
	return lockedWriter{w: os.Stderr}
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// Health classifies the age of the last heartbeat.
type Health string

const (
	HealthOK      Health = "HEALTHY"
	HealthLagging Health = "LAGGING"
	HealthDown    Health = "OFFLINE"
)

func HealthOf(sinceHeartbeat time.Duration) Health {
	switch {
	case sinceHeartbeat < 40*time.Second:
		return HealthOK
	case sinceHeartbeat < 90*time.Second:
		return HealthLagging
	default:
		return HealthDown
	}
}

// Dashboard draws the banner and a one-line live status in serve mode.
type Dashboard struct {
	out     io.Writer
	started time.Time
	frame   int
}

func NewDashboard() *Dashboard {
	return &Dashboard{out: os.Stdout, started: time.Now()}
}

// Open clears the screen, prints the banner and confines scrolling to the
// rows below the status line.
func (d *Dashboard) Open() {
	width := termWidth()
	termMu.Lock()
	defer termMu.Unlock()
	fmt.Fprint(d.out, "\033[2J\033[H")
	for _, l := range strings.Split(banner, "\n") {
		pad := (width - len(l)) / 2
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(d.out, "%s%s%s%s\n", strings.Repeat(" ", pad), colorCyan, l, colorReset)
	}
	fmt.Fprintf(d.out, "\033[%d;r\033[%d;1H", scrollRow, scrollRow)
}

// Close restores the full scroll region.
func (d *Dashboard) Close() {
	termMu.Lock()
	defer termMu.Unlock()
	fmt.Fprint(d.out, "\033[r\033[2J\033[H")
}

// Refresh redraws the status line in place.
func (d *Dashboard) Refresh() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	snap := CurrentStatus()
	spinner := " "
	if snap.Role != RoleIdle {
		spinner = spinnerFrames[d.frame%len(spinnerFrames)]
		d.frame++
	}
	line := StatusLine(snap, time.Since(d.started), float64(m.Alloc)/1024/1024, spinner)

	termMu.Lock()
	defer termMu.Unlock()
	fmt.Fprintf(d.out, "\033[s\033[%d;1H\033[K%s\033[u", statusRow, line)
}

// StatusLine formats a snapshot for the dashboard.
func StatusLine(snap Snapshot, uptime time.Duration, memMB float64, spinner string) string {
	health := HealthOf(time.Since(snap.LastHeartbeat))
	healthIcon, healthColor := "🔴", colorMag
	switch health {
	case HealthOK:
		healthIcon, healthColor = "🟢", colorCyan
	case HealthLagging:
		healthIcon, healthColor = "🟡", colorPurple
	}

	roleIcon := "💤"
	switch snap.Role {
	case RoleThinking:
		roleIcon = "🛰️"
	case RoleActing:
		roleIcon = "⚙️"
	}

	label := snap.Label
	if label == "" {
		label = "Waiting..."
	}
	if r := []rune(label); len(r) > 25 {
		label = string(r[:22]) + "..."
	}

	return fmt.Sprintf("%s%s %-8s%s | %s%s %-8s%s [%s] [tasks:%d steps:%d failed:%d] %s%s%s [%v] [%.1fMB]",
		healthColor, healthIcon, health, colorReset,
		colorBold, roleIcon, snap.Role, colorReset,
		label,
		snap.ActiveTasks, snap.Steps, snap.FailedSteps,
		colorPurple, spinner, colorReset,
		uptime.Round(time.Second),
		memMB,
	)
}
