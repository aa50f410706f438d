package observability

import (
	"sync"
	"time"
)

type Role string

const (
	RoleIdle     Role = "IDLE"
	RoleThinking Role = "THINKING"
	RoleActing   Role = "ACTING"
)

// Snapshot is a point-in-time copy of the process status.
type Snapshot struct {
	Role          Role
	Label         string
	ActiveTasks   int64
	Steps         int64
	FailedSteps   int64
	LastHeartbeat time.Time
}

type board struct {
	mu   sync.RWMutex
	snap Snapshot
}

var globalStatus = &board{snap: Snapshot{Role: RoleIdle, LastHeartbeat: time.Now()}}

// SetStatus records what the process is doing right now. label is the task
// description while thinking and the action name while acting.
func SetStatus(role Role, label string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.snap.Role = role
	globalStatus.snap.Label = label
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.snap.LastHeartbeat = time.Now()
}

// TaskStarted and TaskFinished bracket a step executing under the supervisor.
func TaskStarted() {
	globalStatus.mu.Lock()
	globalStatus.snap.ActiveTasks++
	globalStatus.mu.Unlock()
}

func TaskFinished() {
	globalStatus.mu.Lock()
	globalStatus.snap.ActiveTasks--
	globalStatus.mu.Unlock()
}

// StepRecorded counts an executed step.
func StepRecorded(failed bool) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.snap.Steps++
	if failed {
		globalStatus.snap.FailedSteps++
	}
}

// CurrentStatus returns a copy of the process status.
func CurrentStatus() Snapshot {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.snap
}

// ActiveTasks returns the number of tasks currently executing a step.
func ActiveTasks() int64 {
	return CurrentStatus().ActiveTasks
}
