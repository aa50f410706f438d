package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rahul/taskpilot/internal/actions"
)

// Messenger delivers text to a task owner.
type Messenger interface {
	Send(owner string, text string) error
}

// ScheduledTask is a recurring task due for execution.
type ScheduledTask = actions.ScheduledTask

// TaskSource lists due recurring tasks.
type TaskSource interface {
	DueTasks(ctx context.Context) ([]ScheduledTask, error)
	MarkRun(ctx context.Context, id int64) error
}

// Scheduler starts a supervised task for every due recurring task and sends
// its outcome to the owner.
type Scheduler struct {
	Supervisor *Supervisor
	Store      TaskSource
	Gateway    Messenger
	Interval   time.Duration
}

func NewScheduler(sup *Supervisor, store TaskSource, gateway Messenger) *Scheduler {
	return &Scheduler{
		Supervisor: sup,
		Store:      store,
		Gateway:    gateway,
		Interval:   30 * time.Second,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Println("Task scheduler started...")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAndExecute(ctx)
		}
	}
}

func (s *Scheduler) pollAndExecute(ctx context.Context) {
	tasks, err := s.Store.DueTasks(ctx)
	if err != nil {
		log.Printf("Error polling tasks: %v", err)
		return
	}

	for _, t := range tasks {
		log.Printf("Executing scheduled task %d for %s: %s", t.ID, t.Owner, t.Description)

		// Mark first so a slow run is not picked up again on the next tick.
		if err := s.Store.MarkRun(ctx, t.ID); err != nil {
			log.Printf("Error updating last run for task %d: %v", t.ID, err)
			continue
		}

		desc := fmt.Sprintf("[SYSTEM: This is the execution of a previously scheduled task: %q. Produce the output/reminder for the user. DO NOT schedule it again.]", t.Description)
		a := s.Supervisor.Start(t.Owner, desc)
		steps, err := s.Supervisor.Run(ctx, a.ID(), "", nil, nil)
		if err != nil && len(steps) == 0 {
			log.Printf("Error executing scheduled task %d: %v", t.ID, err)
			continue
		}

		if s.Gateway != nil && len(steps) > 0 {
			text := "⏰ *Scheduled Task Output*\n\n" + FormatStep(steps[len(steps)-1])
			if err := s.Gateway.Send(t.Owner, text); err != nil {
				log.Printf("Error delivering scheduled task %d: %v", t.ID, err)
			}
		}
	}
}
