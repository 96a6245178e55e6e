package service

import (
	"time"

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
	"github.com/iliyamo/cinema-ticket-simulator/internal/queue"
	"github.com/iliyamo/cinema-ticket-simulator/internal/sim"
)

// RunFromReport converts a final report into the stored run model.
func RunFromReport(runKey string, p sim.Params, r sim.Report) *model.Run {
	run := &model.Run{
		RunKey:                runKey,
		TotalTickets:          p.TotalTickets,
		TicketReleaseRate:     p.ReleaseRate,
		CustomerRetrievalRate: p.RetrievalRate,
		MaxCapacity:           p.MaxCapacity,
		Screens:               p.Screens,
		Reason:                string(r.Reason),
		Remaining:             r.Remaining,
		Sold:                  r.Sold,
		Lost:                  r.Lost,
		StartedAt:             r.StartedAt,
		FinishedAt:            r.FinishedAt,
		ScreenResults:         make([]model.RunScreen, 0, len(r.Screens)),
	}
	for _, s := range r.Screens {
		run.ScreenResults = append(run.ScreenResults, model.RunScreen{
			Screen:    s.Screen,
			Remaining: s.Remaining,
			Produced:  s.Produced,
			Sold:      s.Sold,
			HighWater: s.HighWater,
		})
	}
	return run
}

// RunCompletedFromReport builds the run.completed event payload.
func RunCompletedFromReport(runKey string, r sim.Report) queue.RunCompletedEvent {
	ev := queue.RunCompletedEvent{
		RunKey:       runKey,
		Reason:       string(r.Reason),
		TotalTickets: r.TotalTickets,
		Remaining:    r.Remaining,
		Sold:         r.Sold,
		Lost:         r.Lost,
		Screens:      make([]queue.ScreenResult, 0, len(r.Screens)),
		FinishedAt:   r.FinishedAt.UTC().Format(time.RFC3339),
	}
	for _, s := range r.Screens {
		ev.Screens = append(ev.Screens, queue.ScreenResult{Screen: s.Screen, Remaining: s.Remaining, Sold: s.Sold})
	}
	return ev
}
