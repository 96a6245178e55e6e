package model

import "time"

// Run records one finished simulation.  Only the final report is kept;
// ticket state is never restored from it.
//
// Fields:
//  ID                    – primary key identifier.
//  RunKey                – random hex key shared with published events.
//  TotalTickets          – configured total tickets.
//  TicketReleaseRate     – tickets per vendor per tick.
//  CustomerRetrievalRate – tickets per customer per tick.
//  MaxCapacity           – queue bound per screen.
//  Screens               – number of screens.
//  Reason                – why the run ended (sold-out, production-ended, stopped, cancelled).
//  Remaining             – global remaining counter at shutdown.
//  Sold                  – tickets withdrawn by customers.
//  Lost                  – tickets never assigned to a vendor.
//  StartedAt             – when the tasks were started.
//  FinishedAt            – when the report was taken.
//  ScreenResults         – per-screen final state.
type Run struct {
    ID                    uint64      // simulation_runs.id
    RunKey                string      // simulation_runs.run_key
    TotalTickets          int         // simulation_runs.total_tickets
    TicketReleaseRate     int         // simulation_runs.release_rate
    CustomerRetrievalRate int         // simulation_runs.retrieval_rate
    MaxCapacity           int         // simulation_runs.max_capacity
    Screens               int         // simulation_runs.screens
    Reason                string      // simulation_runs.reason
    Remaining             int         // simulation_runs.remaining
    Sold                  int         // simulation_runs.sold
    Lost                  int         // simulation_runs.lost
    StartedAt             time.Time   // simulation_runs.started_at
    FinishedAt            time.Time   // simulation_runs.finished_at
    ScreenResults         []RunScreen // simulation_run_screens rows
}

// RunScreen is the final state of one screen in a run.
//
// Fields:
//  Screen    – screen number.
//  Remaining – tickets still queued at shutdown.
//  Produced  – tickets released by the screen's vendor.
//  Sold      – tickets bought by the screen's customer.
//  HighWater – largest queue length observed.
type RunScreen struct {
    Screen    int // simulation_run_screens.screen
    Remaining int // simulation_run_screens.remaining
    Produced  int // simulation_run_screens.produced
    Sold      int // simulation_run_screens.sold
    HighWater int // simulation_run_screens.high_water
}
