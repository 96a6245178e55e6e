// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns purchase events into a log file.
package queue

const (
    // TicketPurchasedQueue receives one message per ticket bought.
    TicketPurchasedQueue = "ticket.purchased"
    // RunCompletedQueue receives one message per finished run.
    RunCompletedQueue = "run.completed"
)

// TicketPurchasedEvent is published when a customer withdraws a ticket
// from the pool.  It carries everything a downstream consumer needs to
// log or notify without access to the running simulation.
type TicketPurchasedEvent struct {
    RunKey      string `json:"run_key"`
    Customer    string `json:"customer"`
    Screen      int    `json:"screen"`
    Seat        string `json:"seat"`
    ShowTime    string `json:"show_time"`
    Status      string `json:"status"`
    PurchasedAt string `json:"purchased_at"`
}

// ScreenResult is the per-screen part of RunCompletedEvent.
type ScreenResult struct {
    Screen    int `json:"screen"`
    Remaining int `json:"remaining"`
    Sold      int `json:"sold"`
}

// RunCompletedEvent is published once after shutdown with the final report.
type RunCompletedEvent struct {
    RunKey       string         `json:"run_key"`
    Reason       string         `json:"reason"`
    TotalTickets int            `json:"total_tickets"`
    Remaining    int            `json:"remaining"`
    Sold         int            `json:"sold"`
    Lost         int            `json:"lost"`
    Screens      []ScreenResult `json:"screens"`
    FinishedAt   string         `json:"finished_at"`
}
