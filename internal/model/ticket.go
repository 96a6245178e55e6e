package model

import "fmt"

// TicketStatus describes whether a ticket can still be purchased.  A
// ticket starts as StatusAvailable when a vendor releases it and moves
// to StatusBooked exactly once, when a customer withdraws it from the
// pool.  The transition never reverts.
type TicketStatus string

const (
    StatusAvailable TicketStatus = "Available" // released by a vendor, waiting in a screen queue
    StatusBooked    TicketStatus = "Booked"    // withdrawn by a customer
)

// Ticket represents one seat for one show on a given screen.  Seat
// labels ("Seat-<n>") are unique only within a screen; n is the 1-based
// sequence number assigned by that screen's vendor.
//
// Fields:
//  Screen   – screen (venue partition) the ticket belongs to.
//  Seat     – seat label, unique per screen.
//  ShowTime – human readable show time, e.g. "10:00 AM".
//  Status   – Available or Booked.
type Ticket struct {
    Screen   int          // screen number, 1-based
    Seat     string       // "Seat-<n>"
    ShowTime string       // show time label
    Status   TicketStatus // Available until withdrawn
}

// NewTicket builds an available ticket for the n-th seat of a screen.
func NewTicket(screen, n int, showTime string) *Ticket {
    return &Ticket{
        Screen:   screen,
        Seat:     SeatLabel(n),
        ShowTime: showTime,
        Status:   StatusAvailable,
    }
}

// SeatLabel formats the seat identifier for sequence number n.
func SeatLabel(n int) string { return fmt.Sprintf("Seat-%d", n) }

// String renders the ticket the way the console narration prints it.
func (t *Ticket) String() string {
    return fmt.Sprintf("Ticket{Screen=%d, Seat='%s', ShowTime='%s', Status='%s'}",
        t.Screen, t.Seat, t.ShowTime, t.Status)
}
