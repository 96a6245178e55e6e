package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-ticket-simulator/internal/model"
    "github.com/iliyamo/cinema-ticket-simulator/internal/repository"
)

// RunStore is the read side of repository.RunRepo.
type RunStore interface {
    ListRecent(ctx context.Context, limit int) ([]*model.Run, error)
    GetByKey(ctx context.Context, key string) (*model.Run, error)
}

// RunsHandler serves the history of finished runs.
type RunsHandler struct {
    Runs RunStore
}

// NewRunsHandler returns a RunsHandler reading from store.
func NewRunsHandler(store RunStore) *RunsHandler {
    if store == nil {
        panic("nil store passed to NewRunsHandler")
    }
    return &RunsHandler{Runs: store}
}

type runScreenResp struct {
    Screen    int `json:"screen"`
    Remaining int `json:"remaining"`
    Produced  int `json:"produced"`
    Sold      int `json:"sold"`
    HighWater int `json:"high_water"`
}

type runResp struct {
    RunKey                string          `json:"run_key"`
    TotalTickets          int             `json:"total_tickets"`
    TicketReleaseRate     int             `json:"ticket_release_rate"`
    CustomerRetrievalRate int             `json:"customer_retrieval_rate"`
    MaxCapacity           int             `json:"max_capacity"`
    Screens               int             `json:"screens"`
    Reason                string          `json:"reason"`
    Remaining             int             `json:"remaining"`
    Sold                  int             `json:"sold"`
    Lost                  int             `json:"lost"`
    StartedAt             time.Time       `json:"started_at"`
    FinishedAt            time.Time       `json:"finished_at"`
    ScreenResults         []runScreenResp `json:"screen_results,omitempty"`
}

func toRunResp(r *model.Run) runResp {
    out := runResp{
        RunKey:                r.RunKey,
        TotalTickets:          r.TotalTickets,
        TicketReleaseRate:     r.TicketReleaseRate,
        CustomerRetrievalRate: r.CustomerRetrievalRate,
        MaxCapacity:           r.MaxCapacity,
        Screens:               r.Screens,
        Reason:                r.Reason,
        Remaining:             r.Remaining,
        Sold:                  r.Sold,
        Lost:                  r.Lost,
        StartedAt:             r.StartedAt,
        FinishedAt:            r.FinishedAt,
    }
    for _, s := range r.ScreenResults {
        out.ScreenResults = append(out.ScreenResults, runScreenResp(s))
    }
    return out
}

// ListRuns handles GET /v1/runs?limit=n, newest first.
func (h *RunsHandler) ListRuns(c echo.Context) error {
    limit := 0
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < 1 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        limit = n
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    runs, err := h.Runs.ListRecent(ctx, limit)
    if err != nil {
        c.Logger().Errorf("runs: list: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list runs"})
    }
    items := make([]runResp, 0, len(runs))
    for _, r := range runs {
        items = append(items, toRunResp(r))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetRun handles GET /v1/runs/:key.
func (h *RunsHandler) GetRun(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    run, err := h.Runs.GetByKey(ctx, c.Param("key"))
    if errors.Is(err, repository.ErrRunNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "run not found"})
    }
    if err != nil {
        c.Logger().Errorf("runs: get: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load run"})
    }
    return c.JSON(http.StatusOK, toRunResp(run))
}
