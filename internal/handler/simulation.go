package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-ticket-simulator/internal/pool"
    "github.com/iliyamo/cinema-ticket-simulator/internal/sim"
)

// Simulation is the part of *sim.Orchestrator the API reads and controls.
type Simulation interface {
    Params() sim.Params
    Stats() pool.Stats
    Running() bool
    LastReport() (sim.Report, bool)
    Stop()
}

// SimulationHandler exposes the live pool and the final report of the run
// hosted by this process.
type SimulationHandler struct {
    RunKey string
    Sim    Simulation
}

// NewSimulationHandler returns a handler for one run.
func NewSimulationHandler(runKey string, s Simulation) *SimulationHandler {
    if s == nil {
        panic("nil simulation passed to NewSimulationHandler")
    }
    return &SimulationHandler{RunKey: runKey, Sim: s}
}

type paramsResp struct {
    TotalTickets          int `json:"total_tickets"`
    TicketReleaseRate     int `json:"ticket_release_rate"`
    CustomerRetrievalRate int `json:"customer_retrieval_rate"`
    MaxCapacity           int `json:"max_capacity"`
    Screens               int `json:"screens"`
}

type simulationResp struct {
    RunKey  string     `json:"run_key"`
    Running bool       `json:"running"`
    Params  paramsResp `json:"params"`
    Pool    pool.Stats `json:"pool"`
}

// GetSimulation handles GET /v1/simulation.
func (h *SimulationHandler) GetSimulation(c echo.Context) error {
    p := h.Sim.Params()
    return c.JSON(http.StatusOK, simulationResp{
        RunKey:  h.RunKey,
        Running: h.Sim.Running(),
        Params: paramsResp{
            TotalTickets:          p.TotalTickets,
            TicketReleaseRate:     p.ReleaseRate,
            CustomerRetrievalRate: p.RetrievalRate,
            MaxCapacity:           p.MaxCapacity,
            Screens:               p.Screens,
        },
        Pool: h.Sim.Stats(),
    })
}

// GetPool handles GET /v1/pool.
func (h *SimulationHandler) GetPool(c echo.Context) error {
    return c.JSON(http.StatusOK, h.Sim.Stats())
}

// GetScreen handles GET /v1/screens/:id.  Screens are numbered from 1.
func (h *SimulationHandler) GetScreen(c echo.Context) error {
    id, err := strconv.Atoi(c.Param("id"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen id"})
    }
    if id < 1 || id > h.Sim.Params().Screens {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
    }
    for _, s := range h.Sim.Stats().Screens {
        if s.Screen == id {
            return c.JSON(http.StatusOK, s)
        }
    }
    // Nothing released on this screen yet.
    return c.JSON(http.StatusOK, pool.ScreenStats{Screen: id})
}

// GetReport handles GET /v1/run/report.  While the run is live it answers
// 202 so pollers know to come back.
func (h *SimulationHandler) GetReport(c echo.Context) error {
    if r, ok := h.Sim.LastReport(); ok {
        return c.JSON(http.StatusOK, r)
    }
    if h.Sim.Running() {
        return c.JSON(http.StatusAccepted, echo.Map{"status": "running"})
    }
    return c.JSON(http.StatusNotFound, echo.Map{"error": "run not started"})
}

// StopRun handles POST /v1/run/stop.  Stopping is asynchronous; the report
// becomes available on GET /v1/run/report once every task has exited.
func (h *SimulationHandler) StopRun(c echo.Context) error {
    if _, done := h.Sim.LastReport(); done {
        return c.JSON(http.StatusConflict, echo.Map{"error": "run already finished"})
    }
    h.Sim.Stop()
    return c.JSON(http.StatusAccepted, echo.Map{"status": "stopping"})
}
