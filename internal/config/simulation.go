package config

import (
    "bufio"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "strconv"
    "strings"

    "github.com/iliyamo/cinema-ticket-simulator/internal/sim"
)

// SimulationConfig holds the five parameters of a simulation run.  The JSON
// field names are those of the config.json files written by earlier
// versions of the tool, so existing files keep loading.
type SimulationConfig struct {
    TotalTickets          int `json:"totalTickets"`          // tickets across all screens
    TicketReleaseRate     int `json:"ticketReleaseRate"`     // tickets each vendor releases per tick
    CustomerRetrievalRate int `json:"customerRetrievalRate"` // tickets each customer buys per tick
    MaxCapacity           int `json:"maxCapacity"`           // queue bound per screen
    Screens               int `json:"screens"`               // number of screens
}

// ErrInvalidSimulation wraps every validation failure.
var ErrInvalidSimulation = errors.New("invalid simulation config")

// Validate requires every parameter to be positive.  The simulation core
// does not check its inputs, so this must run before Params is used.
func (s SimulationConfig) Validate() error {
    fields := []struct {
        name  string
        value int
    }{
        {"totalTickets", s.TotalTickets},
        {"ticketReleaseRate", s.TicketReleaseRate},
        {"customerRetrievalRate", s.CustomerRetrievalRate},
        {"maxCapacity", s.MaxCapacity},
        {"screens", s.Screens},
    }
    for _, f := range fields {
        if f.value <= 0 {
            return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSimulation, f.name, f.value)
        }
    }
    return nil
}

// Params converts the config into the simulation core's input.
func (s SimulationConfig) Params() sim.Params {
    return sim.Params{
        TotalTickets:  s.TotalTickets,
        ReleaseRate:   s.TicketReleaseRate,
        RetrievalRate: s.CustomerRetrievalRate,
        MaxCapacity:   s.MaxCapacity,
        Screens:       s.Screens,
    }
}

// Display prints the configuration block shown before a run starts.
func (s SimulationConfig) Display(w io.Writer) {
    fmt.Fprintln(w, "System Configuration:")
    fmt.Fprintf(w, "Total Tickets: %d\n", s.TotalTickets)
    fmt.Fprintf(w, "Ticket Release Rate: %d\n", s.TicketReleaseRate)
    fmt.Fprintf(w, "Customer Retrieval Rate: %d\n", s.CustomerRetrievalRate)
    fmt.Fprintf(w, "Maximum Ticket Capacity: %d\n", s.MaxCapacity)
    fmt.Fprintf(w, "Number of Screens: %d\n", s.Screens)
}

// SaveFile writes the config as JSON to path, replacing any existing file.
func (s SimulationConfig) SaveFile(path string) error {
    b, err := json.MarshalIndent(s, "", "  ")
    if err != nil {
        return fmt.Errorf("encode simulation config: %w", err)
    }
    if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
        return fmt.Errorf("write %s: %w", path, err)
    }
    return nil
}

// LoadSimulationFile reads and validates a JSON config file.
func LoadSimulationFile(path string) (SimulationConfig, error) {
    var s SimulationConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return s, fmt.Errorf("read %s: %w", path, err)
    }
    if err := json.Unmarshal(b, &s); err != nil {
        return s, fmt.Errorf("decode %s: %w", path, err)
    }
    return s, s.Validate()
}

// SimulationFromEnv builds the config from SIM_* variables.  It is the
// non-interactive fallback when no config file exists; every variable is
// required.
func SimulationFromEnv() SimulationConfig {
    return SimulationConfig{
        TotalTickets:          mustInt("SIM_TOTAL_TICKETS"),
        TicketReleaseRate:     mustInt("SIM_RELEASE_RATE"),
        CustomerRetrievalRate: mustInt("SIM_RETRIEVAL_RATE"),
        MaxCapacity:           mustInt("SIM_MAX_CAPACITY"),
        Screens:               mustInt("SIM_SCREENS"),
    }
}

// prompter reads answers line by line and re-asks on bad input.
type prompter struct {
    in  *bufio.Reader
    out io.Writer
}

// ask returns the trimmed answer to question.  io.EOF means the input
// ended before an answer was given.
func (p prompter) ask(question string) (string, error) {
    fmt.Fprint(p.out, question)
    line, err := p.in.ReadString('\n')
    if err != nil && (err != io.EOF || line == "") {
        return "", err
    }
    return strings.TrimSpace(line), nil
}

func (p prompter) askPositive(question string) (int, error) {
    for {
        answer, err := p.ask(question)
        if err != nil {
            return 0, err
        }
        n, convErr := strconv.Atoi(answer)
        if convErr == nil && n > 0 {
            return n, nil
        }
        fmt.Fprintln(p.out, "Please enter a positive whole number.")
    }
}

// PromptSimulation asks for each parameter on out and reads the answers
// from in.
func PromptSimulation(in io.Reader, out io.Writer) (SimulationConfig, error) {
    return newPrompter(in, out).simulation()
}

func newPrompter(in io.Reader, out io.Writer) prompter {
    return prompter{in: bufio.NewReader(in), out: out}
}

func (p prompter) simulation() (SimulationConfig, error) {
    var s SimulationConfig
    fmt.Fprintln(p.out, "Configure the System:")
    steps := []struct {
        question string
        dst      *int
    }{
        {"Enter Total Number of Tickets: ", &s.TotalTickets},
        {"Enter Ticket Release Rate (tickets per second): ", &s.TicketReleaseRate},
        {"Enter Customer Retrieval Rate (tickets per second): ", &s.CustomerRetrievalRate},
        {"Enter Maximum Ticket Capacity per Screen: ", &s.MaxCapacity},
        {"Enter Number of Screens: ", &s.Screens},
    }
    for _, step := range steps {
        n, err := p.askPositive(step.question)
        if err != nil {
            return s, fmt.Errorf("read answer: %w", err)
        }
        *step.dst = n
    }
    return s, nil
}

// AcquireSimulation obtains the run parameters the way the console tool
// always has: in interactive mode it asks whether to load cfg.ConfigFile;
// otherwise it prompts and saves the answers to that file.  Non-interactive
// mode loads the file and falls back to SIM_* variables when it is missing.
func AcquireSimulation(cfg Config, in io.Reader, out io.Writer) (SimulationConfig, error) {
    if !cfg.Interactive {
        s, err := LoadSimulationFile(cfg.ConfigFile)
        if errors.Is(err, os.ErrNotExist) {
            s = SimulationFromEnv()
            return s, s.Validate()
        }
        return s, err
    }

    p := newPrompter(in, out)
    answer, err := p.ask("Load configuration from file? (yes/no): ")
    if err != nil {
        return SimulationConfig{}, fmt.Errorf("read answer: %w", err)
    }
    if strings.EqualFold(answer, "yes") {
        return LoadSimulationFile(cfg.ConfigFile)
    }
    s, err := p.simulation()
    if err != nil {
        return s, err
    }
    if err := s.SaveFile(cfg.ConfigFile); err != nil {
        return s, err
    }
    fmt.Fprintf(out, "Configuration saved to %s\n", cfg.ConfigFile)
    return s, nil
}
