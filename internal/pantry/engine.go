package pantry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alvaro01/caducidad/internal/lookup"
	"github.com/Alvaro01/caducidad/internal/scanning"
)

// State is the workflow engine's position in the scan-to-record flow.
type State string

const (
	// StateIdle scans incoming frames for a new barcode.
	StateIdle State = "idle"
	// StateLookupPending waits for product metadata resolution.
	StateLookupPending State = "lookup-pending"
	// StateConfirm waits for the user to accept the resolved candidate.
	StateConfirm State = "confirm"
	// StateExpiryCapture runs automated expiry-date attempts on live frames.
	StateExpiryCapture State = "expiry-capture"
	// StateExpiryManual waits for a manually entered date.
	StateExpiryManual State = "expiry-manual"
	// StateCommitting writes the finished record.
	StateCommitting State = "committing"
)

// EventType classifies engine events.
type EventType string

const (
	EventStateChanged        EventType = "state-changed"
	EventProductCommitted    EventType = "product-committed"
	EventLookupDegraded      EventType = "lookup-degraded"
	EventNetworkFailure      EventType = "network-failure"
	EventSensorUnavailable   EventType = "sensor-unavailable"
	EventExtractionExhausted EventType = "extraction-exhausted"
	EventScanAborted         EventType = "scan-aborted"
)

// Event is a user-facing signal emitted by the engine. Delivery is
// best effort; the engine never blocks on a slow consumer.
type Event struct {
	Type    EventType `json:"type"`
	State   State     `json:"state"`
	Barcode string    `json:"barcode,omitempty"`
	Message string    `json:"message,omitempty"`
	Product *Product  `json:"product,omitempty"`
}

// ErrInvalidState is returned for a session command that does not apply
// to the engine's current state.
var ErrInvalidState = errors.New("command not valid in current state")

// Config holds the engine tunables.
type Config struct {
	// CooldownWindow is the minimum time between accepting two triggers
	// for the same barcode.
	CooldownWindow time.Duration
	// MaxExpiryAttempts bounds automated expiry-detection retries
	// before falling back to manual entry.
	MaxExpiryAttempts int
	// AttemptInterval is the delay between automated expiry attempts.
	AttemptInterval time.Duration
	// ScanInterval is how often the idle loop samples frames for
	// barcodes.
	ScanInterval time.Duration
}

// Engine defaults.
const (
	DefaultMaxExpiryAttempts = 5
	DefaultAttemptInterval   = 2 * time.Second
	DefaultScanInterval      = 250 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.CooldownWindow <= 0 {
		c.CooldownWindow = DefaultCooldownWindow
	}
	if c.MaxExpiryAttempts <= 0 {
		c.MaxExpiryAttempts = DefaultMaxExpiryAttempts
	}
	if c.AttemptInterval <= 0 {
		c.AttemptInterval = DefaultAttemptInterval
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = DefaultScanInterval
	}
	return c
}

// pendingScan is the transient per-scan working state. At most one
// exists at any time; it lives only inside the engine.
type pendingScan struct {
	barcode   string
	frame     *Frame // frozen at detection time
	candidate *Product
	degraded  bool
	attempts  int
}

type commandKind int

const (
	cmdConfirm commandKind = iota
	cmdManualDate
	cmdAbort
)

type command struct {
	kind  commandKind
	date  string
	reply chan error
}

// Engine is the scan-to-record workflow state machine. A single run
// goroutine owns every transition; session commands arrive over a
// channel, so cross-scan races are eliminated by construction.
type Engine struct {
	cfg        Config
	frames     FrameSource
	detector   scanning.Detector
	resolver   lookup.Resolver
	extractor  scanning.Extractor
	service    *Service
	cooldown   *Cooldown
	timeSource TimeSource

	cmds   chan command
	events chan Event

	// attemptTicker is armed only while in ExpiryCapture and stopped on
	// every exit from that state, so stale ticks cannot fire into a
	// later scan.
	attemptTicker *time.Ticker

	mu         sync.Mutex // guards the fields below for Snapshot readers
	state      State
	pending    *pendingScan
	sensorDown bool
	lastNotice string
}

// NewEngine creates a workflow engine. The cooldown store is owned by
// the engine and sized by cfg.CooldownWindow.
func NewEngine(cfg Config, frames FrameSource, detector scanning.Detector, resolver lookup.Resolver, extractor scanning.Extractor, service *Service) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:        cfg,
		frames:     frames,
		detector:   detector,
		resolver:   resolver,
		extractor:  extractor,
		service:    service,
		cooldown:   NewCooldown(cfg.CooldownWindow),
		timeSource: &defaultTimeSource{},
		cmds:       make(chan command),
		events:     make(chan Event, 64),
		state:      StateIdle,
	}
}

// Events returns the engine's event stream. Events are dropped when the
// buffer is full.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run drives the engine until the context is cancelled. It must be
// called exactly once; session commands require a running engine.
func (e *Engine) Run(ctx context.Context) error {
	scan := time.NewTicker(e.cfg.ScanInterval)
	defer scan.Stop()
	defer e.stopAttemptTicker()

	for {
		var attemptC <-chan time.Time
		if e.attemptTicker != nil {
			attemptC = e.attemptTicker.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-scan.C:
			e.scanTick(ctx)
		case <-attemptC:
			e.attemptTick()
		case cmd := <-e.cmds:
			cmd.reply <- e.handleCommand(cmd)
		}
	}
}

// Confirm accepts the resolved candidate and moves the scan on to
// expiry capture.
func (e *Engine) Confirm() error {
	return e.send(command{kind: cmdConfirm})
}

// SubmitManualDate supplies the expiry date directly after automated
// detection has been exhausted. The date must be a valid YYYY-MM-DD
// calendar date.
func (e *Engine) SubmitManualDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return e.send(command{kind: cmdManualDate, date: date})
}

// Abort discards the scan in progress and returns the engine to idle.
// Aborting an idle engine is a no-op.
func (e *Engine) Abort() error {
	return e.send(command{kind: cmdAbort})
}

func (e *Engine) send(cmd command) error {
	cmd.reply = make(chan error, 1)
	e.cmds <- cmd
	return <-cmd.reply
}

// Snapshot describes the engine for the scan-status surface.
type Snapshot struct {
	State           State    `json:"state"`
	Barcode         string   `json:"barcode,omitempty"`
	Candidate       *Product `json:"candidate,omitempty"`
	Degraded        bool     `json:"degraded,omitempty"`
	Attempts        int      `json:"attempts"`
	MaxAttempts     int      `json:"max_attempts"`
	SensorAvailable bool     `json:"sensor_available"`
	LastNotice      string   `json:"last_notice,omitempty"`
}

// Snapshot returns the engine's current externally visible state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		State:           e.state,
		Attempts:        0,
		MaxAttempts:     e.cfg.MaxExpiryAttempts,
		SensorAvailable: !e.sensorDown,
		LastNotice:      e.lastNotice,
	}
	if e.pending != nil {
		snap.Barcode = e.pending.barcode
		snap.Candidate = e.pending.candidate
		snap.Degraded = e.pending.degraded
		snap.Attempts = e.pending.attempts
	}
	return snap
}

// scanTick runs one iteration of the idle detection loop: sample the
// current frame, look for a barcode, and start a scan if the cooldown
// gate allows it.
func (e *Engine) scanTick(ctx context.Context) {
	if e.currentState() != StateIdle {
		return
	}

	frame, err := e.frames.Frame()
	if err != nil {
		e.setSensorDown(true)
		return
	}
	e.setSensorDown(false)

	codes, err := e.detector.Detect(frame.Data, frame.ContentType)
	if err != nil {
		// Detection noise is expected and non-fatal; the loop just
		// waits for the next tick.
		slog.Debug("barcode detection failed", "error", err)
		return
	}
	if len(codes) == 0 {
		return
	}

	barcode := codes[0]
	if !e.cooldown.ShouldTrigger(barcode, e.timeSource.Now()) {
		return
	}

	e.beginScan(ctx, barcode, frame)
}

// beginScan creates the pending scan for a triggered barcode and runs
// the metadata lookup. The frame is frozen here so the confirm screen
// and the stored snapshot show what triggered the scan.
func (e *Engine) beginScan(ctx context.Context, barcode string, frame *Frame) {
	e.mu.Lock()
	e.pending = &pendingScan{barcode: barcode, frame: frame}
	e.mu.Unlock()
	e.transition(StateLookupPending)
	slog.Info("barcode detected", "barcode", barcode)

	resolved, err := e.resolver.Resolve(ctx, barcode)
	switch {
	case err == nil:
		e.mu.Lock()
		e.pending.candidate = candidateFromLookup(barcode, resolved)
		e.mu.Unlock()
		e.transition(StateConfirm)

	case errors.Is(err, lookup.ErrNotFound):
		// Recoverable: the user can still record the item under a
		// synthesized name.
		e.mu.Lock()
		e.pending.candidate = &Product{Name: PlaceholderName(barcode), Barcode: barcode}
		e.pending.degraded = true
		e.mu.Unlock()
		e.notice(Event{
			Type:    EventLookupDegraded,
			Barcode: barcode,
			Message: "product not found in the database; a placeholder name will be used",
		})
		e.transition(StateConfirm)

	default:
		slog.Error("product lookup failed", "barcode", barcode, "error", err)
		e.notice(Event{
			Type:    EventNetworkFailure,
			Barcode: barcode,
			Message: "network error during product lookup; please rescan",
		})
		e.reset()
	}
}

// attemptTick runs one automated expiry-extraction attempt.
func (e *Engine) attemptTick() {
	if e.currentState() != StateExpiryCapture {
		// Stale tick from an exited capture state.
		return
	}

	date := e.tryExtract()
	if date != "" {
		e.stopAttemptTicker()
		if err := e.commit(date); err != nil {
			slog.Error("commit after extraction failed", "error", err)
		}
		return
	}

	e.mu.Lock()
	e.pending.attempts++
	attempts := e.pending.attempts
	barcode := e.pending.barcode
	e.mu.Unlock()
	slog.Debug("expiry attempt failed", "barcode", barcode, "attempt", attempts)

	if attempts >= e.cfg.MaxExpiryAttempts {
		e.stopAttemptTicker()
		e.transition(StateExpiryManual)
		e.notice(Event{
			Type:    EventExtractionExhausted,
			Barcode: barcode,
			Message: "automated expiry detection failed; enter the date manually",
		})
	}
}

// tryExtract captures the current frame and asks the extractor for a
// date. Every failure mode (no frame, extractor error, unparseable
// text) collapses to "" so the retry loop needs no special cases.
func (e *Engine) tryExtract() string {
	frame, err := e.frames.Frame()
	if err != nil {
		slog.Debug("no frame for expiry attempt", "error", err)
		return ""
	}
	date, err := e.extractor.ExtractExpiryDate(frame.Data, frame.ContentType)
	if err != nil {
		slog.Debug("expiry extraction failed", "error", err)
		return ""
	}
	return date
}

func (e *Engine) handleCommand(cmd command) error {
	switch cmd.kind {
	case cmdConfirm:
		if e.currentState() != StateConfirm {
			return fmt.Errorf("%w: confirm requires a resolved candidate", ErrInvalidState)
		}
		e.mu.Lock()
		e.pending.attempts = 0
		e.mu.Unlock()
		e.startAttemptTicker()
		e.transition(StateExpiryCapture)
		return nil

	case cmdManualDate:
		if e.currentState() != StateExpiryManual {
			return fmt.Errorf("%w: manual entry requires exhausted automated detection", ErrInvalidState)
		}
		return e.commit(cmd.date)

	case cmdAbort:
		if e.currentState() == StateIdle {
			return nil
		}
		e.mu.Lock()
		barcode := ""
		if e.pending != nil {
			barcode = e.pending.barcode
		}
		e.mu.Unlock()
		e.notice(Event{Type: EventScanAborted, Barcode: barcode, Message: "scan cancelled"})
		e.reset()
		return nil
	}
	return fmt.Errorf("unknown command %d", cmd.kind)
}

// commit turns the pending scan plus a resolved expiry date into a
// persisted record. This is the only boundary that mutates the record
// store, reached from exactly two places: a successful automated
// attempt and manual entry.
func (e *Engine) commit(date string) error {
	e.transition(StateCommitting)

	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()

	product, err := e.service.Commit(pending.candidate, date, pending.frame)
	if err != nil {
		e.notice(Event{
			Type:    EventScanAborted,
			Barcode: pending.barcode,
			Message: "could not save the scanned product",
		})
		e.reset()
		return fmt.Errorf("committing product: %w", err)
	}

	e.reset()
	e.emit(Event{Type: EventProductCommitted, State: StateIdle, Barcode: product.Barcode, Product: product})
	slog.Info("product committed", "id", product.ID, "name", product.Name, "expiry", product.ExpiryDate)
	return nil
}

// reset discards all pending state and returns to idle. Safe from any
// state; timers are invalidated before the next scan can start.
func (e *Engine) reset() {
	e.stopAttemptTicker()
	e.mu.Lock()
	e.pending = nil
	e.mu.Unlock()
	e.transition(StateIdle)
}

func (e *Engine) startAttemptTicker() {
	e.stopAttemptTicker()
	e.attemptTicker = time.NewTicker(e.cfg.AttemptInterval)
}

func (e *Engine) stopAttemptTicker() {
	if e.attemptTicker != nil {
		e.attemptTicker.Stop()
		e.attemptTicker = nil
	}
}

func (e *Engine) currentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) transition(to State) {
	e.mu.Lock()
	from := e.state
	e.state = to
	e.mu.Unlock()
	if from == to {
		return
	}
	slog.Debug("state transition", "from", from, "to", to)
	e.emit(Event{Type: EventStateChanged, State: to})
}

// setSensorDown tracks frame availability. The transition into the
// unavailable state emits one persistent notice rather than a stream of
// identical ones.
func (e *Engine) setSensorDown(down bool) {
	e.mu.Lock()
	changed := e.sensorDown != down
	e.sensorDown = down
	if changed && !down {
		e.lastNotice = ""
	}
	e.mu.Unlock()
	if changed && down {
		e.notice(Event{Type: EventSensorUnavailable, Message: "camera frames are not arriving"})
	}
}

// notice emits an event and pins its message as the last notice shown
// on the status surface.
func (e *Engine) notice(ev Event) {
	e.mu.Lock()
	e.lastNotice = ev.Message
	ev.State = e.state
	e.mu.Unlock()
	e.emit(ev)
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

// candidateFromLookup maps resolver metadata onto a record candidate.
// An empty resolved name still gets the placeholder so no record can
// end up nameless.
func candidateFromLookup(barcode string, p *lookup.Product) *Product {
	name := p.Name
	if name == "" {
		name = PlaceholderName(barcode)
	}
	return &Product{
		Name:        name,
		Barcode:     barcode,
		ImageURL:    p.ImageURL,
		Brand:       p.Brand,
		Quantity:    p.Quantity,
		Categories:  p.Categories,
		NutriScore:  p.NutriScore,
		EcoScore:    p.EcoScore,
		Ingredients: p.Ingredients,
		Country:     p.Country,
		URL:         p.URL,
	}
}
