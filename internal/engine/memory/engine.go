// Package memory is an in-process valuation engine implementing the
// engine.App contract. It compiles a line-oriented contract format, simulates
// lognormal commodity prices with gonum, and evaluates contracts
// asynchronously on a background goroutine, emitting one UnitOfWorkCompleted
// notification per contract leg and a final ResultCreated once the result is
// stored. It exists so the synchronizer, telemetry and aggregation layers can
// run and be tested without the real distributed engine.
package memory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ontiyonke/quantdsl/internal/engine"
	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

// Default price-process parameters used when the market calibration does not
// override them.
const (
	defaultBasePrice  = 100.0
	defaultVolatility = 0.2
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSeed fixes the random source of the price simulation.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithUnitDelay inserts an artificial pause between units of work, useful for
// exercising progress reporting against a human-paced run.
func WithUnitDelay(d time.Duration) Option {
	return func(e *Engine) { e.unitDelay = d }
}

// Engine is the in-memory engine.App implementation.
type Engine struct {
	bus     *Bus
	results *ResultStore
	prices  *PriceStore

	seed      uint64
	unitDelay time.Duration

	counter atomic.Int64

	mu    sync.Mutex
	specs map[string]engine.ContractSpecification
}

var _ engine.App = (*Engine)(nil)

// New creates an engine with empty stores and an empty notification bus.
func New(opts ...Option) *Engine {
	e := &Engine{
		bus:     NewBus(),
		results: NewResultStore(),
		prices:  NewPriceStore(),
		seed:    uint64(time.Now().UnixNano()),
		specs:   make(map[string]engine.ContractSpecification),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Notifications returns the engine's notification stream.
func (e *Engine) Notifications() engine.NotificationStream { return e.bus }

// Results returns the authoritative result store.
func (e *Engine) Results() engine.ResultStore { return e.results }

// Prices returns the simulated price store.
func (e *Engine) Prices() engine.PriceStore { return e.prices }

// Compile parses a contract source into a specification. The format is one
// leg per line:
//
//	GAS 10            spot leg, 10 units
//	OIL 2020-1 5      monthly leg, January 2020
//	OIL 2020-1-15 5   daily leg, 15 January 2020
//
// Blank lines and lines starting with '#' are ignored.
func (e *Engine) Compile(source string) (engine.ContractSpecification, error) {
	spec := engine.ContractSpecification{
		ID:     fmt.Sprintf("spec-%d", e.counter.Add(1)),
		Source: source,
	}
	for lineNo, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		leg, err := parseLeg(line)
		if err != nil {
			return engine.ContractSpecification{}, apperrors.WrapError(err, "line %d", lineNo+1)
		}
		spec.Legs = append(spec.Legs, leg)
	}
	if len(spec.Legs) == 0 {
		return engine.ContractSpecification{}, apperrors.ValidationError{Field: "source", Message: "contract has no legs"}
	}

	e.mu.Lock()
	e.specs[spec.ID] = spec
	e.mu.Unlock()
	return spec, nil
}

func parseLeg(line string) (engine.ContractLeg, error) {
	fields := strings.Fields(line)
	leg := engine.ContractLeg{Commodity: fields[0]}

	var volumeField string
	switch len(fields) {
	case 2:
		volumeField = fields[1]
	case 3:
		parts := strings.Split(fields[1], "-")
		if len(parts) != 2 && len(parts) != 3 {
			return leg, apperrors.ValidationError{Field: "delivery", Message: "want YEAR-MONTH or YEAR-MONTH-DAY, got " + fields[1]}
		}
		nums := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return leg, apperrors.ValidationError{Field: "delivery", Message: "non-numeric date " + fields[1]}
			}
			nums[i] = n
		}
		day := 1
		if len(nums) == 3 {
			day = nums[2]
			leg.Daily = true
		}
		leg.Delivery = time.Date(nums[0], time.Month(nums[1]), day, 0, 0, 0, 0, time.UTC)
		volumeField = fields[2]
	default:
		return leg, apperrors.ValidationError{Field: "leg", Message: "want COMMODITY [DELIVERY] VOLUME, got " + strconv.Quote(line)}
	}

	volume, err := strconv.ParseFloat(volumeField, 64)
	if err != nil {
		return leg, apperrors.ValidationError{Field: "volume", Message: "non-numeric volume " + volumeField}
	}
	leg.Volume = volume
	return leg, nil
}

// RegisterMarketCalibration records price-process parameters for simulation.
func (e *Engine) RegisterMarketCalibration(processName string, params map[string]float64) (engine.MarketCalibration, error) {
	if processName == "" {
		return engine.MarketCalibration{}, apperrors.ValidationError{Field: "process name", Message: "must not be empty"}
	}
	return engine.MarketCalibration{
		ID:          fmt.Sprintf("calibration-%d", e.counter.Add(1)),
		ProcessName: processName,
		Params:      params,
	}, nil
}

// Simulate draws lognormal price samples for every delivery date the contract
// references, plus an observation-date spot price for each commodity, and
// stores them in the price store. Paths are coherent per commodity: one
// standard normal draw per path drives all of that commodity's dates.
func (e *Engine) Simulate(spec engine.ContractSpecification, calibration engine.MarketCalibration, opts engine.SimulationOptions) (engine.MarketSimulation, error) {
	if opts.PathCount <= 0 {
		return engine.MarketSimulation{}, apperrors.ValidationError{Field: "path count", Message: "must be positive"}
	}
	sim := engine.MarketSimulation{
		ID:                 fmt.Sprintf("sim-%d", e.counter.Add(1)),
		ObservationDate:    opts.ObservationDate,
		InterestRate:       opts.InterestRate,
		PathCount:          opts.PathCount,
		PerturbationFactor: opts.PerturbationFactor,
	}

	sigma := calibrationParam(calibration, "sigma", defaultVolatility)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(e.seed)}

	// Collect the date set per commodity, always including the spot date.
	dates := make(map[string]map[time.Time]struct{})
	for _, leg := range spec.Legs {
		if dates[leg.Commodity] == nil {
			dates[leg.Commodity] = map[time.Time]struct{}{opts.ObservationDate: {}}
		}
		if !leg.Spot() {
			dates[leg.Commodity][leg.Delivery] = struct{}{}
		}
	}

	for commodity, dateSet := range dates {
		base := calibrationParam(calibration, commodity, defaultBasePrice)
		draws := make([]float64, opts.PathCount)
		for i := range draws {
			draws[i] = normal.Rand()
		}
		for date := range dateSet {
			horizon := date.Sub(opts.ObservationDate).Hours() / (24 * 365.25)
			if horizon < 0 {
				horizon = 0
			}
			values := make([]float64, opts.PathCount)
			for i, z := range draws {
				values[i] = base * math.Exp(-0.5*sigma*sigma*horizon+sigma*math.Sqrt(horizon)*z)
			}
			e.prices.Put(sim.ID, engine.SimulatedPrice{Commodity: commodity, Date: date, Values: values})
		}
	}

	return sim, nil
}

func calibrationParam(c engine.MarketCalibration, name string, fallback float64) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return fallback
}

// CalcCallCosts returns one unit of cost per contract leg.
func (e *Engine) CalcCallCosts(specID string) (map[string]int, error) {
	e.mu.Lock()
	spec, ok := e.specs[specID]
	e.mu.Unlock()
	if !ok {
		return nil, apperrors.ValidationError{Field: "spec id", Message: "unknown specification " + specID}
	}
	costs := make(map[string]int, len(spec.Legs))
	for i := range spec.Legs {
		costs[fmt.Sprintf("%s/leg-%d", specID, i)] = 1
	}
	return costs, nil
}

// Evaluate starts the valuation on a background goroutine and returns its
// handle. The goroutine publishes UnitOfWorkCompleted per leg, stores the
// result, and only then publishes ResultCreated — the store insert always
// precedes the completion notification.
func (e *Engine) Evaluate(spec engine.ContractSpecification, sim engine.MarketSimulation) (engine.Valuation, error) {
	legPrices := make([][]float64, len(spec.Legs))
	for i, leg := range spec.Legs {
		date := sim.ObservationDate
		if !leg.Spot() {
			date = leg.Delivery
		}
		price, ok := e.prices.Get(sim.ID, leg.Commodity, date, date)
		if !ok {
			return engine.Valuation{}, apperrors.MissingPriceError{Commodity: leg.Commodity, Date: date}
		}
		legPrices[i] = price.Values
	}

	valuation := engine.Valuation{
		ID:                      fmt.Sprintf("valuation-%d", e.counter.Add(1)),
		ContractSpecificationID: spec.ID,
	}
	go e.evaluate(spec, sim, valuation, legPrices)
	return valuation, nil
}

func (e *Engine) evaluate(spec engine.ContractSpecification, sim engine.MarketSimulation, valuation engine.Valuation, legPrices [][]float64) {
	total := make([]float64, sim.PathCount)
	// legValues accumulates discounted per-path leg values per perturbation
	// key, so duplicate legs for the same bucket merge into one key.
	legValues := make(map[string][]float64)

	for i, leg := range spec.Legs {
		discount := 1.0
		if !leg.Spot() {
			horizon := leg.Delivery.Sub(sim.ObservationDate).Hours() / (24 * 365.25)
			if horizon > 0 {
				discount = math.Exp(-sim.InterestRate / 100 * horizon)
			}
		}
		key := perturbationKey(leg)
		if legValues[key] == nil {
			legValues[key] = make([]float64, sim.PathCount)
		}
		for path := 0; path < sim.PathCount; path++ {
			v := leg.Volume * legPrices[i][path] * discount
			legValues[key][path] += v
			total[path] += v
		}
		if e.unitDelay > 0 {
			time.Sleep(e.unitDelay)
		}
		e.bus.Publish(engine.UnitOfWorkCompleted{ValuationID: valuation.ID})
	}

	perturbed := make(map[string][]float64, 2*len(legValues))
	for key, values := range legValues {
		up := make([]float64, sim.PathCount)
		down := make([]float64, sim.PathCount)
		for path := range values {
			shift := sim.PerturbationFactor * values[path]
			up[path] = total[path] + shift
			down[path] = total[path] - shift
		}
		perturbed[key] = up
		perturbed["-"+key] = down
	}

	result := engine.Result{
		ID:              engine.MakeResultID(valuation.ID, spec.ID),
		FairValue:       engine.SampledFairValue(total),
		PerturbedValues: perturbed,
	}
	e.results.Put(result)
	e.bus.Publish(engine.ResultCreated{ID: result.ID})
}

func perturbationKey(leg engine.ContractLeg) string {
	if leg.Spot() {
		return leg.Commodity
	}
	if leg.Daily {
		return fmt.Sprintf("%s-%d-%d-%d", leg.Commodity, leg.Delivery.Year(), int(leg.Delivery.Month()), leg.Delivery.Day())
	}
	return fmt.Sprintf("%s-%d-%d", leg.Commodity, leg.Delivery.Year(), int(leg.Delivery.Month()))
}
