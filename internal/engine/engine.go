// Package engine defines the contracts of the external contract valuation
// engine: compilation, market simulation, asynchronous evaluation, the
// notification stream, and the authoritative result and simulated-price
// stores. The engine itself runs elsewhere (multithreaded or distributed);
// this package only names what the synchronizer, telemetry and aggregation
// layers consume.
package engine

import (
	"fmt"
	"time"
)

// ContractSpecification is a compiled contract, identified by a stable ID.
// Legs are the delivery obligations the evaluator walks when valuing the
// contract; each leg contributes one unit of evaluation work.
type ContractSpecification struct {
	ID     string
	Source string
	Legs   []ContractLeg
}

// ContractLeg is a single delivery obligation: a volume of a commodity,
// either at the observation date (spot, Delivery zero) or on a future date.
type ContractLeg struct {
	Commodity string
	// Delivery is the delivery date. The zero value marks a spot leg valued
	// at the simulation's observation date.
	Delivery time.Time
	// Daily reports whether the leg was specified with day resolution.
	// Monthly legs are priced on the first of the month.
	Daily  bool
	Volume float64
}

// Spot reports whether the leg is a spot (non-dated) obligation.
func (l ContractLeg) Spot() bool { return l.Delivery.IsZero() }

// MarketCalibration holds registered price-process parameters.
type MarketCalibration struct {
	ID          string
	ProcessName string
	Params      map[string]float64
}

// MarketSimulation identifies one set of simulated market paths, produced for
// a given calibration, path count and observation date. Perturbed paths for
// finite differencing are generated with the same PerturbationFactor that the
// aggregation later divides by.
type MarketSimulation struct {
	ID                 string
	ObservationDate    time.Time
	InterestRate       float64
	PathCount          int
	PerturbationFactor float64
}

// SimulationOptions carries the parameters of a simulation request.
type SimulationOptions struct {
	PathCount          int
	ObservationDate    time.Time
	InterestRate       float64
	PerturbationFactor float64
}

// Valuation is the handle returned by an asynchronous Evaluate call.
// Completion is signaled on the notification stream, never through the handle.
type Valuation struct {
	ID                      string
	ContractSpecificationID string
}

// FairValue is the base fair value of a valuation: either a single scalar or
// a per-path sample vector of length equal to the simulation's path count.
type FairValue struct {
	scalar  float64
	samples []float64
	sampled bool
}

// ScalarFairValue wraps a deterministic fair value.
func ScalarFairValue(v float64) FairValue {
	return FairValue{scalar: v}
}

// SampledFairValue wraps a per-path fair value sample vector.
func SampledFairValue(samples []float64) FairValue {
	return FairValue{samples: samples, sampled: true}
}

// Scalar returns the scalar fair value. The bool is false when the fair value
// is a sample vector.
func (f FairValue) Scalar() (float64, bool) { return f.scalar, !f.sampled }

// Samples returns the per-path sample vector. The bool is false when the fair
// value is a scalar.
func (f FairValue) Samples() ([]float64, bool) { return f.samples, f.sampled }

// Result is a completed valuation: the base fair value plus the per-path
// sample vector of every perturbed run, keyed by perturbation key. A key
// prefixed with "-" holds the downward perturbation of its unprefixed
// counterpart. Results are owned by the result store and read-only here.
type Result struct {
	ID              string
	FairValue       FairValue
	PerturbedValues map[string][]float64
}

// UnitOfWorkCompleted is published once per computed node value while an
// evaluation runs. It feeds the progress telemetry tracker.
type UnitOfWorkCompleted struct {
	ValuationID string
}

// ResultCreated is published exactly once when a valuation's result has been
// stored. The store insert precedes the notification, so a waiter that
// observes this event will find the result present.
type ResultCreated struct {
	ID string
}

// Handler receives published notifications. Handlers may be invoked on
// arbitrary producer goroutines and must not block.
type Handler func(event any)

// Subscription is a handle on a registered notification handler. Unsubscribe
// is idempotent and must be called when the subscriber is done, so handlers
// never fire into discarded state across repeated runs.
type Subscription interface {
	Unsubscribe()
}

// NotificationStream is the engine's event feed. Unit-of-work events and the
// final completion event arrive on independent subscriptions with no ordering
// guarantee between them.
type NotificationStream interface {
	Subscribe(h Handler) Subscription
}

// ResultStore is the authoritative home of completed valuations. Membership
// in the store, not any notification, decides whether a valuation is done.
type ResultStore interface {
	Contains(id string) bool
	Get(id string) (Result, bool)
}

// PriceStore resolves simulated price sample vectors by simulation,
// commodity and date interval.
type PriceStore interface {
	Get(simulationID, commodity string, start, end time.Time) (SimulatedPrice, bool)
}

// SimulatedPrice is a per-commodity, per-date vector of simulated price
// samples, one per path.
type SimulatedPrice struct {
	Commodity string
	Date      time.Time
	Values    []float64
}

// App is the full valuation engine surface consumed by the orchestration
// layer. Implementations may be in-process (see engine/memory) or remote.
type App interface {
	Compile(source string) (ContractSpecification, error)
	RegisterMarketCalibration(processName string, params map[string]float64) (MarketCalibration, error)
	Simulate(spec ContractSpecification, calibration MarketCalibration, opts SimulationOptions) (MarketSimulation, error)
	// CalcCallCosts returns the per-node cost estimates for a compiled
	// contract. Their sum is the total-cost denominator for progress
	// telemetry.
	CalcCallCosts(specID string) (map[string]int, error)
	// Evaluate starts an asynchronous valuation. Completion is signaled by a
	// ResultCreated notification carrying MakeResultID(valuation, spec).
	Evaluate(spec ContractSpecification, sim MarketSimulation) (Valuation, error)

	Notifications() NotificationStream
	Results() ResultStore
	Prices() PriceStore
}

// MakeResultID derives the deterministic result-store key for a valuation of
// a compiled contract.
func MakeResultID(valuationID, specID string) string {
	return fmt.Sprintf("%s::%s", valuationID, specID)
}

// MakePriceID derives the deterministic price-store key for a simulated price.
func MakePriceID(simulationID, commodity string, start, end time.Time) string {
	const layout = "2006-01-02"
	return fmt.Sprintf("%s::%s::%s::%s", simulationID, commodity, start.Format(layout), end.Format(layout))
}
