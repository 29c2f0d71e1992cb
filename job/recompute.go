// Package job runs the periodic recomputation sweep: every stored trip
// and flight has its derived totals rebuilt from the raw entries and
// compared against what the database holds. Records whose stored
// values drifted are corrected in place; the sweep also scans for
// suspected duplicate payments and flight expenses.
package job

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	odiff "github.com/r3labs/diff/v3"
	"github.com/sirupsen/logrus"

	"fleetledger/db/db"
	"fleetledger/ledger"
	"fleetledger/libs/diff"
	"fleetledger/mq/mq"
)

// Options narrows a sweep. Zero BusinessID/DriverID/RecordID mean all
// records, zero From/To mean no date bound; Workers <= 0 falls back to
// defaultWorkers.
type Options struct {
	BusinessID uuid.UUID
	DriverID   uuid.UUID
	// RecordID limits the sweep to a single trip or flight.
	RecordID uuid.UUID
	// From and To bound the sweep by record creation time, half-open
	// [From, To).
	From time.Time
	To   time.Time

	Workers int
	// DryRun reports drift without writing corrections back.
	DryRun bool
}

const defaultWorkers = 4

// FieldDrift is one stored field that disagreed with the recomputation.
type FieldDrift struct {
	RecordID uuid.UUID
	Kind     mq.RecordKind
	DriverID uuid.UUID
	Field    string
	From     string
	To       string
}

// DuplicateGroup flags entries sharing an identity key. Duplicates are
// reported, never deleted; deciding which entry is real takes a human.
type DuplicateGroup struct {
	Kind     string // "payment" or "flight_expense"
	RecordID uuid.UUID
	Key      string
	Count    int
}

// Report is the outcome of one sweep.
type Report struct {
	ProcessedTrips   int
	ProcessedFlights int
	Drifted          int
	Failed           int
	Warnings         int
	Drifts           []FieldDrift
	Duplicates       []DuplicateGroup
	Elapsed          time.Duration
}

// Recomputer owns one sweep's collaborators. The queue wrapper is
// optional; without it drift is only logged and reported.
type Recomputer struct {
	store  db.FleetDBWrapper
	conv   ledger.Converter
	differ *odiff.Differ
	queues mq.LedgerMessageQueueWrapper
	log    *logrus.Logger
}

func NewRecomputer(store db.FleetDBWrapper, conv ledger.Converter, queues mq.LedgerMessageQueueWrapper, log *logrus.Logger) *Recomputer {
	return &Recomputer{
		store:  store,
		conv:   conv,
		differ: diff.GetCustomDiffer(),
		queues: queues,
		log:    log,
	}
}

type workItem struct {
	trip   *ledger.Trip
	flight *ledger.Flight
}

// Run sweeps every record matched by opts with a bounded worker pool.
// A record is never handled by two workers because each item is read
// from the channel exactly once.
func (r *Recomputer) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()

	filter := db.RecordFilter{
		BusinessID: opts.BusinessID,
		DriverID:   opts.DriverID,
		ID:         opts.RecordID,
		From:       opts.From,
		To:         opts.To,
	}
	trips, err := r.store.ListTrips(filter)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	flights, err := r.store.ListFlights(filter)
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}

	items := make(chan workItem)
	report := &Report{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				var (
					drifts   []FieldDrift
					warnings int
					err      error
				)
				if item.trip != nil {
					drifts, warnings, err = r.recomputeTrip(item.trip, opts.DryRun)
				} else {
					drifts, warnings, err = r.recomputeFlight(item.flight, opts.DryRun)
				}

				mu.Lock()
				if item.trip != nil {
					report.ProcessedTrips++
				} else {
					report.ProcessedFlights++
				}
				report.Warnings += warnings
				if err != nil {
					report.Failed++
				} else if len(drifts) > 0 {
					report.Drifted++
					report.Drifts = append(report.Drifts, drifts...)
				}
				mu.Unlock()
			}
		}()
	}

	feed := func() error {
		defer close(items)
		for i := range trips {
			select {
			case items <- workItem{trip: &trips[i]}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for i := range flights {
			select {
			case items <- workItem{flight: &flights[i]}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	feedErr := feed()
	wg.Wait()

	report.Duplicates = r.scanDuplicates(opts, flights)
	report.Elapsed = time.Since(start)

	r.log.WithFields(logrus.Fields{
		"trips":      report.ProcessedTrips,
		"flights":    report.ProcessedFlights,
		"drifted":    report.Drifted,
		"failed":     report.Failed,
		"duplicates": len(report.Duplicates),
		"elapsed":    report.Elapsed,
	}).Info("recomputation sweep finished")

	if feedErr != nil {
		return report, feedErr
	}
	return report, nil
}

func (r *Recomputer) recomputeTrip(stored *ledger.Trip, dryRun bool) ([]FieldDrift, int, error) {
	fresh := cloneTrip(stored)
	warnings := ledger.RecomputeTrip(fresh, r.conv)
	r.logWarnings(mq.RecordKindTrip, stored.ID, warnings)

	changes, err := r.differ.Diff(*stored, *fresh)
	if err != nil {
		return nil, len(warnings), fmt.Errorf("diff trip %s: %w", stored.ID, err)
	}
	drifts := r.toDrifts(mq.RecordKindTrip, stored.ID, stored.DriverID, changes)
	if len(drifts) == 0 {
		return nil, len(warnings), nil
	}

	if !dryRun {
		if err := r.store.UpdateTrip(fresh); err != nil {
			return nil, len(warnings), fmt.Errorf("update trip %s: %w", stored.ID, err)
		}
		r.publishRecord(mq.LedgerRecordMessage{
			ID:          fresh.ID,
			Kind:        mq.RecordKindTrip,
			DriverID:    fresh.DriverID,
			TotalIncome: fresh.Income,
			NetProfit:   fresh.Profit,
		})
	}
	r.publishDrifts(drifts)
	return drifts, len(warnings), nil
}

func (r *Recomputer) recomputeFlight(stored *ledger.Flight, dryRun bool) ([]FieldDrift, int, error) {
	fresh := cloneFlight(stored)
	warnings := ledger.RecomputeFlight(fresh, r.conv)
	r.logWarnings(mq.RecordKindFlight, stored.ID, warnings)

	changes, err := r.differ.Diff(*stored, *fresh)
	if err != nil {
		return nil, len(warnings), fmt.Errorf("diff flight %s: %w", stored.ID, err)
	}
	drifts := r.toDrifts(mq.RecordKindFlight, stored.ID, stored.DriverID, changes)
	if len(drifts) == 0 {
		return nil, len(warnings), nil
	}

	if !dryRun {
		if err := r.store.UpdateFlight(fresh); err != nil {
			return nil, len(warnings), fmt.Errorf("update flight %s: %w", stored.ID, err)
		}
		r.publishRecord(mq.LedgerRecordMessage{
			ID:          fresh.ID,
			Kind:        mq.RecordKindFlight,
			DriverID:    fresh.DriverID,
			TotalIncome: fresh.TotalIncome,
			NetProfit:   fresh.NetProfit,
			DriverOwes:  fresh.DriverOwes,
		})
	}
	r.publishDrifts(drifts)
	return drifts, len(warnings), nil
}

func (r *Recomputer) toDrifts(kind mq.RecordKind, recordID, driverID uuid.UUID, changes odiff.Changelog) []FieldDrift {
	drifts := make([]FieldDrift, 0, len(changes))
	for _, ch := range changes {
		d := FieldDrift{
			RecordID: recordID,
			Kind:     kind,
			DriverID: driverID,
			Field:    strings.Join(ch.Path, "."),
			From:     fmt.Sprintf("%v", ch.From),
			To:       fmt.Sprintf("%v", ch.To),
		}
		r.log.WithFields(logrus.Fields{
			"kind":   kind,
			"record": recordID,
			"field":  d.Field,
			"from":   d.From,
			"to":     d.To,
		}).Warn("stored value drifted from recomputation")
		drifts = append(drifts, d)
	}
	return drifts
}

func (r *Recomputer) logWarnings(kind mq.RecordKind, recordID uuid.UUID, warnings []ledger.Warning) {
	for _, w := range warnings {
		entry := r.log.WithFields(logrus.Fields{
			"kind":   kind,
			"record": recordID,
			"field":  w.Field,
		})
		if w.Level == ledger.WarnInvariant {
			entry.Warn(w.Message)
		} else {
			entry.Info(w.Message)
		}
	}
}

func (r *Recomputer) publishRecord(msg mq.LedgerRecordMessage) {
	if r.queues == nil {
		return
	}
	q := r.queues.GetLedgerRecordMessageQueue(mq.ActionUpdate)
	if q == nil {
		return
	}
	if err := q.Publish(msg); err != nil {
		r.log.WithError(err).WithField("record", msg.ID).Warn("failed to publish record update")
	}
}

func (r *Recomputer) publishDrifts(drifts []FieldDrift) {
	if r.queues == nil {
		return
	}
	q := r.queues.GetDriftMessageQueue()
	if q == nil {
		return
	}
	now := time.Now()
	for _, d := range drifts {
		msg := mq.DriftMessage{
			RecordID: d.RecordID,
			Kind:     d.Kind,
			DriverID: d.DriverID,
			Field:    d.Field,
			From:     d.From,
			To:       d.To,
			At:       now,
		}
		if err := q.Publish(msg); err != nil {
			r.log.WithError(err).WithField("record", d.RecordID).Warn("failed to publish drift")
		}
	}
}

// scanDuplicates groups payments by driver, day, amount and type, and
// flight expenses by type, amount, currency and day within one flight.
func (r *Recomputer) scanDuplicates(opts Options, flights []ledger.Flight) []DuplicateGroup {
	var groups []DuplicateGroup

	payments, err := r.store.ListPayments(opts.DriverID)
	if err != nil {
		r.log.WithError(err).Warn("duplicate scan: listing payments failed")
	} else {
		seen := make(map[string]int)
		for _, p := range payments {
			key := fmt.Sprintf("%s|%s|%.2f|%s", p.DriverID, p.Date.Format("2006-01-02"), p.Amount, p.Type)
			seen[key]++
		}
		for key, cnt := range seen {
			if cnt > 1 {
				groups = append(groups, DuplicateGroup{Kind: "payment", Key: key, Count: cnt})
			}
		}
	}

	for i := range flights {
		f := &flights[i]
		seen := make(map[string]int)
		for _, e := range f.Expenses {
			key := fmt.Sprintf("%s|%.2f|%s|%s", e.Type, e.Amount, e.Currency, e.Date.Format("2006-01-02"))
			seen[key]++
		}
		for key, cnt := range seen {
			if cnt > 1 {
				groups = append(groups, DuplicateGroup{Kind: "flight_expense", RecordID: f.ID, Key: key, Count: cnt})
			}
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Kind != groups[j].Kind {
			return groups[i].Kind < groups[j].Kind
		}
		return groups[i].Key < groups[j].Key
	})
	for _, g := range groups {
		r.log.WithFields(logrus.Fields{
			"kind":  g.Kind,
			"key":   g.Key,
			"count": g.Count,
		}).Warn("suspected duplicate entries")
	}
	return groups
}

func cloneTrip(t *ledger.Trip) *ledger.Trip {
	cp := *t
	cp.Fuel = append([]ledger.FuelEntry(nil), t.Fuel...)
	cp.RoadExpenses = append([]ledger.RoadExpense(nil), t.RoadExpenses...)
	cp.Unexpected = append([]ledger.UnexpectedExpense(nil), t.Unexpected...)
	if t.FuelSummary.ByCountry != nil {
		cp.FuelSummary.ByCountry = make(map[string]ledger.CountryFuel, len(t.FuelSummary.ByCountry))
		for k, v := range t.FuelSummary.ByCountry {
			cp.FuelSummary.ByCountry[k] = v
		}
	}
	return &cp
}

func cloneFlight(f *ledger.Flight) *ledger.Flight {
	cp := *f
	cp.Legs = append([]ledger.Leg(nil), f.Legs...)
	cp.Expenses = append([]ledger.FlightExpense(nil), f.Expenses...)
	return &cp
}
