// Package aggregate folds transaction records into calendar buckets in a
// single pass, with optional per-dimension subtotals.
package aggregate

import (
	"errors"
	"fmt"
	"time"

	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/ranking"
)

var ErrMixedGranularity = errors.New("buckets have mixed granularity")

// Dimension selects which breakdowns are computed.
type Dimension uint8

const (
	DimCategory Dimension = 1 << iota
	DimPaymentMethod
	DimEstablishment

	DimNone Dimension = 0
	DimAll            = DimCategory | DimPaymentMethod | DimEstablishment
)

// Has reports whether d includes o.
func (d Dimension) Has(o Dimension) bool {
	return d&o != 0
}

// Input is everything a single aggregation needs.
type Input struct {
	Owner      core.OwnerID
	Records    []core.TransactionRecord
	Buckets    []core.Bucket
	Dimensions Dimension
	Lookups    core.Lookups
	// TopEstablishments limits the ranked establishments per bucket; 0 keeps all.
	TopEstablishments int
}

// Engine is stateless apart from its calendar location and logger.
type Engine struct {
	loc    *time.Location
	logger *log.Logger
}

func New(loc *time.Location, logger *log.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		loc:    loc,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentAggregate),
	}
}

type groupAcc struct {
	ref   core.Ref
	total core.Money
	count int
}

type dimAcc struct {
	order  []string
	groups map[string]*groupAcc
}

func (d *dimAcc) add(ref core.Ref, amount core.Money) {
	if d.groups == nil {
		d.groups = make(map[string]*groupAcc)
	}
	key := ref.Key()
	g, ok := d.groups[key]
	if !ok {
		g = &groupAcc{ref: ref}
		d.groups[key] = g
		d.order = append(d.order, key)
	}
	g.total = g.total.Add(amount)
	g.count++
}

func (d *dimAcc) totals() []core.GroupTotal {
	out := make([]core.GroupTotal, 0, len(d.order))
	for _, key := range d.order {
		g := d.groups[key]
		out = append(out, core.GroupTotal{Ref: g.ref, Total: g.total, Count: g.count})
	}
	ranking.SortGroups(out)
	return out
}

type bucketAcc struct {
	total          core.Money
	count          int
	categories     dimAcc
	paymentMethods dimAcc
	establishments dimAcc
}

// Aggregate returns one result per bucket, in bucket order, including empty
// buckets. Records outside every bucket are dropped.
func (e *Engine) Aggregate(in Input) ([]core.AggregateResult, error) {
	if len(in.Buckets) == 0 {
		return []core.AggregateResult{}, nil
	}

	granularity := in.Buckets[0].Granularity
	index := make(map[int]int, len(in.Buckets))
	for i, b := range in.Buckets {
		if b.Granularity != granularity {
			return nil, fmt.Errorf("bucket %d is %s, expected %s: %w", i, b.Granularity, granularity, ErrMixedGranularity)
		}
		index[b.Key] = i
	}

	accs := make([]bucketAcc, len(in.Buckets))
	for _, rec := range Dedupe(in.Records) {
		if in.Owner != "" && rec.OwnerID != in.Owner {
			e.warn(rec, "record belongs to another owner")
			continue
		}
		if rec.OccurredAt.IsZero() {
			e.warn(rec, "record has no occurred_at")
			continue
		}

		day := core.DayOf(rec.OccurredAt, e.loc)
		i, ok := index[core.KeyOf(granularity, day)]
		if !ok {
			continue
		}

		amount := rec.Amount.Money
		if !rec.Amount.Valid {
			e.warn(rec, "amount missing or invalid, counted as zero")
			amount = core.Money{}
		}

		acc := &accs[i]
		acc.total = acc.total.Add(amount)
		acc.count++

		if in.Dimensions.Has(DimCategory) {
			acc.categories.add(in.Lookups.Resolve(core.CategoryKind, rec.CategoryID), amount)
		}
		if in.Dimensions.Has(DimPaymentMethod) {
			acc.paymentMethods.add(in.Lookups.Resolve(core.PaymentMethodKind, rec.PaymentMethodID), amount)
		}
		if in.Dimensions.Has(DimEstablishment) {
			acc.establishments.add(in.Lookups.Resolve(core.EstablishmentKind, rec.EstablishmentID), amount)
		}
	}

	results := make([]core.AggregateResult, len(in.Buckets))
	for i, b := range in.Buckets {
		acc := &accs[i]
		res := core.AggregateResult{
			Bucket: b,
			Total:  acc.total,
			Count:  acc.count,
		}
		if in.Dimensions.Has(DimCategory) {
			res.ByCategory = acc.categories.totals()
		}
		if in.Dimensions.Has(DimPaymentMethod) {
			res.ByPaymentMethod = acc.paymentMethods.totals()
		}
		if in.Dimensions.Has(DimEstablishment) {
			res.ByEstablishment = acc.establishments.totals()
			res.TopEstablishments = ranking.TopN(res.ByEstablishment, in.TopEstablishments)
		}
		results[i] = res
	}

	e.logger.Debug("Aggregation complete",
		log.FieldOwner, string(in.Owner),
		log.FieldRecordCount, len(in.Records),
		log.FieldBucketCount, len(in.Buckets))

	return results, nil
}

func (e *Engine) warn(rec core.TransactionRecord, reason string) {
	e.logger.Warn("Data quality issue",
		log.FieldWarning, log.WarningDataQuality,
		log.FieldTxID, rec.ID,
		log.FieldOwner, string(rec.OwnerID),
		"reason", reason)
}

// Dedupe drops records whose id was already seen; the first occurrence wins.
// Records without an id are kept as they cannot be told apart.
func Dedupe(records []core.TransactionRecord) []core.TransactionRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]core.TransactionRecord, 0, len(records))
	for _, r := range records {
		if r.ID != "" {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}

// Totals sums the per-bucket results.
func Totals(results []core.AggregateResult) (core.Money, int) {
	var total core.Money
	var count int
	for _, r := range results {
		total = total.Add(r.Total)
		count += r.Count
	}
	return total, count
}

// Merge combines the dimension groups of several results into one list, in
// deterministic order. It is used for period-wide breakdowns.
func Merge(results []core.AggregateResult, pick func(core.AggregateResult) []core.GroupTotal) []core.GroupTotal {
	var acc dimAcc
	for _, r := range results {
		for _, g := range pick(r) {
			if acc.groups == nil {
				acc.groups = make(map[string]*groupAcc)
			}
			key := g.Ref.Key()
			existing, ok := acc.groups[key]
			if !ok {
				existing = &groupAcc{ref: g.Ref}
				acc.groups[key] = existing
				acc.order = append(acc.order, key)
			}
			existing.total = existing.total.Add(g.Total)
			existing.count += g.Count
		}
	}
	return acc.totals()
}

// ByCategory, ByPaymentMethod and ByEstablishment are pickers for Merge.
func ByCategory(r core.AggregateResult) []core.GroupTotal      { return r.ByCategory }
func ByPaymentMethod(r core.AggregateResult) []core.GroupTotal { return r.ByPaymentMethod }
func ByEstablishment(r core.AggregateResult) []core.GroupTotal { return r.ByEstablishment }
