package export

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Mohsinsiddi/ronexport/internal/address"
	"github.com/Mohsinsiddi/ronexport/internal/ronin"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Exporter collects every transaction touching an address, decodes each
// one and returns the records ordered by block number.
type Exporter struct {
	src      Source
	logs     *zap.SugaredLogger
	obs      Observer
	skipSelf bool
	tracer   trace.Tracer
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logs = l
		}
	}
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(e *Exporter) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithSkipSelf drops transactions whose sender and recipient are the same.
func WithSkipSelf(skip bool) Option {
	return func(e *Exporter) { e.skipSelf = skip }
}

// New creates an Exporter reading from src.
func New(src Source, opts ...Option) *Exporter {
	e := &Exporter{
		src:    src,
		logs:   zap.NewNop().Sugar(),
		obs:    nopObserver{},
		tracer: otel.Tracer("github.com/Mohsinsiddi/ronexport/internal/export"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a successful run.
type Result struct {
	Address common.Address
	Records []Record
	Summary Summary
}

// Run validates rawAddress, walks the sent and received listings until an
// empty page, fetches each transaction with its decoded input and receipt,
// and returns the records stable-sorted by block number. Any failure aborts
// the whole run. An invalid address fails before any request is made.
func (e *Exporter) Run(ctx context.Context, rawAddress string) (*Result, error) {
	addr, err := address.Parse(rawAddress)
	if err != nil {
		return nil, err
	}
	hexAddr := addr.Hex()

	ctx, span := e.tracer.Start(ctx, "export.run", trace.WithAttributes(attribute.String("address", hexAddr)))
	defer span.End()

	res, err := e.run(ctx, addr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("export.unique", res.Summary.Unique),
		attribute.Int("export.exported", res.Summary.Exported),
	)
	return res, nil
}

func (e *Exporter) run(ctx context.Context, addr common.Address) (*Result, error) {
	hexAddr := addr.Hex()
	logs := e.logs.With("address", hexAddr)

	sent, err := e.collect(ctx, "sent", e.src.ListSent, hexAddr)
	if err != nil {
		return nil, err
	}
	received, err := e.collect(ctx, "received", e.src.ListReceived, hexAddr)
	if err != nil {
		return nil, err
	}

	hashes := dedup(sent, received)
	res := &Result{
		Address: addr,
		Records: make([]Record, 0, len(hashes)),
		Summary: Summary{Sent: len(sent), Received: len(received), Unique: len(hashes)},
	}
	logs.Infow("transactions discovered", "sent", len(sent), "received", len(received), "unique", len(hashes))
	e.obs.Discovered(len(sent), len(received), len(hashes))

	for i, hash := range hashes {
		rec, skip, err := e.fetch(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", hash, err)
		}
		if skip {
			res.Summary.Skipped++
			logs.Debugw("skipping self transaction", "hash", hash)
		} else {
			res.Records = append(res.Records, *rec)
		}
		e.obs.Completed(hash, i+1, len(hashes))
	}

	SortByBlock(res.Records)
	res.Summary.Exported = len(res.Records)
	logs.Infow("export collected", "exported", res.Summary.Exported, "skipped", res.Summary.Skipped)
	return res, nil
}

type listFunc func(ctx context.Context, address string, page int) (*ronin.Page, error)

// collect pages through one listing until it returns an empty page. A page
// holding nothing new also ends the walk, in case the server ignores paging.
func (e *Exporter) collect(ctx context.Context, kind string, list listFunc, addr string) ([]string, error) {
	var hashes []string
	seen := make(map[string]struct{})
	for page := 1; ; page++ {
		p, err := list(ctx, addr, page)
		if err != nil {
			return nil, fmt.Errorf("listing %s transactions, page %d: %w", kind, page, err)
		}
		if len(p.Transactions) == 0 {
			return hashes, nil
		}

		fresh := 0
		for _, h := range p.Transactions {
			key := strings.ToLower(h)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			hashes = append(hashes, h)
			fresh++
		}
		e.logs.Debugw("listing page", "kind", kind, "page", page, "hashes", len(p.Transactions), "new", fresh)
		if fresh == 0 {
			e.logs.Warnw("listing repeated a page, stopping", "kind", kind, "page", page)
			return hashes, nil
		}
	}
}

func (e *Exporter) fetch(ctx context.Context, hash string) (*Record, bool, error) {
	tx, err := e.src.Transaction(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	if e.skipSelf && strings.EqualFold(tx.From, tx.To) {
		return nil, true, nil
	}

	input, err := e.src.DecodeTransaction(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	output, err := e.src.DecodeReceipt(ctx, hash)
	if err != nil {
		return nil, false, err
	}

	return &Record{
		From:        tx.From,
		To:          tx.To,
		Hash:        hash,
		BlockNumber: tx.BlockNumber,
		Input:       input,
		Output:      output,
	}, false, nil
}

// dedup concatenates the lists and drops repeated hashes, keeping the
// first occurrence in place.
func dedup(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, h := range l {
			key := strings.ToLower(h)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// SortByBlock orders records by ascending block number; records in the
// same block keep their relative order.
func SortByBlock(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(a.BlockNumber, b.BlockNumber)
	})
}
