package relay

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	relay_errors "github.com/customeros/metricsrelay/internal/errors"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/tracing"
)

// Target names a dispatch destination of the relay.
type Target string

const (
	TargetLog       Target = "log"
	TargetAnalytics Target = "analytics"
)

// Delivery is a fully prepared record plus the analytics call it maps to.
type Delivery struct {
	Record   dto.LogRecord
	Endpoint interfaces.AnalyticsEndpoint
	Payload  any
	// Forward is false when the caller asked for log only delivery.
	Forward bool
}

type Failure struct {
	Target Target
	Err    error
}

// Outcome collects the failures of every dispatch that was started.
type Outcome struct {
	Failures []Failure
}

func (o Outcome) OK() bool {
	return len(o.Failures) == 0
}

// Err is the error reported to the client. A log sink failure takes precedence.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	for _, f := range o.Failures {
		if f.Target == TargetLog {
			return f.Err
		}
	}
	return o.Failures[0].Err
}

// Combined joins every failure, for server side logging.
func (o Outcome) Combined() error {
	var err error
	for _, f := range o.Failures {
		err = multierr.Append(err, errors.Wrapf(f.Err, "%s", f.Target))
	}
	return err
}

type Relay struct {
	sink             interfaces.LogSink
	analytics        interfaces.AnalyticsService
	log              logger.Logger
	sinkFailureFatal bool
}

type Option func(*Relay)

// WithSinkFailureFatal controls whether a log sink failure fails the request. Defaults to true.
func WithSinkFailureFatal(fatal bool) Option {
	return func(r *Relay) {
		r.sinkFailureFatal = fatal
	}
}

func NewRelay(sink interfaces.LogSink, analytics interfaces.AnalyticsService, log logger.Logger, opts ...Option) *Relay {
	r := &Relay{
		sink:             sink,
		analytics:        analytics,
		log:              log,
		sinkFailureFatal: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Forwarding reports whether analytics delivery is possible at all.
func (r *Relay) Forwarding() bool {
	return r.analytics != nil && r.analytics.Enabled()
}

// Dispatch appends the record to the log sink and, unless skipped, forwards the payload
// to the analytics backend. Both run concurrently and both are awaited.
func (r *Relay) Dispatch(ctx context.Context, delivery Delivery) Outcome {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Relay.Dispatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEvent(span, delivery.Record.EventName())

	// dispatches run to completion even if the client disconnects
	ctx = context.WithoutCancel(ctx)

	forward := delivery.Forward && r.Forwarding()
	span.LogKV("forward", forward)

	var (
		wg           sync.WaitGroup
		logErr       error
		analyticsErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logErr = safeCall(func() error {
			return r.sink.Write(ctx, delivery.Record)
		})
	}()

	if forward {
		wg.Add(1)
		go func() {
			defer wg.Done()
			analyticsErr = safeCall(func() error {
				return r.analytics.Send(ctx, delivery.Endpoint, delivery.Payload)
			})
		}()
	}

	wg.Wait()

	outcome := Outcome{}
	if logErr != nil {
		r.log.Errorf("Failed to write %s record to log sink: %v", delivery.Record.EventName(), logErr)
		if r.sinkFailureFatal {
			outcome.Failures = append(outcome.Failures, Failure{Target: TargetLog, Err: classifySinkError(logErr)})
		}
	}
	if analyticsErr != nil {
		r.log.Errorf("Failed to forward %s record to analytics backend: %v", delivery.Record.EventName(), analyticsErr)
		outcome.Failures = append(outcome.Failures, Failure{Target: TargetAnalytics, Err: analyticsErr})
	}

	if !outcome.OK() {
		tracing.TraceErr(span, outcome.Combined())
	}
	return outcome
}

func classifySinkError(err error) error {
	if _, ok := relay_errors.AsClassified(err); ok {
		return err
	}
	return relay_errors.SinkFailed(err)
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic during dispatch: %v", rec)
		}
	}()
	return fn()
}
