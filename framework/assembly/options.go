package assembly

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultIterationLimit bounds the passes of the constructor resolution loop.
const DefaultIterationLimit = 100

// Options configure one assembly session.
type Options struct {
	// IterationLimit is the number of resolution passes after which pending
	// constructions are fatal.
	IterationLimit int `validate:"gte=1"`

	// CreateMissingDependencies allows unknown types to be created through a
	// zero-argument constructor.
	CreateMissingDependencies bool

	// RetainContext keeps the registry content after the session.
	RetainContext bool

	// RetainProcessors keeps processors, scanners and bookkeeping after the
	// session.
	RetainProcessors bool

	// StrictConstructors fails on types declaring several constructors with
	// no zero-argument one, instead of picking the first with a warning.
	StrictConstructors bool

	// OnStart runs before the meta phase, OnEnd after the post-scan hook.
	// Both receive the live registry.
	OnStart func(ctx *Context) error `validate:"-"`
	OnEnd   func(ctx *Context) error `validate:"-"`

	Logger *zap.Logger  `validate:"-"`
	Tracer trace.Tracer `validate:"-"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		IterationLimit:            DefaultIterationLimit,
		CreateMissingDependencies: true,
		Logger:                    zap.NewNop(),
		Tracer:                    otel.Tracer("github.com/km-arc/go-assemble/framework/assembly"),
	}
}

var validate = validator.New()

func (o Options) validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("assembly: invalid options: %w", err)
	}
	return nil
}

// Option mutates Options.
type Option func(*Options)

// WithIterationLimit sets the resolution pass bound.
func WithIterationLimit(n int) Option {
	return func(o *Options) { o.IterationLimit = n }
}

// WithCreateMissingDependencies toggles auto-creation.
func WithCreateMissingDependencies(enabled bool) Option {
	return func(o *Options) { o.CreateMissingDependencies = enabled }
}

// WithRetainContext keeps the registry after the session.
func WithRetainContext(retain bool) Option {
	return func(o *Options) { o.RetainContext = retain }
}

// WithRetainProcessors keeps processor bookkeeping after the session.
func WithRetainProcessors(retain bool) Option {
	return func(o *Options) { o.RetainProcessors = retain }
}

// WithStrictConstructors makes constructor ambiguity fatal.
func WithStrictConstructors(strict bool) Option {
	return func(o *Options) { o.StrictConstructors = strict }
}

// WithOnStart sets the pre-session callback.
func WithOnStart(fn func(ctx *Context) error) Option {
	return func(o *Options) { o.OnStart = fn }
}

// WithOnEnd sets the post-session callback.
func WithOnEnd(fn func(ctx *Context) error) Option {
	return func(o *Options) { o.OnEnd = fn }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithTracer sets the tracer used for phase spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Options) {
		if tracer != nil {
			o.Tracer = tracer
		}
	}
}

// WithOptions replaces every option at once, e.g. from loaded configuration.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		logger, tracer := o.Logger, o.Tracer
		*o = opts
		if o.Logger == nil {
			o.Logger = logger
		}
		if o.Tracer == nil {
			o.Tracer = tracer
		}
	}
}
