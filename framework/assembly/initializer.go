package assembly

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/framework/markers"
	"github.com/km-arc/go-assemble/framework/meta"
)

type root struct {
	typ     reflect.Type
	scanner meta.Scanner
}

// Initializer runs one assembly session. It is used once and discarded:
//
//	ini := assembly.New(assembly.WithLogger(logger))
//	processors.Install(ini)
//	ini.AddScanner(reflect.TypeFor[*app.Engine](), meta.NewCatalogScanner(catalog))
//
//	destroyer, err := ini.Initiate(ctx)
//	if err != nil {
//	    return err // configuration bug, fail the process
//	}
//	defer destroyer.Fire()
//
// The session registers manual components and processors, constructs and
// wires meta-marked types (processors, providers), runs the pre-scan hooks,
// constructs and wires regular components, runs the post-scan hooks and
// finally discards its scaffolding. Only the returned Destroyer and the wired
// component graph outlive it.
type Initializer struct {
	opts   Options
	id     string
	logger *zap.Logger

	roots       []root
	components  []any
	processors  []Processor
	descriptors []*meta.Type
	metaMarkers []reflect.Type
	markers     []reflect.Type

	pipeline    *pipeline
	context     *Context
	destroyer   *Destroyer
	constructed map[reflect.Type]bool

	started bool
}

// New creates an Initializer. Default processors are not installed; see
// processors.Install for the documented default set.
func New(opts ...Option) *Initializer {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Initializer{
		opts:        o,
		id:          uuid.NewString(),
		logger:      o.Logger,
		metaMarkers: markers.Meta(),
		markers:     []reflect.Type{meta.MarkerOf[markers.Component]()},
		pipeline:    newPipeline(),
		constructed: make(map[reflect.Type]bool),
	}
}

// ID returns the session identifier used in logs and traces.
func (i *Initializer) ID() string { return i.id }

// Options returns the session options.
func (i *Initializer) Options() Options { return i.opts }

// Logger returns the session logger, for processors.
func (i *Initializer) Logger() *zap.Logger { return i.logger }

// ── Setup ─────────────────────────────────────────────────────────────────────

// AddScanner adds a scanning root. The package path of rootType is the
// namespace the scanner searches; nil searches everything the scanner knows.
// It panics once the session has started.
func (i *Initializer) AddScanner(rootType reflect.Type, scanner meta.Scanner) *Initializer {
	i.mustNotHaveStarted("AddScanner")
	if scanner == nil {
		panic("assembly: AddScanner: nil scanner")
	}
	i.roots = append(i.roots, root{typ: rootType, scanner: scanner})
	return i
}

// AddComponent adds pre-built components. They are registered before the
// meta phase and wired with the regular batch. It panics once the session
// has started.
func (i *Initializer) AddComponent(components ...any) *Initializer {
	i.mustNotHaveStarted("AddComponent")
	for _, c := range components {
		if c == nil {
			panic("assembly: AddComponent: nil component")
		}
		i.components = append(i.components, c)
	}
	return i
}

// AddProcessor registers a processor. Before the session it is also folded
// into the meta batch and wired like a scanned processor; during the session
// (e.g. from another processor) it only joins the dispatch index.
func (i *Initializer) AddProcessor(p Processor) *Initializer {
	if p == nil {
		panic("assembly: AddProcessor: nil processor")
	}
	if !i.pipeline.add(p) {
		return i
	}
	if d, ok := p.(Described); ok {
		i.AddDescriptor(d.Descriptor())
	}
	if !i.started {
		i.processors = append(i.processors, p)
	}
	i.logger.Debug("processor registered",
		zap.String("processor", fmt.Sprintf("%T", p)),
		zap.Stringer("marker", p.Marker()),
	)
	return i
}

// AddDescriptor makes descriptors known without scanning them, e.g. for
// manually added components.
func (i *Initializer) AddDescriptor(types ...*meta.Type) *Initializer {
	for _, t := range types {
		if t == nil {
			continue
		}
		i.descriptors = append(i.descriptors, t)
		if i.context != nil {
			i.context.Describe(t)
		}
	}
	return i
}

// AddMetaMarker adds markers scanned in the meta phase.
func (i *Initializer) AddMetaMarker(markerTypes ...reflect.Type) *Initializer {
	i.mustNotHaveStarted("AddMetaMarker")
	i.metaMarkers = append(i.metaMarkers, markerTypes...)
	return i
}

// AddMarker adds markers scanned in the regular phase, on top of Component
// and the markers of every type-level processor.
func (i *Initializer) AddMarker(markerTypes ...reflect.Type) *Initializer {
	i.mustNotHaveStarted("AddMarker")
	i.markers = append(i.markers, markerTypes...)
	return i
}

func (i *Initializer) mustNotHaveStarted(op string) {
	if i.started {
		panic(fmt.Sprintf("assembly: %s called after the session started", op))
	}
}

// Context returns the session registry. After the session it is empty
// unless RetainContext was set.
func (i *Initializer) Context() *Context { return i.context }

// Processors returns the registered processors in registration order.
func (i *Initializer) Processors() []Processor { return i.pipeline.snapshot() }

// ── Session ───────────────────────────────────────────────────────────────────

// Initiate runs the session and returns the destruction ledger. Any error is
// a configuration bug: the session is aborted and nothing should be used.
func (i *Initializer) Initiate(ctx context.Context) (_ *Destroyer, err error) {
	if i.started {
		return nil, ErrAlreadyInitiated
	}
	i.started = true
	if len(i.roots) == 0 {
		return nil, ErrNoScannersConfigured
	}
	if err := i.opts.validate(); err != nil {
		return nil, err
	}

	i.logger = i.opts.Logger.With(zap.String("session", i.id))
	ctx, span := i.opts.Tracer.Start(ctx, "assembly.Initiate",
		trace.WithAttributes(attribute.String("assembly.session", i.id)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	i.context = NewContext()
	i.context.SetCreateMissingDependencies(i.opts.CreateMissingDependencies)
	i.context.SetRetain(i.opts.RetainContext)
	i.context.SetLogger(i.logger)
	i.context.SetDescriber(i.describe)
	for _, d := range i.descriptors {
		i.context.Describe(d)
	}
	i.destroyer = NewDestroyer(i.logger)

	for _, c := range i.components {
		i.registerManual(c)
	}
	for _, p := range i.processors {
		i.registerManual(p)
	}

	if i.opts.OnStart != nil {
		if err := i.opts.OnStart(i.context); err != nil {
			return nil, fmt.Errorf("assembly: start callback: %w", err)
		}
	}

	metaBatch := make([]any, 0, len(i.processors))
	for _, p := range i.processors {
		metaBatch = append(metaBatch, p)
	}
	if err := i.phase(ctx, "meta", i.metaMarkers, metaBatch); err != nil {
		return nil, err
	}
	if err := i.beforeScan(ctx); err != nil {
		return nil, err
	}
	if err := i.phase(ctx, "regular", i.regularMarkers(), i.components); err != nil {
		return nil, err
	}
	if err := i.afterScan(ctx); err != nil {
		return nil, err
	}

	if i.opts.OnEnd != nil {
		if err := i.opts.OnEnd(i.context); err != nil {
			return nil, fmt.Errorf("assembly: end callback: %w", err)
		}
	}

	i.teardown()
	i.logger.Info("assembly complete", zap.Int("destruction_actions", i.destroyer.Len()))
	return i.destroyer, nil
}

func (i *Initializer) registerManual(instance any) {
	if d, ok := instance.(Described); ok {
		i.context.Describe(d.Descriptor())
	}
	i.context.RegisterByHierarchy(instance)
	i.constructed[reflect.TypeOf(instance)] = true
}

// phase scans for markerTypes, constructs the candidates and wires them
// together with the manual batch.
func (i *Initializer) phase(ctx context.Context, name string, markerTypes []reflect.Type, manual []any) (err error) {
	_, span := i.opts.Tracer.Start(ctx, "assembly.phase."+name)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	candidates, adopted, err := i.scan(markerTypes)
	if err != nil {
		return err
	}
	built, err := i.construct(candidates)
	if err != nil {
		return err
	}

	batch := make([]any, 0, len(manual)+len(adopted)+len(built))
	batch = append(batch, manual...)
	batch = append(batch, adopted...)
	batch = append(batch, built...)
	span.SetAttributes(
		attribute.Int("assembly.candidates", len(candidates)),
		attribute.Int("assembly.batch", len(batch)),
	)
	if err := i.wire(batch); err != nil {
		return err
	}

	i.logger.Debug("phase complete",
		zap.String("phase", name),
		zap.Int("constructed", len(built)),
		zap.Int("wired", len(batch)),
	)
	return nil
}

// scan collects candidates from every root, skipping types already
// constructed in this session. A scanned type an earlier phase auto-created
// as a dependency is not constructed again; its instance is returned in
// adopted so it is still wired.
func (i *Initializer) scan(markerTypes []reflect.Type) (candidates []*meta.Type, adopted []any, _ error) {
	seen := make(map[reflect.Type]bool)
	for _, r := range i.roots {
		found, err := r.scanner.Scan(r.typ, markerTypes)
		if err != nil {
			return nil, nil, fmt.Errorf("assembly: scanning %v: %w", r.typ, err)
		}
		for _, d := range found {
			if seen[d.Type] || i.constructed[d.Type] {
				continue
			}
			seen[d.Type] = true
			i.context.Describe(d)
			if instance, ok := i.context.Created(d.Type); ok {
				i.constructed[d.Type] = true
				adopted = append(adopted, instance)
				continue
			}
			candidates = append(candidates, d)
		}
	}
	return candidates, adopted, nil
}

// describe finds t under any root whose scanner can describe single types.
func (i *Initializer) describe(t reflect.Type) (*meta.Type, bool) {
	for _, r := range i.roots {
		if s, ok := r.scanner.(meta.Describer); ok {
			if d, ok := s.Describe(r.typ, t); ok {
				return d, true
			}
		}
	}
	return nil, false
}

// regularMarkers returns Component, the manual markers and every marker a
// type-level processor handles, minus the meta markers.
func (i *Initializer) regularMarkers() []reflect.Type {
	skip := make(map[reflect.Type]bool, len(i.metaMarkers))
	for _, m := range i.metaMarkers {
		skip[m] = true
	}
	var out []reflect.Type
	for _, m := range append(append([]reflect.Type{}, i.markers...), i.pipeline.markers(SupportsTypes)...) {
		if skip[m] {
			continue
		}
		skip[m] = true
		out = append(out, m)
	}
	return out
}

func (i *Initializer) beforeScan(ctx context.Context) error {
	_, span := i.opts.Tracer.Start(ctx, "assembly.hook.before_scan")
	defer span.End()
	for _, p := range i.pipeline.snapshot() {
		hook, ok := p.(BeforeScanner)
		if !ok {
			continue
		}
		if err := hook.BeforeScan(i); err != nil {
			return &ProcessorError{Processor: fmt.Sprintf("%T", p), Element: "before-scan hook", Err: err}
		}
	}
	return nil
}

func (i *Initializer) afterScan(ctx context.Context) error {
	_, span := i.opts.Tracer.Start(ctx, "assembly.hook.after_scan")
	defer span.End()
	for _, p := range i.pipeline.snapshot() {
		hook, ok := p.(AfterScanner)
		if !ok {
			continue
		}
		if err := hook.AfterScan(i, i.context, i.destroyer); err != nil {
			return &ProcessorError{Processor: fmt.Sprintf("%T", p), Element: "after-scan hook", Err: err}
		}
	}
	return nil
}

// teardown discards the session scaffolding.
func (i *Initializer) teardown() {
	i.context.Clear()
	if i.opts.RetainProcessors {
		return
	}
	i.pipeline = newPipeline()
	i.roots = nil
	i.components = nil
	i.processors = nil
	i.descriptors = nil
	i.constructed = nil
}
