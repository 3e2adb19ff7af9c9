package assembly

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/framework/meta"
)

type construction struct {
	desc *meta.Type
	ctor *meta.Constructor
}

// construct instantiates every candidate whose constructor parameters can be
// satisfied. A candidate waiting on a type another candidate produces is
// deferred to the next pass; after IterationLimit passes anything still
// pending is a cycle. Instances are registered by hierarchy as soon as they
// exist, so later candidates in the same pass can already depend on them.
func (i *Initializer) construct(candidates []*meta.Type) ([]any, error) {
	produced := make(map[reflect.Type]bool)
	pending := make([]construction, 0, len(candidates))
	for _, d := range candidates {
		ctor, err := i.chooseConstructor(d)
		if err != nil {
			return nil, err
		}
		pending = append(pending, construction{desc: d, ctor: ctor})
		for _, t := range d.AncestorTypes() {
			produced[t] = true
		}
	}

	var built []any
	for pass := 1; len(pending) > 0; pass++ {
		if pass > i.opts.IterationLimit {
			names := make([]string, len(pending))
			for n, p := range pending {
				names[n] = p.ctor.String()
			}
			return nil, &CircularOrMissingDependencyError{Pending: names, Iterations: i.opts.IterationLimit}
		}

		var deferred []construction
		for _, p := range pending {
			ready, err := i.ready(p, produced)
			if err != nil {
				return nil, err
			}
			if !ready {
				deferred = append(deferred, p)
				continue
			}
			instance, err := i.build(p)
			if err != nil {
				return nil, err
			}
			built = append(built, instance)
		}
		if len(deferred) > 0 {
			i.logger.Debug("constructions deferred", zap.Int("pass", pass), zap.Int("pending", len(deferred)))
		}
		pending = deferred
	}
	return built, nil
}

// ready reports whether every parameter of p can be resolved now. A
// parameter nobody in the batch produces will never become available; unless
// it can be auto-created that fails the session immediately.
func (i *Initializer) ready(p construction, produced map[reflect.Type]bool) (bool, error) {
	for _, t := range p.ctor.Params {
		if i.context.CanResolve(t) {
			continue
		}
		if produced[t] {
			return false, nil
		}
		if i.opts.CreateMissingDependencies && i.context.CanCreate(t) {
			continue
		}
		return false, &UnresolvedDependencyError{Type: t, RequiredBy: p.ctor.String()}
	}
	return true, nil
}

func (i *Initializer) build(p construction) (any, error) {
	args, err := i.context.ResolveArgs(p.ctor.Params)
	if err != nil {
		return nil, fmt.Errorf("assembly: constructing %s: %w", p.desc, err)
	}
	instance, err := p.ctor.Invoke(args)
	if err != nil {
		return nil, fmt.Errorf("assembly: constructing %s: %w", p.desc, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("assembly: constructing %s: %s returned nil", p.desc, p.ctor)
	}
	if v := reflect.ValueOf(instance); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, fmt.Errorf("assembly: constructing %s: %s returned nil", p.desc, p.ctor)
	}

	i.context.RegisterByHierarchy(instance)
	i.constructed[p.desc.Type] = true
	i.logger.Debug("component constructed",
		zap.String("type", p.desc.Name()),
		zap.Stringer("constructor", p.ctor),
	)
	return instance, nil
}

// chooseConstructor picks the constructor used for d: the only one, else the
// zero-argument one, else the first declared (or an error in strict mode).
// Pointer-to-struct types without constructors get their zero value.
func (i *Initializer) chooseConstructor(d *meta.Type) (*meta.Constructor, error) {
	switch len(d.Constructors) {
	case 0:
		if ctor, ok := meta.ZeroValueConstructor(d.Type); ok {
			return ctor, nil
		}
		return nil, &UnresolvableConstructorError{Type: d.Type}
	case 1:
		return d.Constructors[0], nil
	}

	for _, ctor := range d.Constructors {
		if len(ctor.Params) == 0 {
			return ctor, nil
		}
	}
	if i.opts.StrictConstructors {
		return nil, &AmbiguousConstructorError{Type: d.Type, Count: len(d.Constructors)}
	}
	i.logger.Warn("several constructors and none without arguments, using the first declared",
		zap.String("type", d.Name()),
		zap.Stringer("constructor", d.Constructors[0]),
	)
	return d.Constructors[0], nil
}
