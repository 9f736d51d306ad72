package module

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Call carries what a step receives: positional arguments from its call
// site and values arriving on its input ports, keyed by port name.
type Call struct {
	Args   []any
	Inputs map[string]any
}

// Func implements a callable step.
type Func func(ctx context.Context, c Call) (any, error)

// Bindings maps step names to implementations.
type Bindings map[string]Func

var (
	ctxType = reflect.TypeFor[context.Context]()
	errType = reflect.TypeFor[error]()
)

// FromFunc adapts an ordinary Go function to a Func. The function may take
// a context.Context first and may return an error last. Arguments are
// converted to the parameter types, so JSON numbers reach int parameters.
func FromFunc(fn any) (Func, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("binding must be a function, got %T", fn)
	}
	withCtx := t.NumIn() > 0 && t.In(0) == ctxType
	if t.NumOut() > 2 || (t.NumOut() == 2 && t.Out(1) != errType) {
		return nil, fmt.Errorf("binding %s must return (value), (value, error) or (error)", t)
	}
	if t.IsVariadic() {
		return nil, errors.New("variadic bindings are not supported")
	}

	return func(ctx context.Context, c Call) (any, error) {
		in := make([]reflect.Value, 0, t.NumIn())
		first := 0
		if withCtx {
			in = append(in, reflect.ValueOf(ctx))
			first = 1
		}
		if want := t.NumIn() - first; len(c.Args) > want {
			return nil, fmt.Errorf("got %d arguments, want %d", len(c.Args), want)
		}
		for i := first; i < t.NumIn(); i++ {
			var arg any
			if i-first < len(c.Args) {
				arg = c.Args[i-first]
			}
			av, err := convert(arg, t.In(i))
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i-first, err)
			}
			in = append(in, av)
		}
		return results(v.Call(in))
	}, nil
}

// MustFunc is FromFunc for static bindings.
func MustFunc(fn any) Func {
	f, err := FromFunc(fn)
	if err != nil {
		panic(err)
	}
	return f
}

func convert(arg any, to reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(to), nil
	}
	av := reflect.ValueOf(arg)
	switch {
	case av.Type().AssignableTo(to):
		return av, nil
	case isNumber(av.Kind()) && isNumber(to.Kind()):
		return av.Convert(to), nil
	}
	out := reflect.New(to)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: out.Interface()})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(arg); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errType {
			err, _ := out[0].Interface().(error)
			return nil, err
		}
		return out[0].Interface(), nil
	}
	err, _ := out[1].Interface().(error)
	return out[0].Interface(), err
}
