package service

import (
	"fmt"
	"io"
	"reflect"
	"sync"
)

// Factory constructs a service of type T.
type Factory[T any] func(settings HostSettings) (T, error)

// Operation is a lifecycle operation bound to a service of type T.
type Operation[T any] func(svc T, hc HostControl) (bool, error)

// DelegateOption configures a DelegateBuilder.
type DelegateOption[T any] func(*DelegateBuilder[T])

// WithPause binds the pause operation. Without it Pause completes immediately.
func WithPause[T any](op Operation[T]) DelegateOption[T] {
	return func(b *DelegateBuilder[T]) {
		b.pause = op
	}
}

// WithContinue binds the continue operation. Without it Continue completes immediately.
func WithContinue[T any](op Operation[T]) DelegateOption[T] {
	return func(b *DelegateBuilder[T]) {
		b.cont = op
	}
}

// DelegateBuilder builds handles that forward to bound functions.
// It holds no per-build state and may be reused.
type DelegateBuilder[T any] struct {
	factory Factory[T]
	start   Operation[T]
	stop    Operation[T]
	pause   Operation[T]
	cont    Operation[T]
}

// NewDelegateBuilder creates a builder. factory, start and stop are required.
func NewDelegateBuilder[T any](factory Factory[T], start, stop Operation[T], opts ...DelegateOption[T]) *DelegateBuilder[T] {
	if factory == nil || start == nil || stop == nil {
		panic("service: NewDelegateBuilder requires factory, start and stop")
	}
	b := &DelegateBuilder[T]{
		factory: factory,
		start:   start,
		stop:    stop,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CanPauseAndContinue reports whether both pause and continue are bound.
func (b *DelegateBuilder[T]) CanPauseAndContinue() bool {
	return b.pause != nil && b.cont != nil
}

// Build calls the factory. Any failure, including a panic or a nil
// service, is returned as a *BuildError.
func (b *DelegateBuilder[T]) Build(settings HostSettings) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, b.buildError(fmt.Errorf("factory panicked: %v", r))
		}
	}()

	svc, err := b.factory(settings)
	if err != nil {
		return nil, b.buildError(err)
	}
	if isNil(svc) {
		return nil, b.buildError(ErrNilService)
	}

	return &delegateHandle[T]{
		service: svc,
		start:   b.start,
		stop:    b.stop,
		pause:   b.pause,
		cont:    b.cont,
	}, nil
}

func (b *DelegateBuilder[T]) buildError(err error) *BuildError {
	return &BuildError{ServiceType: typeName[T](), Err: err}
}

type delegateHandle[T any] struct {
	service T
	start   Operation[T]
	stop    Operation[T]
	pause   Operation[T]
	cont    Operation[T]

	closeOnce sync.Once
	closeErr  error
}

func (h *delegateHandle[T]) Start(hc HostControl) (bool, error) {
	return h.start(h.service, hc)
}

func (h *delegateHandle[T]) Stop(hc HostControl) (bool, error) {
	return h.stop(h.service, hc)
}

func (h *delegateHandle[T]) Pause(hc HostControl) (bool, error) {
	if h.pause == nil {
		return true, nil
	}
	return h.pause(h.service, hc)
}

func (h *delegateHandle[T]) Continue(hc HostControl) (bool, error) {
	if h.cont == nil {
		return true, nil
	}
	return h.cont(h.service, hc)
}

// Close closes the service if it implements io.Closer.
func (h *delegateHandle[T]) Close() error {
	h.closeOnce.Do(func() {
		if c, ok := any(h.service).(io.Closer); ok {
			h.closeErr = c.Close()
		}
	})
	return h.closeErr
}

// ExitErr forwards to the service if it implements ExitReporter.
func (h *delegateHandle[T]) ExitErr() error {
	if r, ok := any(h.service).(ExitReporter); ok {
		return r.ExitErr()
	}
	return nil
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

var (
	_ Builder      = (*DelegateBuilder[struct{}])(nil)
	_ ExitReporter = (*delegateHandle[struct{}])(nil)
)
