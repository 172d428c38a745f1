package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/pkg/serrors"
)

type EventBus interface {
	Publish(args ...any)
	PublishE(args ...any) error
	Subscribe(handler any)
	Unsubscribe(handler any)
	Clear()
	SubscribersCount() int
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type subscriber struct {
	handler any
	value   reflect.Value
}

type publisher struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subscribers []subscriber
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisher{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			if paramType.Kind() != reflect.Interface && paramType.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		argType := reflect.TypeOf(arg)
		if paramType.Kind() == reflect.Interface {
			if !argType.Implements(paramType) {
				return false
			}
			continue
		}
		if !argType.AssignableTo(paramType) {
			return false
		}
	}
	return true
}

type outcome struct {
	handler string
	panic   any
	err     error
}

// dispatch calls every matching handler and reports one outcome per handler.
func (p *publisher) dispatch(args []any) []outcome {
	p.mu.RLock()
	subs := make([]subscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	var outcomes []outcome
	for _, sub := range subs {
		if !MatchSignature(sub.handler, args) {
			continue
		}
		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			if arg == nil {
				in[i] = reflect.Zero(sub.value.Type().In(i))
				continue
			}
			in[i] = reflect.ValueOf(arg)
		}
		outcomes = append(outcomes, call(sub.value, in))
	}
	return outcomes
}

func call(fn reflect.Value, in []reflect.Value) (res outcome) {
	res.handler = fn.Type().String()
	defer func() {
		if r := recover(); r != nil {
			res.panic = r
		}
	}()

	out := fn.Call(in)
	switch {
	case len(out) == 0:
	case len(out) > 1:
		res.err = fmt.Errorf("%w: handler %s returned %d values", ErrInvalidHandlerReturn, res.handler, len(out))
	case out[0].Type() != errorType:
		res.err = fmt.Errorf("%w: handler %s return type is %s", ErrInvalidHandlerReturn, res.handler, out[0].Type())
	case !out[0].IsNil():
		res.err = out[0].Interface().(error)
	}
	return res
}

// Publish delivers args to every matching handler. Panics and returned
// errors are logged, never propagated.
func (p *publisher) Publish(args ...any) {
	handled := false
	for _, o := range p.dispatch(args) {
		if o.panic != nil {
			if p.log != nil {
				p.log.Errorf("eventbus: handler %s panicked with args %v: %v", o.handler, args, o.panic)
			}
			continue
		}
		handled = true
		if o.err != nil && p.log != nil {
			p.log.WithError(o.err).Warnf("eventbus: handler %s failed", o.handler)
		}
	}
	if !handled && p.log != nil {
		p.log.Warnf("eventbus.Publish: no matching subscribers for event with args: %v", args)
	}
}

// PublishE is Publish for callers that need handler failures.
func (p *publisher) PublishE(args ...any) error {
	outcomes := p.dispatch(args)
	if len(outcomes) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, o := range outcomes {
		switch {
		case o.panic != nil:
			errs = append(errs, fmt.Errorf("eventbus: handler %s panicked: %v", o.handler, o.panic))
		case o.err != nil:
			errs = append(errs, o.err)
		}
	}
	return errors.Join(errs...)
}

func (p *publisher) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, subscriber{handler: handler, value: v})
}

// Unsubscribe removes handler, compared by function pointer.
func (p *publisher) Unsubscribe(handler any) {
	ptr := reflect.ValueOf(handler).Pointer()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subscribers {
		if sub.value.Pointer() == ptr {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *publisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = nil
}

func (p *publisher) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}
