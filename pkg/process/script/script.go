// Package script provides a JavaScript-scripted producer on the goja
// runtime, letting pipeline stages be supplied as script snippets from
// configuration data instead of compiled code. A script must define a
// produce(item) function returning an array of tuples (arrays); each
// returned tuple is emitted in order.
package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/wehubfusion/Daedalus/pkg/producer"
)

// DefaultTimeout bounds a single produce(item) invocation.
const DefaultTimeout = 30 * time.Second

// Script is a producer whose transformation is defined by a JavaScript
// produce(item) function. The underlying VM is not safe for concurrent use,
// so invocations are serialized; the engine's other workers keep running
// while one holds the VM.
type Script struct {
	timeout time.Duration

	mu      sync.Mutex
	vm      *goja.Runtime
	produce goja.Callable
}

// New compiles the script source and prepares a sandboxed VM. The source
// must define a global function produce(item).
func New(source string) (*Script, error) {
	return NewWithTimeout(source, DefaultTimeout)
}

// NewWithTimeout compiles the script with a custom per-invocation timeout.
func NewWithTimeout(source string, timeout time.Duration) (*Script, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	program, err := goja.Compile("produce.js", source, true)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}

	vm := goja.New()
	if err := applySandbox(vm); err != nil {
		return nil, fmt.Errorf("failed to sandbox VM: %w", err)
	}
	if _, err := vm.RunProgram(program); err != nil {
		return nil, fmt.Errorf("failed to evaluate script: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.Get("produce"))
	if !ok {
		return nil, fmt.Errorf("script does not define a produce(item) function")
	}

	return &Script{
		timeout: timeout,
		vm:      vm,
		produce: fn,
	}, nil
}

// Produce invokes the script's produce(item) function and emits every
// returned tuple. A script returning null, undefined or an empty array
// emits nothing.
func (s *Script) Produce(ctx context.Context, item any, emit producer.EmitFunc) error {
	rows, err := s.invoke(ctx, item)
	if err != nil {
		return err
	}

	for _, row := range rows {
		tuple, ok := row.([]any)
		if !ok {
			return fmt.Errorf("script produce must return an array of arrays, got element %T", row)
		}
		if err := emit(producer.Tuple(tuple)); err != nil {
			return err
		}
	}
	return nil
}

// invoke calls into the VM under the lock, interrupting the script if the
// context expires or the per-invocation timeout elapses.
func (s *Script) invoke(ctx context.Context, item any) (rows []any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Recover from panics in script execution
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during script execution: %v", r)
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-timeoutCtx.Done():
			s.vm.Interrupt("execution timeout")
		case <-done:
		}
	}()
	defer close(done)

	value, err := s.produce(goja.Undefined(), s.vm.ToValue(item))
	if err != nil {
		s.vm.ClearInterrupt()
		if exc, ok := err.(*goja.Exception); ok {
			return nil, fmt.Errorf("script error: %s", exc.Value().String())
		}
		if timeoutCtx.Err() != nil {
			return nil, fmt.Errorf("script timed out after %s", s.timeout)
		}
		return nil, fmt.Errorf("script execution failed: %w", err)
	}

	exported := value.Export()
	if exported == nil {
		return nil, nil
	}
	rows, ok := exported.([]any)
	if !ok {
		return nil, fmt.Errorf("script produce must return an array, got %T", exported)
	}
	return rows, nil
}
