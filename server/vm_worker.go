package server

import (
	"fmt"
	"sync"

	"github.com/chazu/serpent/vm"
)

// vmRequest is a unit of work to run on the VM goroutine.
type vmRequest struct {
	fn   func(*vm.VM) any
	done chan vmResult
}

type vmResult struct {
	value any
	err   error
}

// VMWorker serializes all VM access through a single goroutine. The
// interpreter is single-threaded and LSP requests arrive concurrently.
type VMWorker struct {
	vm       *vm.VM
	requests chan vmRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewVMWorker creates a VMWorker and starts its goroutine.
func NewVMWorker(v *vm.VM) *VMWorker {
	w := &VMWorker{
		vm:       v,
		requests: make(chan vmRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *VMWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			select {
			case <-w.quit:
				req.done <- vmResult{err: errWorkerStopped}
				return
			default:
			}
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn on the VM, turning a panic into an error.
func (w *VMWorker) execute(fn func(*vm.VM) any) (result vmResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("vm worker: %v", r)
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = fn(w.vm)
	return result
}

// Do runs fn on the VM goroutine and blocks until it completes.
func (w *VMWorker) Do(fn func(*vm.VM) any) (any, error) {
	select {
	case <-w.quit:
		return nil, errWorkerStopped
	default:
	}
	req := vmRequest{fn: fn, done: make(chan vmResult, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case r := <-req.done:
		return r.value, r.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *VMWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
