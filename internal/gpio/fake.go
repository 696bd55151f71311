package gpio

import "sync"

// FakeOutput is a test double that records every value set on it.
// Safe for concurrent use: the blinker sets it while the test inspects it.
type FakeOutput struct {
	mu     sync.Mutex
	values []bool
	closed bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Block, if non-nil, makes Set wait until it can receive from Block
	// (or Block is closed) before recording the value.
	Block chan struct{}
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records on.
func (f *FakeOutput) Set(on bool) error {
	if f.Block != nil {
		<-f.Block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.values = append(f.values, on)
	return nil
}

// Values returns a copy of all recorded values.
func (f *FakeOutput) Values() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.values))
	copy(out, f.values)
	return out
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeOutput) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeButton is a test double whose edges are triggered by Press.
type FakeButton struct {
	mu      sync.Mutex
	handler func()
	closed  bool

	// WatchError, if set, will be returned by Watch.
	WatchError error
}

// NewFakeButton creates a FakeButton.
func NewFakeButton() *FakeButton {
	return &FakeButton{}
}

// Watch stores handler for Press.
func (f *FakeButton) Watch(handler func()) error {
	if f.WatchError != nil {
		return f.WatchError
	}
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return nil
}

// Press simulates one edge to active. Calls are serialized, as the
// platform delivers edges one at a time.
// It does nothing if the button is not watched or has been closed.
func (f *FakeButton) Press() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler == nil || f.closed {
		return
	}
	f.handler()
}

// Close stops edge delivery.
func (f *FakeButton) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeButton) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
