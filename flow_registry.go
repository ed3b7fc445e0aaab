package mqttflow

import "sync"

// IncomingPublishFlow is a registered consumer of inbound publishes, e.g. a
// subscription stream. Its error callback fires at most once, when the
// connection is torn down with the flow still live.
type IncomingPublishFlow struct {
	id       uint64
	registry *PublishFlowRegistry
	onError  func(error)
	once     sync.Once
}

// Cancel removes the flow from its registry. A canceled flow never receives
// an error callback.
func (f *IncomingPublishFlow) Cancel() {
	f.registry.unregister(f.id)
}

func (f *IncomingPublishFlow) fail(err error) {
	if f.onError == nil {
		return
	}
	f.once.Do(func() { f.onError(err) })
}

// PublishFlowRegistry tracks the in-flight incoming publish flows of a
// client so they can be drained and failed when the client reaches the
// fully-disconnected state.
type PublishFlowRegistry struct {
	mu     sync.Mutex
	flows  map[uint64]*IncomingPublishFlow
	nextID uint64
}

// NewPublishFlowRegistry creates an empty registry.
func NewPublishFlowRegistry() *PublishFlowRegistry {
	return &PublishFlowRegistry{flows: make(map[uint64]*IncomingPublishFlow)}
}

// Register adds a flow with the given error callback and returns it.
func (r *PublishFlowRegistry) Register(onError func(error)) *IncomingPublishFlow {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	flow := &IncomingPublishFlow{
		id:       r.nextID,
		registry: r,
		onError:  onError,
	}
	r.flows[flow.id] = flow
	return flow
}

func (r *PublishFlowRegistry) unregister(id uint64) {
	r.mu.Lock()
	delete(r.flows, id)
	r.mu.Unlock()
}

// Len returns the number of registered flows.
func (r *PublishFlowRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Clear drains the registry and fails every flow with cause.
func (r *PublishFlowRegistry) Clear(cause error) {
	r.mu.Lock()
	flows := make([]*IncomingPublishFlow, 0, len(r.flows))
	for _, flow := range r.flows {
		flows = append(flows, flow)
	}
	r.flows = make(map[uint64]*IncomingPublishFlow)
	r.mu.Unlock()

	for _, flow := range flows {
		flow.fail(cause)
	}
}
