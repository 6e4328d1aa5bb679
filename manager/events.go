package manager

// SubscribeEvent registers a handler for the given runtime event.
// Handlers run concurrently and panics are isolated per handler.
func (m *Manager) SubscribeEvent(eventName string, handler func(any)) {
	m.dispatcher.Subscribe(eventName, handler)
}

// PublishEvent publishes an event on the runtime's dispatcher
func (m *Manager) PublishEvent(eventName string, data any) {
	m.dispatcher.Publish(eventName, data)
}

// PublishEventWithRetry publishes and retries with backoff while no
// subscriber is registered yet
func (m *Manager) PublishEventWithRetry(eventName string, data any, maxRetries int) {
	m.dispatcher.PublishWithRetry(eventName, data, maxRetries)
}
