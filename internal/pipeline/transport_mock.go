package pipeline

import (
	"context"
	"sync"
)

// MockTransport implements Transport and SubscriptionTransport with canned
// results and a request log.
type MockTransport struct {
	mu       sync.Mutex
	requests []Request

	// Result and Err drive Do. Results drives Subscribe, pushed in order.
	Result  *Result
	Err     error
	Results []*Result
}

func (m *MockTransport) Do(ctx context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockTransport) Subscribe(ctx context.Context, req Request, handler func(*Result) error) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, res := range m.Results {
		if err := handler(res); err != nil {
			return err
		}
	}
	return nil
}

// Requests returns a copy of the requests seen so far.
func (m *MockTransport) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
