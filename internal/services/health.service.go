package services

import "context"

// Pinger is anything whose liveness the health endpoint reports on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a bare func to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthService struct {
	deps []Pinger
}

func NewHealthService(deps ...Pinger) *HealthService {
	return &HealthService{deps: deps}
}

func (s *HealthService) Get() error {
	ctx := context.Background()
	for _, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
