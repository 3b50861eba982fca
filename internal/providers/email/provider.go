package email

import "context"

// Provider sends one alert email. Implementations must be safe for
// concurrent use by the delivery worker.
type Provider interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// NoOpProvider is wired when no SMTP host is configured. Queue rows are
// still claimed and settled so installations without mail keep a record.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to string, subject string, body string) error {
	return nil
}
