package calls

import (
	"context"
	"strings"

	"phonebook/internal/contacts"
	"phonebook/pkg/logger"
)

// Publisher fans recorded calls out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, d Details) error
}

// Recorder writes call rows and announces them.
type Recorder struct {
	repo Repository
	pub  Publisher
}

func NewRecorder(repo Repository, pub Publisher) *Recorder {
	return &Recorder{repo: repo, pub: pub}
}

// Record stores a call against c using c's current action, then re-reads the
// joined details and publishes them. Publishing is best-effort: a failure is
// logged and the recorded call is still returned.
func (r *Recorder) Record(ctx context.Context, c contacts.Contact, phone, destination string) (Details, error) {
	nc := NewCall{
		Action:      c.Action,
		ContactID:   c.ID,
		PhoneNumber: phone,
	}
	if d := strings.TrimSpace(destination); d != "" {
		nc.DestinationNumber = &d
	}

	id, err := r.repo.Insert(ctx, nc)
	if err != nil {
		return Details{}, err
	}
	callsRecorded.WithLabelValues(c.Action.String()).Inc()

	d, err := r.repo.GetDetails(ctx, id)
	if err != nil {
		return Details{}, err
	}

	if r.pub != nil {
		if err := r.pub.Publish(ctx, d); err != nil {
			logger.From(ctx).Warn("publish phone call failed", "phone_call_id", d.ID, "err", err)
		}
	}
	return d, nil
}
