package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/shared/rabbitmq"
)

type fakeSender struct {
	sent []rabbitmq.Message
	err  error
}

func (f *fakeSender) PublishWithRetry(_ context.Context, msg rabbitmq.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type recordingPublisher struct {
	keys     []string
	payloads []any
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	r.keys = append(r.keys, key)
	r.payloads = append(r.payloads, payload)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRabbitPublisher_Publish(t *testing.T) {
	s := &fakeSender{}
	p := newRabbitPublisher(s)
	p.newID = func() string { return "msg-1" }

	err := p.Publish(context.Background(), KeyJobEventCreated, JobEventCreated{
		Provider:  storage.NameRelational,
		JobID:     3,
		EventID:   9,
		EventType: domain.EventInterview,
	})
	require.NoError(t, err)

	require.Len(t, s.sent, 1)
	msg := s.sent[0]
	assert.Equal(t, KeyJobEventCreated, msg.RoutingKey)
	assert.Equal(t, "msg-1", msg.MessageID)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.JSONEq(t, `{"provider":"relational","jobId":3,"eventId":9,"eventType":"interview"}`, string(msg.Body))
}

func TestRabbitPublisher_EncodeError(t *testing.T) {
	s := &fakeSender{}
	p := newRabbitPublisher(s)

	err := p.Publish(context.Background(), KeyProviderChanged, make(chan int))
	require.Error(t, err)
	assert.Empty(t, s.sent)
}

func TestNotifier_PublishesReconcileRequest(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.StatusWriteFailed(ctx, storage.StatusFailure{
		Provider: storage.NameHosted,
		OwnerID:  "user-1",
		JobID:    5,
		EventID:  11,
		Err:      errors.New("boom"),
	})

	require.Equal(t, []string{KeyStatusReconcile}, pub.keys)
	req, ok := pub.payloads[0].(ReconcileRequest)
	require.True(t, ok)
	assert.Equal(t, storage.NameHosted, req.Provider)
	assert.Equal(t, "user-1", req.OwnerID)
	assert.Equal(t, int64(5), req.JobID)
	assert.NoError(t, req.Validate())
}

func TestNotifier_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	n := NewNotifier(pub, discardLogger())

	assert.NotPanics(t, func() {
		n.StatusWriteFailed(context.Background(), storage.StatusFailure{Provider: storage.NameMock, JobID: 1})
	})
	assert.Len(t, pub.keys, 1)
}

func TestReconcileRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ReconcileRequest
		wantErr bool
	}{
		{name: "valid", req: ReconcileRequest{Provider: storage.NameRelational, JobID: 1}},
		{name: "unknown provider", req: ReconcileRequest{Provider: "disk", JobID: 1}, wantErr: true},
		{name: "missing job", req: ReconcileRequest{Provider: storage.NameMock}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), KeyProviderChanged, ProviderChanged{}))
}
