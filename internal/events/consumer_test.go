package events

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/domain"
	apperrors "account-service/internal/errors"
)

type fakeLifecycle struct {
	provisioned []int64
	purged      []int64
	err         error
}

func (f *fakeLifecycle) CreateDefaultAccount(customerID int64) (*domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.provisioned = append(f.provisioned, customerID)
	return &domain.Account{ID: customerID*1000 + 100, CustomerID: customerID}, nil
}

func (f *fakeLifecycle) DeleteAllByCustomer(customerID int64) error {
	if f.err != nil {
		return f.err
	}
	f.purged = append(f.purged, customerID)
	return nil
}

func newTestConsumer(service AccountLifecycle) *Consumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConsumer(nil, ConsumerConfig{Group: "test-group"}, service, logger)
}

func envelope(t *testing.T, eventType string, customerID int64) redis.XMessage {
	t.Helper()
	payload, err := json.Marshal(Event{
		ID:        "evt-1",
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: CustomerEvent{
			CustomerID: customerID,
			Name:       "John Doe",
			LegalID:    "123456789",
			Type:       "Individual",
			Address:    "123 Main St",
		},
	})
	require.NoError(t, err)

	return redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"event": string(payload)},
	}
}

// The consumer name must survive restarts, otherwise entries pending under
// it are orphaned in the group.
func TestConsumerNameIsStable(t *testing.T) {
	service := &fakeLifecycle{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	configured := NewConsumer(nil, ConsumerConfig{Group: "g", Consumer: "account-service-1"}, service, logger)
	assert.Equal(t, "account-service-1", configured.consumer)

	first := NewConsumer(nil, ConsumerConfig{Group: "g"}, service, logger)
	second := NewConsumer(nil, ConsumerConfig{Group: "g"}, service, logger)
	if host, err := os.Hostname(); err == nil && host != "" {
		assert.Equal(t, "account-service-"+host, first.consumer)
		assert.Equal(t, first.consumer, second.consumer)
	}
}

func TestProcessMessageCustomerCreated(t *testing.T) {
	service := &fakeLifecycle{}
	consumer := newTestConsumer(service)

	err := consumer.processMessage(envelope(t, CustomerCreated, 1234567))
	require.NoError(t, err)
	assert.Equal(t, []int64{1234567}, service.provisioned)
	assert.Empty(t, service.purged)
}

func TestProcessMessageCustomerDeleted(t *testing.T) {
	service := &fakeLifecycle{}
	consumer := newTestConsumer(service)

	err := consumer.processMessage(envelope(t, CustomerDeleted, 1234567))
	require.NoError(t, err)
	assert.Equal(t, []int64{1234567}, service.purged)
	assert.Empty(t, service.provisioned)
}

func TestProcessMessageUnknownType(t *testing.T) {
	service := &fakeLifecycle{}
	consumer := newTestConsumer(service)

	err := consumer.processMessage(envelope(t, "customer.renamed", 1234567))
	require.Error(t, err)
	assert.True(t, isTerminal(err))
	assert.Empty(t, service.provisioned)
	assert.Empty(t, service.purged)
}

func TestProcessMessageMissingEventField(t *testing.T) {
	consumer := newTestConsumer(&fakeLifecycle{})

	err := consumer.processMessage(redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"payload": "{}"},
	})
	require.Error(t, err)
	assert.True(t, isTerminal(err))
}

func TestProcessMessageMalformedJSON(t *testing.T) {
	consumer := newTestConsumer(&fakeLifecycle{})

	err := consumer.processMessage(redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"event": "{not json"},
	})
	require.Error(t, err)
	assert.True(t, isTerminal(err))
}

func TestIsTerminalClassification(t *testing.T) {
	// validation-class failures are not fixed by redelivery
	assert.True(t, isTerminal(apperrors.ErrAccountNotFound))
	assert.True(t, isTerminal(apperrors.ErrDuplicateAccount))

	// infrastructure failures are
	assert.False(t, isTerminal(apperrors.NewAppError(apperrors.InternalError, "store unavailable")))
	assert.False(t, isTerminal(fmt.Errorf("dial tcp: connection refused")))
}

func TestDispatchServiceErrorPropagates(t *testing.T) {
	service := &fakeLifecycle{err: apperrors.NewAppError(apperrors.InternalError, "store unavailable")}
	consumer := newTestConsumer(service)

	err := consumer.processMessage(envelope(t, CustomerCreated, 1234567))
	require.Error(t, err)
	assert.False(t, isTerminal(err))
}
