package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
)

// fakeProducer captures produced records and invokes the promise inline.
type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.records = append(f.records, r)
	if promise != nil {
		promise(r, f.err)
	}
}

func TestNewPublisher(t *testing.T) {
	t.Run("requires a producer", func(t *testing.T) {
		_, err := NewPublisher(nil, "topic", nil)
		assert.Error(t, err)
	})

	t.Run("requires a topic", func(t *testing.T) {
		_, err := NewPublisher(&fakeProducer{}, "", nil)
		assert.Error(t, err)
	})
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("produces one keyed record per entry", func(t *testing.T) {
		producer := &fakeProducer{}
		publisher, err := NewPublisher(producer, "umid.access-events", nil)
		require.NoError(t, err)

		entry := testEntry(id.NewIdentityID(), testBase)
		publisher.Publish(ctx, *entry)

		require.Len(t, producer.records, 1)
		record := producer.records[0]
		assert.Equal(t, "umid.access-events", record.Topic)
		assert.Equal(t, entry.IdentityID.String(), string(record.Key))

		var payload map[string]any
		require.NoError(t, json.Unmarshal(record.Value, &payload))
		assert.Equal(t, entry.ID.String(), payload["entry_id"])
		assert.Equal(t, "success", payload["outcome"])
	})

	t.Run("produce errors are swallowed", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker down")}
		publisher, err := NewPublisher(producer, "umid.access-events", nil)
		require.NoError(t, err)

		entry := testEntry(id.NewIdentityID(), testBase)
		publisher.Publish(ctx, *entry)
		assert.Len(t, producer.records, 1)
	})
}
