package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/leaseflow/leaseflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshaler_UsesEventKey(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	msg.Metadata.Set(events.EventMetadataKey, "group-42")

	produced, err := Marshaler().Marshal(events.Topic, msg)
	require.NoError(t, err)

	key, err := produced.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "group-42", string(key))
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, nil, "worker")
	require.ErrorIs(t, err, ErrNoBrokers)

	_, _, err = CreateChannel(watermill.NopLogger{}, []string{""}, "worker")
	require.ErrorIs(t, err, ErrNoBrokers)
}
