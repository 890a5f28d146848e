package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Publish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "reservation.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "ce-id" {
			return errors.New("headers not forwarded")
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFrom(sp)
	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, "reservation.events.v1", "VM-1", []byte(`{}`), map[string]string{"ce-id": "e1"}))
	assert.ErrorIs(t, p.Publish(ctx, "reservation.events.v1", "VM-2", []byte(`{}`), nil), sarama.ErrOutOfBrokers)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, p.Publish(cancelled, "t", "k", nil, nil), context.Canceled)
	require.NoError(t, p.Close())
}
