package tracker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/redirector/internal/model"
	"github.com/linkhub/redirector/internal/testutil"
)

func TestAMQPPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping broker integration test in short mode")
	}

	ctx := context.Background()
	broker, err := testutil.SetupTestBroker(ctx)
	require.NoError(t, err)
	defer broker.Teardown(ctx)

	pub, err := NewAMQPPublisher(broker.URL, "clicks")
	require.NoError(t, err)
	defer pub.Close()

	// Bind a queue to the fanout exchange before publishing
	conn, err := amqp.Dial(broker.URL)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "", "clicks", false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	require.NoError(t, err)

	click := &model.Click{
		ID:        uuid.New(),
		LinkID:    uuid.New(),
		IPHash:    HashIP("203.0.113.7", "salt"),
		Device:    "desktop",
		OS:        "Linux",
		Browser:   "Firefox",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, pub.Publish(ctx, click))

	select {
	case d := <-deliveries:
		var got model.Click
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, click.ID, got.ID)
		assert.Equal(t, click.LinkID, got.LinkID)
		assert.Equal(t, click.IPHash, got.IPHash)
		assert.Equal(t, "application/json", d.ContentType)
	case <-time.After(10 * time.Second):
		t.Fatal("click event was not delivered")
	}
}
