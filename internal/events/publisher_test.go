package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisherSendsEnvelope(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, "answersheet")
	require.NoError(t, err)

	publisher := NewWatermillEventPublisher(pubSub, "answersheet", slog.Default())
	event := NewModuleCreatedEvent(7, &models.Module{ID: 3, SortOrder: 2, Kind: models.SingleChoice, OptionCount: 4})
	require.NoError(t, publisher.PublishAnswersheetEvent(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventModuleCreated), msg.Metadata.Get("event_type"))
		assert.Equal(t, "7", msg.Metadata.Get("question_id"))

		var decoded struct {
			Type       EventType   `json:"type"`
			QuestionID uint        `json:"question_id"`
			Data       ModuleEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, EventModuleCreated, decoded.Type)
		assert.Equal(t, uint(7), decoded.QuestionID)
		assert.Equal(t, uint(3), decoded.Data.ModuleID)
		assert.Equal(t, models.SingleChoice, decoded.Data.Kind)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	a := NewRowDeletedEvent(1, 2, 3)
	b := NewRowDeletedEvent(1, 2, 3)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, eventSource, a.Source)
}

func TestHierarchySavedEventCounts(t *testing.T) {
	doc := models.Document{
		{ID: models.Persisted(1), Rows: []models.DocumentRow{{ID: models.Persisted(10)}, {ID: models.Pending("1000")}}},
		{ID: models.Pending("1"), Rows: []models.DocumentRow{{ID: models.Pending("1001")}}},
	}
	assigned := models.NewIDAssignments()
	assigned.Modules["tmp-1"] = 2
	assigned.Rows["tmp-1000"] = 11
	assigned.Rows["tmp-1001"] = 12

	event := NewHierarchySavedEvent(7, doc, assigned)
	data, ok := event.Data.(HierarchyEvent)
	require.True(t, ok)
	assert.Equal(t, 2, data.Modules)
	assert.Equal(t, 3, data.Rows)
	assert.Equal(t, 3, data.Created)
}

func TestMockPublisherRecords(t *testing.T) {
	mock := NewMockEventPublisher(nil)
	require.NoError(t, mock.PublishAnswersheetEvent(context.Background(), NewModuleDeletedEvent(7, 1)))
	require.NoError(t, mock.PublishAnswersheetEvent(context.Background(), NewRowDeletedEvent(7, 1, 2)))

	assert.Equal(t, []EventType{EventModuleDeleted, EventRowDeleted}, mock.Types())
	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
