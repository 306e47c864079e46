package provenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgov/cartograph/pkg/errors"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventQuarantined, "us-ca-06", "dedupe", "ambiguous duplicate of us-ca-07")

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, EventQuarantined, event.Type)
	assert.Equal(t, "us-ca-06", event.EntityID)
	assert.Equal(t, "dedupe", event.Actor)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Minute)
}

func TestEventTypeValid(t *testing.T) {
	for _, eventType := range EventTypes() {
		assert.True(t, eventType.Valid(), string(eventType))
	}
	assert.False(t, EventType("deleted").Valid())
}

func TestEventString(t *testing.T) {
	event := NewEvent(EventRemediated, "us-ca-06", "ops@atlasgov.example", "")
	event.Remediation = "kept us-ca-06, dropped aggregator copy"

	s := event.String()
	assert.Contains(t, s, "remediated")
	assert.Contains(t, s, "entity=us-ca-06")
	assert.Contains(t, s, "remediation=")
}

// storeTest runs the Store contract against one implementation.
func storeTest(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []Event{
		{EventID: "e1", Type: EventDiscovered, Timestamp: base, Actor: "ingest", EntityID: "us-ca-06"},
		{EventID: "e2", Type: EventValidated, Timestamp: base.Add(time.Minute), Actor: "validate", EntityID: "us-ca-06"},
		{EventID: "e3", Type: EventDiscovered, Timestamp: base.Add(2 * time.Minute), Actor: "ingest", EntityID: "us-ca-07"},
		{EventID: "e4", Type: EventQuarantined, Timestamp: base.Add(3 * time.Minute), Actor: "dedupe", EntityID: "us-ca-06", Reason: "ambiguous duplicate"},
	}
	for _, e := range events {
		require.NoError(t, store.Append(ctx, e))
	}

	t.Run("by entity chronological", func(t *testing.T) {
		got, err := store.ByEntity(ctx, "us-ca-06")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "e1", got[0].EventID)
		assert.Equal(t, "e2", got[1].EventID)
		assert.Equal(t, "e4", got[2].EventID)
	})

	t.Run("by type", func(t *testing.T) {
		got, err := store.ByType(ctx, EventDiscovered)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "us-ca-06", got[0].EntityID)
		assert.Equal(t, "us-ca-07", got[1].EntityID)
	})

	t.Run("between half-open", func(t *testing.T) {
		got, err := store.Between(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "e2", got[0].EventID)
		assert.Equal(t, "e3", got[1].EventID)
	})

	t.Run("unknown entity is empty", func(t *testing.T) {
		got, err := store.ByEntity(ctx, "us-zz-99")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("rejects invalid events", func(t *testing.T) {
		err := store.Append(ctx, Event{EventID: "bad", Type: "deleted", EntityID: "us-ca-06"})
		assert.True(t, errors.IsValidationError(err))

		err = store.Append(ctx, Event{EventID: "bad", Type: EventDiscovered})
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeTest(t, store)
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore("", WithInMemory())
	require.NoError(t, err)
	defer store.Close()
	storeTest(t, store)
}

func TestQuarantineRemediationTrail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	quarantine := NewEvent(EventQuarantined, "us-ca-06", "dedupe", "ambiguous duplicate of us-ca-07")
	require.NoError(t, store.Append(ctx, quarantine))

	remediation := NewEvent(EventRemediated, "us-ca-06", "ops@atlasgov.example", "")
	remediation.Remediation = "confirmed distinct, restored to build"
	remediation.Timestamp = quarantine.Timestamp.Add(time.Hour)
	require.NoError(t, store.Append(ctx, remediation))

	trail, err := store.ByEntity(ctx, "us-ca-06")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, EventQuarantined, trail[0].Type)
	assert.Equal(t, EventRemediated, trail[1].Type)
	assert.NotEmpty(t, trail[1].Remediation)
}
