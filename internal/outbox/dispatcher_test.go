package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"example.com/freetime/internal/persistence"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestWireFormatRoundTrip(t *testing.T) {
	frame := EncodeWireFormat(513, []byte(`{"a":1}`))
	require.Equal(t, []byte{0, 0, 0, 2, 1}, frame[:5])

	id, body, err := DecodeWireFormat(frame)
	require.NoError(t, err)
	require.Equal(t, 513, id)
	require.JSONEq(t, `{"a":1}`, string(body))

	_, _, err = DecodeWireFormat([]byte{1, 0, 0, 0, 1})
	require.ErrorIs(t, err, ErrInvalidFrame)
	_, _, err = DecodeWireFormat([]byte{0, 1})
	require.ErrorIs(t, err, ErrInvalidFrame)
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	require.Equal(t, time.Minute, backoffDelay(time.Minute, 1))
	require.Equal(t, 2*time.Minute, backoffDelay(time.Minute, 2))
	require.Equal(t, 8*time.Minute, backoffDelay(time.Minute, 4))
	require.Equal(t, time.Hour, backoffDelay(time.Minute, 7))
	require.Equal(t, time.Hour, backoffDelay(time.Minute, 100))
	require.Equal(t, time.Minute, backoffDelay(time.Minute, 0))
}

func TestSchemasCoverEventPayloads(t *testing.T) {
	samples := map[string]any{
		persistence.EventSuggestionsGenerated: persistence.SuggestionsGenerated(sampleSlot(), time.Now()),
		persistence.EventActivityAdapted:      persistence.ActivityAdapted(sampleAdaptation(), time.Now()),
		persistence.EventFreeTimeDetected:     persistence.FreeTimeDetected(sampleDetection()),
	}
	for eventType, payload := range samples {
		schema, ok := SchemaFor(eventType)
		require.Truef(t, ok, "missing schema for %s", eventType)

		var doc struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		require.NoError(t, json.Unmarshal([]byte(schema), &doc))

		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))

		for _, key := range doc.Required {
			require.Containsf(t, fields, key, "%s payload lacks %s", eventType, key)
		}
		for key := range fields {
			require.Containsf(t, doc.Properties, key, "%s schema lacks %s", eventType, key)
		}
	}

	_, ok := SchemaFor("nope")
	require.False(t, ok)
}

func TestDeliveryMetricsAreLabelledByEventType(t *testing.T) {
	generated := deliveredCounter.WithLabelValues(persistence.EventSuggestionsGenerated)
	detected := deliveredCounter.WithLabelValues(persistence.EventFreeTimeDetected)
	unknown := deliveredCounter.WithLabelValues(unknownEventType)
	beforeGenerated := testutil.ToFloat64(generated)
	beforeDetected := testutil.ToFloat64(detected)
	beforeUnknown := testutil.ToFloat64(unknown)

	recordDelivered([]Message{
		{EventType: persistence.EventSuggestionsGenerated},
		{EventType: persistence.EventSuggestionsGenerated},
		{EventType: persistence.EventFreeTimeDetected},
		{EventType: "activity.deleted"},
	})

	require.InDelta(t, beforeGenerated+2, testutil.ToFloat64(generated), 0.0001)
	require.InDelta(t, beforeDetected+1, testutil.ToFloat64(detected), 0.0001)
	require.InDelta(t, beforeUnknown+1, testutil.ToFloat64(unknown), 0.0001)

	failed := failedCounter.WithLabelValues(persistence.EventActivityAdapted)
	beforeFailed := testutil.ToFloat64(failed)
	recordFailed([]Message{{EventType: persistence.EventActivityAdapted}})
	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(failed), 0.0001)

	dlq := dlqCounter.WithLabelValues("freetime.events", persistence.EventActivityAdapted)
	beforeDLQ := testutil.ToFloat64(dlq)
	recordDLQ(Message{Topic: "freetime.events", EventType: persistence.EventActivityAdapted})
	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(dlq), 0.0001)
}

func TestDeliverGroupsByTopicWithHeaders(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 5}
	d := NewDispatcher(nil, producer, registry, time.Second, 10, WithDispatcherLogger(quietLogger()))

	messages := []Message{
		{EventID: 1, TenantID: "t", EventType: persistence.EventFreeTimeDetected, Topic: "freetime_events", SchemaSubject: "freetime_events-value", PartitionKey: "t:u", Payload: json.RawMessage(`{}`)},
		{EventID: 2, TenantID: "t", EventType: persistence.EventSuggestionsGenerated, Topic: "suggestion_events", SchemaSubject: "s-value", PartitionKey: "t:u", Payload: json.RawMessage(`{}`)},
		{EventID: 3, TenantID: "t", EventType: persistence.EventFreeTimeDetected, Topic: "freetime_events", SchemaSubject: "freetime_events-value", PartitionKey: "t:u", Payload: json.RawMessage(`{}`)},
	}
	require.NoError(t, d.deliver(context.Background(), messages))

	require.Len(t, producer.writes, 2)
	require.Equal(t, "freetime_events", producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 2)
	require.Equal(t, "suggestion_events", producer.writes[1].topic)
	require.Equal(t, []string{"freetime_events-value", "s-value"}, registry.calls)

	record := producer.writes[0].messages[0]
	require.Equal(t, []byte("t:u"), record.Key)
	headers := map[string]string{}
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, persistence.EventFreeTimeDetected, headers[HeaderEventType])
	require.Equal(t, "t", headers[HeaderTenantID])
	require.Equal(t, "freetime_events-value", headers[HeaderSchemaSubject])
}

func TestDeliverFailsOnUnknownEventOrRegistryError(t *testing.T) {
	d := NewDispatcher(nil, &stubProducer{}, &stubRegistry{err: errors.New("registry down")}, time.Second, 10)

	err := d.deliver(context.Background(), []Message{{EventType: "mystery", Topic: "x"}})
	require.ErrorContains(t, err, "no schema metadata for event_type=mystery")

	err = d.deliver(context.Background(), []Message{{EventType: persistence.EventActivityAdapted, Topic: "x", SchemaSubject: "x-value"}})
	require.ErrorContains(t, err, "registry down")
}

func TestSchemaRegistryRegistersMissingSubject(t *testing.T) {
	var registered string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/freetime_events-value/versions/latest":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/freetime_events-value/versions":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			registered = body["schemaType"]
			_, _ = w.Write([]byte(`{"id": 17}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	client := NewSchemaRegistryClient(server.URL + "/")
	id, err := client.EnsureSchema(context.Background(), "freetime_events-value", freeTimeDetectedSchema)
	require.NoError(t, err)
	require.Equal(t, 17, id)
	require.Equal(t, "JSON", registered)
}

func TestSchemaRegistryReturnsLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"id": 3, "version": 2}`))
	}))
	defer server.Close()

	id, err := NewSchemaRegistryClient(server.URL).EnsureSchema(context.Background(), "s", "{}")
	require.NoError(t, err)
	require.Equal(t, 3, id)
}

func TestSchemaRegistrySurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewSchemaRegistryClient(server.URL).EnsureSchema(context.Background(), "s", "{}")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSubjectNotFound)
}

func TestDLQManagerRegisterValidatesSpec(t *testing.T) {
	manager := NewDLQManager(nil, 0, 0, quietLogger())
	require.Equal(t, 5, manager.maxRetries)
	require.Equal(t, time.Minute, manager.baseDelay)

	c := cron.New()
	id, err := manager.Register(c, "@every 1m", 10)
	require.NoError(t, err)
	require.NotZero(t, id)
	require.Len(t, c.Entries(), 1)

	_, err = manager.Register(c, "not a schedule", 10)
	require.Error(t, err)
}
