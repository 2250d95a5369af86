package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jalasoft/jalanews/internal/models"
)

func TestNewMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	post := &models.Post{ID: "p1", AuthorID: "u2", Title: "Launch", Visibility: models.VisibilityPublic, CreatedAt: created}

	msg, err := newMessage(ctx, SubjectPostCreated, newPostCreated(post, 3))
	if err != nil {
		t.Fatalf("newMessage() error = %v", err)
	}
	if msg.Subject != SubjectPostCreated {
		t.Errorf("Subject = %q", msg.Subject)
	}
	carrier := propagation.HeaderCarrier(msg.Header)
	if carrier.Get("traceparent") == "" {
		t.Error("traceparent header missing")
	}
	remote := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), carrier))
	if remote.TraceID() != traceID || remote.SpanID() != spanID {
		t.Errorf("extracted span context = %s/%s, want %s/%s", remote.TraceID(), remote.SpanID(), traceID, spanID)
	}

	var event PostCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("payload decode error = %v", err)
	}
	if event.ID != "p1" || event.AuthorID != "u2" || event.Recipients != 3 || !event.CreatedAt.Equal(created) {
		t.Errorf("unexpected payload %+v", event)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	post := &models.Post{ID: "p1", AuthorID: "u2"}
	_ = r.PostCreated(context.Background(), post, 1)
	_ = r.PostDeleted(context.Background(), post)

	created, deleted := r.Snapshot()
	if len(created) != 1 || len(deleted) != 1 {
		t.Fatalf("recorded %d created, %d deleted", len(created), len(deleted))
	}
	if deleted[0].ID != "p1" {
		t.Errorf("deleted id = %q", deleted[0].ID)
	}
}
