package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/internal/store/memory"
)

func newTestService(st *memory.Store) *Service {
	return NewService(st, st, st.Bus(), 0, zap.NewNop())
}

func seed(t *testing.T, st *memory.Store, notifications ...*models.Notification) {
	t.Helper()
	for _, n := range notifications {
		if _, err := st.CreateNotification(context.Background(), n); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMarkRead_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newTestService(st)
	seed(t, st, &models.Notification{ID: "n1", RecipientID: "u1", PostID: "p1"})

	for i := 0; i < 2; i++ {
		if err := svc.MarkRead(ctx, "u1", "n1"); err != nil {
			t.Fatalf("MarkRead() call %d error = %v", i+1, err)
		}
		n, _ := st.GetNotification(ctx, "u1", "n1")
		if !n.Read {
			t.Fatalf("read = false after call %d", i+1)
		}
	}

	if err := svc.MarkRead(ctx, "u1", "missing"); err != nil {
		t.Errorf("MarkRead() on missing notification error = %v", err)
	}
	// another recipient cannot flip it
	if err := svc.MarkRead(ctx, "u2", "n1"); err != nil {
		t.Errorf("MarkRead() foreign recipient error = %v", err)
	}
}

func TestMarkRead_StoreError(t *testing.T) {
	st := memory.New()
	svc := newTestService(st)
	boom := errors.New("unavailable")
	st.FailOn("MarkNotificationRead", func(args ...string) error { return boom })

	if err := svc.MarkRead(context.Background(), "u1", "n1"); !errors.Is(err, boom) {
		t.Errorf("MarkRead() error = %v, want %v", err, boom)
	}
}

func TestList_Order(t *testing.T) {
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	st := memory.New()
	svc := newTestService(st)
	seed(t, st,
		&models.Notification{ID: "old", RecipientID: "u1", CreatedAt: base},
		&models.Notification{ID: "new", RecipientID: "u1", CreatedAt: base.Add(time.Hour)},
		&models.Notification{ID: "other", RecipientID: "u2", CreatedAt: base},
	)

	list, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Errorf("List() ids = %v", ids(list))
	}
}

func TestWatch_PushesOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := memory.New()
	svc := newTestService(st)

	ch, err := svc.Watch(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	first := next(t, ch)
	if len(first) != 0 {
		t.Fatalf("initial snapshot = %v", ids(first))
	}

	seed(t, st, &models.Notification{ID: "n1", RecipientID: "u1"})
	snap := next(t, ch)
	if len(snap) != 1 || UnreadCount(snap) != 1 {
		t.Fatalf("snapshot after create = %v", ids(snap))
	}

	_ = svc.MarkRead(ctx, "u1", "n1")
	snap = next(t, ch)
	if UnreadCount(snap) != 0 {
		t.Errorf("unread after MarkRead = %d, want 0", UnreadCount(snap))
	}
}

func TestIsReferencedEntityLive(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newTestService(st)
	_ = st.CreatePost(ctx, &models.Post{ID: "p1", AuthorID: "u2", Title: "Launch", Body: "b"})

	n := &models.Notification{ID: "n1", RecipientID: "u1", PostID: "p1"}
	live, err := svc.IsReferencedEntityLive(ctx, n)
	if err != nil || !live {
		t.Fatalf("IsReferencedEntityLive() = %v, %v; want true", live, err)
	}

	_ = st.DeletePost(ctx, "p1")
	live, err = svc.IsReferencedEntityLive(ctx, n)
	if err != nil || live {
		t.Errorf("IsReferencedEntityLive() after delete = %v, %v; want false", live, err)
	}
}

func TestCheckLiveness(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newTestService(st)
	_ = st.CreatePost(ctx, &models.Post{ID: "live", AuthorID: "u2", Title: "t", Body: "b"})

	boom := errors.New("unavailable")
	st.FailOn("GetPost", func(args ...string) error {
		if args[0] == "broken" {
			return boom
		}
		return nil
	})

	batch := []*models.Notification{
		{ID: "a", PostID: "live"},
		{ID: "b", PostID: "live"},
		{ID: "c", PostID: "gone"},
		{ID: "d", PostID: "broken"},
	}
	got := svc.CheckLiveness(ctx, batch)

	if !got["live"] {
		t.Error("live post reported deleted")
	}
	if live, ok := got["gone"]; !ok || live {
		t.Errorf("gone post = %v, %v; want false, true", live, ok)
	}
	if _, ok := got["broken"]; ok {
		t.Error("failed lookup should be left out")
	}
}

func TestUnreadCount(t *testing.T) {
	batch := []*models.Notification{{Read: false}, {Read: true}, {Read: false}, nil}
	if got := UnreadCount(batch); got != 2 {
		t.Errorf("UnreadCount() = %d, want 2", got)
	}
}

func next(t *testing.T, ch <-chan store.Snapshot[[]*models.Notification]) []*models.Notification {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("watch closed")
		}
		if snap.Err != nil {
			t.Fatalf("snapshot error = %v", snap.Err)
		}
		return snap.Value
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func ids(list []*models.Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}
