package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/content"
	"github.com/jalasoft/jalanews/internal/fanout"
	"github.com/jalasoft/jalanews/internal/graph"
	"github.com/jalasoft/jalanews/internal/inbox"
	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store/memory"
	"github.com/jalasoft/jalanews/internal/view"
)

type testServer struct {
	store  *memory.Store
	router *Router
	engine *gin.Engine
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	logger := zap.NewNop()
	g := graph.NewService(st, logger)
	ib := inbox.NewService(st, st, st.Bus(), 0, logger)
	fan, err := fanout.NewEngine(st, nil, 2, logger)
	if err != nil {
		t.Fatal(err)
	}
	agg := view.NewAggregator(view.Deps{
		Accounts: st,
		Posts:    st,
		Comments: st,
		Bus:      st.Bus(),
		Graph:    g,
		Inbox:    ib,
	}, view.Options{CommentLimit: view.DefaultCommentLimit}, logger)

	for _, a := range []*models.Account{
		{ID: "alice", FirstName: "Alice"},
		{ID: "bob", FirstName: "Bob"},
	} {
		if err := st.PutAccount(context.Background(), a); err != nil {
			t.Fatal(err)
		}
	}

	router := NewRouter(Services{
		Accounts: st,
		Graph:    g,
		Fanout:   fan,
		Content:  content.NewService(st, fan, nil, logger),
		Inbox:    ib,
		Views:    agg,
	}, checks, logger)
	engine := gin.New()
	router.SetupRoutes(engine)
	return &testServer{store: st, router: router, engine: engine}
}

type rpcResult struct {
	Result json.RawMessage `json:"result"`
	Error  *JSONRPCError   `json:"error"`
}

func (s *testServer) call(t *testing.T, actor, method string, params interface{}) rpcResult {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Account-ID", actor)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s: status %d", method, w.Code)
	}
	var res rpcResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("%s: bad response %q: %v", method, w.Body.String(), err)
	}
	return res
}

func (s *testServer) mustCall(t *testing.T, actor, method string, params, out interface{}) {
	t.Helper()
	res := s.call(t, actor, method, params)
	if res.Error != nil {
		t.Fatalf("%s: unexpected error %d %s: %v", method, res.Error.Code, res.Error.Message, res.Error.Data)
	}
	if out != nil {
		if err := json.Unmarshal(res.Result, out); err != nil {
			t.Fatalf("%s: decode result: %v", method, err)
		}
	}
}

func TestJSONRPC_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		actor  string
		method string
		params interface{}
		code   int
	}{
		{"unknown method", "alice", "posts.nope", nil, ErrMethodNotFound},
		{"follow needs account", "", "graph.follow", map[string]string{"account": "bob"}, ErrForbidden},
		{"follow missing param", "alice", "graph.follow", map[string]string{}, ErrInvalidParams},
		{"self follow", "alice", "graph.follow", map[string]string{"account": "alice"}, ErrInvalidParams},
		{"bad params type", "alice", "graph.follow", []int{1}, ErrInvalidParams},
		{"blank title", "alice", "posts.publish", map[string]string{"title": " ", "body": "b"}, ErrInvalidParams},
		{"mark read needs account", "", "notifications.mark_read", map[string]string{"id": "x"}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.call(t, tt.actor, tt.method, tt.params)
			if res.Error == nil {
				t.Fatalf("expected error code %d, got result %s", tt.code, res.Result)
			}
			if res.Error.Code != tt.code {
				t.Errorf("code = %d, want %d (%v)", res.Error.Code, tt.code, res.Error.Data)
			}
		})
	}
}

func TestRegisteredMethods(t *testing.T) {
	s := newTestServer(t, nil)
	want := []string{
		"comments.add", "comments.delete", "comments.list",
		"graph.follow", "graph.is_following", "graph.list_followers", "graph.list_following", "graph.unfollow",
		"notifications.list", "notifications.mark_read", "notifications.unread_count",
		"posts.delete", "posts.get", "posts.publish", "posts.react", "posts.update",
	}
	if got := s.router.handler.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("Methods() = %v, want %v", got, want)
	}
}

func TestJSONRPC_ParseError(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var res rpcResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Error == nil || res.Error.Code != ErrParseError {
		t.Fatalf("error = %+v, want parse error", res.Error)
	}
}

func TestFollowMethods(t *testing.T) {
	s := newTestServer(t, nil)
	s.mustCall(t, "bob", "graph.follow", map[string]string{"account": "alice"}, nil)
	// Idempotent.
	s.mustCall(t, "bob", "graph.follow", map[string]string{"account": "alice"}, nil)

	var is struct {
		Following bool `json:"following"`
	}
	s.mustCall(t, "bob", "graph.is_following", map[string]string{"account": "alice"}, &is)
	if !is.Following {
		t.Error("bob should follow alice")
	}

	var followers struct {
		Followers []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"followers"`
	}
	s.mustCall(t, "", "graph.list_followers", map[string]string{"account": "alice"}, &followers)
	if len(followers.Followers) != 1 || followers.Followers[0].ID != "bob" || followers.Followers[0].Name != "Bob" {
		t.Errorf("followers = %+v", followers.Followers)
	}

	s.mustCall(t, "bob", "graph.unfollow", map[string]string{"account": "alice"}, nil)
	s.mustCall(t, "bob", "graph.is_following", map[string]string{"account": "alice"}, &is)
	if is.Following {
		t.Error("bob should no longer follow alice")
	}
}

type notificationList struct {
	Items []struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		PostID      string `json:"post_id"`
		Message     string `json:"message"`
		Read        bool   `json:"read"`
		PostDeleted bool   `json:"post_deleted"`
	} `json:"items"`
	Unread int `json:"unread"`
}

func TestPublishReadDelete(t *testing.T) {
	s := newTestServer(t, nil)
	s.mustCall(t, "bob", "graph.follow", map[string]string{"account": "alice"}, nil)

	var published publishedPost
	s.mustCall(t, "alice", "posts.publish", map[string]string{"title": "Hello", "body": "World"}, &published)
	if published.Post.ID == "" || published.Recipients != 1 || published.Delivered != 1 {
		t.Fatalf("publish result = %+v", published)
	}

	var list notificationList
	s.mustCall(t, "bob", "notifications.list", nil, &list)
	if len(list.Items) != 1 || list.Unread != 1 {
		t.Fatalf("inbox = %+v", list)
	}
	item := list.Items[0]
	if item.Message != "Alice published: Hello" || item.PostDeleted || item.Read {
		t.Errorf("item = %+v", item)
	}

	s.mustCall(t, "bob", "notifications.mark_read", map[string]string{"id": item.ID}, nil)
	var unread struct {
		Unread int `json:"unread"`
	}
	s.mustCall(t, "bob", "notifications.unread_count", nil, &unread)
	if unread.Unread != 0 {
		t.Errorf("unread = %d, want 0", unread.Unread)
	}

	res := s.call(t, "bob", "posts.delete", map[string]string{"id": published.Post.ID})
	if res.Error == nil || res.Error.Code != ErrForbidden {
		t.Fatalf("delete by non-author: error = %+v", res.Error)
	}
	s.mustCall(t, "alice", "posts.delete", map[string]string{"id": published.Post.ID}, nil)

	s.mustCall(t, "bob", "notifications.list", nil, &list)
	if len(list.Items) != 1 || !list.Items[0].PostDeleted {
		t.Errorf("after delete inbox = %+v", list)
	}

	var post *struct {
		ID string `json:"id"`
	}
	s.mustCall(t, "", "posts.get", map[string]string{"id": published.Post.ID}, &post)
	if post != nil {
		t.Errorf("deleted post = %+v, want null", post)
	}
}

// publishedPost mirrors the posts.publish result.
type publishedPost struct {
	Post struct {
		ID string `json:"id"`
	} `json:"post"`
	Recipients int      `json:"recipients"`
	Delivered  int      `json:"delivered"`
	Failed     []string `json:"failed"`
}

func TestReactAndComments(t *testing.T) {
	s := newTestServer(t, nil)

	var published publishedPost
	s.mustCall(t, "alice", "posts.publish", map[string]string{"title": "Hi", "body": "There"}, &published)
	id := published.Post.ID

	var post struct {
		Likes []string `json:"likes"`
	}
	s.mustCall(t, "bob", "posts.react", map[string]string{"id": id, "reaction": "like"}, &post)
	if len(post.Likes) != 1 || post.Likes[0] != "bob" {
		t.Errorf("likes = %v", post.Likes)
	}

	var list notificationList
	s.mustCall(t, "alice", "notifications.list", nil, &list)
	if len(list.Items) != 1 || list.Items[0].Type != string(models.NotifyLike) {
		t.Errorf("author inbox = %+v", list)
	}

	var comment struct {
		ID string `json:"id"`
	}
	s.mustCall(t, "bob", "comments.add", map[string]string{"post_id": id, "text": "nice"}, &comment)

	res := s.call(t, "alice", "comments.delete", map[string]string{"post_id": id, "id": comment.ID})
	if res.Error == nil || res.Error.Code != ErrForbidden {
		t.Errorf("delete by other account: error = %+v", res.Error)
	}
	s.mustCall(t, "bob", "comments.delete", map[string]string{"post_id": id, "id": comment.ID}, nil)

	var comments []json.RawMessage
	s.mustCall(t, "", "comments.list", map[string]string{"post_id": id}, &comments)
	if len(comments) != 0 {
		t.Errorf("comments = %d, want 0", len(comments))
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]HealthCheck
		status int
	}{
		{"no dependencies", nil, http.StatusOK},
		{"healthy", map[string]HealthCheck{"store": func(context.Context) error { return nil }}, http.StatusOK},
		{"degraded", map[string]HealthCheck{"redis": func(context.Context) error { return errors.New("down") }}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.checks)
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestStream_RequiresAccount(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream/inbox", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestStream_Header(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/header", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Account-ID", "alice")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var header view.HeaderView
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &header); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		if header.AccountID != "alice" {
			t.Fatalf("header = %+v", header)
		}
		if header.AccountName == "Alice" && header.Loaded {
			return
		}
	}
	t.Fatalf("stream ended without an event: %v", scanner.Err())
}
