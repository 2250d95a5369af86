package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/api/notify"
	"github.com/jalasoft/jalanews/internal/api/posts"
	"github.com/jalasoft/jalanews/internal/api/rpc"
	"github.com/jalasoft/jalanews/internal/api/social"
	"github.com/jalasoft/jalanews/internal/content"
	"github.com/jalasoft/jalanews/internal/fanout"
	"github.com/jalasoft/jalanews/internal/graph"
	"github.com/jalasoft/jalanews/internal/inbox"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/internal/view"
)

// healthTimeout bounds each dependency check of /health.
const healthTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Services are the domain services the API exposes.
type Services struct {
	Accounts store.Accounts
	Graph    *graph.Service
	Fanout   *fanout.Engine
	Content  *content.Service
	Inbox    *inbox.Service
	Views    *view.Aggregator
}

// Router sets up API routes
type Router struct {
	handler  *JSONRPCHandler
	services Services
	checks   map[string]HealthCheck
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(services Services, checks map[string]HealthCheck, logger *zap.Logger) *Router {
	router := &Router{
		handler:  NewJSONRPCHandler(logger),
		services: services,
		checks:   checks,
		logger:   logger.With(zap.String("component", "api-router")),
	}

	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(actorMiddleware)

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)

	// Live views
	stream := engine.Group("/stream")
	stream.GET("/header", r.streamHeader)
	stream.GET("/inbox", r.streamInbox)
	stream.GET("/feed", r.streamFeed)
	stream.GET("/posts/:id", r.streamPost)
}

// actorMiddleware records the account id supplied by the gateway.
func actorMiddleware(c *gin.Context) {
	if id := c.GetHeader(rpc.AccountHeader); id != "" {
		rpc.SetActor(c, id)
	}
	c.Next()
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	// Social graph
	follow := social.NewFollowAPI(r.services.Graph, r.services.Accounts)

	r.handler.RegisterMethod("graph.follow", follow.Follow)
	r.handler.RegisterMethod("graph.unfollow", follow.Unfollow)
	r.handler.RegisterMethod("graph.is_following", follow.IsFollowing)
	r.handler.RegisterMethod("graph.list_following", follow.ListFollowing)
	r.handler.RegisterMethod("graph.list_followers", follow.ListFollowers)

	// Posts and comments
	postAPI := posts.NewPostAPI(r.services.Fanout, r.services.Content, r.services.Accounts)

	r.handler.RegisterMethod("posts.publish", postAPI.Publish)
	r.handler.RegisterMethod("posts.get", postAPI.Get)
	r.handler.RegisterMethod("posts.update", postAPI.Update)
	r.handler.RegisterMethod("posts.delete", postAPI.Delete)
	r.handler.RegisterMethod("posts.react", postAPI.React)
	r.handler.RegisterMethod("comments.add", postAPI.AddComment)
	r.handler.RegisterMethod("comments.delete", postAPI.DeleteComment)
	r.handler.RegisterMethod("comments.list", postAPI.ListComments)

	// Notifications
	notifyAPI := notify.NewNotifyAPI(r.services.Inbox)

	r.handler.RegisterMethod("notifications.list", notifyAPI.List)
	r.handler.RegisterMethod("notifications.mark_read", notifyAPI.MarkRead)
	r.handler.RegisterMethod("notifications.unread_count", notifyAPI.UnreadCount)

	r.logger.Info("Registered JSON-RPC methods", zap.Strings("methods", r.handler.Methods()))
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}
	for name, check := range r.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			r.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "OK"
	}

	body := gin.H{"status": "OK", "service": "jalanews-api", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "DEGRADED"
	}
	c.JSON(status, body)
}

func (r *Router) streamHeader(c *gin.Context) {
	actor, ok := r.requireActor(c)
	if !ok {
		return
	}
	scr, err := r.services.Views.Header(c.Request.Context(), actor)
	if err != nil {
		r.streamFailed(c, "header", err)
		return
	}
	defer scr.Close()
	streamScreen(c, "header", scr.Updates())
}

func (r *Router) streamInbox(c *gin.Context) {
	actor, ok := r.requireActor(c)
	if !ok {
		return
	}
	scr, err := r.services.Views.Inbox(c.Request.Context(), actor)
	if err != nil {
		r.streamFailed(c, "inbox", err)
		return
	}
	defer scr.Close()
	streamScreen(c, "inbox", scr.Updates())
}

func (r *Router) streamFeed(c *gin.Context) {
	scr, err := r.services.Views.Feed(c.Request.Context(), rpc.Actor(c))
	if err != nil {
		r.streamFailed(c, "feed", err)
		return
	}
	defer scr.Close()
	streamScreen(c, "feed", scr.Updates())
}

func (r *Router) streamPost(c *gin.Context) {
	scr, err := r.services.Views.PostDetail(c.Request.Context(), rpc.Actor(c), c.Param("id"))
	if err != nil {
		r.streamFailed(c, "post", err)
		return
	}
	defer scr.Close()
	streamScreen(c, "post", scr.Updates())
}

func (r *Router) requireActor(c *gin.Context) (string, bool) {
	actor, err := rpc.RequireActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return "", false
	}
	return actor, true
}

func (r *Router) streamFailed(c *gin.Context, screen string, err error) {
	r.logger.Error("Failed to open screen", zap.String("screen", screen), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open " + screen})
}

// streamScreen writes each view value as one server-sent event until the
// screen closes or the client goes away.
func streamScreen[T any](c *gin.Context, event string, updates <-chan T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case v, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(event, v)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
