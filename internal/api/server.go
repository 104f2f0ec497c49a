// Package api is the operator surface: status, snapshot views, manual
// triggers, and queue management over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
	"github.com/hemantkumar8006/update-data-scraper/internal/scheduler"
	"github.com/hemantkumar8006/update-data-scraper/internal/serverutil"
	"github.com/hemantkumar8006/update-data-scraper/internal/snapshot"
)

type (
	// Cycler is the scheduler surface the API needs.
	Cycler interface {
		Trigger()
		Status() scheduler.Status
	}

	// NotificationQueue is the delivery queue surface the API needs.
	NotificationQueue interface {
		Status() examupdates.QueueStatus
		Clear() error
	}

	// TestSender fires a synthetic notification at the configured webhook.
	TestSender interface {
		SendTest(ctx context.Context) error
	}

	// Server handles operator requests against the running pipeline.
	Server struct {
		*http.Server

		store     examupdates.RecordStore
		snapshots *snapshot.Store
		queue     NotificationQueue
		cycler    Cycler
		webhook   TestSender

		recordCache *lru.Cache[string, examupdates.FormattedRecord]
	}

	ServerConfig struct {
		Port       int
		CorsHeader string
	}
)

func NewServer(config ServerConfig, store examupdates.RecordStore, snapshots *snapshot.Store, queue NotificationQueue, cycler Cycler, webhook TestSender) *Server {
	var (
		r        = serverutil.ErrRouter{Router: mux.NewRouter()}
		cache, _ = lru.New[string, examupdates.FormattedRecord](1024)
	)

	srvr := Server{
		store:       store,
		snapshots:   snapshots,
		queue:       queue,
		cycler:      cycler,
		webhook:     webhook,
		recordCache: cache,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.HandleFuncE("/api/status", srvr.getStatus).Methods(http.MethodGet)
	r.HandleFuncE("/api/updates", srvr.getUpdates).Methods(http.MethodGet)
	r.HandleFuncE("/api/updates/{hash}", srvr.getUpdateByHash).Methods(http.MethodGet)
	r.HandleFuncE("/api/notifications", srvr.getNotifications).Methods(http.MethodGet)
	r.HandleFuncE("/api/queue", srvr.getQueue).Methods(http.MethodGet)

	r.HandleFuncE("/api/scrape", srvr.postScrape).Methods(http.MethodPost)
	r.HandleFuncE("/api/notifications:clear", srvr.postNotificationsClear).Methods(http.MethodPost)
	r.HandleFuncE("/api/queue:clear", srvr.postQueueClear).Methods(http.MethodPost)
	r.HandleFuncE("/api/backups:cleanup", srvr.postBackupsCleanup).Methods(http.MethodPost)
	r.HandleFuncE("/api/webhook:test", srvr.postWebhookTest).Methods(http.MethodPost)

	slog.Debug("configured operator server", "port", config.Port)

	return &srvr
}
