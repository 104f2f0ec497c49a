package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	apperrs "github.com/hemantkumar8006/update-data-scraper/internal/errors"
	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
	"github.com/hemantkumar8006/update-data-scraper/internal/scheduler"
	"github.com/hemantkumar8006/update-data-scraper/internal/serverutil"
)

// StatusResp is the full health rollup. Every section is well-formed even
// before the first cycle has run.
type StatusResp struct {
	Scheduler scheduler.Status          `json:"scheduler"`
	Queue     examupdates.QueueStatus   `json:"queue"`
	Database  examupdates.StoreStats    `json:"database"`
	Sources   []examupdates.SourceStats `json:"sources"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	dbStats, err := s.store.Stats(ctx)
	if err != nil {
		return err
	}
	sources, err := s.store.ScrapeStats(ctx, 24*time.Hour)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, StatusResp{
		Scheduler: s.cycler.Status(),
		Queue:     s.queue.Status(),
		Database:  dbStats,
		Sources:   sources,
	})
}

// The canonical snapshot: everything currently known, grouped by category.
func (s *Server) getUpdates(w http.ResponseWriter, r *http.Request) error {
	return serverutil.WriteJSON(w, http.StatusOK, s.snapshots.LoadCanonical())
}

// The delta snapshot: only what the most recent cycle found.
func (s *Server) getNotifications(w http.ResponseWriter, r *http.Request) error {
	return serverutil.WriteJSON(w, http.StatusOK, s.snapshots.LoadDelta())
}

func (s *Server) getUpdateByHash(w http.ResponseWriter, r *http.Request) error {
	hash := mux.Vars(r)["hash"]

	if rec, ok := s.recordCache.Get(hash); ok {
		return serverutil.WriteJSON(w, http.StatusOK, rec)
	}

	snap := s.snapshots.LoadCanonical()
	for _, cat := range examupdates.Categories() {
		for _, rec := range snap.List(cat) {
			if rec.ContentHash == hash {
				s.recordCache.Add(hash, rec)
				return serverutil.WriteJSON(w, http.StatusOK, rec)
			}
		}
	}

	return apperrs.E(http.StatusNotFound, "no update with that content hash")
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) error {
	return serverutil.WriteJSON(w, http.StatusOK, s.queue.Status())
}

func (s *Server) postScrape(w http.ResponseWriter, r *http.Request) error {
	s.cycler.Trigger()
	return serverutil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "scrape triggered",
	})
}

func (s *Server) postNotificationsClear(w http.ResponseWriter, r *http.Request) error {
	if err := s.snapshots.ClearDelta(); err != nil {
		return err
	}
	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "notifications cleared",
	})
}

func (s *Server) postQueueClear(w http.ResponseWriter, r *http.Request) error {
	if err := s.queue.Clear(); err != nil {
		return err
	}
	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "queue cleared",
	})
}

func (s *Server) postBackupsCleanup(w http.ResponseWriter, r *http.Request) error {
	keep := 5
	if raw := r.URL.Query().Get("keep"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return apperrs.E(http.StatusBadRequest, "keep must be a non-negative integer")
		}
		keep = parsed
	}

	removed, err := s.snapshots.CleanupBackups(keep)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string]int{
		"removed": removed,
		"kept":    keep,
	})
}

func (s *Server) postWebhookTest(w http.ResponseWriter, r *http.Request) error {
	if s.webhook == nil {
		return apperrs.E(http.StatusConflict, "no webhook configured")
	}
	if err := s.webhook.SendTest(r.Context()); err != nil {
		return apperrs.E(http.StatusBadGateway, err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "test notification delivered",
	})
}
