package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"dmscreen/config"
	"dmscreen/core/combat"
	"dmscreen/core/gallery"
	"dmscreen/core/mixer"
	"dmscreen/core/viewer"
	"dmscreen/logger"
	"dmscreen/storage"
	"dmscreen/store"
	"dmscreen/watcher"
)

// Start initializes every registry and runs the HTTP server until a shutdown
// signal arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	st, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open state store", logger.ErrorField(err))
	}
	defer st.Close()

	var blobs *storage.BlobStore
	if cfg.MediaStore == "minio" {
		blobs, err = storage.NewMinio(cfg)
		if err != nil {
			logger.Fatal("failed to initialize media blob store", logger.ErrorField(err))
		}
	}

	hub := viewer.NewHub()
	go hub.Run()
	defer hub.Stop()

	bridge := viewer.NewBridge(hub)
	mix := mixer.New(st, bridge.Factory(), time.Duration(cfg.FadeMillis)*time.Millisecond)
	hub.OnPlatformReady(mix.PlatformReady)
	hub.OnPlayerState(mix.HandlePlayerState)

	gal := gallery.New(st, hub, cfg.GalleryPageSize)
	tracker := combat.New(st)

	// Groups and tracks load before any player exists; players are built once
	// the bridge reports the platform ready.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mix.Load(loadCtx); err != nil {
		logger.Fatal("failed to load mixer state", logger.ErrorField(err))
	}
	if err := gal.Load(loadCtx); err != nil {
		logger.Fatal("failed to load gallery state", logger.ErrorField(err))
	}
	if err := tracker.Load(loadCtx); err != nil {
		logger.Fatal("failed to load combat state", logger.ErrorField(err))
	}
	if cfg.SeedDemo {
		tracker.SeedDemo(loadCtx)
	}
	cancelLoad()

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if cfg.MediaWatchDir != "" {
		w, err := watcher.New(cfg.MediaWatchDir, gal)
		if err != nil {
			logger.Fatal("failed to watch media directory", logger.ErrorField(err))
		}
		go w.Run(watchCtx)
		logger.Info("watching media directory", logger.String("dir", cfg.MediaWatchDir))
	}

	apiHandler := NewAPIHandler(st, gal, mix, tracker, hub, blobs)
	router := NewRouter(apiHandler)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("dmscreen listening", logger.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", logger.ErrorField(err))
	}
}

// NewRouter wires every endpoint onto a mux router. CORS wraps the router
// itself so preflight requests get answered even for method mismatches.
func NewRouter(h *APIHandler) http.Handler {
	router := mux.NewRouter()

	// Notes.
	router.HandleFunc("/api/notes", h.GetNotesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/notes", h.PutNotesHandler).Methods(http.MethodPut)

	// Gallery.
	router.HandleFunc("/api/media", h.ListMediaHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/media", h.ClearMediaHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/media/import", h.ImportMediaHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/media/tree", h.MediaTreeHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/media/path", h.SelectPathHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/media/page", h.AdvancePageHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/media/show", h.ShowMediaHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/media/blob/{key:.+}", h.MediaBlobHandler).Methods(http.MethodGet)

	// Mixer: groups.
	router.HandleFunc("/api/groups", h.GetGroupsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/groups", h.CreateGroupHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/groups/{id}", h.DeleteGroupHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/groups/{id}/volume", h.SetGroupVolumeHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/groups/{id}/control", h.ControlGroupHandler).Methods(http.MethodPost)

	// Mixer: tracks.
	router.HandleFunc("/api/tracks", h.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", h.AddTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks", h.ClearTracksHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/save", h.SaveMixerHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{index}", h.UpdateTrackHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{index}", h.RemoveTrackHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{index}/control", h.ControlTrackHandler).Methods(http.MethodPost)

	// Combat tracker.
	router.HandleFunc("/api/enemies", h.GetEnemiesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/enemies", h.CreateEnemyHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/enemies", h.ClearEnemiesHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/enemies/{id}", h.RemoveEnemyHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/enemies/{id}/hp", h.UpdateHPHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/initiative", h.GetInitiativeHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/initiative", h.AddParticipantHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/initiative", h.ClearInitiativeHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/initiative/{id}", h.UpdateParticipantHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/initiative/{id}", h.RemoveParticipantHandler).Methods(http.MethodDelete)

	// Import / export.
	router.HandleFunc("/api/export", h.ExportHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/import", h.ImportHandler).Methods(http.MethodPost)

	// Websocket channels.
	router.HandleFunc("/ws/viewer", h.ViewerWSHandler)
	router.HandleFunc("/ws/player", h.PlayerWSHandler)

	return corsMiddleware(router)
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreBackend == "redis" {
		return store.NewRedis(cfg)
	}
	return store.NewSQLite(cfg.SQLitePath)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
