package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/signdesk/dbopen"
	"github.com/hazyhaar/signdesk/internal/capture"
	"github.com/hazyhaar/signdesk/internal/interact"
	"github.com/hazyhaar/signdesk/internal/render"
	"github.com/hazyhaar/signdesk/internal/store"
	"github.com/hazyhaar/signdesk/mcpquic"
	"github.com/hazyhaar/signdesk/observability"
	"github.com/hazyhaar/signdesk/safety"
	"github.com/hazyhaar/signdesk/shield"
	"github.com/hazyhaar/signdesk/signdesk"
	"github.com/hazyhaar/signdesk/sigstore"
)

func main() {
	port := env("PORT", "8090")
	configPath := env("CONFIG", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration: YAML file if given, env fallbacks otherwise.
	var cfg *signdesk.Config
	if configPath != "" {
		var err error
		cfg, err = signdesk.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
	} else {
		cfg = &signdesk.Config{
			DataDir:  env("DATA_DIR", "data"),
			FontsDir: env("FONTS_DIR", "fonts"),
		}
	}

	// Data DB: saved signatures, signer profile, event logs, shield tables.
	db, err := dbopen.Open(filepath.Join(cfg.DataDir, "signdesk.db"), dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("data db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := sigstore.Init(db); err != nil {
		slog.Error("sigstore init", "error", err)
		os.Exit(1)
	}
	if err := observability.Init(db); err != nil {
		slog.Error("observability init", "error", err)
		os.Exit(1)
	}
	if err := shield.Init(db); err != nil {
		slog.Error("shield init", "error", err)
		os.Exit(1)
	}

	events := observability.NewEventLogger(db)
	signatures := sigstore.New(db, sigstore.WithLogger(logger))

	svc := signdesk.New(cfg, logger,
		signdesk.WithSignatureStore(signatures),
		signdesk.WithEventLogger(events),
	)

	// Retention cleanup for observability tables.
	if cfg.EventLogsDays > 0 || cfg.HTTPLogsDays > 0 {
		go func() {
			tick := time.NewTicker(24 * time.Hour)
			defer tick.Stop()
			for {
				retention := observability.RetentionConfig{
					EventLogsDays:  cfg.EventLogsDays,
					HTTPLogsDays:   cfg.HTTPLogsDays,
					RunVacuumAfter: true,
				}
				if err := observability.Cleanup(ctx, db, retention); err != nil {
					slog.Warn("retention cleanup", "error", err)
				}
				select {
				case <-ctx.Done():
					return
				case <-tick.C:
				}
			}
		}()
	}

	// Optional MCP QUIC.
	if mcpTransport == "quic" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "signdesk",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)

		quicAddr := env("MCP_QUIC_ADDR", ":9444")
		certFile := env("TLS_CERT", "")
		keyFile := env("TLS_KEY", "")

		var tlsCfg *tls.Config
		if certFile != "" && keyFile != "" {
			tlsCfg, err = mcpquic.ServerTLSConfig(certFile, keyFile)
		} else {
			tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		}
		if err != nil {
			slog.Error("MCP QUIC TLS", "error", err)
		} else {
			ql, qErr := mcpquic.NewListener(quicAddr, tlsCfg, mcpSrv, logger)
			if qErr != nil {
				slog.Error("MCP QUIC listener", "error", qErr)
			} else {
				go func() {
					slog.Info("MCP QUIC starting", "addr", quicAddr)
					if sErr := ql.Serve(ctx); sErr != nil && ctx.Err() == nil {
						slog.Error("MCP QUIC", "error", sErr)
					}
				}()
			}
		}
	}

	// Router.
	r := chi.NewRouter()
	stack, mm, rl := shield.DefaultStack(db)
	for _, mw := range stack {
		r.Use(mw)
	}
	mm.StartReloader(ctx.Done())
	rl.StartReloader(ctx.Done())
	r.Use(requestLog(events))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Sessions.
	r.Post("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(render.MaxDocumentSize); err != nil {
			writeError(w, 400, err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, 400, errors.New("missing file field"))
			return
		}
		defer file.Close()

		data, err := safety.LimitedReadAll(file, render.MaxDocumentSize)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		sess, err := svc.CreateSession(r.Context(), data, header.Filename)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, 201, sess.State())
	})

	r.Route("/api/sessions/{id}", func(r chi.Router) {
		sess := func(w http.ResponseWriter, r *http.Request) *signdesk.Session {
			s, err := svc.Session(chi.URLParam(r, "id"))
			if err != nil {
				writeAPIError(w, err)
				return nil
			}
			return s
		}

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, map[string]string{"status": "ok"})
		})

		r.Post("/clear", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			s.Clear(r.Context())
			writeJSON(w, 200, s.State())
		})

		r.Post("/page", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				Page int `json:"page"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := s.SetPage(req.Page); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Post("/zoom", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				Zoom float64 `json:"zoom"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := s.SetZoom(req.Zoom); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Get("/raster", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			if p := r.URL.Query().Get("page"); p != "" {
				if err := s.SetPage(queryInt(r, "page", 1)); err != nil {
					writeAPIError(w, err)
					return
				}
			}
			if z := r.URL.Query().Get("zoom"); z != "" {
				zoom, err := strconv.ParseFloat(z, 64)
				if err != nil {
					writeError(w, 400, err)
					return
				}
				if err := s.SetZoom(zoom); err != nil {
					writeAPIError(w, err)
					return
				}
			}
			png, err := s.Raster()
			if err != nil {
				writeAPIError(w, err)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write(png)
		})

		r.Post("/tool", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				Kind string `json:"kind"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := s.SelectTool(req.Kind); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Delete("/tool", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			s.ClearTool()
			writeJSON(w, 200, s.State())
		})

		r.Post("/pointer", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				Phase  string  `json:"phase"`
				X      float64 `json:"x"`
				Y      float64 `json:"y"`
				Handle string  `json:"handle"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := s.Pointer(r.Context(), req.Phase, req.X, req.Y, req.Handle); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Post("/key", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				Key      string `json:"key"`
				Modifier bool   `json:"modifier"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := s.Keyboard(req.Key, req.Modifier); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Get("/elements", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			if r.URL.Query().Get("visible") == "true" {
				writeJSON(w, 200, s.VisibleElements())
				return
			}
			writeJSON(w, 200, s.Elements())
		})

		r.Patch("/elements/{elID}", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				X           *float64 `json:"x"`
				Y           *float64 `json:"y"`
				Width       *float64 `json:"width"`
				Height      *float64 `json:"height"`
				Page        *int     `json:"page"`
				Content     *string  `json:"content"`
				Color       *string  `json:"color"`
				StrokeWidth *float64 `json:"stroke_width"`
				FontSize    *float64 `json:"font_size"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			patch := store.Patch{
				X: req.X, Y: req.Y, Width: req.Width, Height: req.Height,
				Page: req.Page, Content: req.Content, Color: req.Color,
				StrokeWidth: req.StrokeWidth, FontSize: req.FontSize,
			}
			if err := s.UpdateElement(chi.URLParam(r, "elID"), patch); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Delete("/elements/{elID}", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			s.RemoveElement(r.Context(), chi.URLParam(r, "elID"))
			writeJSON(w, 200, s.State())
		})

		r.Post("/undo", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			s.Undo()
			writeJSON(w, 200, s.State())
		})

		r.Post("/redo", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			s.Redo()
			writeJSON(w, 200, s.State())
		})

		r.Post("/signature/draw", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				Strokes []capture.Stroke `json:"strokes"`
				Width   int              `json:"width"`
				Height  int              `json:"height"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			uri, err := s.CaptureDraw(r.Context(), req.Strokes, req.Width, req.Height)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, map[string]string{"payload": uri})
		})

		r.Post("/signature/type", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			var req struct {
				Name string `json:"name"`
				Font string `json:"font"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			uri, err := s.CaptureTyped(r.Context(), req.Name, req.Font)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, map[string]string{"payload": uri})
		})

		r.Post("/signature/upload", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			if err := r.ParseMultipartForm(capture.MaxUploadSize); err != nil {
				writeError(w, 400, err)
				return
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				writeError(w, 400, errors.New("missing file field"))
				return
			}
			defer file.Close()

			data, err := safety.LimitedReadAll(file, capture.MaxUploadSize)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			uri, err := s.CaptureUpload(r.Context(), data, header.Header.Get("Content-Type"))
			if err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, map[string]string{"payload": uri})
		})

		r.Post("/image", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			if err := r.ParseMultipartForm(capture.MaxUploadSize); err != nil {
				writeError(w, 400, err)
				return
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				writeError(w, 400, errors.New("missing file field"))
				return
			}
			defer file.Close()

			data, err := safety.LimitedReadAll(file, capture.MaxUploadSize)
			if err != nil {
				writeAPIError(w, err)
				return
			}
			if err := s.SetImage(data, header.Header.Get("Content-Type")); err != nil {
				writeAPIError(w, err)
				return
			}
			writeJSON(w, 200, s.State())
		})

		r.Get("/export", func(w http.ResponseWriter, r *http.Request) {
			s := sess(w, r)
			if s == nil {
				return
			}
			data, name, err := s.Export(r.Context())
			if err != nil {
				writeAPIError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
			w.Write(data)
		})
	})

	// Saved signatures and signer profile.
	r.Get("/api/signatures", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, svc.SavedSignatures(r.Context()))
	})

	r.Post("/api/signatures", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode    string `json:"mode"`
			Payload string `json:"payload"`
			Name    string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		mode := sigstore.Mode(req.Mode)
		if !mode.Valid() {
			writeError(w, 400, errors.New("unknown capture mode"))
			return
		}
		id := svc.SaveSignature(r.Context(), mode, req.Payload, req.Name)
		writeJSON(w, 201, map[string]string{"id": id})
	})

	r.Delete("/api/signatures/{id}", func(w http.ResponseWriter, r *http.Request) {
		svc.DeleteSignature(r.Context(), chi.URLParam(r, "id"))
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/name", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{"name": svc.SignerName(r.Context())})
	})

	r.Put("/api/name", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		svc.SetSignerName(r.Context(), req.Name)
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/fonts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.Fonts())
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// --- Middleware ---

// requestLog records completed requests in the http_request_logs table.
func requestLog(events *observability.EventLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: 200}
			next.ServeHTTP(rec, r)
			events.LogRequest(r.Context(), r.Method, r.URL.Path, rec.status,
				time.Since(start), shield.ExtractIP(r))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeAPIError maps sentinel errors from the service layers to HTTP codes.
func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signdesk.ErrSessionNotFound),
		errors.Is(err, signdesk.ErrElementNotFound):
		writeError(w, 404, err)
	case errors.Is(err, render.ErrNotPDF),
		errors.Is(err, render.ErrEmptyPDF):
		writeError(w, 415, err)
	case errors.Is(err, render.ErrTooLarge),
		errors.Is(err, capture.ErrTooLarge),
		errors.Is(err, safety.ErrTooLarge):
		writeError(w, 413, err)
	case errors.Is(err, interact.ErrNoSignature),
		errors.Is(err, signdesk.ErrStaleView):
		writeError(w, 409, err)
	case errors.Is(err, render.ErrBadPage),
		errors.Is(err, render.ErrBadZoom),
		errors.Is(err, interact.ErrUnknownTool),
		errors.Is(err, signdesk.ErrBadPointerPhase),
		errors.Is(err, capture.ErrEmptySignature),
		errors.Is(err, capture.ErrEmptyName),
		errors.Is(err, capture.ErrUnknownFont),
		errors.Is(err, capture.ErrUnsupportedImage),
		errors.Is(err, capture.ErrBadPayload):
		writeError(w, 400, err)
	default:
		writeError(w, 500, err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
