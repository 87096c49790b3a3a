package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Katlearn/cablevision-form/internal/config"
	"github.com/Katlearn/cablevision-form/internal/db"
	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/gelf"
	"github.com/Katlearn/cablevision-form/internal/handler"
	"github.com/Katlearn/cablevision-form/internal/mailer"
	"github.com/Katlearn/cablevision-form/internal/repository"
	"github.com/Katlearn/cablevision-form/internal/router"
	"github.com/Katlearn/cablevision-form/internal/service"
	"github.com/Katlearn/cablevision-form/internal/session"
	"github.com/Katlearn/cablevision-form/internal/signature"
	"github.com/Katlearn/cablevision-form/internal/upload"
)

func main() {
	cfg := config.Load()

	// GELF UDP logging
	if cfg.GelfAddr != "" {
		gelfWriter, err := gelf.New(cfg.GelfAddr, "cablevision-form")
		if err != nil {
			log.Printf("Warning: GELF init failed: %v", err)
		} else {
			defer gelfWriter.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, gelfWriter))
			log.Printf("GELF logging: enabled (%s)", cfg.GelfAddr)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := router.Handlers{}

	// Optional built-in file host on OxiDB
	var pool *db.Pool
	if cfg.FileHostEnabled {
		addr := fmt.Sprintf("%s:%d", cfg.OxiDBHost, cfg.OxiDBPort)
		var err error
		pool, err = db.NewPool(ctx, addr, cfg.PoolSize, 30*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to OxiDB: %v", err)
		}
		defer pool.Close()
		log.Printf("Connected to OxiDB at %s (pool size: %d)", addr, pool.Size())

		if cfg.FileHostSecret == config.DefaultFileHostSecret {
			log.Printf("Warning: FILEHOST_SECRET is not set, file links are signed with a development key")
		}
		fileSvc := service.NewFileService(repository.NewFileRepo(pool), cfg.FileHostSecret, cfg.PublicBaseURL, cfg.FileHostLinkTTL)
		h.Files = handler.NewFileHandler(fileSvc)
		if cfg.UploadURL == "" {
			cfg.UploadURL = cfg.PublicBaseURL + "/files"
			log.Printf("Uploads go to the built-in file host (%s)", cfg.UploadURL)
		}

		go func() {
			initCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := fileSvc.Prepare(initCtx); err != nil {
				log.Printf("Warning: file host init failed: %v", err)
				return
			}
			log.Printf("Background init: file bucket and indexes ready")
		}()
	}

	if cfg.EmailJSServiceID == "" || cfg.EmailJSTemplateID == "" || cfg.EmailJSPublicKey == "" {
		log.Printf("Warning: EmailJS is not fully configured, submissions will fail to send")
	}
	mail := mailer.NewEmailJS(mailer.Config{
		Endpoint:   cfg.EmailJSEndpoint,
		ServiceID:  cfg.EmailJSServiceID,
		TemplateID: cfg.EmailJSTemplateID,
		PublicKey:  cfg.EmailJSPublicKey,
		PrivateKey: cfg.EmailJSPrivateKey,
		Timeout:    cfg.HTTPTimeout,
	})

	var up form.Uploader
	if cfg.UploadsEnabled() {
		up = upload.New(cfg.UploadURL, cfg.HTTPTimeout)
	}

	newForm := func() (*form.Controller, *signature.Canvas, error) {
		canvas := signature.NewCanvas(cfg.SignatureWidth, cfg.SignatureHeight)
		ctrl, err := form.New(form.Options{
			Signature:  canvas,
			Uploader:   up,
			Mailer:     mail,
			MapEnabled: cfg.MapEnabled,
		})
		return ctrl, canvas, err
	}
	sessions := session.NewStore(cfg.SessionTTL, newForm)

	h.Form = handler.NewFormHandler(newForm, cfg.MapEnabled, cfg.UploadsEnabled(), cfg.SignatureWidth, cfg.SignatureHeight)
	h.Sessions = handler.NewSessionHandler(sessions)
	// a nil *db.Pool must not become a non-nil Pinger
	if pool != nil {
		h.Health = handler.NewHealthHandler(sessions.Count, pool)
	} else {
		h.Health = handler.NewHealthHandler(sessions.Count, nil)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(cfg.CORSOrigins, h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      cfg.HTTPTimeout*2 + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: shutdown: %v", err)
		}
	}()

	log.Printf("Application form server starting on %s (map: %v, uploads: %v)", cfg.HTTPAddr, cfg.MapEnabled, cfg.UploadsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	log.Printf("Server stopped")
}
