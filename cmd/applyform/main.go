// Command applyform fills in and submits the application form from a
// terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/Katlearn/cablevision-form/internal/config"
	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/mailer"
	"github.com/Katlearn/cablevision-form/internal/signature"
	"github.com/Katlearn/cablevision-form/internal/upload"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var up form.Uploader
	if cfg.UploadsEnabled() {
		up = upload.New(cfg.UploadURL, cfg.HTTPTimeout)
	}
	canvas := signature.NewCanvas(cfg.SignatureWidth, cfg.SignatureHeight)
	ctrl, err := form.New(form.Options{
		Signature: canvas,
		Uploader:  up,
		Mailer: mailer.NewEmailJS(mailer.Config{
			Endpoint:   cfg.EmailJSEndpoint,
			ServiceID:  cfg.EmailJSServiceID,
			TemplateID: cfg.EmailJSTemplateID,
			PublicKey:  cfg.EmailJSPublicKey,
			PrivateKey: cfg.EmailJSPrivateKey,
			Timeout:    cfg.HTTPTimeout,
		}),
		MapEnabled: cfg.MapEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to build form: %v", err)
	}

	res, err := newInterview(surveyPrompter{}, ctrl, canvas).run(ctx)
	if errors.Is(err, errAborted) || errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Aborted.")
		os.Exit(130)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Println(res.Message)
	if !res.OK() {
		os.Exit(1)
	}
}
