package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/helloforever-backend/internal/config"
	httpapi "github.com/tbourn/helloforever-backend/internal/http"
	"github.com/tbourn/helloforever-backend/internal/llm"
	"github.com/tbourn/helloforever-backend/internal/lock"
	"github.com/tbourn/helloforever-backend/internal/notify"
	"github.com/tbourn/helloforever-backend/internal/storage"
)

// buildExternal constructs every third-party integration the config has
// credentials for. Missing credentials leave the field nil with a warning;
// the process still starts. The returned func closes what was opened.
func buildExternal(ctx context.Context, c config.Config) (httpapi.External, func(), error) {
	var ext httpapi.External
	closers := []func(){}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if n, _, err := notify.NewResendNotifier(c.Email.APIKey, c.Email.From, c.AppBaseURL); err == nil {
		ext.Notifier = n
	} else if errors.Is(err, notify.ErrNotConfigured) {
		log.Warn().Msg("RESEND_API_KEY not set: deliveries will fail until configured")
	} else {
		cleanup()
		return ext, nil, err
	}

	if r, err := llm.NewGeminiResponder(ctx, llm.GeminiConfig{APIKey: c.LLM.APIKey, Model: c.LLM.Model}); err == nil {
		ext.Responder = r
	} else if errors.Is(err, llm.ErrNotConfigured) {
		log.Warn().Msg("GEMINI_API_KEY not set: conversations are disabled")
	} else {
		cleanup()
		return ext, nil, err
	}

	if p, err := storage.NewCloudinaryPresigner(c.Upload.CloudName, c.Upload.APIKey, c.Upload.APISecret, c.Upload.URLTTL); err == nil {
		ext.Presigner = p
	} else if errors.Is(err, storage.ErrNotConfigured) {
		log.Warn().Msg("Cloudinary credentials not set: uploads are disabled")
	} else {
		cleanup()
		return ext, nil, err
	}

	// The lock is best effort: a sweep without it still delivers at least once.
	if c.Sweep.RedisURL != "" {
		l, err := lock.NewRedisLocker(ctx, c.Sweep.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable: sweeps run without a distributed lock")
		} else {
			ext.Locker = l
			closers = append(closers, func() { _ = l.Close() })
		}
	}

	return ext, cleanup, nil
}
