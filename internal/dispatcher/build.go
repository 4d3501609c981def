package dispatcher

import (
	"fmt"
	"strings"

	"github.com/jmehdipour/washcorner-notify/internal/config"
	"github.com/jmehdipour/washcorner-notify/internal/dedupe"
	"github.com/jmehdipour/washcorner-notify/internal/settings"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRouterFromConfig wires settings, dedupe memory and both channels from
// the process config. rds may be nil unless notify.dedupe_backend is redis.
func NewRouterFromConfig(cfg config.Config, rds redis.Cmdable, log *zap.Logger) (*Router, settings.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store := settings.NewFileStore(cfg.Notify.SettingsPath)

	var dd dedupe.Store
	switch strings.ToLower(strings.TrimSpace(cfg.Notify.DedupeBackend)) {
	case "", "memory":
		dd = dedupe.NewMemoryStore(nil)
	case "redis":
		if rds == nil {
			return nil, nil, fmt.Errorf("dedupe backend redis requires a redis client")
		}
		dd = dedupe.NewRedisStore(rds, "", nil)
	default:
		return nil, nil, fmt.Errorf("unknown dedupe backend %q", cfg.Notify.DedupeBackend)
	}

	creds := Credentials{
		PhoneNumberID:     cfg.WhatsApp.PhoneNumberID,
		AccessToken:       cfg.WhatsApp.AccessToken,
		BusinessAccountID: cfg.WhatsApp.BusinessAccountID,
	}

	var api Sender
	if SelectChannel(cfg.WhatsApp.Enabled, creds) == ChannelBusinessAPI {
		wa, err := NewWhatsAppSender(WhatsAppOpts{
			BaseURL:       cfg.WhatsApp.BaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			Credentials:   creds,
			TimeoutMs:     cfg.WhatsApp.TimeoutMs,
			FailThreshold: cfg.WhatsApp.Breaker.FailThreshold,
			OpenForMs:     cfg.WhatsApp.Breaker.OpenForMs,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("whatsapp sender: %w", err)
		}
		api = wa
	}

	r := NewRouter(RouterConfig{
		Settings:        store,
		Dedupe:          dd,
		Simulated:       NewSimulatedSender(cfg.Notify.SimulatedDelay, log),
		BusinessAPI:     api,
		APIEnabled:      cfg.WhatsApp.Enabled,
		Credentials:     creds,
		TrackingBaseURL: cfg.Notify.TrackingBaseURL,
		EnforceDedupe:   cfg.Notify.EnforceDedupe,
		DedupeWindow:    cfg.Notify.DedupeWindow,
		Log:             log,
	})

	log.Info("notification router ready",
		zap.String("channel", r.Channel().String()),
		zap.String("dedupe_backend", cfg.Notify.DedupeBackend),
		zap.Bool("enforce_dedupe", cfg.Notify.EnforceDedupe),
		zap.String("settings_path", cfg.Notify.SettingsPath),
	)
	return r, store, nil
}
