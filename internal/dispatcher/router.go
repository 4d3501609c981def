package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/dedupe"
	"github.com/jmehdipour/washcorner-notify/internal/metrics"
	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/settings"
	"github.com/jmehdipour/washcorner-notify/internal/template"
	"github.com/jmehdipour/washcorner-notify/internal/util"
	"go.uber.org/zap"
)

// Result messages shown to operators.
const (
	MsgSent             = "Notifikasi WhatsApp berhasil dikirim"
	MsgDisabled         = "Notifikasi WhatsApp dinonaktifkan"
	MsgCustomerNotFound = "Data pelanggan tidak ditemukan"
	MsgNoPhone          = "Tidak ada nomor telepon pelanggan"
	MsgDuplicate        = "Notifikasi dengan status yang sama baru saja dikirim"
)

const (
	fallbackCustomerName = "Pelanggan"
	fallbackLicensePlate = "Unknown"
	noChannel            = "none"
)

type RouterConfig struct {
	Settings    settings.Store
	Dedupe      dedupe.Store
	Simulated   Sender
	BusinessAPI Sender // nil when the deployment has no WhatsApp client

	APIEnabled  bool
	Credentials Credentials

	TrackingBaseURL string
	EnforceDedupe   bool
	DedupeWindow    time.Duration

	Now             func() time.Time
	NewTrackingCode func() string
	Log             *zap.Logger
}

// Router is the single entry point for transaction status notifications.
// It never returns an error: every outcome is a model.Result.
type Router struct {
	settings    settings.Store
	dedupe      dedupe.Store
	simulated   Sender
	businessAPI Sender

	apiEnabled bool
	creds      Credentials

	trackingBaseURL string
	enforceDedupe   bool
	window          time.Duration

	now     func() time.Time
	newCode func() string
	log     *zap.Logger
}

func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		settings:        cfg.Settings,
		dedupe:          cfg.Dedupe,
		simulated:       cfg.Simulated,
		businessAPI:     cfg.BusinessAPI,
		apiEnabled:      cfg.APIEnabled,
		creds:           cfg.Credentials,
		trackingBaseURL: cfg.TrackingBaseURL,
		enforceDedupe:   cfg.EnforceDedupe,
		window:          cfg.DedupeWindow,
		now:             cfg.Now,
		newCode:         cfg.NewTrackingCode,
		log:             cfg.Log,
	}
	if r.dedupe == nil {
		r.dedupe = dedupe.NewMemoryStore(cfg.Now)
	}
	if r.window <= 0 {
		r.window = dedupe.DefaultWindow
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newCode == nil {
		r.newCode = util.GenerateTrackingCode
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.simulated == nil {
		r.simulated = NewSimulatedSender(0, r.log)
	}
	return r
}

// SendStatusNotification tells the customer about a transaction status.
// A non-empty status overrides tx.Status. The dedupe memory is updated after
// every successful send.
func (r *Router) SendStatusNotification(
	ctx context.Context,
	tx model.Transaction,
	customer *model.Customer,
	services []model.Service,
	status model.StatusKind,
) (res model.Result) {
	log := r.log.With(zap.Int64("transaction_id", tx.ID))

	defer func() {
		if p := recover(); p != nil {
			log.Error("notification dispatch panicked", zap.Any("panic", p), zap.Stack("stack"))
			res = failure(model.ReasonInternalError, fmt.Sprintf("Error: %v", p))
		}
		metrics.NotificationsTotal.WithLabelValues(string(res.Reason), channelLabel(res.Channel)).Inc()
	}()

	st, err := r.settings.Load(ctx)
	if err != nil {
		log.Error("load notification settings", zap.Error(err))
		return failure(model.ReasonSettingsError, "Error: "+err.Error())
	}
	if !st.EnableWhatsapp {
		log.Debug("whatsapp notifications disabled")
		return failure(model.ReasonDisabled, MsgDisabled)
	}
	if customer == nil {
		log.Warn("notification skipped: customer not found")
		return failure(model.ReasonCustomerNotFound, MsgCustomerNotFound)
	}
	phone := strings.TrimSpace(customer.Phone)
	if phone == "" {
		log.Warn("notification skipped: customer has no phone", zap.Int64("customer_id", customer.ID))
		return failure(model.ReasonNoPhone, MsgNoPhone)
	}

	effective := tx.Status
	if status != "" {
		effective = status
	}

	code := strings.TrimSpace(tx.TrackingCode)
	if code == "" {
		code = r.newCode()
		log.Debug("generated tracking code", zap.String("tracking_code", code))
	}

	names := serviceNames(services)
	if len(names) == 0 {
		log.Info("transaction has no named services")
	}

	if r.enforceDedupe {
		recent, err := r.dedupe.HasRecent(ctx, phone, effective, r.window)
		if err != nil {
			log.Warn("dedupe lookup failed, sending anyway", zap.Error(err))
		} else if recent {
			log.Info("notification skipped: duplicate within window",
				zap.String("status", effective.String()),
				zap.Duration("window", r.window),
			)
			res = failure(model.ReasonDuplicate, MsgDuplicate)
			res.TrackingCode = code
			return res
		}
	}

	tpl, fellBack := template.Resolve(st.Templates, effective.String())
	if fellBack {
		log.Warn("unknown status, using pending template", zap.String("status", effective.String()))
	}
	text := template.ApplyVariables(tpl, r.variables(customer, names, code))

	sender := r.pick()
	if err := r.send(ctx, sender, phone, text); err != nil {
		log.Error("send whatsapp notification",
			zap.String("channel", sender.Kind().String()),
			zap.String("status", effective.String()),
			zap.Error(err),
		)
		res = failure(model.ReasonChannelError, "Error: "+err.Error())
		res.Channel = sender.Kind().String()
		res.TrackingCode = code
		return res
	}

	rec := model.LastNotification{Status: effective, Timestamp: r.now(), TrackingCode: code}
	if err := r.dedupe.Record(ctx, phone, rec); err != nil {
		log.Warn("record last notification", zap.Error(err))
	}

	log.Info("status notification sent",
		zap.String("channel", sender.Kind().String()),
		zap.String("status", effective.String()),
		zap.String("tracking_code", code),
	)

	return model.Result{
		Success:      true,
		Message:      MsgSent,
		Reason:       model.ReasonSent,
		Channel:      sender.Kind().String(),
		TrackingCode: code,
	}
}

// SendTestNotification renders the pending template with sample data and
// sends it to phone, or to the settings' default phone when phone is empty.
// It does not touch the dedupe memory.
func (r *Router) SendTestNotification(ctx context.Context, phone string) (res model.Result) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("test notification panicked", zap.Any("panic", p))
			res = failure(model.ReasonInternalError, fmt.Sprintf("Error: %v", p))
		}
	}()

	st, err := r.settings.Load(ctx)
	if err != nil {
		return failure(model.ReasonSettingsError, "Error: "+err.Error())
	}
	if !st.EnableWhatsapp {
		return failure(model.ReasonDisabled, MsgDisabled)
	}

	phone = strings.TrimSpace(phone)
	if phone == "" {
		phone = strings.TrimSpace(st.DefaultPhone)
	}
	if phone == "" {
		return failure(model.ReasonNoPhone, MsgNoPhone)
	}

	code := r.newCode()
	sample := &model.Customer{Name: "Pelanggan Test", LicensePlate: "B 1234 WC"}
	text := template.ApplyVariables(st.Templates.Pending, r.variables(sample, []string{"Cuci Mobil"}, code))

	sender := r.pick()
	if err := r.send(ctx, sender, phone, text); err != nil {
		res = failure(model.ReasonChannelError, "Error: "+err.Error())
		res.Channel = sender.Kind().String()
		return res
	}

	return model.Result{
		Success:      true,
		Message:      MsgSent,
		Reason:       model.ReasonSent,
		Channel:      sender.Kind().String(),
		TrackingCode: code,
	}
}

// HasRecentNotification reports whether status was sent to phone within window.
func (r *Router) HasRecentNotification(ctx context.Context, phone string, status model.StatusKind, window time.Duration) (bool, error) {
	if window <= 0 {
		window = r.window
	}
	return r.dedupe.HasRecent(ctx, phone, status, window)
}

// LastNotification returns the last record for phone, or nil.
func (r *Router) LastNotification(ctx context.Context, phone string) (*model.LastNotification, error) {
	return r.dedupe.Last(ctx, phone)
}

// Channel reports which channel the next send would use.
func (r *Router) Channel() ChannelKind {
	return r.pick().Kind()
}

// Health describes the channel the next send would use.
type Health struct {
	Channel     string `json:"channel"`
	BreakerOpen bool   `json:"breaker_open"`
}

// Health reports the active channel and whether its circuit breaker is open.
func (r *Router) Health() Health {
	s := r.pick()
	h := Health{Channel: s.Kind().String()}
	if br, ok := s.(interface{ BreakerOpen() bool }); ok {
		h.BreakerOpen = br.BreakerOpen()
	}
	return h
}

func (r *Router) pick() Sender {
	if SelectChannel(r.apiEnabled, r.creds) == ChannelBusinessAPI && r.businessAPI != nil {
		return r.businessAPI
	}
	return r.simulated
}

func (r *Router) send(ctx context.Context, s Sender, phone, text string) error {
	start := time.Now()
	err := s.Send(ctx, phone, text)
	metrics.SendDuration.WithLabelValues(s.Kind().String()).Observe(time.Since(start).Seconds())
	return err
}

func (r *Router) variables(c *model.Customer, names []string, code string) map[string]string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = fallbackCustomerName
	}
	plate := strings.TrimSpace(c.LicensePlate)
	if plate == "" {
		plate = fallbackLicensePlate
	}

	return map[string]string{
		template.VarCustomerName: name,
		template.VarLicensePlate: plate,
		template.VarServicesList: template.FormatServicesList(names),
		template.VarTrackingCode: code,
		template.VarTrackingURL:  template.TrackingURL(r.trackingBaseURL, code),
	}
}

func serviceNames(services []model.Service) []string {
	names := make([]string, 0, len(services))
	for _, s := range services {
		if n := strings.TrimSpace(s.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func failure(reason model.Reason, msg string) model.Result {
	return model.Result{Success: false, Message: msg, Reason: reason}
}

func channelLabel(ch string) string {
	if ch == "" {
		return noChannel
	}
	return ch
}
