package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/app"
	"github.com/nhle/smsexpert/internal/credential"
	"github.com/nhle/smsexpert/internal/logging"
	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/notifyapi"
	"github.com/nhle/smsexpert/internal/transport"
	"github.com/nhle/smsexpert/internal/ui/login"
)

const (
	verifyEndpoint  = "notifications/unread-count"
	shutdownTimeout = 10 * time.Second
)

func runInbox(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("inbox", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	toaster := app.NewToaster()
	d, err := wire(configPath, wireOptions{quietLog: true, withCache: true, reporter: toaster})
	if err != nil {
		return err
	}
	defer d.close()

	if _, err := d.creds.RequireToken(); err != nil {
		return err
	}

	store := d.newStore()
	if err := store.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Stop(); err != nil {
			d.log.Warn("stopping inbox", zap.Error(err))
		}
	}()

	p := tea.NewProgram(app.New(store, d.api, toaster), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running inbox: %w", err)
	}
	return nil
}

func runLogin(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	baseURL := fs.String("base-url", "", "API base URL")
	token := fs.String("token", "", "API token (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	creds := login.Credentials{BaseURL: cfg.API.BaseURL, Token: *token}
	if *baseURL != "" {
		creds.BaseURL = *baseURL
	}
	if creds.BaseURL == "" || creds.Token == "" {
		creds, err = login.Run(creds)
		if err != nil {
			return err
		}
	} else {
		creds = login.Normalize(creds)
	}

	logger, err := logging.New(logging.OptionsFromConfig(cfg.Log))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Verify before storing anything.
	client := transport.New(transport.Config{
		BaseURL:   creds.BaseURL,
		Timeout:   cfg.Timeout(),
		UserAgent: "smsexpert-cli/" + Version,
	}, staticToken(creds.Token), logger, transport.WithReporter(stderrReporter{}))
	defer client.Close()

	env := client.Request(ctx, verifyEndpoint, transport.DefaultOptions())
	if !env.Status {
		return fmt.Errorf("verifying credentials: %s", env.Message)
	}

	ring, err := credential.Open()
	if err != nil {
		return err
	}
	if err := ring.SaveToken(creds.Token); err != nil {
		return err
	}

	cfg.API.BaseURL = creds.BaseURL
	if err := model.SaveConfig(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("Logged in to %s\n", creds.BaseURL)
	return nil
}

func runLogout() error {
	ring, err := credential.Open()
	if err != nil {
		return err
	}
	if err := ring.ClearToken(); err != nil {
		return err
	}
	fmt.Println("Token removed from keyring")
	return nil
}

func runStatus(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := wire(configPath, wireOptions{})
	if err != nil {
		return err
	}
	defer d.close()

	maintenance := d.api.CheckMaintenanceMode(ctx)
	if maintenance.Active {
		fmt.Println("Maintenance:", maintenanceMessage(maintenance))
	}

	counts := d.api.GetUnreadCount(ctx)
	if !counts.Success {
		return fmt.Errorf("fetching unread count: %s", counts.Message)
	}
	c := counts.Data
	fmt.Printf("Unread:        %s\n", humanize.Comma(int64(c.UnreadCount)))
	fmt.Printf("  admin:       %s\n", humanize.Comma(int64(c.AdminUnread)))
	fmt.Printf("  push:        %s\n", humanize.Comma(int64(c.PushUnread)))
	fmt.Printf("Acknowledge:   %s\n", humanize.Comma(int64(c.AcknowledgementRequired)))
	return nil
}

func runWatch(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	listen := fs.String("metrics-listen", "", "serve prometheus metrics on this address (overrides metrics.listen)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := wire(configPath, wireOptions{withCache: true})
	if err != nil {
		return err
	}
	defer d.close()

	addr := d.cfg.Metrics.Listen
	if *listen != "" {
		addr = *listen
	}
	if addr != "" {
		srv := serveMetrics(addr, d)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				d.log.Error("metrics shutdown", zap.Error(err))
			}
		}()
	}

	store := d.newStore()
	states, unsubscribe := store.Subscribe()
	defer unsubscribe()

	if err := store.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Stop(); err != nil {
			d.log.Warn("stopping inbox", zap.Error(err))
		}
	}()

	d.log.Info("watching notifications", zap.Duration("interval", d.cfg.PollInterval()))

	var last *model.UnreadCounts
	for {
		select {
		case <-ctx.Done():
			for _, js := range store.JobStatuses() {
				d.log.Info("job summary",
					zap.String("job", js.Name),
					zap.Stringer("state", js.State),
					zap.Time("last_run", js.LastRun),
					zap.NamedError("error", js.Error),
				)
			}
			d.log.Info("watch stopped")
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			c := st.Counts()
			if last != nil && *last == c {
				continue
			}
			last = &c
			d.log.Info("unread counters",
				zap.Int("unread", c.UnreadCount),
				zap.Int("admin", c.AdminUnread),
				zap.Int("push", c.PushUnread),
				zap.Int("acknowledgement_required", c.AcknowledgementRequired),
			)
		}
	}
}

func serveMetrics(addr string, d *deps) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		d.log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

func maintenanceMessage(s model.MaintenanceStatus) string {
	if s.Message != "" {
		return s.Message
	}
	return "the platform is in maintenance mode"
}

// runPush registers or removes a device push token.
func runPush(ctx context.Context, configPath string, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: smsexpert push register|unregister --fcm-token TOKEN")
	}
	action, args := args[0], args[1:]

	fs := flag.NewFlagSet("push "+action, flag.ContinueOnError)
	fcmToken := fs.String("fcm-token", "", "device push token")
	deviceType := fs.String("device-type", "cli", "device type reported to the server")
	deviceName := fs.String("device-name", "", "device name (defaults to the hostname)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fcmToken == "" {
		return errors.New("--fcm-token is required")
	}

	d, err := wire(configPath, wireOptions{})
	if err != nil {
		return err
	}
	defer d.close()

	switch action {
	case "register":
		name := *deviceName
		if name == "" {
			name, _ = os.Hostname()
		}
		res := d.api.RegisterFcmToken(ctx, notifyapi.PushRegistration{
			Token:      *fcmToken,
			DeviceType: *deviceType,
			DeviceName: name,
		})
		if !res.Success {
			return fmt.Errorf("registering push token: %s", res.Message)
		}
		fmt.Println("Push token registered")
	case "unregister":
		res := d.api.UnregisterFcmToken(ctx, *fcmToken)
		if !res.Success {
			return fmt.Errorf("unregistering push token: %s", res.Message)
		}
		fmt.Println("Push token removed")
	default:
		return fmt.Errorf("unknown push action %q", action)
	}
	return nil
}
