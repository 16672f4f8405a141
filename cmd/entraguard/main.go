// Command entraguard runs the token-validation service. Every request to
// /api/claims must present a bearer token signed by the configured tenant;
// the optional browser routes drive an interactive login against the same
// tenant.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/entraguard/entraguard/authflow"
	"github.com/entraguard/entraguard/bearer"
	"github.com/entraguard/entraguard/config"
	"github.com/entraguard/entraguard/httpauth"
	"github.com/entraguard/entraguard/keyset"
	"github.com/entraguard/entraguard/sdk/id"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "entraguard",
		Level: cfg.HCLogLevel(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys, err := keyset.New(
		keyset.WithTTL(cfg.JWKSTTL),
		keyset.WithLogger(logger.Named("keyset")),
	)
	if err != nil {
		return err
	}

	verifierOpts := []bearer.Option{bearer.WithLogger(logger.Named("bearer"))}
	if len(cfg.AcceptedIssuers) > 0 {
		verifierOpts = append(verifierOpts, bearer.WithAcceptedIssuers(cfg.AcceptedIssuers))
	}
	verifier, err := bearer.NewVerifier(keys, cfg.TenantID, cfg.AppID, verifierOpts...)
	if err != nil {
		return err
	}
	allowList := cfg.AllowList()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", infoHandler(cfg))
	r.Get("/health", healthHandler)
	r.With(httpauth.RequireToken(verifier, allowList,
		httpauth.WithLogger(logger.Named("httpauth")),
	)).Get("/api/claims", httpauth.ClaimsHandler(allowList))

	if cfg.FlowEnabled() {
		flow, err := authflow.NewFlow(ctx,
			cfg.TenantID, cfg.ClientID, string(cfg.ClientSecret), cfg.RedirectURL,
			authflow.WithLogger(logger.Named("authflow")),
		)
		if err != nil {
			return err
		}
		mountLoginRoutes(r, flow, logger.Named("login"))
		logger.Info("browser login routes enabled", "redirect_url", cfg.RedirectURL)
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "tenant_id", cfg.TenantID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func infoHandler(cfg *config.Config) http.HandlerFunc {
	endpoints := map[string]string{
		"health": "/health",
		"claims": "/api/claims",
	}
	if cfg.FlowEnabled() {
		endpoints["login"] = "/login"
		endpoints["logout"] = "/logout"
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"service":   "entraguard",
			"endpoints": endpoints,
		})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const sessionCookie = "entraguard_session"

func mountLoginRoutes(r chi.Router, flow *authflow.Flow, logger hclog.Logger) {
	tokens := authflow.NewTokenCache()

	r.Get("/login", func(w http.ResponseWriter, req *http.Request) {
		authURL, _, err := flow.AuthURL()
		if err != nil {
			logger.Error("failed to create authentication request", "error", err)
			http.Error(w, "login unavailable", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	})

	r.Get("/auth/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		sess, err := flow.Exchange(req.Context(), q.Get("state"), q.Get("code"))
		if err != nil {
			logger.Warn("callback rejected", "error", err)
			http.Error(w, "login failed", http.StatusUnauthorized)
			return
		}

		sessionID, err := id.New("sess")
		if err != nil {
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		if err := tokens.Put(sessionID, flow.TokenSource(req.Context(), sess.Token)); err != nil {
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Login successful",
			"subject": sess.Subject,
		})
	})

	r.Get("/logout", func(w http.ResponseWriter, req *http.Request) {
		if cookie, err := req.Cookie(sessionCookie); err == nil {
			tokens.Delete(cookie.Value)
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
		}
		if logoutURL := flow.LogoutURL(""); logoutURL != "" {
			http.Redirect(w, req, logoutURL, http.StatusFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
