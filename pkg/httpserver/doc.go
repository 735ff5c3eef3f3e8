// Package httpserver wraps net/http.Server with context driven lifecycle.
//
// Run binds the listener, serves until the context is cancelled and then
// shuts down gracefully within the configured timeout. Signal handling is left
// to the caller, typically through signal.NotifyContext:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server failed", logger.Error(err))
//	}
//
// Config is parsed from API_HOST, API_PORT and the HTTP_* timeout variables.
package httpserver
