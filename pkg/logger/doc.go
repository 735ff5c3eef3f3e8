// Package logger builds *slog.Logger instances from functional options and
// provides attribute helpers so field names stay consistent across packages.
//
//	log := logger.New(
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithFormat(logger.FormatJSON),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "seed stored", logger.Path(path))
//
// Context extractors run for every record logged with a *Context method and
// append whatever attribute they find, typically the request id.
//
// Secrets never go through the logger: helpers exist for paths, commit ids and
// key fingerprints, not for seeds, keys or codes.
package logger
