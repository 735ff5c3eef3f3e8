// Package handler adapts typed handler functions to net/http.
//
// A HandlerFunc receives a Context and a request value populated by binders
// and returns a Response. Wrap turns it into an http.HandlerFunc:
//
//	type VerifyRequest struct {
//		Code string `json:"code"`
//	}
//
//	func verify(ctx handler.Context, req VerifyRequest) handler.Response {
//		if req.Code == "" {
//			return handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, "Missing code"))
//		}
//		return handler.JSON(map[string]bool{"valid": true})
//	}
//
//	r.Post("/verify", handler.Wrap(verify,
//		handler.WithBinder[handler.Context, VerifyRequest](binder.BindJSON()),
//	))
//
// # Responses
//
// JSON writes a value as the body with no envelope. JSONError writes
// {"detail": "..."} using the status and detail of an HTTPError found in the
// error chain; anything else becomes a 500 with a generic detail. Blob writes
// raw bytes such as a PNG image.
//
// # Errors
//
// Binding and rendering failures go to the ErrorHandler. NewErrorHandler
// builds one that consults ErrorMapper functions, falls back to binder and
// HTTPError rules, logs the failure and renders the JSON error body.
package handler
