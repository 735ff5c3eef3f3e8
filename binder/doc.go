// Package binder populates request structs from HTTP requests for use with
// handler.Wrap.
//
// BindJSON decodes a JSON body and reports ErrBinderNotApplicable when the
// body is empty, which lets endpoints treat the body as optional. BindQuery
// fills fields tagged with `query:"name"` from the URL query string.
package binder
