package handler

import (
	"net/http"
	"strconv"
)

type blobResponse struct {
	status      int
	contentType string
	data        []byte
}

func (b blobResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", b.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b.data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(b.status)
	_, err := w.Write(b.data)
	return err
}

// Blob writes raw bytes with the given content type and a 200 status.
// Responses are marked no-store since they usually carry per-request secrets
// such as an enrollment QR code.
func Blob(contentType string, data []byte) Response {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return blobResponse{
		status:      http.StatusOK,
		contentType: contentType,
		data:        data,
	}
}
