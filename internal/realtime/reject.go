package realtime

import (
	"fmt"
	"log"
	"net/http"
)

// RejectStatus writes a bare HTTP status line to the raw connection and closes it. No headers, no body.
// Falls back to a plain status response when the writer cannot be hijacked.
func RejectStatus(w http.ResponseWriter, status int) {
	conn, buf, err := http.NewResponseController(w).Hijack()
	if err != nil {
		w.Header().Set("Connection", "close")
		w.WriteHeader(status)
		return
	}
	defer conn.Close()
	if _, err := fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\n\r\n", status, http.StatusText(status)); err != nil {
		return
	}
	if err := buf.Flush(); err != nil {
		log.Printf("realtime: reject flush: %v", err)
	}
}

// Destroy closes the raw connection without writing anything.
func Destroy(w http.ResponseWriter) {
	conn, _, err := http.NewResponseController(w).Hijack()
	if err != nil {
		w.Header().Set("Connection", "close")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_ = conn.Close()
}
