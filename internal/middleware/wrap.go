package middleware

import "net/http"

// beforeWriteRecorder runs a hook once, right before the first header or
// body byte is written.
type beforeWriteRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
	hook   func(http.ResponseWriter)
}

func newBeforeWriteRecorder(w http.ResponseWriter, hook func(http.ResponseWriter)) *beforeWriteRecorder {
	return &beforeWriteRecorder{ResponseWriter: w, status: http.StatusOK, hook: hook}
}

func (rw *beforeWriteRecorder) fire() {
	if rw.wrote {
		return
	}
	rw.wrote = true
	if rw.hook != nil {
		rw.hook(rw.ResponseWriter)
	}
}

func (rw *beforeWriteRecorder) WriteHeader(statusCode int) {
	rw.fire()
	rw.status = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *beforeWriteRecorder) Write(b []byte) (int, error) {
	rw.fire()
	return rw.ResponseWriter.Write(b)
}

func (rw *beforeWriteRecorder) Flush() {
	rw.fire()
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *beforeWriteRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func (rw *beforeWriteRecorder) Status() int { return rw.status }
