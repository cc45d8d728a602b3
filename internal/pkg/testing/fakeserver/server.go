// Package fakeserver provides an HTTP server serving images for tests.
package fakeserver

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"
)

// SlowDelay is the response delay of paths starting with /slow.
const SlowDelay = 500 * time.Millisecond

// ImageServer answers every GET with a small PNG, except for
//
//	/missing*  404
//	/text*     200 with a body that is no image
//	/slow*     the PNG after SlowDelay
type ImageServer struct {
	*httptest.Server

	requests int64
	agent    atomic.Value
}

// New starts an ImageServer. Callers must Close it.
func New() *ImageServer {
	s := &ImageServer{}
	s.agent.Store("")
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Requests returns the number of requests served so far.
func (s *ImageServer) Requests() int {
	return int(atomic.LoadInt64(&s.requests))
}

// LastUserAgent returns the User-Agent header of the latest request.
func (s *ImageServer) LastUserAgent() string {
	return s.agent.Load().(string)
}

func (s *ImageServer) serve(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.requests, 1)
	s.agent.Store(r.UserAgent())

	switch {
	case strings.HasPrefix(r.URL.Path, "/missing"):
		http.NotFound(w, r)
		return
	case strings.HasPrefix(r.URL.Path, "/text"):
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("not an image"))
		return
	case strings.HasPrefix(r.URL.Path, "/slow"):
		select {
		case <-time.After(SlowDelay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(PNG())
}

var pngImage []byte

func init() {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	pngImage = buf.Bytes()
}

// PNG returns the encoded image served by ImageServer.
func PNG() []byte {
	return pngImage
}
