// Package dummy serves a small local site to point browseq at.
package dummy

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ServerConfig struct {
	Port int
}

const pageTemplate = `<!doctype html>
<html>
<head><title>%s</title></head>
<body>
<main id="content">
%s
</main>
</body>
</html>`

func page(title, body string) string {
	return fmt.Sprintf(pageTemplate, title, body)
}

// Handler returns the dummy site's routes.
func Handler() http.Handler {
	mux := http.NewServeMux()

	// 1. Home: sets a session and a visit counter cookie
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if _, err := r.Cookie("session_id"); err != nil {
			http.SetCookie(w, &http.Cookie{
				Name:     "session_id",
				Value:    uuid.NewString(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		http.SetCookie(w, &http.Cookie{
			Name:    "last_visit",
			Value:   fmt.Sprintf("%d", time.Now().Unix()),
			Path:    "/",
			Expires: time.Now().Add(24 * time.Hour),
		})
		writeHTML(w, http.StatusOK, page("Home", "<h1>Hello, browseq!</h1>"))
	})

	// 2. Tall page, gives the dwell scroll somewhere to go
	mux.HandleFunc("/tall", func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		for i := 0; i < 200; i++ {
			fmt.Fprintf(&b, "<p>Paragraph %d</p>\n", i)
		}
		writeHTML(w, http.StatusOK, page("Tall", b.String()))
	})

	// 3. Slow page (1s-2s before the first byte)
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(rand.IntN(1000)+1000) * time.Millisecond)
		writeHTML(w, http.StatusOK, page("Slow", "<p>Slow response</p>"))
	})

	// 4. Hang: never finishes within the navigation timeout
	mux.HandleFunc("/hang", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(30 * time.Second):
		case <-r.Context().Done():
			return
		}
		writeHTML(w, http.StatusOK, page("Hang", "<p>Finally</p>"))
	})

	// 5. Error Endpoint (Random failures)
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.3 {
			writeHTML(w, http.StatusInternalServerError, page("Error", "<p>500 Internal Server Error</p>"))
			return
		}
		writeHTML(w, http.StatusOK, page("OK", "<p>OK</p>"))
	})

	return mux
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// Start serves the dummy site in the background.
func Start(cfg ServerConfig, log zerolog.Logger) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().
		Str("addr", "http://localhost"+addr).
		Strs("endpoints", []string{"/", "/tall", "/slow", "/hang", "/error"}).
		Msg("dummy site running")

	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("dummy site failed")
		}
	}()
	return server
}
