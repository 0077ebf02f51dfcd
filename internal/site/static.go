package site

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chunkytofustudios/analytics-gate/internal/consent"
	"github.com/chunkytofustudios/analytics-gate/internal/gate"
	"github.com/chunkytofustudios/analytics-gate/internal/outbound"
	"github.com/chunkytofustudios/analytics-gate/pkg/fileutil"
)

const indexFile = "index.html"

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	filePath, status, ok := s.resolve(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if fileutil.GetFileExtension(filePath) == "html" {
		s.serveHTML(w, r, filePath, status)
		return
	}
	http.ServeFile(w, r, filePath)
}

/*
resolve maps a request path onto the site build.

Lookup order:
1. the file itself
2. a directory's index.html
3. <path>.html for extensionless paths
4. the root index.html for known routes
5. the root index.html with 404 for other extensionless paths
*/
func (s *Server) resolve(urlPath string) (string, int, bool) {
	clean := path.Clean("/" + urlPath)
	full := filepath.Join(s.siteDir, filepath.FromSlash(clean))

	if info, err := os.Stat(full); err == nil {
		if !info.IsDir() {
			return full, http.StatusOK, true
		}
		if isFile(filepath.Join(full, indexFile)) {
			return filepath.Join(full, indexFile), http.StatusOK, true
		}
	}

	extensionless := fileutil.GetFileExtension(clean) == ""
	if extensionless && isFile(full+".html") {
		return full + ".html", http.StatusOK, true
	}

	root := filepath.Join(s.siteDir, indexFile)
	if !isFile(root) {
		return "", http.StatusNotFound, false
	}
	if s.routes.Known(clean) {
		return root, http.StatusOK, true
	}
	if extensionless {
		return root, http.StatusNotFound, true
	}
	return "", http.StatusNotFound, false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request, filePath string, status int) {
	body, err := os.ReadFile(filePath)
	if err != nil {
		s.recordError("Server.serveHTML", r, &SiteError{
			Message: err.Error(),
			Cause:   ErrCauseReadFailure,
		})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	title := ""
	doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if parseErr != nil {
		s.recordError("Server.serveHTML", r, &SiteError{
			Message: fmt.Sprintf("%s: %v", filePath, parseErr),
			Cause:   ErrCauseParseFailure,
		})
	} else {
		title = strings.TrimSpace(doc.Find("title").First().Text())
		if s.trackOutbound && s.rewriter.Rewrite(doc) > 0 {
			rendered, renderErr := outbound.Render(doc)
			if renderErr != nil {
				s.recordError("Server.serveHTML", r, renderErr)
			} else {
				body = rendered
			}
		}
	}

	if r.Method == http.MethodGet && status == http.StatusOK {
		s.trackPageView(w, r, title)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

// trackPageView tracks the request as a page view for the visiting client.
// An empty title falls back to the route table through the gate.
func (s *Server) trackPageView(w http.ResponseWriter, r *http.Request, title string) {
	choices, _ := consent.FromRequest(r)
	clientID := consent.ClientID(w, r, choices, s.now(), s.secureCookies)

	ev := s.gate.PageViewEvent(r.URL.Path, title)
	ev.Attributes[gate.ParamClientID] = clientID
	s.gate.Track(ev)
}
