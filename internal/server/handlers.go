package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nao1215/immoscan/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCrawls(w http.ResponseWriter, r *http.Request) {
	crawls, err := s.store.ListCrawls(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crawls)
}

func (s *Server) handleGetCrawl(w http.ResponseWriter, r *http.Request) {
	crawl, ok := s.lookupCrawl(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, crawl)
}

func (s *Server) handleCrawlSummary(w http.ResponseWriter, r *http.Request) {
	crawl, ok := s.lookupCrawl(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, crawl.Summary())
}

func (s *Server) handleListingHistory(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	history, err := s.store.ListingHistory(r.Context(), url)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	baseURL := r.URL.Query().Get("base_url")
	if baseURL == "" {
		writeError(w, http.StatusBadRequest, "missing base_url query parameter")
		return
	}
	crawls, err := s.store.GetLatestCrawls(r.Context(), baseURL, 2)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(crawls) < 2 {
		writeError(w, http.StatusNotFound, "at least 2 crawls of this search are required")
		return
	}
	writeJSON(w, http.StatusOK, model.CompareCrawls(crawls[1], crawls[0]))
}

// lookupCrawl loads the crawl named by the {id} route variable, writing a
// 404 or 500 response when it cannot.
func (s *Server) lookupCrawl(w http.ResponseWriter, r *http.Request) (*model.CrawlResult, bool) {
	id := mux.Vars(r)["id"]
	crawl, err := s.store.GetCrawl(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return nil, false
	}
	if crawl == nil {
		writeError(w, http.StatusNotFound, "crawl not found: "+id)
		return nil, false
	}
	return crawl, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
