package api

import (
	"bytes"
	"net/http"

	"github.com/roach88/shoplist/internal/shop"
)

type homeView struct {
	List *shop.CurrentList
}

type historyView struct {
	Lists []shop.List
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	current, err := s.store.CurrentList(r.Context())
	if err != nil {
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	s.render(w, "home.html", homeView{List: current})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.Lists(r.Context())
	if err != nil {
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	s.render(w, "lists.html", historyView{Lists: lists})
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.views.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render view", "view", name, "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
