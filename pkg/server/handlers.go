package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/stubdex/pkg/buildinfo"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 500
)

type healthResponse struct {
	Status  string         `json:"status"`
	Name    string         `json:"name,omitempty"`
	Modules int            `json:"modules"`
	Build   buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Name:    s.cfg.Name,
		Modules: s.Database().Len(),
		Build:   buildinfo.Get(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Database().Stats())
}

// ModuleSummary is a module entry in the module list.
type ModuleSummary struct {
	Name       string    `json:"name"`
	Kind       stub.Kind `json:"kind"`
	Superclass string    `json:"superclass,omitempty"`
	Methods    int       `json:"methods"`
	Constants  int       `json:"constants"`
	Files      int       `json:"files"`
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	var filter *stub.Kind
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := stub.ParseKind(k)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid kind %q", k))
			return
		}
		filter = &kind
	}

	out := []ModuleSummary{}
	for _, m := range s.Database().Modules() {
		if filter != nil && m.Kind != *filter {
			continue
		}
		out = append(out, ModuleSummary{
			Name:       m.Name,
			Kind:       m.Kind,
			Superclass: m.Superclass,
			Methods:    len(m.Methods),
			Constants:  len(m.Constants),
			Files:      len(m.Locations),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) moduleParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if err := errors.ValidateModuleName(name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name, err := s.moduleParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, ok := s.Database().Module(name)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeModuleNotFound, "module %s not found", name))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// AncestorsResponse describes a module's ancestry.
type AncestorsResponse struct {
	Module            string       `json:"module"`
	Ancestors         []string     `json:"ancestors"`
	Superclasses      []string     `json:"superclasses"`
	SingletonDispatch []index.Step `json:"singleton_dispatch"`
}

func (s *Server) handleAncestors(w http.ResponseWriter, r *http.Request) {
	name, err := s.moduleParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	db := s.Database()
	ancestors, err := db.Ancestors(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	supers, err := db.Superclasses(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	chain, err := db.DispatchChain(name, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AncestorsResponse{
		Module:            name,
		Ancestors:         ancestors,
		Superclasses:      supers,
		SingletonDispatch: chain,
	})
}

// LookupResponse is a resolved method.
type LookupResponse struct {
	Module    string       `json:"module"`
	Owner     string       `json:"owner"`
	Key       string       `json:"key"`
	Signature string       `json:"signature"`
	Inherited bool         `json:"inherited"`
	Method    *stub.Method `json:"method"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	module, method := q.Get("module"), q.Get("method")
	if err := errors.ValidateModuleName(module); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := errors.ValidateMethodName(method); err != nil {
		s.writeError(w, r, err)
		return
	}
	singleton, err := boolParam(q.Get("singleton"), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	inherit, err := boolParam(q.Get("inherit"), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.Database().Lookup(module, method, index.LookupOptions{Singleton: singleton, Inherited: inherit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LookupResponse{
		Module:    res.Module,
		Owner:     res.Owner.Name,
		Key:       res.Key(),
		Signature: res.Method.Signature(),
		Inherited: res.Inherited(),
		Method:    res.Method,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if err := errors.ValidateSearchQuery(query); err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := defaultSearchLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSearchLimit {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be between 1 and %d", maxSearchLimit))
			return
		}
		limit = n
	}
	matches := s.Database().Search(query, limit)
	if matches == nil {
		matches = []index.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func boolParam(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid boolean %q", v)
	}
	return b, nil
}
