package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mitchellh/mapstructure"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/koustreak/dsneditor/internal/validate"
)

// Mask replaces secret values in responses.
const Mask = "********"

// DSNResponse is a catalogue entry as served by the API.
type DSNResponse struct {
	ID               string           `json:"id,omitempty"`
	Name             string           `json:"name"`
	Driver           string           `json:"driver"`
	ConnectionString string           `json:"connection_string"`
	Profile          *profile.Profile `json:"profile"`
	UpdatedAt        string           `json:"updated_at,omitempty"`
}

// PutRequest carries a full connection string. Its dsn keyword is forced to
// the name in the URL.
type PutRequest struct {
	ConnectionString string `json:"connection_string"`
}

// TestRequest names a stored DSN or carries a connection string to probe.
type TestRequest struct {
	Name             string `json:"name,omitempty"`
	ConnectionString string `json:"connection_string,omitempty"`
}

type TestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Cluster string `json:"cluster,omitempty"`
	Version string `json:"version,omitempty"`
}

func (s *Server) listDSNs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.jsonErr(w, err, "list dsns")
		return
	}

	resp := make([]*DSNResponse, 0, len(entries))
	for i := range entries {
		d, err := toResponse(&entries[i])
		if err != nil {
			s.jsonErr(w, err, "list dsns")
			return
		}
		resp = append(resp, d)
	}
	jsonOK(w, resp)
}

func (s *Server) getDSN(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.jsonErr(w, err, "get dsn")
		return
	}
	d, err := toResponse(e)
	if err != nil {
		s.jsonErr(w, err, "get dsn")
		return
	}
	jsonOK(w, d)
}

func (s *Server) putDSN(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	overwrite := r.URL.Query().Get("overwrite") == "true"

	var req PutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	attrs, err := connstr.Parse(req.ConnectionString)
	if err != nil {
		s.jsonErr(w, err, "put dsn")
		return
	}
	attrs.Set(profile.KeyDSN, name)

	p := profile.FromAttributes(attrs)
	if problems := validate.Profile(p); len(problems) > 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, errs.Message(problems[0]), validate.Messages(problems)...)
		return
	}

	existed, err := s.store.Exists(r.Context(), name)
	if err != nil {
		s.jsonErr(w, err, "put dsn")
		return
	}
	e, err := s.store.Put(r.Context(), attrs.String(), overwrite)
	if err != nil {
		s.jsonErr(w, err, "put dsn")
		return
	}
	s.log.With().Str("dsn", e.Name).Bool("overwrite", existed).Logger().Info("dsn stored")
	s.metrics.write("put")

	d, err := toResponse(e)
	if err != nil {
		s.jsonErr(w, err, "put dsn")
		return
	}
	if existed {
		jsonOK(w, d)
		return
	}
	jsonCreated(w, d)
}

// patchDSN applies a partial profile, keyed by the profile's JSON field
// names, to a stored DSN.
func (s *Server) patchDSN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := s.store.Get(ctx, chi.URLParam(r, "name"))
	if err != nil {
		s.jsonErr(w, err, "patch dsn")
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if _, ok := patch["name"]; ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "a DSN cannot be renamed")
		return
	}
	delete(patch, "extra")
	for k, v := range patch {
		if v == Mask {
			delete(patch, k) // a masked secret sent back unchanged
		}
	}

	p, err := profile.Decode(e.ConnectionString)
	if err != nil {
		s.jsonErr(w, err, "patch dsn")
		return
	}
	if err := applyPatch(p, patch); err != nil {
		s.jsonErr(w, err, "patch dsn")
		return
	}
	if problems := validate.Profile(p); len(problems) > 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, errs.Message(problems[0]), validate.Messages(problems)...)
		return
	}

	updated, err := s.store.Put(ctx, profile.Encode(p), true)
	if err != nil {
		s.jsonErr(w, err, "patch dsn")
		return
	}
	s.metrics.write("patch")
	d, err := toResponse(updated)
	if err != nil {
		s.jsonErr(w, err, "patch dsn")
		return
	}
	jsonOK(w, d)
}

func (s *Server) deleteDSN(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.jsonErr(w, err, "delete dsn")
		return
	}
	s.log.With().Str("dsn", name).Logger().Info("dsn deleted")
	s.metrics.write("delete")
	jsonNoContent(w)
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	connStr := req.ConnectionString
	if req.Name != "" {
		e, err := s.store.Get(r.Context(), req.Name)
		if err != nil {
			s.jsonErr(w, err, "test connection")
			return
		}
		connStr = e.ConnectionString
	}
	if connStr == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "name or connection_string is required")
		return
	}

	info, err := s.tester.ProbeString(r.Context(), connStr)
	s.metrics.probe(err == nil)
	if err != nil {
		if errs.IsParseFailed(err) {
			s.jsonErr(w, err, "test connection")
			return
		}
		jsonOK(w, TestResponse{Success: false, Message: errs.Message(err)})
		return
	}
	jsonOK(w, TestResponse{
		Success: true,
		Message: "Connection successful: " + info.String(),
		Cluster: info.ClusterName,
		Version: info.Version.Number,
	})
}

// --- helpers ---

func applyPatch(p *profile.Profile, patch map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           p,
	})
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to build patch decoder", err)
	}
	if err := dec.Decode(patch); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid patch: "+err.Error(), err)
	}
	p.ApplyCloudID()
	return nil
}

func toResponse(e *dsnstore.Entry) (*DSNResponse, error) {
	p, err := profile.Decode(e.ConnectionString)
	if err != nil {
		return nil, err
	}
	masked := Redact(p)

	d := &DSNResponse{
		ID:               e.ID,
		Name:             e.Name,
		Driver:           e.Driver,
		ConnectionString: profile.Encode(masked),
		Profile:          masked,
	}
	if !e.UpdatedAt.IsZero() {
		d.UpdatedAt = e.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return d, nil
}

// Redact returns a copy of p with every non-empty secret replaced by Mask.
func Redact(p *profile.Profile) *profile.Profile {
	out := p.Clone()
	for _, f := range profile.Schema {
		if f.Control == profile.ControlSecret && f.Get(out) != "" {
			_ = f.Set(out, Mask)
		}
	}
	return out
}
