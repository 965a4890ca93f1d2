package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/luminahq/lumina/internal/convert"
	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/project"
	"github.com/luminahq/lumina/internal/share"
)

type importView struct {
	FolderID     string `json:"folder_id"`
	Name         string `json:"name"`
	RequestCount int    `json:"request_count"`
	FolderCount  int    `json:"folder_count"`
	GlobalCount  int    `json:"global_count"`
	EnvCount     int    `json:"environment_count"`
}

type shareBody struct {
	ExpiresHours *float64 `json:"expires_hours"`
	ReadOnly     *bool    `json:"read_only"`
}

func (s *Server) importCollection(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	format, err := convert.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	data, err := readBody(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	res, err := convert.Import(format, data)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	p.Merge(res.Folder, res.Globals, res.Environments...)
	respondJSON(w, http.StatusCreated, importView{
		FolderID:     res.Folder.ID,
		Name:         res.Folder.Name,
		RequestCount: len(res.Folder.AllRequests()),
		FolderCount:  res.Folder.CountFolders(),
		GlobalCount:  len(res.Globals),
		EnvCount:     len(res.Environments),
	})
}

// exportCollection renders the active project in a collection format and
// sends it as a download.
func (s *Server) exportCollection(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	format, err := convert.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	src := p.ExportSource()
	data, err := convert.Export(format, src)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeAttachment(w, format.ContentType(), format.FileName(src.Name), data)
}

func (s *Server) exportProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	data, err := json.MarshalIndent(p.Document(), "", "  ")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeAttachment(w, "application/json", p.Name()+".lumina.json", data)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	filename = strings.NewReplacer(`"`, "", "/", "_", `\`, "_").Replace(filename)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// createShare snapshots the active project. Shares are read-only unless
// read_only is explicitly false; expires_hours <= 0 or absent never expires.
func (s *Server) createShare(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body shareBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	opts := share.CreateOptions{ReadOnly: true}
	if body.ReadOnly != nil {
		opts.ReadOnly = *body.ReadOnly
	}
	if body.ExpiresHours != nil && *body.ExpiresHours > 0 {
		opts.ExpiresIn = time.Duration(*body.ExpiresHours * float64(time.Hour))
	}

	doc := p.Document()
	data, err := json.Marshal(doc)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	sh, err := s.shares.Create(r.Context(), doc.ProjectName, data, opts)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, share.Info{
		ID:          sh.ID,
		ProjectName: sh.ProjectName,
		CreatedAt:   sh.CreatedAt,
		ExpiresAt:   sh.ExpiresAt,
		ReadOnly:    sh.ReadOnly,
	})
}

func (s *Server) lookupShare(w http.ResponseWriter, r *http.Request) (share.Share, bool) {
	sh, ok, err := s.shares.Get(r.Context(), chi.URLParam(r, "shareID"))
	if err != nil {
		s.respondErr(w, r, err)
		return share.Share{}, false
	}
	if !ok {
		respondError(w, http.StatusNotFound, "share not found or expired")
		return share.Share{}, false
	}
	return sh, true
}

func (s *Server) getShare(w http.ResponseWriter, r *http.Request) {
	sh, ok := s.lookupShare(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sh)
}

func (s *Server) deleteShare(w http.ResponseWriter, r *http.Request) {
	ok, err := s.shares.Delete(r.Context(), chi.URLParam(r, "shareID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// importShare copies a shared snapshot into the caller's workspace as a new
// active project.
func (s *Server) importShare(w http.ResponseWriter, r *http.Request) {
	sh, ok := s.lookupShare(w, r)
	if !ok {
		return
	}
	p, err := project.Decode("", sh.Data)
	if err != nil {
		s.respondErr(w, r, errdef.Wrap(errdef.CodeImport, err, "decode shared project"))
		return
	}
	p.Reidentify()
	s.reg.Attach(sessionID(r), p, true)
	respondJSON(w, http.StatusCreated, summaryOf(p, true))
}

func (s *Server) listShares(w http.ResponseWriter, r *http.Request) {
	list, err := s.shares.List(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}
