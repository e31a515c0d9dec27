package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tersedak-care/apiserver/internal/content"
)

// ContentHandler serves the read-only learning catalog.
type ContentHandler struct {
	catalog *content.Catalog
}

func NewContentHandler(catalog *content.Catalog) *ContentHandler {
	return &ContentHandler{catalog: catalog}
}

// ContentRouter registers the public catalog routes.
func ContentRouter(r chi.Router, catalog *content.Catalog) {
	handler := NewContentHandler(catalog)

	r.Get("/age-groups", handler.ListAgeGroups)
	r.Get("/age-groups/{ageGroupID}", handler.GetAgeGroup)
	r.Get("/modules", handler.ListModules)
	r.Get("/modules/{moduleID}", handler.GetModule)
	r.Get("/emergency", handler.Emergency)
	r.Get("/references", handler.References)
}

func (h *ContentHandler) ListAgeGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AgeGroupsResponse{AgeGroups: h.catalog.AgeGroups()})
}

func (h *ContentHandler) GetAgeGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := h.catalog.AgeGroup(chi.URLParam(r, "ageGroupID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Kategori usia tidak ditemukan")
		return
	}
	writeJSON(w, http.StatusOK, AgeGroupResponse{AgeGroup: group})
}

func (h *ContentHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModulesResponse{Modules: h.catalog.Modules()})
}

// GetModule looks a module up by id, or by display order when the
// parameter is numeric.
func (h *ContentHandler) GetModule(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, "moduleID")
	module, ok := h.catalog.Module(param)
	if !ok {
		if order, err := strconv.Atoi(param); err == nil {
			module, ok = h.catalog.ModuleByOrder(order)
		}
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Modul tidak ditemukan")
		return
	}
	writeJSON(w, http.StatusOK, ModuleResponse{Module: module})
}

func (h *ContentHandler) Emergency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, EmergencyResponse{
		Steps:  h.catalog.EmergencySteps(),
		DontDo: h.catalog.DontDo(),
	})
}

func (h *ContentHandler) References(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ReferencesResponse{Sources: h.catalog.Sources()})
}

type AgeGroupsResponse struct {
	AgeGroups []content.AgeGroup `json:"ageGroups"`
}

type AgeGroupResponse struct {
	AgeGroup content.AgeGroup `json:"ageGroup"`
}

type ModulesResponse struct {
	Modules []content.Module `json:"modules"`
}

type ModuleResponse struct {
	Module content.Module `json:"module"`
}

type EmergencyResponse struct {
	Steps  []content.EmergencyStep `json:"steps"`
	DontDo []content.DontDo        `json:"dontDo"`
}

type ReferencesResponse struct {
	Sources []content.Source `json:"sources"`
}
