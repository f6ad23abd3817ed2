package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hatchway/clustersched/internal/engine"
	"github.com/hatchway/clustersched/pkg/types"
)

type handlers struct {
	engine *engine.Engine
}

// statusResponse is the {"status": "ok"|"error"} envelope used by every
// state-mutating endpoint.
type statusResponse struct {
	Status string `json:"status"`
}

// createResponse additionally carries the allocated id.
type createResponse struct {
	Status string   `json:"status"`
	ID     types.Id `json:"id"`
}

var okResponse = statusResponse{Status: "ok"}
var errResponse = statusResponse{Status: "error"}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("http: encode response failed", "error", err)
	}
}

func writeActionStatus(w http.ResponseWriter, status types.ActionStatus) {
	if status == types.StatusOK {
		writeJSON(w, http.StatusOK, okResponse)
		return
	}
	writeJSON(w, http.StatusNotFound, errResponse)
}

// --- jobs ------------------------------------------------------------------

func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.engine.GetJobs()
	if err != nil {
		log.Error("list jobs failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(jobs))
}

func (h *handlers) submitJob(w http.ResponseWriter, r *http.Request) {
	var spec types.NewJobSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse)
		return
	}
	id, err := h.engine.SubmitJob(spec)
	if err != nil {
		log.Error("submit job failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{Status: "ok", ID: id})
}

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.engine.GetJob(id)
	if err != nil {
		log.Error("get job failed", "job_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	if job == nil {
		writeJSON(w, http.StatusNotFound, errResponse)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handlers) deleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.engine.DeleteJob(id)
	if err != nil {
		log.Error("delete job failed", "job_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeActionStatus(w, status)
}

// jobStatusAction implements POST /jobs/{id}/status?action=terminate. Any
// other action value is a 400, independent of whether the job exists.
func (h *handlers) jobStatusAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := r.URL.Query().Get("action")
	if action != "terminate" {
		writeJSON(w, http.StatusBadRequest, errResponse)
		return
	}
	status, err := h.engine.TerminateJob(id)
	if err != nil {
		log.Error("terminate job failed", "job_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeActionStatus(w, status)
}

// --- nodes -------------------------------------------------------------------

func (h *handlers) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.engine.GetNodes()
	if err != nil {
		log.Error("list nodes failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(nodes))
}

func (h *handlers) addNode(w http.ResponseWriter, r *http.Request) {
	var spec types.NewNodeSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse)
		return
	}
	id, err := h.engine.AddNode(spec)
	if err != nil {
		log.Error("add node failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{Status: "ok", ID: id})
}

func (h *handlers) getNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	node, err := h.engine.GetNode(id)
	if err != nil {
		log.Error("get node failed", "node_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	if node == nil {
		writeJSON(w, http.StatusNotFound, errResponse)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *handlers) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.engine.DeleteNode(id)
	if err != nil {
		log.Error("delete node failed", "node_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeActionStatus(w, status)
}

func (h *handlers) getNodeJobs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	jobs, err := h.engine.GetNodeJobs(id)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownNode) {
			writeJSON(w, http.StatusNotFound, errResponse)
			return
		}
		log.Error("get node jobs failed", "node_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(jobs))
}

// nonNil turns a nil slice into an empty one so the JSON encoder emits []
// instead of null for empty collections.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
