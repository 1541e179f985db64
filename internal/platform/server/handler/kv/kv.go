package kv

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pagekv/internal/application/service"
)

type Handler struct {
	getService    *service.GetEntryService
	putService    *service.PutEntryService
	deleteService *service.DeleteEntryService
	rangeService  *service.RangeService
}

func NewHandler(getService *service.GetEntryService,
	putService *service.PutEntryService,
	deleteService *service.DeleteEntryService,
	rangeService *service.RangeService) *Handler {
	return &Handler{
		getService:    getService,
		putService:    putService,
		deleteService: deleteService,
		rangeService:  rangeService,
	}
}

type EntryResponse struct {
	Key   uint64 `json:"key"`
	Value string `json:"value,omitempty"`
}

func parseKey(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "key"), 10, 64)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}
	result := h.getService.Execute(service.GetEntryQuery{Key: key})
	if result.Err != nil {
		http.Error(w, result.Err.Error(), http.StatusInternalServerError)
		return
	}
	if !result.Found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	output, _ := json.Marshal(EntryResponse{Key: key, Value: string(result.Value)})
	fmt.Fprint(w, string(output))
}

func (h *Handler) PutEntry(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	result := h.putService.Execute(service.PutEntryCommand{Key: key, Value: body})
	if result.Err != nil {
		http.Error(w, result.Err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}
	result := h.deleteService.Execute(service.DeleteEntryCommand{Key: key})
	if result.Err != nil {
		http.Error(w, result.Err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetRange(w http.ResponseWriter, r *http.Request) {
	start, err := parseKey(r)
	if err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 {
		http.Error(w, "invalid n", http.StatusBadRequest)
		return
	}
	result := h.rangeService.Execute(service.RangeQuery{Start: start, N: n})
	if result.Err != nil {
		http.Error(w, result.Err.Error(), http.StatusInternalServerError)
		return
	}
	responses := make([]EntryResponse, 0, len(result.Records))
	for _, rec := range result.Records {
		responses = append(responses, EntryResponse{Key: rec.Key.Uint64(), Value: string(rec.Value)})
	}
	output, _ := json.Marshal(responses)
	fmt.Fprint(w, string(output))
}
