package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/internal/log"
	"github.com/maz279/getit-project-v2-sub015/pkg/catalog"
	"github.com/maz279/getit-project-v2-sub015/pkg/engine"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// StartServer exposes the orchestrator over HTTP: start, inspect and
// cancel workflows. Step execution itself stays asynchronous; callers
// observe progress through GET or through the event bus.
func StartServer(port string, eng *engine.Engine) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/workflows", WorkflowsHandler(eng))
	mux.HandleFunc("/workflows/", WorkflowByIDHandler(eng))

	log.GetLogger().Infof("Starting orderflow server on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "orderflow server is running")
}

func WorkflowsHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listWorkflowsHTTP(w, r, eng)
		case http.MethodPost:
			startWorkflowHTTP(w, r, eng)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// WorkflowByIDHandler serves /workflows/{id} and /workflows/{id}/cancel.
func WorkflowByIDHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/workflows/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		switch {
		case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
			getWorkflowHTTP(w, r, eng, parts[0])
		case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
			cancelWorkflowHTTP(w, r, eng, parts[0])
		default:
			writeError(w, http.StatusNotFound, "Not found")
		}
	}
}

func startWorkflowHTTP(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	var req struct {
		OrderID string `json:"order_id"`
		Variant string `json:"variant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "Missing 'order_id' parameter")
		return
	}
	if req.Variant == "" {
		req.Variant = "standard"
	}

	workflowID, err := eng.StartWorkflow(r.Context(), req.OrderID, req.Variant)
	if err != nil {
		log.GetLogger().Errorf("Failed to start workflow for order %s: %v", req.OrderID, err)
		writeError(w, startErrorStatus(err), fmt.Sprintf("Failed to start workflow: %v", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"workflow_id": workflowID,
		"message":     fmt.Sprintf("Started workflow %s for order '%s'", workflowID, req.OrderID),
	})
}

func listWorkflowsHTTP(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	states, err := eng.ListWorkflows(r.Context())
	if err != nil {
		log.GetLogger().Errorf("Failed to list workflows: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list workflows: %v", err))
		return
	}
	if states == nil {
		states = []*models.WorkflowState{}
	}
	writeJSON(w, http.StatusOK, states)
}

func getWorkflowHTTP(w http.ResponseWriter, r *http.Request, eng *engine.Engine, workflowID string) {
	state, err := eng.GetWorkflow(r.Context(), workflowID)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Workflow '%s' not found", workflowID))
			return
		}
		log.GetLogger().Errorf("Failed to get workflow %s: %v", workflowID, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get workflow: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func cancelWorkflowHTTP(w http.ResponseWriter, r *http.Request, eng *engine.Engine, workflowID string) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "cancelled via API"
	}
	if err := eng.CancelWorkflow(r.Context(), workflowID, req.Reason); err != nil {
		switch {
		case errors.Is(err, engine.ErrWorkflowNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Workflow '%s' not found", workflowID))
		case errors.Is(err, engine.ErrWorkflowNotActive):
			writeError(w, http.StatusConflict, fmt.Sprintf("Workflow '%s' is not active", workflowID))
		default:
			log.GetLogger().Errorf("Failed to cancel workflow %s: %v", workflowID, err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to cancel workflow: %v", err))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workflow_id": workflowID,
		"message":     fmt.Sprintf("Cancelled workflow %s", workflowID),
	})
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrOrderInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrUnknownVariant):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
