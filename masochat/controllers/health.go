package controllers

import (
	"encoding/json"
	"net/http"
)

type HealthController struct {
	provider string
	model    string
}

func NewHealthController(provider, model string) *HealthController {
	return &HealthController{provider: provider, model: model}
}

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// HealthCheck reports liveness only; it never calls the model provider.
func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{Status: "ok", Provider: h.provider, Model: h.model})
}
