package config

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

const redacted = "***"

// ConfigAPI exposes the running configuration with secrets masked
type ConfigAPI struct {
	cfg    *Config
	router *mux.Router
}

func NewConfigAPI(cfg *Config) *ConfigAPI {
	api := &ConfigAPI{
		cfg:    cfg,
		router: mux.NewRouter(),
	}
	api.routes()
	return api
}

func (api *ConfigAPI) Router() *mux.Router {
	return api.router
}

func (api *ConfigAPI) routes() {
	api.router.HandleFunc("/configure", api.getConfig).Methods("GET")
	api.router.HandleFunc("/configure/", api.getConfig).Methods("GET")
	api.router.HandleFunc("/configure/validate", api.validateConfig).Methods("POST")
	api.router.HandleFunc("/configure/{section}", api.getSection).Methods("GET")
}

func (api *ConfigAPI) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.cfg.Redacted())
}

func (api *ConfigAPI) getSection(w http.ResponseWriter, r *http.Request) {
	safe := api.cfg.Redacted()
	var section interface{}

	switch name := mux.Vars(r)["section"]; name {
	case "server":
		section = safe.Server
	case "llm":
		section = safe.LLM
	case "embedding":
		section = safe.Embedding
	case "precedents":
		section = safe.Precedents
	case "standards":
		section = safe.Standards
	case "audit":
		section = safe.Audit
	case "log":
		section = safe.Log
	case "mcp":
		section = safe.MCP
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("unknown section: %s", name)})
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (api *ConfigAPI) validateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": fmt.Sprintf("invalid config payload: %v", err)})
		return
	}
	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": fmt.Sprintf("invalid configuration: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "message": "configuration is valid"})
}

// Redacted returns a copy with credentials masked
func (c *Config) Redacted() Config {
	safe := *c
	safe.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	mask(&safe.LLM.APIKey)
	mask(&safe.Embedding.APIKey)
	mask(&safe.Precedents.Chroma.APIKey)
	mask(&safe.Precedents.Postgres.URL)
	mask(&safe.Standards.MinIO.AccessKey)
	mask(&safe.Standards.MinIO.SecretKey)
	return safe
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
