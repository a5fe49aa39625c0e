package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/service"
	"github.com/zlnvch/placebot/store"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.Service.Login(req.Password)
	if err != nil {
		log.Printf("Login failed: %v", err)
		http.Error(w, "login failed", http.StatusUnauthorized)
		return
	}

	h.sendResponse(w, loginResponse{Token: token})
}

type templateRequest struct {
	Name              string        `json:"name"`
	Image             *models.Image `json:"image,omitempty"`
	ShareCode         string        `json:"shareCode,omitempty"`
	Anchor            models.Anchor `json:"anchor"`
	UserIds           []string      `json:"userIds"`
	CanBuyCharges     bool          `json:"canBuyCharges"`
	CanBuyMaxCharges  bool          `json:"canBuyMaxCharges"`
	AntiGriefMode     bool          `json:"antiGriefMode"`
	EraseMode         bool          `json:"eraseMode"`
	OutlineMode       bool          `json:"outlineMode"`
	SkipPaintedPixels bool          `json:"skipPaintedPixels"`
	EnableAutostart   bool          `json:"enableAutostart"`
}

func (h *Handler) templateFromRequest(req templateRequest) (models.Template, error) {
	tpl := models.Template{
		Name:              req.Name,
		Anchor:            req.Anchor,
		UserIds:           req.UserIds,
		CanBuyCharges:     req.CanBuyCharges,
		CanBuyMaxCharges:  req.CanBuyMaxCharges,
		AntiGriefMode:     req.AntiGriefMode,
		EraseMode:         req.EraseMode,
		OutlineMode:       req.OutlineMode,
		SkipPaintedPixels: req.SkipPaintedPixels,
		EnableAutostart:   req.EnableAutostart,
	}

	// Images arrive either inline or as a share code, never both
	if req.ShareCode != "" {
		img, err := h.Service.ImportImage(req.ShareCode)
		if err != nil {
			return models.Template{}, err
		}
		tpl.Image = img
	} else if req.Image != nil {
		tpl.Image = *req.Image
	}

	return tpl, nil
}

func (h *Handler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		views, err := h.Service.ListTemplates(r.Context())
		if err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, views)

	case http.MethodPost:
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		tpl, err := h.templateFromRequest(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		created, err := h.Service.CreateTemplate(r.Context(), tpl)
		if err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponseStatus(w, http.StatusCreated, created)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		view, err := h.Service.GetTemplate(r.Context(), id)
		if err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, view)

	case http.MethodPut:
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		tpl, err := h.templateFromRequest(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tpl.Id = id

		if err := h.Service.UpdateTemplate(r.Context(), tpl); err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	case http.MethodDelete:
		if err := h.Service.DeleteTemplate(r.Context(), id); err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleTemplateStart(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := h.Service.StartTemplate(r.Context(), r.PathValue("id"))
	if errors.Is(err, service.ErrAccountsBusy) {
		h.sendResponse(w, map[string]any{"success": false, "queued": true})
		return
	}
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, map[string]bool{"success": true})
}

func (h *Handler) HandleTemplateStop(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.Service.StopTemplate(r.Context(), r.PathValue("id")); err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, map[string]bool{"success": true})
}

func (h *Handler) HandleTemplateShareCode(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code, err := h.Service.ExportShareCode(r.Context(), r.PathValue("id"))
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, map[string]string{"shareCode": code})
}

type addUserRequest struct {
	Cookies        map[string]string `json:"cookies"`
	ExpirationDate int64             `json:"expirationDate"`
}

func (h *Handler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		users, err := h.Service.ListUsers(r.Context())
		if err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, users)

	case http.MethodPost:
		var req addUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		user, err := h.Service.AddUser(r.Context(), req.Cookies, req.ExpirationDate)
		if err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponseStatus(w, http.StatusCreated, user)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		user, err := h.Service.GetUser(r.Context(), id)
		if err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, user)

	case http.MethodDelete:
		if err := h.Service.DeleteUser(r.Context(), id); err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleUserStatus(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, err := h.Service.CheckUserStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.sendError(w, err)
		return
	}
	h.sendResponse(w, status)
}

func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.sendResponse(w, h.Service.GetSettings())

	case http.MethodPut:
		next := h.Service.GetSettings()
		if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.Service.UpdateSettings(r.Context(), next); err != nil {
			h.sendError(w, err)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type tokenRequest struct {
	Token       string `json:"t"`
	Pawtect     string `json:"pawtect"`
	Fingerprint string `json:"fp"`
}

// HandleToken is the push path for the capture extension. Deliberately
// unauthenticated: it only accepts single-use challenge tokens, same as the
// SQS channel.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.sendResponse(w, h.Service.TokenStatus())

	case http.MethodPost:
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := h.Service.SubmitToken(req.Token, req.Pawtect, req.Fingerprint); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.sendResponse(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) sendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, service.ErrAlreadyRunning), errors.Is(err, service.ErrDuplicateName):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// sendResponseStatus sets headers before the explicit status line; anything
// set after WriteHeader is discarded.
func (h *Handler) sendResponseStatus(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if err := h.Service.AuthenticateToken(h.getTokenFromAuthHeader(r)); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return false
	}
	return true
}

func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimPrefix(authHeader, prefix)
}
