package admin

import (
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

var validRoles = []string{"admin", "user", "worker"}

// ListUsers handles GET /api/v1/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query("SELECT id,username,COALESCE(display_name,''),role,active,COALESCE(last_login,''),created_at FROM users ORDER BY id")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.User
	for rows.Next() {
		var u models.User
		rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.LastLogin, &u.CreatedAt)
		items = append(items, u)
	}
	if items == nil {
		items = []models.User{}
	}
	response.JSON(w, items)
}

// CreateUser handles POST /api/v1/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "username", req.Username)
	validation.RequireField(ve, "password", req.Password)
	validation.ValidateEnum(ve, "role", req.Role, validRoles)
	if len(req.Password) > 0 && len(req.Password) < 8 {
		ve.Add("password", "must be at least 8 characters")
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	res, err := h.DB.Exec("INSERT INTO users (username,password_hash,display_name,role) VALUES (?,?,?,?)",
		req.Username, string(hash), req.DisplayName, req.Role)
	if err != nil {
		response.Err(w, "username already exists", 409)
		return
	}
	id, _ := res.LastInsertId()

	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "user", req.Username, "Created user "+req.Username)

	var u models.User
	h.DB.QueryRow("SELECT id,username,COALESCE(display_name,''),role,active,COALESCE(last_login,''),created_at FROM users WHERE id=?", id).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.LastLogin, &u.CreatedAt)
	response.JSON(w, u)
}

// UpdateUser handles PUT /api/v1/users/:id. Password is only changed
// when a new one is supplied.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	uid, err := strconv.Atoi(id)
	if err != nil {
		response.Err(w, "invalid user id", 400)
		return
	}
	var req struct {
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
		Active      *bool  `json:"active"`
		Password    string `json:"password"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.ValidateEnum(ve, "role", req.Role, validRoles)
	if req.Password != "" && len(req.Password) < 8 {
		ve.Add("password", "must be at least 8 characters")
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var u models.User
	if err := h.DB.QueryRow("SELECT id,username,COALESCE(display_name,''),role,active FROM users WHERE id=?", uid).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active); err != nil {
		response.Err(w, "not found", 404)
		return
	}

	if req.DisplayName != "" {
		u.DisplayName = req.DisplayName
	}
	if req.Role != "" {
		u.Role = req.Role
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	if _, err := h.DB.Exec("UPDATE users SET display_name=?,role=?,active=? WHERE id=?", u.DisplayName, u.Role, u.Active, uid); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		h.DB.Exec("UPDATE users SET password_hash=? WHERE id=?", string(hash), uid)
		h.DB.Exec("DELETE FROM sessions WHERE user_id=?", uid)
	}

	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "user", u.Username, "Updated user "+u.Username)
	response.JSON(w, u)
}
