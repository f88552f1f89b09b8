package controllers

import (
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/ctx"
)

type AuthController struct {
	gate *services.AdminGate
}

func NewAuthController(gate *services.AdminGate) *AuthController {
	return &AuthController{gate: gate}
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login POST /api/auth/login
func (h *AuthController) Login(c *ctx.Context) {
	var input loginInput
	if !c.BindJSON(&input) {
		return
	}

	admin, err := h.gate.Login(c.Context(), c.Session(), input.Username, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(map[string]interface{}{
		"id":       admin.ID,
		"username": admin.Username,
	}, "Logged in")
}

// Logout POST /api/auth/logout
func (h *AuthController) Logout(c *ctx.Context) {
	h.gate.Logout(c.Session())
	c.Success(nil, "Logged out")
}

// Status GET /api/auth/status
func (h *AuthController) Status(c *ctx.Context) {
	sess := c.Session()
	c.Success(map[string]interface{}{
		"is_admin": h.gate.IsAdmin(sess),
		"username": h.gate.Username(sess),
	})
}
