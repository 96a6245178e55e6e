package handler

import (
    "crypto/subtle" // constant-time username comparison
    "net/http"      // HTTP status codes
    "strings"       // trimming user input
    "time"          // token expiry in responses

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/cinema-ticket-simulator/internal/utils" // token issuing and password checks
)

// AuthHandler issues operator tokens.  There is a single operator account
// configured through the environment; no users are stored.
type AuthHandler struct {
    User   string // operator login name
    Hash   string // bcrypt hash of the operator password
    Secret string // JWT signing secret
    TTLMin int    // access token lifetime in minutes
}

// NewAuthHandler returns an AuthHandler for the configured operator.
func NewAuthHandler(user, hash, secret string, ttlMin int) *AuthHandler {
    return &AuthHandler{User: user, Hash: hash, Secret: secret, TTLMin: ttlMin}
}

type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type loginResp struct {
    User   string    `json:"user"`
    Role   string    `json:"role"`
    Access tokenPart `json:"access"`
}

// Login handles POST /v1/auth/login.  A wrong user name and a wrong
// password give the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Username = strings.TrimSpace(req.Username)
    if req.Username == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
    }

    userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.User)) == 1
    passOK := utils.VerifyPassword(h.Hash, req.Password)
    if !userOK || !passOK {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    at, err := utils.NewAccessToken(h.Secret, h.User, utils.OperatorRole, h.TTLMin)
    if err != nil {
        c.Logger().Errorf("auth: sign token: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
    }
    return c.JSON(http.StatusOK, loginResp{
        User:   h.User,
        Role:   utils.OperatorRole,
        Access: tokenPart{Token: at.Token, Expires: at.Exp},
    })
}
