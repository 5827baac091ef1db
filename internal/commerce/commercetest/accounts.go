package commercetest

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTTL   = 24 * time.Hour
	passwordMin = 8
)

var (
	errInvalidCredentials = errors.New("Invalid credentials")
	errEmailTaken         = errors.New("Email is already registered")
)

type account struct {
	user         domain.User
	passwordHash []byte
}

type tokenMeta struct {
	userID    int64
	expiresAt time.Time
}

// accounts holds users and issued access tokens. Callers hold Server.mu.
type accounts struct {
	byID    map[int64]*account
	byEmail map[string]int64
	tokens  map[string]tokenMeta
	nextID  int64
}

func newAccounts() *accounts {
	return &accounts{
		byID:    make(map[int64]*account),
		byEmail: make(map[string]int64),
		tokens:  make(map[string]tokenMeta),
	}
}

func (a *accounts) register(in domain.RegisterInput) (domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return domain.User{}, errors.New("Email is required")
	}
	if err := validatePassword(in.Password, passwordMin); err != nil {
		return domain.User{}, err
	}
	if _, taken := a.byEmail[email]; taken {
		return domain.User{}, errEmailTaken
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(in.Password)), bcrypt.MinCost)
	if err != nil {
		return domain.User{}, err
	}

	a.nextID++
	stamp := now()
	acc := &account{
		user: domain.User{
			ID:        a.nextID,
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Email:     email,
			Phone:     strings.TrimSpace(in.Phone),
			IsActive:  true,
			CreatedAt: stamp,
			UpdatedAt: stamp,
		},
		passwordHash: hashed,
	}
	a.byID[acc.user.ID] = acc
	a.byEmail[email] = acc.user.ID
	return acc.user, nil
}

func (a *accounts) login(email, password string) (domain.User, string, error) {
	id, ok := a.byEmail[strings.TrimSpace(strings.ToLower(email))]
	if !ok {
		return domain.User{}, "", errInvalidCredentials
	}
	acc := a.byID[id]
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(strings.TrimSpace(password))); err != nil {
		return domain.User{}, "", errInvalidCredentials
	}
	token, err := a.issue(id)
	if err != nil {
		return domain.User{}, "", err
	}
	return acc.user, token, nil
}

func (a *accounts) issue(userID int64) (string, error) {
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		if _, exists := a.tokens[token]; exists {
			continue
		}
		a.tokens[token] = tokenMeta{userID: userID, expiresAt: time.Now().Add(accessTTL)}
		return token, nil
	}
	return "", errors.New("token collision")
}

func (a *accounts) lookup(token string) (domain.User, bool) {
	meta, ok := a.tokens[token]
	if !ok {
		return domain.User{}, false
	}
	if time.Now().After(meta.expiresAt) {
		delete(a.tokens, token)
		return domain.User{}, false
	}
	acc, ok := a.byID[meta.userID]
	if !ok {
		return domain.User{}, false
	}
	return acc.user, true
}

func (a *accounts) revoke(token string) bool {
	_, ok := a.tokens[token]
	delete(a.tokens, token)
	return ok
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("Password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("Password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}

// AddUser registers an account directly, bypassing the API.
func (s *Server) AddUser(in domain.RegisterInput) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts.register(in)
}

// IssueToken mints an access token for an existing user.
func (s *Server) IssueToken(userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts.byID[userID]; !ok {
		return "", domain.ErrNotFound
	}
	return s.accounts.issue(userID)
}

// RevokeToken invalidates token as if it had expired.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	s.accounts.revoke(token)
	s.mu.Unlock()
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reject(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	user, token, err := s.accounts.login(req.Email, req.Password)
	s.mu.Unlock()
	if errors.Is(err, errInvalidCredentials) {
		reject(c, http.StatusOK, err.Error())
		return
	}
	if err != nil {
		reject(c, http.StatusInternalServerError, "Login failed")
		return
	}
	respond(c, http.StatusOK, domain.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(accessTTL.Seconds()),
		User:        &user,
	}, "Login successful")
}

func (s *Server) handleRegister(c *gin.Context) {
	var req domain.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		reject(c, http.StatusBadRequest, "Invalid registration payload")
		return
	}
	s.mu.Lock()
	user, err := s.accounts.register(req)
	s.mu.Unlock()
	switch {
	case errors.Is(err, errEmailTaken):
		reject(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		reject(c, http.StatusBadRequest, err.Error())
		return
	}
	respond(c, http.StatusCreated, user, "User registered successfully")
}

func (s *Server) handleLogout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	s.mu.Lock()
	s.accounts.revoke(token)
	s.mu.Unlock()
	respond[any](c, http.StatusOK, nil, "Logged out")
}

func (s *Server) handleProfile(c *gin.Context) {
	s.mu.Lock()
	acc, ok := s.accounts.byID[currentUser(c)]
	var user domain.User
	if ok {
		user = acc.user
	}
	s.mu.Unlock()
	if !ok {
		reject(c, http.StatusNotFound, "User not found")
		return
	}
	respond(c, http.StatusOK, user, "")
}
