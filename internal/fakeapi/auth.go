package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "taskdesk-devapi"

type claims struct {
	jwt.RegisteredClaims
	Version int `json:"ver"`
}

func (s *Server) issueToken(u *user) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
		Version: u.TokenVersion,
	})
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parseToken returns the user id and token version carried by raw.
func (s *Server) parseToken(raw string) (int64, int, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, 0, err
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad subject: %w", err)
	}
	return id, c.Version, nil
}

type ctxKey struct{}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKey{}).(int64)
	return id
}

// requireAuth rejects requests without a valid bearer token for a live user.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), common.BearerPrefix)
		if !ok || raw == "" {
			s.writeError(w, r, http.StatusUnauthorized, "unauthorized", "Access token required")
			return
		}

		id, version, err := s.parseToken(raw)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			s.writeError(w, r, http.StatusUnauthorized, "unauthorized", msg)
			return
		}

		s.mu.Lock()
		u := s.data.userByID(id)
		valid := u != nil && u.TokenVersion == version
		s.mu.Unlock()
		if !valid {
			s.writeError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		u := s.data.userByID(userIDFrom(r.Context()))
		admin := u != nil && u.IsAdmin
		s.mu.Unlock()
		if !admin {
			s.writeError(w, r, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  userJSON `json:"user"`
	Token string   `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	s.mu.Lock()
	u := s.data.userByEmail(strings.TrimSpace(in.Email))
	var snapshot user
	if u != nil {
		snapshot = *u
	}
	s.mu.Unlock()

	if u == nil || bcrypt.CompareHashAndPassword(snapshot.PasswordHash, []byte(in.Password)) != nil {
		s.writeError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}
	s.respondWithToken(w, r, http.StatusOK, &snapshot)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || !strings.Contains(in.Email, "@") || len(in.Password) < 6 {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "Name, valid email and a password of at least 6 characters are required")
		return
	}

	u, err := s.createUser(in.Name, in.Email, in.Password, false)
	if errors.Is(err, errUserExists) {
		s.writeError(w, r, http.StatusBadRequest, "conflict", "User already exists")
		return
	}
	if err != nil {
		s.logger.Error(r.Context(), "register", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		return
	}
	s.respondWithToken(w, r, http.StatusCreated, u)
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, status int, u *user) {
	token, err := s.issueToken(u)
	if err != nil {
		s.logger.Error(r.Context(), "issue token", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		return
	}
	s.writeJSON(w, r, status, authResponse{User: toUserJSON(u, nil), Token: token})
}

var errUserExists = errors.New("user already exists")

// createUser hashes password and stores a new account. It returns a copy.
func (s *Server) createUser(name, email, password string, admin bool) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.userByEmail(email) != nil {
		return nil, errUserExists
	}
	u := s.data.addUser(&user{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      admin,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	})
	out := *u
	return &out, nil
}
