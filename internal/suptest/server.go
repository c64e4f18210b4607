// Package suptest is an in-process stand-in for the hosted backend trio:
// identity, the REST data surface, and object storage. It implements exactly
// the subset the client exercises and exists so package tests can run the
// real request path without a network.
package suptest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chatapp-client/internal/models"
)

type Server struct {
	db     *sql.DB
	secret []byte
	sugar  *zap.SugaredLogger
	router chi.Router
	clk    clock

	mu      sync.Mutex
	objects map[string]object
}

type object struct {
	data        []byte
	contentType string
}

type authClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type userIDKey struct{}

func New(dbPath string, sugar *zap.SugaredLogger) (*Server, error) {
	db, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:      db,
		secret:  []byte("suptest-secret"),
		sugar:   sugar,
		objects: make(map[string]object),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/auth/v1/token", s.handleToken)
	r.Get("/storage/v1/object/public/{bucket}/*", s.handlePublicObject)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)
		pr.Get("/auth/v1/user", s.handleUser)
		pr.Post("/auth/v1/logout", s.handleLogout)
		pr.Post("/storage/v1/object/{bucket}/*", s.handleUpload)

		pr.Route("/rest/v1/{table}", func(tr chi.Router) {
			tr.Get("/", s.handleSelect)
			tr.Post("/", s.handleInsert)
			tr.Patch("/", s.handleUpdate)
			tr.Delete("/", s.handleDelete)
		})
	})

	s.router = r
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Close() error {
	return s.db.Close()
}

// CreateUser seeds an account and its profile row, returning the user and a
// ready-to-use access token.
func (s *Server) CreateUser(email, password, username string) (models.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, "", err
	}

	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  username,
		Status:    models.StatusOnline,
		CreatedAt: s.clk.now(),
	}

	if _, err := s.db.Exec("INSERT INTO auth_users (id, email, password) VALUES (?, ?, ?)",
		user.ID, user.Email, hash); err != nil {
		return models.User{}, "", err
	}
	if _, err := s.db.Exec("INSERT INTO users (id, email, username, avatar_url, status, created_at) VALUES (?, ?, ?, '', ?, ?)",
		user.ID, user.Email, user.Username, user.Status, user.CreatedAt); err != nil {
		return models.User{}, "", err
	}

	token, err := s.mintToken(user.ID, user.Email)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

func (s *Server) mintToken(userID, email string) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	return token.SignedString(s.secret)
}

func (s *Server) verifyToken(tokenString string) (authClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return authClaims{}, err
	}
	claims, ok := token.Claims.(*authClaims)
	if !ok {
		return authClaims{}, errors.New("invalid token claims")
	}
	return *claims, nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "no bearer token was provided")
			return
		}

		claims, err := s.verifyToken(tokenString)
		if err != nil {
			s.sugar.Debugw("rejecting token", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		writeError(w, http.StatusBadRequest, "unsupported grant type")
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	var id string
	var hash []byte
	err := s.db.QueryRow("SELECT id, password FROM auth_users WHERE email = ?", creds.Email).Scan(&id, &hash)
	if err != nil || bcrypt.CompareHashAndPassword(hash, []byte(creds.Password)) != nil {
		writeError(w, http.StatusBadRequest, "invalid login credentials")
		return
	}

	token, err := s.mintToken(id, creds.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   3600,
		"user":         map[string]string{"id": id, "email": creds.Email},
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(userIDKey{}).(authClaims)
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    claims.Subject,
		"email": claims.Email,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	objectPath := chi.URLParam(r, "*")

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}

	key := bucket + "/" + objectPath
	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: r.Header.Get("Content-Type")}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"Key": key})
}

func (s *Server) handlePublicObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "bucket") + "/" + chi.URLParam(r, "*")

	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}

	if obj.contentType != "" {
		w.Header().Set("Content-Type", obj.contentType)
	}
	w.Write(obj.data)
}

// ObjectCount reports how many objects have been uploaded; used by tests.
func (s *Server) ObjectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
