package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "barnaby_go_backend/internal/errors"
	"barnaby_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Service owns signup, login, and token verification. The user store is an
// injected capability; the JWT secret comes from configuration.
type Service struct {
	users     services.UserStore
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewService(users services.UserStore, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// HashPassword returns the deterministic sha256 hex digest of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Signup creates a new account. Duplicate usernames surface as
// services.ErrUserAlreadyExists; nothing is persisted in that case.
func (s *Service) Signup(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	return s.users.CreateUser(username, HashPassword(password))
}

// Login verifies credentials and issues a signed token. Bad credentials fail
// with services.ErrInvalidCredentials and no session is established.
func (s *Service) Login(username, password string) (string, error) {
	ok, err := s.users.VerifyUser(username, HashPassword(password))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", services.ErrInvalidCredentials
	}
	return s.generateToken(username)
}

func (s *Service) generateToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// VerifyToken validates a token and returns the username it was issued to.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	username, _ := claims["sub"].(string)
	if username == "" {
		return "", errors.New("invalid token subject")
	}
	return username, nil
}

// SetupRoutes mounts the signup and login endpoints.
func SetupRoutes(r *gin.Engine, authService *Service) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", signupHandler(authService))
		auth.POST("/login", loginHandler(authService))
	}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func signupHandler(authService *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Username and password are required"))
			return
		}

		if err := authService.Signup(req.Username, req.Password); err != nil {
			if errors.Is(err, services.ErrUserAlreadyExists) {
				apperrors.HandleError(c, apperrors.New409Error("Username already exists"))
				return
			}
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Signup successful. Please log in."})
	}
}

func loginHandler(authService *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Username and password are required"))
			return
		}

		token, err := authService.Login(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				apperrors.HandleError(c, apperrors.New401Error("Invalid username or password"))
				return
			}
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "username": req.Username})
	}
}

// Middleware authenticates a request and stores the username in the gin
// context. WebSocket upgrades carry the token as a query parameter because
// browsers cannot set headers on a WebSocket handshake.
func Middleware(authService *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		if c.IsWebsocket() {
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
				c.Abort()
				return
			}
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
				c.Abort()
				return
			}
			token = bearerToken[1]
		}

		username, err := authService.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set("username", username)
		c.Next()
	}
}

// Username pulls the authenticated username out of the gin context.
func Username(c *gin.Context) (string, bool) {
	value, exists := c.Get("username")
	if !exists {
		return "", false
	}
	username, ok := value.(string)
	return username, ok && username != ""
}
