package remote

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/time/rate"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/store"
)

// ownerKey is the echo context key holding the caller identity.
const ownerKey = "Owner"

// ServerConfig tunes the slot server.
type ServerConfig struct {
	// BodyLimit caps the upload size, in echo's notation ("64M").
	BodyLimit string
	// RateLimit is the sustained requests per second allowed per identity.
	RateLimit float64
	// Now supplies the slot update timestamp.
	Now func() time.Time
}

// DefaultServerConfig returns the settings used by `ledgerbook slot serve`.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{BodyLimit: "64M", RateLimit: 10, Now: time.Now}
}

// ErrorResponse is the JSON body of every non-success response.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// putRequest is the validated form of an upload.
type putRequest struct {
	Owner string `validate:"required"`
	Blob  string `validate:"required,json"`
}

// requestValidator adapts validator.Validate to echo.Validator.
type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

// Server hosts one backup slot per identity on top of the store's slot table.
type Server struct {
	echo  *echo.Echo
	store *store.Store
	now   func() time.Time
}

// NewServer builds the slot server. Routes:
//
//	GET  /healthz     liveness
//	PUT  /v1/backup   replace the caller's blob (204)
//	GET  /v1/backup   fetch the caller's blob (200, or 204 when empty)
//
// Backup routes require "Authorization: Bearer <identity>".
func NewServer(st *store.Store, logger zerolog.Logger, cfg ServerConfig) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = DefaultServerConfig().BodyLimit
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultServerConfig().RateLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	lg := lecho.From(logger.With().Str("component", "slot-server").Logger())
	e.Logger = lg
	e.Validator = &requestValidator{validator: validator.New()}
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(lecho.Middleware(lecho.Config{Logger: lg}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	s := &Server{echo: e, store: st, now: cfg.Now}

	e.GET(HealthPath, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	g := e.Group(BackupPath, bearerAuth)
	g.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(cfg.RateLimit), Burst: burstFor(cfg.RateLimit)},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.Get(ownerKey).(string), nil
		},
	}))
	g.PUT("", s.putBackup)
	g.GET("", s.getBackup)

	return s
}

// burstFor allows two seconds of traffic at limit, and never less than one
// request so a fractional limit still admits callers.
func burstFor(limit float64) int {
	return max(1, int(math.Ceil(limit*2)))
}

// Handler exposes the server for httptest and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer identity")
		}
		c.Set(ownerKey, token)
		return next(c)
	}
}

func (s *Server) putBackup(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	req := putRequest{Owner: c.Get(ownerKey).(string), Blob: string(body)}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "backup body must be a JSON document")
	}

	ctx := c.Request().Context()
	if err := s.store.PutSlot(ctx, req.Owner, req.Blob, model.Millis(s.now())); err != nil {
		return err
	}
	c.Logger().Infof("backup stored: %d bytes", len(body))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getBackup(c echo.Context) error {
	blob, err := s.store.GetSlot(c.Request().Context(), c.Get(ownerKey).(string))
	if ledgererr.IsNotFound(err) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte(blob))
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)

	resp := ErrorResponse{Error: true, Code: "internal", Message: "something went wrong"}
	status := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		resp.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		if msg, ok := he.Message.(string); ok {
			resp.Message = msg
		} else {
			resp.Message = http.StatusText(he.Code)
		}
	} else if code := ledgererr.CodeOf(err); code != "" {
		resp.Code = string(code)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, resp)
}
