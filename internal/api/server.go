/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/lock"
	"identity-merge-go/internal/merge"
	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const callerKey = "caller"

// TokenVerifier authenticates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Caller, error)
}

type Server struct {
	service  *AdminService
	verifier TokenVerifier
	cfg      models.ServerConfig
	router   *gin.Engine
}

func NewServer(service *AdminService, verifier TokenVerifier, cfg models.ServerConfig) *Server {
	s := &Server{service: service, verifier: verifier, cfg: cfg}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", s.healthz)

	admin := router.Group("/admin", s.bearerAuth())
	admin.POST("/identities/link", s.linkAccounts)
	admin.POST("/achievements/seed", s.seedCatalog)
	admin.POST("/achievements/award", s.awardFullSet)
	admin.POST("/progression/normalize", s.normalizeProgression)

	s.router = router
	return s
}

// Handler serves HTTP/1.1 and cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.router, &http2.Server{})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Admin server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down admin server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.L().Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			abortWithError(c, auth.ErrUnauthorized)
			return
		}

		caller, err := s.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) auth.Caller {
	caller, _ := c.MustGet(callerKey).(auth.Caller)
	return caller
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.service.HealthCheck(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) linkAccounts(c *gin.Context) {
	var req models.LinkAccountsRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	response, err := s.service.LinkAccounts(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) seedCatalog(c *gin.Context) {
	response, err := s.service.SeedCatalog(c.Request.Context(), callerFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) awardFullSet(c *gin.Context) {
	var req models.AwardRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	response, err := s.service.AwardFullSet(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) normalizeProgression(c *gin.Context) {
	response, err := s.service.NormalizeProgression(c.Request.Context(), callerFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, errors.Join(ErrInvalidRequest, err))
		return false
	}
	return true
}

func abortWithError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("Admin request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message, Details: err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, merge.ErrPreconditionNotFound), errors.Is(err, store.ErrIdentityNotFound):
		return http.StatusNotFound, "Identity not found"
	case errors.Is(err, merge.ErrInvalidMerge):
		return http.StatusBadRequest, "Invalid merge"
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, lock.ErrLockHeld):
		return http.StatusConflict, "Merge already in progress"
	case errors.Is(err, store.ErrTransient):
		return http.StatusServiceUnavailable, "Temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
