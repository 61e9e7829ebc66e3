package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPService runs an http.Server as a lifecycle Service.
type HTTPService struct {
	srv             *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewHTTPService serves handler on addr.
//
// Precondition: handler and logger must be non-nil; shutdownTimeout > 0.
func NewHTTPService(addr string, handler http.Handler, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *zap.Logger) *HTTPService {
	return &HTTPService{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Listen binds the listening socket ahead of Start so bind errors surface early.
func (h *HTTPService) Listen() error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	h.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (h *HTTPService) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.srv.Addr
}

// Start serves until Stop is called.
func (h *HTTPService) Start() error {
	if h.listener == nil {
		if err := h.Listen(); err != nil {
			return err
		}
	}
	h.logger.Info("http server listening", zap.String("addr", h.Addr()))
	if err := h.srv.Serve(h.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to the shutdown timeout for
// in-flight requests.
func (h *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("http server shutdown", zap.Error(err))
	}
}
