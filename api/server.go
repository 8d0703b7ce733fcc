package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/lumenlater/lumen-later/application"
)

// Server is the ledger HTTP API server.
type Server struct {
	httpServer *http.Server
}

// NewRouter builds the API router. All /api/v1 routes require a Bearer
// token; /healthz is public.
func NewRouter(app *application.App, jwtSecret string) *mux.Router {
	h := NewHandler(app)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	r.HandleFunc("/auth/token", issueTokenHandler(jwtSecret)).Methods("POST")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(AuthMiddleware(jwtSecret))

	v1.HandleFunc("/protocol/initialize", h.Initialize).Methods("POST")
	v1.HandleFunc("/protocol/config", h.GetConfig).Methods("GET")
	v1.HandleFunc("/protocol/constants", h.GetProtocolConstants).Methods("GET")

	v1.HandleFunc("/assets/mint", h.MintAsset).Methods("POST")
	v1.HandleFunc("/assets/{account}/balance", h.GetAssetBalance).Methods("GET")

	v1.HandleFunc("/pool/deposit", h.Deposit).Methods("POST")
	v1.HandleFunc("/pool/withdraw", h.Withdraw).Methods("POST")
	v1.HandleFunc("/pool/update-index", h.UpdateIndex).Methods("POST")
	v1.HandleFunc("/pool/stats", h.GetPoolStats).Methods("GET")
	v1.HandleFunc("/pool/balances/{account}", h.GetPoolBalance).Methods("GET")

	v1.HandleFunc("/merchants", h.EnrollMerchant).Methods("POST")
	v1.HandleFunc("/merchants/{account}", h.GetMerchant).Methods("GET")
	v1.HandleFunc("/merchants/{account}/status", h.UpdateMerchantStatus).Methods("PATCH")

	v1.HandleFunc("/bills", h.CreateBill).Methods("POST")
	v1.HandleFunc("/bills/{id}", h.GetBill).Methods("GET")
	v1.HandleFunc("/bills/{id}/pay", h.PayBill).Methods("POST")
	v1.HandleFunc("/bills/{id}/repay", h.RepayBill).Methods("POST")
	v1.HandleFunc("/bills/{id}/liquidate", h.LiquidateBill).Methods("POST")

	v1.HandleFunc("/users/{account}/borrowing-power", h.GetBorrowingPower).Methods("GET")

	return r
}

// NewServer creates the HTTP server on the given address.
func NewServer(addr string, app *application.App, jwtSecret string) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(app, jwtSecret),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start serves until the listener closes.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
