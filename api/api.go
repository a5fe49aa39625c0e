package api

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/zlnvch/placebot/api/rest"
	"github.com/zlnvch/placebot/api/ws"
	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/canvas/wplace"
	"github.com/zlnvch/placebot/charge"
	"github.com/zlnvch/placebot/events"
	"github.com/zlnvch/placebot/mq"
	"github.com/zlnvch/placebot/service"
	"github.com/zlnvch/placebot/settings"
	"github.com/zlnvch/placebot/store"
	"github.com/zlnvch/placebot/token"
	"github.com/zlnvch/placebot/worker"
)

type PlacebotAPI struct {
	Service     *service.Service
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	wsUpgrader  websocket.Upgrader
	shutdownCtx context.Context
}

func NewPlacebotAPI(
	placebotStore store.PlacebotStore,
	tokenQueue mq.TokenQueue,
	placebotEvents events.PlacebotEvents,
	clientOpts wplace.Options,
	jwtSecret []byte,
	operatorPassword string,
	shutdownCtx context.Context,
) (*PlacebotAPI, error) {
	wsHub := ws.NewHub(placebotEvents)
	if err := wsHub.InitSubscriptions(shutdownCtx); err != nil {
		return &PlacebotAPI{}, err
	}
	go wsHub.Run()

	statusBatcher := worker.NewStatusBatcher(placebotStore, placebotEvents, 500)
	go statusBatcher.Run(shutdownCtx)

	broker := token.NewBroker()

	svc := service.NewService(
		placebotStore,
		placebotEvents,
		broker,
		charge.NewPredictor(),
		settings.NewManager(settings.Default()),
		statusBatcher,
		jwtSecret,
		operatorPassword,
	)

	// Each account attempt gets a fresh session; pawtect and fingerprint
	// are read live so newly captured values apply immediately
	svc.NewClient = func() (canvas.Client, error) {
		opts := clientOpts
		opts.Pawtect = svc.Pawtect
		opts.Fingerprint = svc.Fingerprint
		return wplace.NewClient(opts)
	}

	if tokenQueue != nil {
		tokenConsumer := worker.NewTokenConsumer(tokenQueue, broker, svc.SetSidecar)
		go tokenConsumer.Run(shutdownCtx)
	}

	restHandler := rest.NewHandler(svc)
	wsHandler := ws.NewHandler(svc, wsHub)

	return &PlacebotAPI{
		Service:     svc,
		restHandler: restHandler,
		wsHandler:   wsHandler,
		shutdownCtx: shutdownCtx,
	}, nil
}

func (placebotAPI *PlacebotAPI) RegisterRoutes(mux *http.ServeMux, requiredOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/login", placebotAPI.restHandler.HandleLogin)
	mux.HandleFunc("/templates", placebotAPI.restHandler.HandleTemplates)
	mux.HandleFunc("/templates/{id}", placebotAPI.restHandler.HandleTemplate)
	mux.HandleFunc("/templates/{id}/start", placebotAPI.restHandler.HandleTemplateStart)
	mux.HandleFunc("/templates/{id}/stop", placebotAPI.restHandler.HandleTemplateStop)
	mux.HandleFunc("/templates/{id}/sharecode", placebotAPI.restHandler.HandleTemplateShareCode)
	mux.HandleFunc("/users", placebotAPI.restHandler.HandleUsers)
	mux.HandleFunc("/users/{id}", placebotAPI.restHandler.HandleUser)
	mux.HandleFunc("/users/{id}/status", placebotAPI.restHandler.HandleUserStatus)
	mux.HandleFunc("/settings", placebotAPI.restHandler.HandleSettings)
	mux.HandleFunc("/t", placebotAPI.restHandler.HandleToken)

	wsUpgrader := placebotAPI.wsHandler.NewWsUpgrader(requiredOrigin)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		placebotAPI.wsHandler.ServeWS(wsUpgrader, w, r, placebotAPI.shutdownCtx)
	})
}
