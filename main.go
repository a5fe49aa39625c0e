package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/zlnvch/placebot/api"
	"github.com/zlnvch/placebot/canvas/wplace"
	"github.com/zlnvch/placebot/events/redis"
	"github.com/zlnvch/placebot/mq/sqsmq"
	"github.com/zlnvch/placebot/service"
	"github.com/zlnvch/placebot/store/dynamo"
)

const (
	DynamoDBTable = "Placebot"
	SQSTokenQueue = "PlacebotTokenQueue"
)

func main() {
	ctx := context.Background()
	devMode := os.Getenv("DEV_MODE") == "true"

	placebotStore, err := dynamo.NewDynamoPlacebotStore(ctx, devMode, os.Getenv("DYNAMODB_ENDPOINT"), DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	tokenQueue, err := sqsmq.NewSQSTokenQueue(ctx, devMode, os.Getenv("SQS_ENDPOINT"), SQSTokenQueue)
	if err != nil {
		log.Fatalf("Failed to create SQS token queue: %v", err)
	}

	placebotEvents, err := redis.NewRedisPlacebotEvents(ctx, devMode, os.Getenv("REDIS_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to create redis event bus: %v", err)
	}

	jwtSecret, err := base64.StdEncoding.DecodeString(os.Getenv("JWT_SECRET"))
	if err != nil {
		log.Fatalf("Failed to decode base64 jwtSecret: %v", err)
	}

	operatorPassword := os.Getenv("OPERATOR_PASSWORD")
	if operatorPassword == "" {
		log.Fatal("OPERATOR_PASSWORD must be set")
	}

	clientOpts := wplace.Options{
		ProxyURL: os.Getenv("PROXY_URL"),
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	placebotApi, err := api.NewPlacebotAPI(placebotStore, tokenQueue, placebotEvents, clientOpts, jwtSecret, operatorPassword, shutdownCtx)
	if err != nil {
		log.Fatalf("Failed to create placebot api: %v", err)
	}

	if err := placebotApi.Service.LoadSettings(ctx); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	autostartTemplates(ctx, placebotApi.Service)

	mux := http.NewServeMux()
	placebotApi.RegisterRoutes(mux, os.Getenv("UI_ORIGIN"))

	hostPort := "8080"
	if p := os.Getenv("HOST_PORT"); p != "" {
		hostPort = p
	}
	log.Printf("Starting server on host port: %s\n", hostPort)
	log.Fatal(http.ListenAndServe(":"+hostPort, mux))
}

// autostartTemplates relaunches every template flagged for autostart.
// Queued ones start later on their own; anything else failing to start is
// logged and skipped so one broken template cannot block boot.
func autostartTemplates(ctx context.Context, svc *service.Service) {
	templates, err := svc.Store.ListTemplates(ctx)
	if err != nil {
		log.Printf("Failed to list templates for autostart: %v", err)
		return
	}

	for _, tpl := range templates {
		if !tpl.EnableAutostart {
			continue
		}
		err := svc.StartTemplate(ctx, tpl.Id)
		if err != nil && !errors.Is(err, service.ErrAccountsBusy) {
			log.Printf("Autostart of template %s failed: %v", tpl.Name, err)
		}
	}
}
