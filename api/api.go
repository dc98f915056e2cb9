package api

import (
	"context"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "tech-centre-api",
			JSONEncoder:  sonic.Marshal,
			JSONDecoder:  sonic.Unmarshal,
			BodyLimit:    1 * 1024 * 1024,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}),
		listenAddress: listenAddress,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run listens until ctx is cancelled, then drains in-flight requests
func (s *APIServer) Run(ctx context.Context) error {
	log.Println("Starting API Server")
	log.Printf("Listening on %s", s.listenAddress)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.listenAddress)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutting down API Server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}
