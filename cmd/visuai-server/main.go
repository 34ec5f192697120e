// @title VisuAI Server API
// @version 1.0
// @description Voice-query accessibility server with device transport and control API
// @host localhost:8080
// @BasePath /api
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [BOOT] starting visuai-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "visuai-server failed: %v\n", err)
		os.Exit(1)
	}
}
