package main

import (
	"log"

	"github.com/kataras/iris/v12"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/logger"
	"github.com/jemishpatoliya/trozzi-sub004/internal/server"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init()

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	log.Printf("storefront server listening on %s", addr)
	if err := app.Run(iris.Addr(addr)); err != nil {
		log.Fatalf("failed to run storefront server: %v", err)
	}
}
