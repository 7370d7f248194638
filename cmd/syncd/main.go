package main

import (
	"flag"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/api"
	"github.com/hbrandt/coincast/internal/dbg"
)

func main() {
	var (
		addr   = flag.String("addr", ":8787", "listen address")
		dbPath = flag.String("db", "coincast.db", "sqlite database file")
		dev    = flag.Bool("dev", false, "development logging")
	)
	flag.Parse()

	var log *zap.Logger
	if *dev {
		log = dbg.NewDevLogger()
	} else {
		log = dbg.NewProdLogger()
		gin.SetMode(gin.ReleaseMode)
	}
	defer log.Sync()

	svc, err := api.NewService(api.Config{Addr: *addr, DBPath: *dbPath}, log)
	if err != nil {
		log.Error("open database", zap.Error(err))
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		log.Error("serve", zap.Error(err))
		os.Exit(1)
	}
}
