package main

import (
	"net/http"
	"os"

	"docsync/internal/app/server/api"
	"docsync/internal/app/server/config"
	"docsync/internal/infrastructure/storage/postgres"
	"docsync/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.New(conf.Env)

	storage, err := postgres.New(conf)
	if err != nil {
		log.Error("Ошибка инициализации хранилища", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	mux := api.New(storage, log)

	log.Info("Сервер синхронизации запущен", "address", conf.Server.RunAddress)
	if err := http.ListenAndServe(conf.Server.RunAddress, mux); err != nil {
		log.Error("Ошибка сервера", "error", err)
		os.Exit(1)
	}
}
