package main

import (
	"croissants/internal/api"

	"github.com/sirupsen/logrus"
)

// @title Croissants API
// @version 1.0
// @description Форма заявок на доставку круассанов поверх удалённого API
// @BasePath /
func main() {
	logrus.Info("App start")
	if err := api.StartServer(); err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("App terminated")
}
