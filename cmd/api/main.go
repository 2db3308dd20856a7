package main

import (
	"log"
	"os"
	"rankbacktest/cmd"
)

func main() {
	apiHandler, err := cmd.InitializeDependencies()
	if err != nil {
		log.Fatal(err)
	}
	defer cmd.CloseDependencies(apiHandler)

	apiHandler.Logger.Infow("starting api", "commitHash", os.Getenv("commit_hash"))
	err = apiHandler.StartApi(cmd.Port(3009))
	if err != nil {
		apiHandler.Logger.Fatal(err)
	}
}
