package main

import (
	"flag"
	"log"
	"os"
)

func main() {
	configFile := flag.String("config", "./config.yml", "path to the yaml configuration file")
	envFile := flag.String("env", "./config.env", "path to the optional dotenv file")
	flag.Parse()

	err := run(*configFile, *envFile)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	app, err := NewApp(configFile, envFile)
	if err != nil {
		return err
	}
	return app.Run()
}
