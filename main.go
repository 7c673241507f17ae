package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"
)

const LogFile = "salus.log"

var Version string

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(log.InfoLevel)

	logFile, err := os.OpenFile(LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to open log file:", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
}

func main() {
	setupLogging()
	if _, exists := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); exists {
		log.Println("Starting in Lambda mode")
		lambda.Start(Handler)
		return
	}

	log.Debug("Starting in CLI mode")
	cli := &Cli{}
	if err := cli.Execute(); err != nil {
		if errors.Is(err, ErrScanFailed) {
			log.Error(err)
			os.Exit(1)
		}
		log.Fatalf("Error executing command: %v", err)
	}
}
