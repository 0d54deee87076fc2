package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func setupLogging(ctx context.Context) context.Context {
	var output io.Writer

	output = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    true,
		TimeFormat: time.RFC3339,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
	}

	logger := zerolog.New(output).Level(zerolog.Level(zerolog.DebugLevel)).With().Caller().Timestamp().Logger()

	ctx = logger.WithContext(ctx)

	zerolog.DefaultContextLogger = &logger
	log.SetOutput(logger)

	return ctx
}
