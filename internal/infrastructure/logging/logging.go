// Package logging builds the arbor logger from configuration.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/config"
)

// New returns a logger with the configured writers and level.
// With no usable writer it falls back to the console.
func New(cfg config.LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()
	hasWriter := false

	for _, output := range cfg.Output {
		switch output {
		case "console", "stdout":
			logger = logger.WithConsoleWriter(consoleWriter())
			hasWriter = true
		case "file":
			path := cfg.File
			if path == "" {
				path = filepath.Join("logs", "pdfrag.log")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         path,
				TimeFormat:       "15:04:05",
				MaxSize:          100 * 1024 * 1024,
				MaxBackups:       3,
				OutputType:       models.OutputFormatLogfmt,
				DisableTimestamp: false,
			})
			hasWriter = true
		}
	}
	if !hasWriter {
		logger = logger.WithConsoleWriter(consoleWriter())
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}

func consoleWriter() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		OutputType:       models.OutputFormatLogfmt,
		DisableTimestamp: false,
	}
}
