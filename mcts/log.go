package mcts

import (
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/kestrelchess/kestrel/config"
)

// logIteration is one simulation record for the optional search log.
type logIteration struct {
	Sim    uint64  `yaml:"sim"`
	Thread int     `yaml:"thread"`
	Value  float64 `yaml:"value"`
}

// searchLogger streams per-simulation YAML records to the configured log
// file through a dedicated writer goroutine, so simulation threads never
// block on disk.
type searchLogger struct {
	records chan logIteration
	done    chan struct{}
	file    *os.File
}

// newSearchLogger returns a disabled logger when no search-log-file is
// configured; record and close are then no-ops.
func newSearchLogger(cfg *config.Config) *searchLogger {
	path := cfg.GetString(config.ConfigSearchLogFile)
	if path == "" {
		return &searchLogger{}
	}
	f, err := os.Create(path)
	if err != nil {
		log.Err(err).Str("path", path).Msg("could not open search log; disabling")
		return &searchLogger{}
	}
	l := &searchLogger{
		records: make(chan logIteration, 1024),
		done:    make(chan struct{}),
		file:    f,
	}
	go l.writeLoop()
	return l
}

func (l *searchLogger) writeLoop() {
	defer close(l.done)
	enc := yaml.NewEncoder(l.file)
	defer enc.Close()
	for rec := range l.records {
		if err := enc.Encode(rec); err != nil {
			log.Err(err).Msg("search-log-write-failed")
			return
		}
	}
}

func (l *searchLogger) record(rec logIteration) {
	if l.records == nil {
		return
	}
	select {
	case l.records <- rec:
	default: // never stall a simulation thread on logging
	}
}

func (l *searchLogger) close() {
	if l.records == nil {
		return
	}
	close(l.records)
	<-l.done
	if err := l.file.Close(); err != nil {
		log.Err(err).Msg("search-log-close-failed")
	}
}
