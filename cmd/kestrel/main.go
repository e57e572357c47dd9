package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kestrelchess/kestrel/config"
	"github.com/kestrelchess/kestrel/mcts"
	"github.com/kestrelchess/kestrel/nneval"
	"github.com/kestrelchess/kestrel/shell"
	"github.com/kestrelchess/kestrel/uci"
)

var profilePath = flag.String("profilepath", "", "path for profile")

func main() {
	flag.Parse()

	cfg := config.New()
	if err := cfg.Load(); err != nil {
		log.Fatal().Err(err).Msg("bad config file")
	}

	level, err := zerolog.ParseLevel(cfg.GetString(config.ConfigLogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	// UCI owns stdout; all logging goes to stderr.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *profilePath != "" {
		f, err := os.Create(*profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("")
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if flag.Arg(0) == "shell" {
		evaluator, err := nneval.NewEvaluator(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load network")
		}
		defer evaluator.Close()
		sc := shell.NewController(cfg, evaluator)
		sc.Loop()
		return
	}

	sh := uci.NewShell(cfg, func(c *config.Config) (mcts.Evaluator, error) {
		return nneval.NewEvaluator(c)
	}, os.Stdin, os.Stdout)
	if err := sh.Run(); err != nil {
		log.Fatal().Err(err).Msg("engine exited with error")
	}
}
