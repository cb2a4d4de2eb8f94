// Command forecast runs a single prediction from a JSON request and prints
// the result. With -restore it first loads the latest trained models and
// calibrations from the database configured in the environment.
//
// The request names the sport and carries the engine request for it:
//
//	{"sport": "football", "request": {"inputs": {...}, "explain": true}}
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"matchcast/engine/internal/config"
	"matchcast/engine/internal/engine"
	"matchcast/engine/internal/models"
	"matchcast/engine/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	Sport   models.Sport    `json:"sport"`
	Request json.RawMessage `json:"request"`
}

type options struct {
	input      string
	tuningPath string
	explain    bool
	restore    bool
	version    string
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var opts options
	flag.StringVar(&opts.input, "input", "-", "request file, - for stdin")
	flag.StringVar(&opts.tuningPath, "tuning", "", "model tuning YAML (defaults when empty)")
	flag.BoolVar(&opts.explain, "explain", false, "attach learned-model explanations to football predictions")
	flag.BoolVar(&opts.restore, "restore", false, "load trained models and calibrations from the database")
	flag.StringVar(&opts.version, "version", "cli", "model version reported with the prediction")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open request")
		}
		defer f.Close()
		in = f
	}

	tuning, err := config.LoadTuning(opts.tuningPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load model tuning")
	}
	eng, err := engine.New(tuning, opts.version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}

	if opts.restore {
		if err := restore(context.Background(), eng); err != nil {
			log.Fatal().Err(err).Msg("Failed to restore engine state")
		}
	}

	if err := run(eng, in, os.Stdout, opts.explain); err != nil {
		log.Fatal().Err(err).Msg("Prediction failed")
	}
}

// restore loads the stored engine state from the configured database
func restore(ctx context.Context, eng *engine.Engine) error {
	cfg := config.MustLoad()
	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return eng.LoadState(ctx, db.Models)
}

// run decodes one request, predicts and writes indented JSON to out
func run(eng *engine.Engine, in io.Reader, out io.Writer, explain bool) error {
	var env envelope
	if err := json.NewDecoder(in).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	if len(env.Request) == 0 {
		return fmt.Errorf("request is required")
	}

	var result any
	switch env.Sport {
	case models.SportFootball:
		var req engine.FootballRequest
		if err := strictUnmarshal(env.Request, &req); err != nil {
			return err
		}
		req.Explain = req.Explain || explain
		resp, err := eng.PredictFootball(&req)
		if err != nil {
			return err
		}
		result = resp
	case models.SportBasketball:
		var req engine.BasketballRequest
		if err := strictUnmarshal(env.Request, &req); err != nil {
			return err
		}
		resp, err := eng.PredictBasketball(&req)
		if err != nil {
			return err
		}
		result = resp
	case models.SportTennis:
		var req engine.TennisRequest
		if err := strictUnmarshal(env.Request, &req); err != nil {
			return err
		}
		resp, err := eng.PredictTennis(&req)
		if err != nil {
			return err
		}
		result = resp
	default:
		return fmt.Errorf("unknown sport %q", env.Sport)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func strictUnmarshal(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}
