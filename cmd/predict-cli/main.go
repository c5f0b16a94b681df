package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/config"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/interactive"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/serving/client"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/serving/predictor"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/storage"
	"github.com/joho/godotenv"
)

// backend answers predictions either in-process or through a running
// prediction service.
type backend interface {
	Predict(ctx context.Context, rec models.PatientRecord) (models.PredictionResponse, error)
}

type localBackend struct {
	engine *predictor.Predictor
}

func (b localBackend) Predict(_ context.Context, rec models.PatientRecord) (models.PredictionResponse, error) {
	return b.engine.Predict(rec)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to read .env file: %v\n", err)
	}
	if os.Getenv("LOG_FORMAT") == "" {
		os.Setenv("LOG_FORMAT", "text")
	}
	logger.Init()
	cfg := config.Load()
	ctx := context.Background()

	var (
		predict backend
		schema  *pipeline.Schema
	)
	if cfg.PredictURL != "" {
		remote := client.New(cfg.PredictURL, cfg.PredictTimeout)
		s, err := remote.Schema(ctx)
		if err != nil {
			logger.Log.WithError(err).WithField("url", cfg.PredictURL).Fatal("Failed to reach prediction service")
		}
		predict, schema = remote, s
	} else {
		engine, err := predictor.Load(storage.NewModelStore(cfg.ModelDir))
		if err != nil {
			logger.Log.WithError(err).WithField("model_dir", cfg.ModelDir).Fatal("Failed to load models")
		}
		predict, schema = localBackend{engine: engine}, engine.Schema()
	}

	fields := interactive.SelectFields(schema.Preprocessor)
	var numeric, categorical []string
	for _, f := range fields {
		if f.Numeric {
			numeric = append(numeric, f.Name)
		} else {
			categorical = append(categorical, f.Name)
		}
	}
	fmt.Println("Models loaded. Ready for input.")
	fmt.Printf("Numeric features used: [%s]\n", strings.Join(numeric, ", "))
	fmt.Printf("Categorical features used: [%s]\n\n", strings.Join(categorical, ", "))

	for {
		form, ok := run(interactive.NewForm("Provide your details", fields))
		if !ok {
			return
		}

		resp, err := predict.Predict(ctx, form.Values())
		if err != nil {
			fmt.Println(interactive.ErrorStyle.Render("Prediction failed: " + err.Error()))
		} else {
			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				logger.Log.WithError(err).Fatal("Failed to encode predictions")
			}
			fmt.Println(interactive.TitleStyle.Render("PREDICTED DAILY REQUIREMENTS"))
			fmt.Println(string(out))
		}

		again, ok := run(interactive.NewForm("", []interactive.Field{interactive.ContinueField()}))
		if !ok || !interactive.IsYes(again.Values()[interactive.ContinueField().Name]) {
			return
		}
	}
}

// run shows form until it completes. ok is false when the user cancels.
func run(form interactive.Form) (interactive.Form, bool) {
	final, err := tea.NewProgram(form).Run()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	result, isForm := final.(interactive.Form)
	if !isForm || result.Aborted() {
		return result, false
	}
	return result, true
}
