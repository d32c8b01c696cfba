package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/fpang/panelforge/internal/assets"
	"github.com/fpang/panelforge/internal/auth"
	"github.com/fpang/panelforge/internal/config"
	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/jobs"
	"github.com/fpang/panelforge/internal/jsonutil"
	"github.com/fpang/panelforge/internal/logging"
	"github.com/fpang/panelforge/internal/orchestrator"
	"github.com/fpang/panelforge/internal/progress"
	"github.com/fpang/panelforge/internal/storage"
)

// CLI flags
var (
	planFlag        string
	dryRunFlag      bool
	placeholderFlag bool
	listenFlag      string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "panelforge",
	Short: "Panel asset generation orchestrator",
	Long: `Panelforge resolves a story plan into per-panel image, narration, and music
assets. Every panel always resolves: exhausted or quota-blocked generations
degrade to recorded placeholder assets instead of failing the job.

Examples:
  panelforge run --plan plan.json
  panelforge run --plan plan.json --dry-run
  panelforge run --plan plan.json --listen :8080
  panelforge run --plan plan.json --placeholder-only`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate all assets for a panel plan",
	Run:   runJob,
}

func init() {
	runCmd.Flags().StringVarP(&planFlag, "plan", "p", "", "Path to the panel plan JSON file (required)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Validate and print the plan without generating anything")
	runCmd.Flags().BoolVar(&placeholderFlag, "placeholder-only", false, "Skip vendor calls and resolve every asset to a placeholder")
	runCmd.Flags().StringVar(&listenFlag, "listen", "", "Serve progress over WebSocket at this address (e.g. :8080)")
	runCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// planFile is the on-disk input format: an optional job ID plus the panel
// descriptors produced by the story planner.
type planFile struct {
	JobID  string                         `json:"jobId,omitempty"`
	Panels []orchestrator.PanelDescriptor `json:"panels"`
}

// runJob is the main execution logic called by Cobra.
func runJob(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	plan := loadPlan(planFlag)
	if err := orchestrator.ValidatePanels(plan.Panels); err != nil {
		log.Fatal().Err(err).Str("plan", planFlag).Msg("Invalid panel plan")
	}

	jobID := plan.JobID
	if jobID == "" {
		jobID = jobs.GenerateID("story-")
	}

	if dryRunFlag {
		printPlan(jobID, plan)
		return
	}

	// House style keeps the panels of one story visually and vocally
	// consistent regardless of how the plan was written.
	for i := range plan.Panels {
		plan.Panels[i].ImagePrompt = assets.ApplyImageStyle(plan.Panels[i].ImagePrompt)
		plan.Panels[i].SpeechText = assets.ApplyNarrationStyle(plan.Panels[i].SpeechText)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := initStore(ctx, cfg)
	generators := initGenerators(ctx, &cfg)

	sinks := progress.Multi{progress.LogSink{}}
	var hub *progress.Hub
	registry := orchestrator.NewRegistry(0)
	defer registry.Close()

	if listenFlag != "" {
		hub = progress.NewHub()
		defer hub.Close()
		sinks = append(sinks, hub)
		startServer(listenFlag, hub, registry)
	}

	async := progress.NewAsync(sinks, 256)

	orch := orchestrator.New(cfg.Pipeline.Orchestrator(), orchestrator.Deps{
		Generators:     generators,
		Limiter:        cfg.Pipeline.Limiter(),
		Store:          store,
		Sink:           async,
		Registry:       registry,
		StaticMusicURL: cfg.StaticMusicURL,
	})

	logStartup(cfg, len(plan.Panels), initStart)

	state, err := orch.RunJob(ctx, jobID, plan.Panels)
	if err != nil {
		log.Fatal().Err(err).Msg("Job rejected")
	}

	async.Close()
	printResult(state)

	if listenFlag != "" {
		log.Info().Str("addr", listenFlag).Msg("Job finished; serving results until interrupted")
		<-ctx.Done()
	}
}

// loadPlan reads and parses the panel plan file. Plans pasted straight from
// an LLM story planner keep their markdown fences and surrounding prose, so
// parsing is fence-tolerant.
func loadPlan(path string) planFile {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("plan", path).Msg("Failed to read panel plan")
	}
	plan, err := jsonutil.ParseJSON[planFile](string(data))
	if err != nil {
		log.Fatal().Err(err).Str("plan", path).Msg("Failed to parse panel plan")
	}
	return plan
}

// printPlan summarizes the validated plan for a dry run.
func printPlan(jobID string, plan planFile) {
	log.Info().
		Str("job", jobID).
		Int("panels", len(plan.Panels)).
		Msg("Plan is valid")
	for _, p := range plan.Panels {
		log.Info().
			Int("panel", p.PanelNumber).
			Int("image_prompt_length", len(p.ImagePrompt)).
			Int("speech_text_length", len(p.SpeechText)).
			Bool("has_music_ref", p.MusicRef != "").
			Msg("Panel")
	}
}

// initStore selects S3 when a bucket is configured and falls back to the
// in-memory store otherwise.
func initStore(ctx context.Context, cfg config.AppConfig) storage.Store {
	if cfg.Bucket == "" {
		log.Warn().Msg("No bucket configured; asset URLs will not outlive this process")
		return storage.NewMemoryStore()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	return storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.PresignExpiry)
}

// initGenerators builds the per-kind vendor adapters. With --placeholder-only
// it returns none, so every asset resolves through the fallback producer.
func initGenerators(ctx context.Context, cfg *config.AppConfig) map[generate.Kind]generate.Generator {
	if placeholderFlag {
		log.Info().Msg("Placeholder-only mode: skipping vendor clients")
		return nil
	}

	if cfg.GeminiAPIKey == "" {
		// Local sources first (env, GPG credentials), then SSM for deployed
		// environments.
		if key, err := auth.GetAPIKey(); err == nil {
			cfg.GeminiAPIKey = key
		} else {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load AWS config for SSM")
			}
			if err := cfg.LoadGeminiKey(ctx, ssm.NewFromConfig(awsCfg)); err != nil {
				log.Fatal().Err(err).Msg("Failed to resolve Gemini API key")
			}
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	if err := auth.ValidateAPIKey(ctx, client); err != nil {
		handleValidationError(err)
	}

	generators := map[generate.Kind]generate.Generator{
		generate.KindImage:  generate.NewGeminiImageGenerator(client, cfg.ImageModel),
		generate.KindSpeech: generate.NewGeminiSpeechGenerator(client, cfg.SpeechModel, cfg.SpeechVoice),
	}

	if cfg.LyriaConfigured() {
		generators[generate.KindMusic] = generate.NewLyriaMusicGenerator(
			cfg.LyriaProject, cfg.LyriaRegion, cfg.LyriaAccessToken, cfg.MusicModel)
	} else {
		log.Warn().Msg("Lyria not configured; panels with a music reference will use fallback music")
	}

	return generators
}

// handleValidationError exits with a hint matched to why the key failed.
func handleValidationError(err error) {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Class {
		case generate.ClassQuota:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		case generate.ClassTransient:
			log.Fatal().Err(err).Msg("Gemini API unreachable. Please check your internet connection")
		default:
			log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
		}
	}
	log.Fatal().Err(err).Msg("Unexpected error during API key validation")
}

// startServer exposes the progress WebSocket, a health check, and lookups of
// running or recently completed jobs.
func startServer(addr string, hub *progress.Hub, registry *orchestrator.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/jobs/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/jobs/")
		state, ok := registry.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state); err != nil {
			log.Warn().Err(err).Str("job", id).Msg("Failed to encode job state")
		}
	})

	go func() {
		log.Info().Str("addr", addr).Msg("Progress server listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Msg("Progress server stopped")
		}
	}()
}

// logStartup emits the single structured startup summary.
func logStartup(cfg config.AppConfig, panels int, initStart time.Time) {
	sl := logging.NewStartupLogger("panelforge").
		Model("image", logging.EnvOrDefault("PANELFORGE_IMAGE_MODEL", generate.DefaultImageModel)).
		Model("speech", logging.EnvOrDefault("PANELFORGE_SPEECH_MODEL", generate.DefaultSpeechModel)).
		Feature("websocket", listenFlag != "").
		Feature("placeholderOnly", placeholderFlag).
		Feature("s3", cfg.Bucket != "").
		Config("panels", strconv.Itoa(panels)).
		Config("stagger", cfg.Pipeline.Stagger.String()).
		Config("assetTimeout", cfg.Pipeline.AssetTimeout.String()).
		Config("maxRetries", strconv.Itoa(cfg.Pipeline.MaxRetries)).
		InitDuration(time.Since(initStart))

	if cfg.Bucket != "" {
		sl = sl.Bucket("assets", cfg.Bucket)
	}
	if cfg.GeminiAPIKey == "" && !placeholderFlag {
		sl = sl.SSMParam("geminiKey", cfg.SSMAPIKeyParam)
	}
	if cfg.LyriaConfigured() {
		sl = sl.Model("music", logging.EnvOrDefault("PANELFORGE_MUSIC_MODEL", generate.DefaultMusicModel))
	}
	sl.Log()
}

// printResult writes the final job state to stdout as indented JSON.
func printResult(state *orchestrator.JobState) {
	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal job state")
		return
	}
	fmt.Println(string(out))
}
