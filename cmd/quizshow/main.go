package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	orchestration "github.com/koscakluka/ema-quiz/core"
	"github.com/koscakluka/ema-quiz/core/audio"
	"github.com/koscakluka/ema-quiz/core/audio/miniaudio"
	"github.com/koscakluka/ema-quiz/core/audio/portaudio"
	"github.com/koscakluka/ema-quiz/core/quiz"
	"github.com/koscakluka/ema-quiz/core/realtime"
	"github.com/koscakluka/ema-quiz/internal/config"
	"github.com/koscakluka/ema-quiz/internal/console"
	"github.com/koscakluka/ema-quiz/internal/telemetry"
)

const (
	levelBands       = 16
	levelInterval    = 50 * time.Millisecond
	portaudioBufSize = 1024
)

type flags struct {
	envFile       string
	relayURL      string
	model         string
	quizURL       string
	voice         string
	audioBackend  string
	recordingsDir string
	logFile       string
	vad           bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "quizshow",
		Short:        "Voice quiz show hosted by a realtime agent",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.envFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, f, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, f)
		},
	}

	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&f.relayURL, "relay-url", "", "realtime relay server, used instead of an API key")
	cmd.Flags().StringVar(&f.model, "model", "", "realtime model")
	cmd.Flags().StringVar(&f.quizURL, "quiz-url", "", "quiz content service base URL")
	cmd.Flags().StringVar(&f.voice, "voice", "", "agent voice")
	cmd.Flags().StringVar(&f.audioBackend, "audio", "", "audio backend: miniaudio, portaudio or none")
	cmd.Flags().StringVar(&f.recordingsDir, "recordings", "", "directory for decoded item audio (default: temp dir)")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "write logs to this file (default: quizshow.log in the temp dir)")
	cmd.Flags().BoolVar(&f.vad, "vad", false, "start with voice activity detection instead of push-to-talk")
	return cmd
}

// applyFlags overrides the environment with the flags that were set.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("relay-url") {
		cfg.RelayURL = f.relayURL
	}
	if set("model") {
		cfg.Model = f.model
	}
	if set("quiz-url") {
		cfg.QuizURL = f.quizURL
	}
	if set("voice") {
		cfg.Voice = f.voice
	}
	if set("audio") {
		cfg.AudioBackend = config.AudioBackend(f.audioBackend)
	}
}

func run(ctx context.Context, cfg config.Config, f flags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logPath := f.logFile
	if logPath == "" {
		logPath = filepath.Join(os.TempDir(), "quizshow.log")
	}
	logFile, err := tea.LogToFile(logPath, "quizshow")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	shutdownLogs, err := telemetry.Setup(logFile)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdownLogs(shutdownCtx)
	}()

	transportOpts := []realtime.ClientOption{}
	if cfg.APIKey != "" {
		transportOpts = append(transportOpts, realtime.WithAPIKey(cfg.APIKey))
	}
	if cfg.RelayURL != "" {
		transportOpts = append(transportOpts, realtime.WithRelayURL(cfg.RelayURL))
	}
	if cfg.Model != "" {
		transportOpts = append(transportOpts, realtime.WithModel(cfg.Model))
	}

	mode := orchestration.TurnModeManual
	if f.vad {
		mode = orchestration.TurnModeVAD
	}

	bridge := console.NewBridge()
	opts := []orchestration.OrchestratorOption{
		orchestration.WithTransport(realtime.NewClient(transportOpts...)),
		orchestration.WithQuizBackend(quiz.NewHTTPBackend(quiz.WithBaseURL(cfg.QuizURL))),
		orchestration.WithDecoder(audio.NewFileDecoder(f.recordingsDir)),
		orchestration.WithGate(orchestration.NewGate(cfg.PIN)),
		orchestration.WithVoice(cfg.Voice),
		orchestration.WithTurnMode(mode),
		orchestration.WithEventHandler(bridge),
	}

	audioOpts, closeAudio, err := openAudio(cfg.AudioBackend)
	if err != nil {
		return err
	}
	defer closeAudio()
	opts = append(opts, audioOpts...)

	o := orchestration.NewOrchestrator(opts...)
	defer o.Close()

	program := tea.NewProgram(console.New(ctx, o, bridge), tea.WithAltScreen(), tea.WithContext(ctx))

	visualizeCtx, stopVisualize := context.WithCancel(ctx)
	defer stopVisualize()
	go o.Visualize(visualizeCtx, levelInterval, levelBands, func(levels orchestration.Levels) {
		program.Send(console.LevelsMsg(levels))
	})

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func openAudio(backend config.AudioBackend) ([]orchestration.OrchestratorOption, func(), error) {
	switch backend {
	case config.AudioBackendMiniaudio:
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
		}
		return []orchestration.OrchestratorOption{
			orchestration.WithAudioCapture(client.Capture),
			orchestration.WithAudioPlayback(client.Playback),
		}, client.Close, nil

	case config.AudioBackendPortaudio:
		client, err := portaudio.NewClient(portaudioBufSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize portaudio: %w", err)
		}
		return []orchestration.OrchestratorOption{
			orchestration.WithAudioCapture(client.Capture),
			orchestration.WithAudioPlayback(client.Playback),
		}, client.Close, nil

	default:
		return nil, func() {}, nil
	}
}
