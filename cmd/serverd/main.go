// Command serverd is the production entrypoint: it loads configuration,
// selects providers, and runs the TCP acceptor until a process-level
// interrupt signal arrives.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/lokutor-ai/hearth/pkg/accept"
	"github.com/lokutor-ai/hearth/pkg/agent"
	"github.com/lokutor-ai/hearth/pkg/agentbrain"
	"github.com/lokutor-ai/hearth/pkg/config"
	"github.com/lokutor-ai/hearth/pkg/logging"
	"github.com/lokutor-ai/hearth/pkg/orchestrator"
	llmProvider "github.com/lokutor-ai/hearth/pkg/providers/llm"
	sttProvider "github.com/lokutor-ai/hearth/pkg/providers/stt"
	ttsProvider "github.com/lokutor-ai/hearth/pkg/providers/tts"
	"github.com/lokutor-ai/hearth/pkg/robot"
	"github.com/lokutor-ai/hearth/pkg/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	configFile := pflag.StringP("config", "c", "", "YAML configuration file path.")
	host := pflag.StringP("host", "H", "", "Override server.host.")
	port := pflag.IntP("port", "p", 0, "Override server.port.")
	device := pflag.StringP("device", "d", "", "Override stt.device (also settable via DEVICE).")
	pflag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("serverd: config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *device != "" {
		cfg.STT.Device = *device
	}

	logger := logging.New(cfg.LogLevel)

	stt := selectSTT(logger)
	robotLLM, agentLLM := selectLLM(cfg, logger)
	tts := selectTTS(logger)

	robotCommands := []string{"wave", "sit", "spin", "forward", "backward", "left", "right", "stop"}
	robotAdapter := robot.New(robotLLM, robotCommands, logger)

	assistantName := cfg.AssistantName
	if assistantName == "" {
		assistantName = "Nova"
	}
	brain := agentbrain.New(agentbrain.Persona{AssistantName: assistantName}, cfg.WeatherAPIKey)
	agentAdapter := agent.New(agentLLM, tts, brain, cfg.TTS.Voice, orchestrator.Language(cfg.STT.Language), logger)

	sessCfg := session.Config{
		QueueCapacity:   cfg.Queue.STTMaxSize,
		MaxAudioSeconds: cfg.Audio.MaxSeconds,
		StatusInterval:  10 * time.Second,
		Language:        orchestrator.Language(cfg.STT.Language),
	}
	readTimeout := time.Duration(cfg.Connection.SocketTimeout) * time.Second
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	factory := accept.DefaultSessionFactory(stt, robotAdapter, agentAdapter, sessCfg, readTimeout, 120, logger)

	hostPort := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	acceptor, err := accept.New(hostPort, factory, logger)
	if err != nil {
		log.Fatalf("serverd: %v", err)
	}
	defer acceptor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- acceptor.Serve(ctx) }()

	fmt.Printf("hearth server listening on %s (mode=%s)\n", hostPort, cfg.Server.InitialMode)
	fmt.Println("Press Ctrl+C to exit")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		fmt.Printf("\nShutting down...\n")
	case err := <-serveErr:
		fmt.Printf("\naccept loop exited: %v\n", err)
	}

	cancel()
	acceptor.Close()

	snap := acceptor.Counters().Snapshot()
	fmt.Printf("connections accepted=%d closed=%d turns processed=%d rejected=%d accept errors=%d\n",
		snap.ConnectionsAccepted, snap.ConnectionsClosed, snap.TurnsProcessed, snap.TurnsRejected, snap.AcceptErrors)
}

// selectSTT mirrors the teacher's env-var provider-selection switch
// (STT_PROVIDER, log.Fatal on a missing key) rather than inventing a new
// configuration surface for provider credentials.
func selectSTT(logger orchestrator.Logger) orchestrator.STTProvider {
	name := os.Getenv("STT_PROVIDER")
	if name == "" {
		name = "groq"
	}
	switch name {
	case "openai":
		key := mustEnv("OPENAI_API_KEY", "openai STT")
		return sttProvider.NewOpenAISTT(key, "whisper-1")
	case "deepgram":
		key := mustEnv("DEEPGRAM_API_KEY", "deepgram STT")
		return sttProvider.NewDeepgramSTT(key)
	case "assemblyai":
		key := mustEnv("ASSEMBLYAI_API_KEY", "assemblyai STT")
		return sttProvider.NewAssemblyAISTT(key)
	case "groq":
		fallthrough
	default:
		key := mustEnv("GROQ_API_KEY", "groq STT")
		model := os.Getenv("GROQ_STT_MODEL")
		if model == "" {
			model = "whisper-large-v3-turbo"
		}
		return sttProvider.NewGroqSTT(key, model)
	}
}

// selectLLM builds the robot-mode and agent-mode LLM clients. Agent mode
// always prefers the local llm.base_url/model from Config (Ollama, spec.md
// §4.8 step 3's streaming/truncation-retry/fallback contract); robot mode
// uses LLM_PROVIDER the way the teacher's main.go does, since servo command
// decisions are a short JSON-only completion any provider can serve.
func selectLLM(cfg config.Config, logger orchestrator.Logger) (robotLLM, agentLLM orchestrator.LLMProvider) {
	agentLLM = llmProvider.NewOllamaLLM(cfg.LLM.BaseURL, cfg.LLM.Model)

	name := os.Getenv("LLM_PROVIDER")
	if name == "" {
		return agentLLM, agentLLM
	}
	switch name {
	case "openai":
		key := mustEnv("OPENAI_API_KEY", "openai LLM")
		robotLLM = llmProvider.NewOpenAILLM(key, "gpt-4o")
	case "anthropic":
		key := mustEnv("ANTHROPIC_API_KEY", "anthropic LLM")
		robotLLM = llmProvider.NewAnthropicLLM(key, "claude-3-5-sonnet-20241022")
	case "google":
		key := mustEnv("GOOGLE_API_KEY", "google LLM")
		robotLLM = llmProvider.NewGoogleLLM(key, "gemini-1.5-flash")
	case "groq":
		key := mustEnv("GROQ_API_KEY", "groq LLM")
		robotLLM = llmProvider.NewGroqLLM(key, "llama-3.3-70b-versatile")
	default:
		robotLLM = agentLLM
	}
	return robotLLM, agentLLM
}

func selectTTS(logger orchestrator.Logger) orchestrator.TTSProvider {
	key := mustEnv("LOKUTOR_API_KEY", "Lokutor TTS")
	return ttsProvider.NewLokutorTTS(key)
}

func mustEnv(name, purpose string) string {
	v := os.Getenv(name)
	if v == "" {
		log.Fatalf("serverd: %s must be set for %s", name, purpose)
	}
	return v
}
