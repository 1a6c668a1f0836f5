package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"

	"github.com/pragnyanramtha/autopilot-go/internal/actuator"
	"github.com/pragnyanramtha/autopilot-go/internal/bus"
	"github.com/pragnyanramtha/autopilot-go/internal/capability/mock"
	"github.com/pragnyanramtha/autopilot-go/internal/executor"
	"github.com/pragnyanramtha/autopilot-go/internal/hostcap"
	"github.com/pragnyanramtha/autopilot-go/internal/llm"
	"github.com/pragnyanramtha/autopilot-go/internal/llmgen"
	"github.com/pragnyanramtha/autopilot-go/internal/planner"
	"github.com/pragnyanramtha/autopilot-go/internal/protocol"
	"github.com/pragnyanramtha/autopilot-go/internal/registry"
	"github.com/pragnyanramtha/autopilot-go/internal/tasklog"
	"github.com/pragnyanramtha/autopilot-go/internal/tools"
	"github.com/pragnyanramtha/autopilot-go/internal/verifier"
)

const defaultStatusTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load(".env")

	homeDir, _ := os.UserHomeDir()
	cacheDir := filepath.Join(homeDir, ".cache", "autopilotd")
	_ = os.MkdirAll(cacheDir, 0o755)

	if f, err := os.OpenFile(filepath.Join(cacheDir, "debug.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	_ = tools.EnsureWorkspace()

	b, err := bus.New(filepath.Join(cacheDir, "bus"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bus init error: %v\n", err)
		os.Exit(1)
	}

	// The driving surface (keyboard, pointer, capture, clipboard) stays
	// mocked: real input/capture devices are out of scope for this build.
	// The host surface (window/app/power, files) is genuinely backed.
	surface := mock.NewSurface()
	reg := registry.New()
	reg.SetKeyboard(surface)
	reg.SetPointer(surface)
	reg.SetScreenCapture(surface)
	reg.SetClipboard(surface)
	reg.SetSystem(hostcap.System{})
	reg.SetFiles(hostcap.Files{})

	// TOOL backs llmgen's program generation for the Planner; VISION
	// answers verify_screen/verify_element/find_element/verify_text calls.
	toolClient := llm.NewTier("TOOL")
	visionClient := llm.NewTier("VISION")

	v := verifier.New(visionClient, surface)
	reg.SetVerifier(v)

	exec := executor.New(reg, executor.WithPointer(surface))

	gen := llmgen.New(toolClient)
	plan := planner.New(gen, b, reg, protocol.ValidateOptions{})

	logs := tasklog.NewRegistry(filepath.Join(cacheDir, "programs"))
	act := actuator.New(b, exec, logs)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		if err := act.Run(ctx, 200*time.Millisecond); err != nil && ctx.Err() == nil {
			log.Printf("[MAIN] actuator stopped: %v", err)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] != "" {
		input := strings.Join(os.Args[1:], " ")
		runOnce(ctx, plan, input)
		cancel()
		return
	}
	runREPL(ctx, plan, cacheDir, cancel)
}

func runOnce(ctx context.Context, plan *planner.Planner, input string) {
	result, err := plan.Submit(ctx, input, defaultStatusTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
}

func runREPL(ctx context.Context, plan *planner.Planner, cacheDir string, cancel context.CancelFunc) {
	fmt.Println("\033[1m\033[36mautopilotd\033[0m — GUI automation shell  \033[2m(exit/Ctrl-D to quit)\033[0m")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36m>\033[0m ",
		HistoryFile:       filepath.Join(cacheDir, "history"),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init error: %v\n", err)
		cancel()
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			cancel()
			return
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			cancel()
			return
		}

		result, err := plan.Submit(ctx, input, defaultStatusTimeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printResult(result)

		if ctx.Err() != nil {
			return
		}
	}
}

func printResult(result any) {
	fmt.Printf("\n\033[1m\033[32mresult\033[0m %+v\n\n", result)
}
