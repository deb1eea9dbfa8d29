// Command agentcore exercises the two engines from the command line:
//
//	agentcore demo                        # run the built-in lifecycle demo
//	agentcore demo --config config.yaml   # with explicit configuration
//	agentcore validate --file tree.yaml   # parse a declarative definition
//	agentcore version                     # show version information
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore"
	"github.com/BaSui01/agentcore/behaviortree"
	"github.com/BaSui01/agentcore/config"
	"github.com/BaSui01/agentcore/declarative"
	"github.com/BaSui01/agentcore/registry"
	"github.com/BaSui01/agentcore/statemachine"
)

var (
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		runDemo(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// demoContext is the shared blackboard for the demo agent.
type demoContext struct {
	TasksDone int
	Ready     bool
}

func runDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	ticks := fs.Int("ticks", 3, "Number of tree executions")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	rt, err := agentcore.NewRuntime(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build runtime: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer rt.Close(ctx)

	logger := rt.Logger
	logger.Info("starting demo", zap.String("version", agentcore.Version))

	data := &demoContext{Ready: true}
	machine, err := statemachine.NewBuilder("demo-agent",
		statemachine.WithLogger[*demoContext](logger),
		statemachine.WithStore[*demoContext](rt.Store),
		statemachine.WithCollector[*demoContext](rt.Collector),
	).
		State("Idle").
		State("Working", statemachine.WithOnEntry(func(ctx context.Context, data *demoContext) error {
			data.TasksDone++
			return nil
		})).
		State("Done").
		Initial("Idle").
		Transition("Idle", "Working", statemachine.WithGuard(func(ctx context.Context, data *demoContext) (bool, error) {
			return data.Ready, nil
		})).
		Transition("Working", "Done").
		Transition("Done", "Idle").
		Build(ctx, data)
	if err != nil {
		logger.Fatal("failed to build machine", zap.Error(err))
	}
	defer machine.Stop()

	agents := registry.New[*demoContext](logger)
	if err := agents.Register("demo-agent-1", machine); err != nil {
		logger.Fatal("failed to register agent", zap.Error(err))
	}

	tree, err := behaviortree.NewTree("demo-lifecycle",
		behaviortree.NewSequence("lifecycle",
			behaviortree.NewStateMachineCondition[*demoContext]("is-idle", machine, "Idle"),
			behaviortree.NewStateMachineAction[*demoContext]("start-work", machine, "Working", logger),
			behaviortree.NewStateMachineAction[*demoContext]("finish-work", machine, "Done", logger),
			behaviortree.NewStateMachineAction[*demoContext]("rest", machine, "Idle", logger),
		),
	)
	if err != nil {
		logger.Fatal("failed to build tree", zap.Error(err))
	}

	executor := behaviortree.NewExecutor[*demoContext](logger, rt.Collector)
	for i := 0; i < *ticks; i++ {
		result := executor.Execute(ctx, tree, data)
		fmt.Printf("tick %d: status=%s duration=%s\n", i+1, result.Status, result.Duration)
	}

	fmt.Printf("tasks done: %d\n", data.TasksDone)
	fmt.Printf("idle agents: %v\n", agents.AgentsInState("Idle"))
	for _, entry := range machine.History() {
		fmt.Printf("  %s -> %s at %s\n", entry.From, entry.To, entry.Timestamp.Format("15:04:05.000"))
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("file", "", "Path to a tree or machine definition (.yaml/.json)")
	kind := fs.String("kind", "tree", "Definition kind: tree or machine")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "validate: --file is required")
		os.Exit(1)
	}

	switch *kind {
	case "tree":
		def, err := declarative.LoadTreeFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid tree definition: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("OK: tree %q\n", def.Name)
	case "machine":
		def, err := declarative.LoadMachineFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid machine definition: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("OK: machine %q (%d states)\n", def.Name, len(def.States))
	default:
		fmt.Fprintf(os.Stderr, "Unknown kind: %s\n", *kind)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("agentcore %s\n", agentcore.Version)
	fmt.Printf("  Build Time: %s\n", buildTime)
	fmt.Printf("  Git Commit: %s\n", gitCommit)
}

func printUsage() {
	fmt.Println(`agentcore - behavior tree and state machine engines for agents

Usage:
  agentcore demo [--config FILE] [--ticks N]   Run the built-in lifecycle demo
  agentcore validate --file FILE [--kind K]    Parse a declarative definition
  agentcore version                            Show version information
  agentcore help                               Show this help`)
}
