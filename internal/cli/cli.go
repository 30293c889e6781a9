package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	internal_http "github.com/maz279/getit-project-v2-sub015/internal/http"
	"github.com/maz279/getit-project-v2-sub015/internal/log"
	internal_storage "github.com/maz279/getit-project-v2-sub015/internal/storage"
	"github.com/maz279/getit-project-v2-sub015/pkg/actions"
	"github.com/maz279/getit-project-v2-sub015/pkg/catalog"
	"github.com/maz279/getit-project-v2-sub015/pkg/engine"
	"github.com/maz279/getit-project-v2-sub015/pkg/event"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
	"github.com/maz279/getit-project-v2-sub015/pkg/storage"
)

func SetupCLI(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("db", "", "Postgres connection string (optional)")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL (optional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			port, _ := cmd.Flags().GetString("port")
			store := initStore(cmd)
			defer store.Close()
			eng := buildEngine(cmd, store)
			defer eng.Stop()
			if err := internal_http.StartServer(port, eng); err != nil {
				log.GetLogger().Errorf("Server stopped: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("port", "8080", "HTTP port")

	startCmd := &cobra.Command{
		Use:   "start [order-id]",
		Short: "Start a workflow for an order and wait for it to settle",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			variant, _ := cmd.Flags().GetString("variant")
			wait, _ := cmd.Flags().GetDuration("wait")
			store := initStore(cmd)
			defer store.Close()
			eng := buildEngine(cmd, store)
			defer eng.Stop()

			workflowID, err := eng.StartWorkflow(context.Background(), args[0], variant)
			if err != nil {
				log.GetLogger().Errorf("Failed to start workflow: %v", err)
				fmt.Printf("Failed to start workflow: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Started workflow %s\n", workflowID)

			deadline := time.Now().Add(wait)
			for time.Now().Before(deadline) {
				state, err := eng.GetWorkflow(context.Background(), workflowID)
				if err == nil && state.Status.Terminal() {
					printState(state)
					return
				}
				time.Sleep(200 * time.Millisecond)
			}
			fmt.Printf("Workflow %s still running after %s\n", workflowID, wait)
		},
	}
	startCmd.Flags().String("variant", "standard", "Workflow variant")
	startCmd.Flags().Duration("wait", 2*time.Minute, "How long to wait for a terminal state")

	getCmd := &cobra.Command{
		Use:   "get [workflow-id]",
		Short: "Print a workflow's persisted state",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := initStore(cmd)
			defer store.Close()
			state, err := store.GetState(context.Background(), args[0])
			if err != nil {
				log.GetLogger().Errorf("Failed to get workflow %s: %v", args[0], err)
				fmt.Printf("Failed to get workflow: %v\n", err)
				os.Exit(1)
			}
			printState(state)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all persisted workflows",
		Run: func(cmd *cobra.Command, args []string) {
			store := initStore(cmd)
			defer store.Close()
			states, err := store.ListStates(context.Background())
			if err != nil {
				log.GetLogger().Errorf("Failed to list workflows: %v", err)
				fmt.Printf("Failed to list workflows: %v\n", err)
				os.Exit(1)
			}
			if len(states) == 0 {
				fmt.Println("No workflows found.")
				return
			}
			for _, state := range states {
				fmt.Printf("- %s order=%s variant=%s status=%s step=%s updated=%s\n",
					state.WorkflowID, state.OrderID, state.Variant, state.Status,
					state.CurrentStepID, state.UpdatedAt.Format(time.RFC3339))
			}
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel [workflow-id]",
		Short: "Cancel an active workflow",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			reason, _ := cmd.Flags().GetString("reason")
			store := initStore(cmd)
			defer store.Close()
			eng := buildEngine(cmd, store)
			defer eng.Stop()
			if err := eng.CancelWorkflow(context.Background(), args[0], reason); err != nil {
				log.GetLogger().Errorf("Failed to cancel workflow %s: %v", args[0], err)
				fmt.Printf("Failed to cancel workflow: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Cancelled workflow %s\n", args[0])
		},
	}
	cancelCmd.Flags().String("reason", "cancelled via CLI", "Cancellation reason")

	rootCmd.AddCommand(serveCmd, startCmd, getCmd, listCmd, cancelCmd)
}

func initStore(cmd *cobra.Command) storage.Store {
	if err := godotenv.Load(); err != nil {
		log.GetLogger().Debugf("No .env file loaded: %v", err)
	}
	dbConnStr, _ := cmd.Flags().GetString("db")
	redisURL, _ := cmd.Flags().GetString("redis")
	if dbConnStr == "" {
		dbConnStr = os.Getenv("DB_CONN_STR")
	}
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	store, err := internal_storage.InitStore(dbConnStr, redisURL)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}

func buildEngine(cmd *cobra.Command, store storage.Store) *engine.Engine {
	logger := log.GetLogger()
	cat := catalog.Default()
	exec := engine.NewExecutor()
	if err := actions.RegisterFromEnv(exec, cat, logger); err != nil {
		logger.Errorf("Failed to register step actions: %v", err)
		os.Exit(1)
	}

	var orders engine.OrderService
	if base := os.Getenv("ORDER_SERVICE_URL"); base != "" {
		orders = actions.NewHTTPOrderService(base)
	} else {
		logger.Infof("No ORDER_SERVICE_URL set, accepting any order id")
		orders = actions.PermissiveOrderService{}
	}

	eng, err := engine.New(context.Background(), engine.Config{
		Store:    store,
		Catalog:  cat,
		Executor: exec,
		Bus:      event.NewMemoryBus(),
		Orders:   orders,
		Logger:   logger,
	})
	if err != nil {
		logger.Errorf("Failed to build engine: %v", err)
		os.Exit(1)
	}
	return eng
}

func printState(state *models.WorkflowState) {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render workflow: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(payload))
}
