package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trendora/assistant/pkg/catalog"
	"github.com/trendora/assistant/pkg/config"
	"github.com/trendora/assistant/pkg/logger"
	"github.com/trendora/assistant/pkg/sizing"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "assistant",
		Short: "Conversational shop assistant with intent routing, size advice, and AI providers",
		Long: strings.TrimSpace(`assistant is the conversation engine behind the shop chat widget.

It classifies free-text messages into intents, remembers sessions and
shopper preferences, recommends garment sizes from body measurements,
and answers through a chain of AI providers with a rule-based safety net.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newInitCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newAskCommand())
	root.AddCommand(newSizesCommand())
	root.AddCommand(newSeedCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "init",
		Short:   "Write a default configuration file",
		Example: "  assistant init",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := getConfigPath()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}
			if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
			return nil
		},
	}
}

func newChatCommand() *cobra.Command {
	var (
		sessionID string
		userID    string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Example: strings.Join([]string{
			"  assistant chat",
			"  assistant chat --user shopper-42",
			"  assistant chat --session web:abc123 --debug",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if debug {
				cfg.LogLevel = "debug"
			}

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			return chatLoop(a, sessionID, userID)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to resume (new one generated if empty)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for cross-session preferences")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func chatLoop(a *app, sessionID, userID string) error {
	fmt.Printf("%s Interactive chat (Ctrl+C or \"exit\" to quit)\n\n", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".assistant_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			logger.WarnCF("cli", "read input failed", map[string]interface{}{"error": err.Error()})
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		reply := a.engine.Send(ctx, sessionID, userID, input)
		sessionID = reply.SessionID

		fmt.Printf("\n%s: %s\n", appName, reply.Message)
		if len(reply.QuickReplies) > 0 {
			fmt.Printf("  [%s]\n", strings.Join(reply.QuickReplies, " | "))
		}
		fmt.Println()
	}
}

func newAskCommand() *cobra.Command {
	var (
		sessionID string
		userID    string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		Example: strings.Join([]string{
			"  assistant ask \"find t-shirts under 300000\"",
			"  assistant ask --json \"i am 1m70 and 65kg, what size\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			reply := a.engine.Send(context.Background(), sessionID, userID, strings.Join(args, " "))

			if asJSON {
				encoded, err := json.MarshalIndent(reply, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to continue")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for cross-session preferences")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full reply envelope as JSON")

	return cmd
}

func newSizesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "sizes",
		Short:   "Print the garment size charts",
		Example: "  assistant sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), sizing.ChartText())
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load products into the catalog database",
		Long:  "Load products from a JSON file, or a small built-in demo set when no file is given.",
		Example: strings.Join([]string{
			"  assistant seed",
			"  assistant seed --file products.json",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cat, err := catalog.NewSQLiteCatalog(cfg.CatalogPath(), cfg.Catalog.SearchLimit)
			if err != nil {
				return err
			}
			defer cat.Close()

			products := demoProducts()
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &products); err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
			}

			if err := cat.Seed(context.Background(), products); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products into %s\n", len(products), cfg.CatalogPath())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with an array of products")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and catalog status",
		Example: "  assistant status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Config:    %s\n", getConfigPath())
			fmt.Fprintf(out, "Log level: %s\n", cfg.LogLevel)

			if cfg.Session.RedisAddr != "" {
				fmt.Fprintf(out, "Sessions:  redis (%s), ttl %ds\n", cfg.Session.RedisAddr, cfg.Session.TTLSeconds)
			} else {
				fmt.Fprintf(out, "Sessions:  in-memory, ttl %ds\n", cfg.Session.TTLSeconds)
			}

			fmt.Fprintf(out, "Ollama:    %s (model %s)\n", cfg.Providers.Ollama.BaseURL, cfg.Providers.Ollama.Model)
			if cfg.Providers.Gemini.APIKey != "" {
				fmt.Fprintf(out, "Gemini:    configured (model %s)\n", cfg.Providers.Gemini.Model)
			} else {
				fmt.Fprintln(out, "Gemini:    not configured")
			}

			cat, err := catalog.NewSQLiteCatalog(cfg.CatalogPath(), cfg.Catalog.SearchLimit)
			if err != nil {
				fmt.Fprintf(out, "Catalog:   %s (unavailable: %v)\n", cfg.CatalogPath(), err)
				return nil
			}
			defer cat.Close()

			stats, err := cat.Stats(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "Catalog:   %s (stats failed: %v)\n", cfg.CatalogPath(), err)
				return nil
			}
			fmt.Fprintf(out, "Catalog:   %s\n", cfg.CatalogPath())
			fmt.Fprintf(out, "           %d products in %d categories, %d units in stock\n",
				stats.TotalProducts, stats.Categories, stats.TotalStock)
			if stats.TotalProducts > 0 {
				fmt.Fprintf(out, "           prices %d - %d (avg %d)\n", stats.MinPrice, stats.MaxPrice, stats.AvgPrice)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  assistant version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func demoProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "tee-basic-white", Name: "Basic Cotton T-Shirt White", Category: "t-shirt", Color: "white", Sizes: []string{"S", "M", "L", "XL"}, Price: 190000, Stock: 40, Sold: 320},
		{ID: "tee-basic-black", Name: "Basic Cotton T-Shirt Black", Category: "t-shirt", Color: "black", Sizes: []string{"S", "M", "L", "XL"}, Price: 190000, Stock: 35, Sold: 290},
		{ID: "polo-classic", Name: "Classic Pique Polo", Category: "polo", Color: "navy", Sizes: []string{"M", "L", "XL"}, Price: 290000, Stock: 22, Sold: 150},
		{ID: "hoodie-oversize", Name: "Oversized Fleece Hoodie", Category: "hoodie", Color: "grey", Sizes: []string{"M", "L", "XL", "XXL"}, Price: 420000, Stock: 18, Sold: 260},
		{ID: "jeans-slim", Name: "Slim Fit Jeans", Category: "jeans", Color: "blue", Sizes: []string{"29", "30", "31", "32"}, Price: 450000, Stock: 25, Sold: 180},
		{ID: "jeans-straight", Name: "Straight Cut Jeans", Category: "jeans", Color: "black", Sizes: []string{"30", "31", "32", "34"}, Price: 470000, Stock: 15, Sold: 95},
		{ID: "dress-midi", Name: "Floral Midi Dress", Category: "dress", Color: "floral", Sizes: []string{"S", "M", "L"}, Price: 520000, Stock: 12, Sold: 110},
		{ID: "sneakers-court", Name: "Court Low Sneakers", Category: "sneakers", Color: "white", Sizes: []string{"39", "40", "41", "42", "43"}, Price: 650000, Stock: 20, Sold: 210},
	}
}
