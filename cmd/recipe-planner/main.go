package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"recipe-planner/internal/app"
	"recipe-planner/internal/config"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/metrics"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Development: cfg.IsDevelopment()})
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to start", zap.Error(err))
	}
	defer rt.Close()

	if err := run(ctx, rt.App, cfg, os.Args[1], os.Args[2:]); err != nil {
		zl.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		rt.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cfg *config.Config, command string, args []string) error {
	switch command {
	case "export-plan", "export-recipes":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		dir := fs.String("o", ".", "Directory to write the export to")
		fs.Parse(args)

		export := a.ExportPlan
		if command == "export-recipes" {
			export = a.ExportCatalog
		}
		e, err := export(ctx)
		if err != nil {
			return err
		}
		path := filepath.Join(*dir, e.Filename)
		if err := os.WriteFile(path, e.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Printf("Exported to %s\n", path)

	case "clear-plan":
		if _, err := a.ClearPlan(ctx); err != nil {
			return err
		}
		fmt.Println("Meal plan cleared.")

	case "generate-plan":
		description := strings.Join(args, " ")
		plan, err := a.GeneratePlan(ctx, description)
		if err != nil {
			return err
		}
		fmt.Printf("Generated a plan with %d meals.\n", plan.CountMeals())

	case "stats":
		return printStats(ctx, a, cfg)

	case "import-ghost":
		result, err := a.ImportFromGhost(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d, skipped %d, failed %d.\n", len(result.Imported), len(result.Skipped), len(result.Failed))
		for _, title := range result.Failed {
			fmt.Printf("  failed: %s\n", title)
		}

	case "publish-recipe":
		if len(args) < 1 {
			return fmt.Errorf("usage: recipe-planner publish-recipe <id>")
		}
		post, err := a.PublishRecipe(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Published %q as post %s\n", post.Title, post.ID)

	case "metrics-cleanup":
		fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := fs.Int("days", 30, "Keep records for the last N days")
		fs.Parse(args)

		affected, err := a.CleanupUsage(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

func printStats(ctx context.Context, a *app.App, cfg *config.Config) error {
	planStats, err := a.PlanStats(ctx)
	if err != nil {
		return err
	}
	recipeStats, err := a.RecipeStats(ctx)
	if err != nil {
		return err
	}
	usage, err := a.DailyUsage(ctx, 7)
	if err != nil {
		return err
	}
	health := metrics.GetSysHealth(cfg.DatabasePath, cfg.StoragePath)

	fmt.Println("Meal plan")
	fmt.Printf("  planned meals: %d\n", planStats.TotalPlannedMeals)
	fmt.Printf("  size:          %s\n", metrics.FormatBytes(int64(planStats.SizeBytes)))
	if !planStats.LastModified.IsZero() {
		fmt.Printf("  modified:      %s\n", planStats.LastModified.Local().Format("2006-01-02 15:04"))
	}

	fmt.Println("Recipes")
	fmt.Printf("  total:         %d\n", recipeStats.Total)
	fmt.Printf("  size:          %s\n", metrics.FormatBytes(int64(recipeStats.SizeBytes)))

	fmt.Println("LLM usage (7 days)")
	if len(usage) == 0 {
		fmt.Println("  no data yet")
	}
	for _, d := range usage {
		fmt.Printf("  %s: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	fmt.Printf("Data on disk: %s\n", health.DataDiskSize)
	return nil
}

func printUsage() {
	fmt.Println("Usage: recipe-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  export-plan [-o dir]       Write the meal plan to meal_plan_database_YYYY-MM-DD.json")
	fmt.Println("  export-recipes [-o dir]    Write the catalog to recipe_database_YYYY-MM-DD.json")
	fmt.Println("  clear-plan                 Reset every slot of the meal plan")
	fmt.Println("  generate-plan <text>       Generate a meal plan from a description")
	fmt.Println("  stats                      Show plan, catalog and usage statistics")
	fmt.Println("  import-ghost               Extract recipes from Ghost blog posts into the catalog")
	fmt.Println("  publish-recipe <id>        Publish a catalog recipe as a Ghost post")
	fmt.Println("  metrics-cleanup [-days N]  Remove old metric records")
}
