package telegram

import (
	"fmt"
	"strings"

	"recipe-planner/internal/metrics"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/shopping"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// formatPlanMarkdown renders the weekly grid, one block per day.
func formatPlanMarkdown(plan planner.WeeklyPlan, cfg planner.SlotConfig) string {
	var pb strings.Builder
	title := plan.Title
	if title == "" {
		title = planner.DefaultTitle
	}
	fmt.Fprintf(&pb, "📅 *%s*\n", escapeMarkdown(title))

	mealTypes := cfg.MealTypes()
	for _, day := range planner.Days {
		fmt.Fprintf(&pb, "\n*%s*\n", day.Title())
		for _, mt := range mealTypes {
			meal := plan.Meal(planner.SlotKey{Day: day, MealType: mt})
			if meal == nil {
				fmt.Fprintf(&pb, "• %s: _empty_\n", mt.Title())
				continue
			}
			fmt.Fprintf(&pb, "• %s: %s\n", mt.Title(), escapeMarkdown(meal.RecipeName))
		}
	}

	fmt.Fprintf(&pb, "\n🍽 *Planned meals:* %d/%d", plan.CountMeals(), len(planner.Days)*len(mealTypes))
	return pb.String()
}

func formatRecipesMarkdown(recipes []recipe.Recipe) string {
	if len(recipes) == 0 {
		return "📖 _No recipes found._"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 *Recipes* (%d)\n\n", len(recipes))
	for _, r := range recipes {
		fmt.Fprintf(&sb, "• *%s* (%s, %d min)\n", escapeMarkdown(r.Name), r.Category, r.TotalTime())
	}
	return sb.String()
}

func formatShoppingMarkdown(list shopping.List) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if len(list.Items) == 0 {
		sb.WriteString("_Nothing planned yet._\n")
	}
	for _, item := range list.Items {
		fmt.Fprintf(&sb, "• %s", escapeMarkdown(item.Ingredient))
		if item.Count > 1 {
			fmt.Fprintf(&sb, " (x%d)", item.Count)
		}
		sb.WriteString("\n")
	}
	if len(list.Missing) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ _No longer in the catalog:_ %s\n", escapeMarkdown(strings.Join(list.Missing, ", ")))
	}
	return sb.String()
}

func formatDraftMarkdown(d recipe.Draft) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 *%s*\n", escapeMarkdown(d.Name))
	fmt.Fprintf(&sb, "_%s · prep %d min · cook %d min · serves %d_\n", d.Category, d.PrepTime, d.CookTime, d.Servings)

	sb.WriteString("\n*Ingredients*\n")
	for _, line := range strings.Split(string(d.Ingredients), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(&sb, "• %s\n", escapeMarkdown(line))
		}
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&sb, "\n🏷 %s\n", escapeMarkdown(strings.Join(d.Tags, ", ")))
	}
	return sb.String()
}

func formatUsageMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}
