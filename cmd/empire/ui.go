package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"empire/internal/city"
	"empire/internal/feed"
	"empire/internal/game"
	"empire/internal/store"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptConfirm(label string) (bool, error) {
	fmt.Printf("%s [y/N]: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return false, err
	}
	text = strings.ToLower(strings.TrimSpace(text))
	return text == "y" || text == "yes", nil
}

func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func colorizeMoney(v float64) string {
	switch {
	case v > 0:
		return color.GreenString("+" + formatMoney(v))
	case v < 0:
		return color.RedString(formatMoney(v))
	default:
		return formatMoney(v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func renderStatus(st *game.State, mode game.Mode) {
	accent.Printf("\n== %s (day %d, %s) ==\n", st.BusinessName, st.Day, mode)
	fmt.Printf("Cash:        %s\n", formatMoney(st.Cash))
	fmt.Printf("Inventory:   %d / %d\n", st.Inventory, st.MaxInventory)
	fmt.Printf("Price:       %s (customers pay %s)\n", formatMoney(st.Price), formatMoney(st.EffectivePrice()))
	fmt.Printf("Materials:   %s per cup (you pay %s)\n", formatMoney(st.Market.Materials), formatMoney(st.UnitCost()))
	fmt.Printf("Weather:     %s\n", st.Weather.Label())
	fmt.Printf("Reputation:  %.1f\n", st.Reputation)
	fmt.Printf("Level:       %d (%.0f / %.0f XP)\n", st.Level, st.XP, st.XPToNext)
	fmt.Printf("Streak:      %d  Best day: %d customers\n", st.Streak, st.BestDay)
	fmt.Printf("Totals:      %s revenue, %d customers\n", formatMoney(st.TotalRevenue), st.TotalCustomers)
	fmt.Printf("Locations:   %d (rent %s/day, next %s)\n", len(st.Locations), formatMoney(st.TotalRent()), formatMoney(st.NextLocationPrice))

	fmt.Println()
	accent.Println("Upgrades")
	for _, u := range game.Upgrades {
		level := st.UpgradeLevel(u.ID)
		fmt.Printf("  %-11s lvl %-3d next %s\n", u.ID, level, formatMoney(u.Cost(level)))
	}
	if st.AutoBuy.Enabled {
		printInfo(fmt.Sprintf("Auto-buy on: below %d cups, refill to %d%%", st.AutoBuy.Threshold, st.AutoBuy.TargetPercent))
	}
	if ids := st.UnlockedAchievements(); len(ids) > 0 {
		printInfo("Achievements: " + strings.Join(ids, ", "))
	}
	renderIntel(game.GatherIntel(st, mode))
	fmt.Println()
}

func renderIntel(in game.MarketIntel) {
	if in.Empty() {
		return
	}
	fmt.Println()
	accent.Println("Market intel")
	if in.ShowAvg {
		src := "estimate"
		if in.AvgFromCity {
			src = "city"
		}
		fmt.Printf("  Avg price:   %s (%s)\n", formatMoney(in.AvgPrice), src)
	}
	if in.ShowPosition {
		if in.Undercut {
			printSuccess("  You UNDERCUT the market")
		} else {
			printWarn("  You are ABOVE MARKET")
		}
	}
	if in.ShowIdeal {
		fmt.Printf("  Ideal price: %s\n", formatMoney(in.IdealPrice))
	}
	if in.ShowDemand {
		fmt.Printf("  Demand:      %d-%d customers (about %d at your price)\n", in.DemandMin, in.DemandMax, in.Expected)
	}
	if in.ShowAttractive {
		if in.Attractive {
			printSuccess("  Price attractive")
		} else {
			printWarn("  Price deters customers")
		}
	}
	if in.ShowRivals {
		fmt.Printf("  Rivals:      %d, %d cheaper than you (lowest %s)\n", in.Rivals, in.CheaperRivals, formatMoney(in.CheapestRival))
	}
}

func renderDay(r game.DayReport, st *game.State) {
	accent.Printf("\n== DAY %d RESULTS ==\n", r.Day)
	if r.PreRestock.Units > 0 {
		printInfo(fmt.Sprintf("Auto-bought %d cups for %s.", r.PreRestock.Units, formatMoney(r.PreRestock.Cost)))
	}
	fmt.Printf("Weather:     %s\n", r.Weather.Label())
	if r.Catastrophe != nil {
		printError(fmt.Sprintf("%s %s", r.Catastrophe.Name, r.Catastrophe.Message))
		if r.Catastrophe.CashLoss > 0 {
			fmt.Printf("  lost %s\n", formatMoney(r.Catastrophe.CashLoss))
		}
		if r.Catastrophe.InventoryLoss > 0 {
			fmt.Printf("  lost %d cups\n", r.Catastrophe.InventoryLoss)
		}
	}
	fmt.Printf("Price:       %s (%s)\n", formatMoney(r.Price), r.PriceImpact.Band)
	if r.CityFallback {
		printWarn("City unreachable, demand was estimated locally.")
	} else if r.Mode == game.ModeCity && r.CityAvgPrice > 0 && st.UpgradeLevel(game.UpgradeMarketResearch) > 0 {
		fmt.Printf("City avg:    %s across %d rivals\n", formatMoney(r.CityAvgPrice), len(r.CompetitorPrices))
	}
	fmt.Printf("Customers:   %d, served %d\n", r.Customers, r.Served)
	if r.Stockout {
		printWarn("Sold out! Buy more stock before tomorrow.")
	}
	fmt.Printf("Revenue:     %s\n", formatMoney(r.Revenue))
	fmt.Printf("Expenses:    %s (rent %s, utilities %s)\n", formatMoney(r.Expenses), formatMoney(r.Rent), formatMoney(r.Utilities))
	fmt.Printf("Profit:      %s\n", colorizeMoney(r.Profit))
	fmt.Printf("Reputation:  %+.1f  XP: +%.0f  Streak: %d\n", r.RepChange, r.XPGained, r.Streak)
	if r.NewRecord {
		printSuccess("New record day!")
	}
	for _, lu := range r.LevelUps {
		printSuccess(fmt.Sprintf("Level up! Now level %d (+%.0f reputation).", lu.Level, lu.RepBonus))
	}
	for _, a := range r.Achievements {
		printSuccess(fmt.Sprintf("Achievement unlocked: %s (+%s)", a.Name, formatMoney(a.CashReward)))
	}
	if r.PostRestock.Units > 0 {
		printInfo(fmt.Sprintf("Auto-bought %d cups for %s.", r.PostRestock.Units, formatMoney(r.PostRestock.Cost)))
	}
	if r.Reason != "" {
		fmt.Println()
		printInfo(r.Reason)
	}
	fmt.Println()
}

func renderHistory(rows []store.DayRecord) {
	accent.Println("\n== HISTORY ==")
	if len(rows) == 0 {
		printInfo("No days played yet.")
		return
	}
	fmt.Printf("%-5s %-9s %8s %9s %7s %10s %10s\n", "DAY", "WEATHER", "PRICE", "CUSTOMERS", "SERVED", "REVENUE", "PROFIT")
	for _, r := range rows {
		fmt.Printf("%-5d %-9s %8s %9d %7d %10s %10s\n",
			r.Day, r.Weather, formatMoney(r.Price), r.Customers, r.Served,
			formatMoney(r.Revenue), colorizeMoney(r.Profit))
	}
	fmt.Println()
}

func renderCity(st city.State) {
	accent.Printf("\n== %s ==\n", st.Name)
	fmt.Printf("Weather:     %s\n", st.Weather.Label())
	fmt.Printf("Economy:     %.2fx\n", st.EconomicHealth)
	fmt.Printf("Avg price:   %s\n", formatMoney(st.AvgPrice))
	fmt.Printf("Businesses:  %d / %d\n", st.TotalBusinesses, st.MaxPlayers)
	if st.Private {
		fmt.Printf("Join code:   %s\n", st.JoinCode)
	}
	fmt.Println()
}

func renderLeaderboard(rows []city.LeaderboardRow, title string, money bool) {
	accent.Printf("\n== %s ==\n", title)
	if len(rows) == 0 {
		printInfo("No entries yet.")
		return
	}
	fmt.Printf("%-5s %-30s %14s\n", "RANK", "PLAYER", "SCORE")
	for _, r := range rows {
		score := fmt.Sprintf("%.0f", r.Score)
		if money {
			score = formatMoney(r.Score)
		}
		fmt.Printf("%-5d %-30s %14s\n", r.Rank, truncate(r.PlayerName, 30), score)
	}
	fmt.Println()
}

func renderChat(msgs []city.ChatMessage) {
	if len(msgs) == 0 {
		printInfo("No messages yet.")
		return
	}
	for _, m := range msgs {
		renderChatLine(m)
	}
}

func renderChatLine(m city.ChatMessage) {
	fmt.Printf("%s %s %s\n", m.CreatedAt.Local().Format("15:04"), accent.Sprint(m.PlayerName+":"), m.Message)
}

func renderChallenges(list []game.Challenge) {
	accent.Println("\n== DAILY CHALLENGES ==")
	if len(list) == 0 {
		printInfo("No challenges today.")
		return
	}
	for _, c := range list {
		fmt.Printf("  %-16s %s (reward %s)\n", c.Title, c.Description, formatMoney(c.Reward))
	}
	fmt.Println()
}

func renderEvent(ev feed.Event) {
	at := ev.At.Local().Format("15:04:05")
	switch ev.Kind {
	case feed.KindChat:
		var m city.ChatMessage
		if err := decodeEvent(ev, &m); err == nil {
			renderChatLine(m)
			return
		}
	case feed.KindCityUpdate:
		var st city.State
		if err := decodeEvent(ev, &st); err == nil {
			fmt.Printf("%s %s weather %s, avg price %s, economy %.2fx\n", at, warn.Sprint("[city]"), st.Weather.Label(), formatMoney(st.AvgPrice), st.EconomicHealth)
			return
		}
	case feed.KindDayComplete:
		var r struct {
			city.DayResult
			PlayerName string `json:"player_name"`
		}
		if err := decodeEvent(ev, &r); err == nil {
			fmt.Printf("%s %s %s finished day %d: %d customers, %s\n", at, success.Sprint("[day]"), r.PlayerName, r.Day, r.Customers, formatMoney(r.Revenue))
			return
		}
	}
	fmt.Printf("%s [%s] %s\n", at, ev.Kind, string(ev.Data))
}

func decodeEvent(ev feed.Event, out any) error {
	return json.Unmarshal(ev.Data, out)
}
