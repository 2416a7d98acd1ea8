package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/backtest"
	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/logger"
	"github.com/vitos/meme_trade_engine/internal/usecase"
)

func main() {
	csvPath := flag.String("csv", "", "price series CSV (timestamp,token,price); generated when empty")
	cash := flag.Float64("cash", 1000, "initial cash")
	seed := flag.Int64("seed", 42, "seed for the generated series")
	ticks := flag.Int("ticks", 2000, "generated series length")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.NewLogger(*level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var series []backtest.PricePoint
	if *csvPath != "" {
		series, err = loadSeries(*csvPath)
		if err != nil {
			log.Fatal("Failed to load price series", zap.Error(err))
		}
	} else {
		series = generateSeries(*seed, *ticks)
	}

	cfg := usecase.DefaultConfig()
	sim := backtest.NewSimulator(cfg, breakoutStrategy, *cash, log)

	start := time.Now()
	result, err := sim.Run(series)
	if err != nil {
		log.Fatal("Backtest failed", zap.Error(err))
	}

	printResult(result, *cash, len(series), time.Since(start))
}

// breakoutStrategy signals when the latest price breaks above the
// recent window high. Confidence scales with how decisively the high
// was taken out.
func breakoutStrategy(ts time.Time, token string, price float64, window []float64) (*domain.Opportunity, float64) {
	if len(window) < 10 {
		return nil, 0
	}

	high := 0.0
	for _, p := range window[:len(window)-1] {
		if p > high {
			high = p
		}
	}
	if price <= high {
		return nil, 0
	}

	breakout := (price - high) / high
	confidence := 0.5 + math.Min(breakout*20, 0.4)
	return &domain.Opportunity{
		Token:          token,
		EntryPrice:     price,
		StopLoss:       price * 0.95,
		TakeProfit:     price * 1.15,
		Confidence:     confidence,
		MarketCap:      2_000_000,
		Volume24h:      250_000,
		PriceChange24h: breakout * 100,
	}, 0.2
}

func loadSeries(path string) ([]backtest.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var series []backtest.PricePoint
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("row %d: expected timestamp,token,price", i+1)
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp %q", i+1, row[0])
		}
		price, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad price %q", i+1, row[2])
		}
		series = append(series, backtest.PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Token: row[1],
			Price: price,
		})
	}
	return series, nil
}

// generateSeries builds a synthetic random walk. The randomness stays
// in this generator; the simulator itself is deterministic.
func generateSeries(seed int64, ticks int) []backtest.PricePoint {
	rng := rand.New(rand.NewSource(seed))
	tokens := []string{"DOGEMOON", "PEPECLASSIC", "BONKZILLA"}
	prices := map[string]float64{}
	for _, t := range tokens {
		prices[t] = 0.5 + rng.Float64()
	}

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var series []backtest.PricePoint
	for i := 0; i < ticks; i++ {
		token := tokens[i%len(tokens)]
		prices[token] *= 1 + 0.0005 + 0.02*rng.NormFloat64()
		if prices[token] <= 0 {
			prices[token] = 0.000001
		}
		series = append(series, backtest.PricePoint{
			Time:  start.Add(time.Duration(i) * time.Minute),
			Token: token,
			Price: prices[token],
		})
	}
	return series
}

func printResult(result *backtest.Result, initialCash float64, ticks int, elapsed time.Duration) {
	report := result.Report
	p := report.Profitability

	profitFactor := fmt.Sprintf("%.2f", float64(p.ProfitFactor))
	if p.ProfitFactor.IsInfinite() {
		profitFactor = "inf (no losing trades)"
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Ticks replayed", ticks},
		{"Elapsed", elapsed.Round(time.Millisecond)},
		{"Decisions", len(result.Decisions)},
		{"Closed trades", p.ClosedTrades},
		{"Final cash", fmt.Sprintf("%.2f", result.FinalCash)},
		{"Total PnL", fmt.Sprintf("%+.2f (%.1f%%)", p.TotalPnL, p.TotalPnL/initialCash*100)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Win rate", fmt.Sprintf("%.1f%%", p.WinRate*100)},
		{"Profit factor", profitFactor},
		{"Avg win / loss", fmt.Sprintf("%.2f / %.2f", p.AverageWin, p.AverageLoss)},
		{"Largest win / loss", fmt.Sprintf("%.2f / %.2f", p.LargestWin, p.LargestLoss)},
		{"Max drawdown", fmt.Sprintf("%.1f%%", report.Risk.MaxDrawdown*100)},
		{"Sharpe (annualized)", fmt.Sprintf("%.2f (%.2f)", report.Risk.SharpeRatio, report.Risk.SharpeAnnualized)},
		{"Calmar", fmt.Sprintf("%.2f", report.Risk.CalmarRatio)},
		{"Longest loss streak", report.Risk.LongestLossStreak},
		{"Risk of ruin", fmt.Sprintf("%.2f", report.Risk.RiskOfRuin)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 26, Align: text.AlignLeft},
	})
	t.Render()

	if len(report.Recommendations) > 0 {
		fmt.Println()
		for _, rec := range report.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}
