package analytics

import (
	"time"

	"github.com/coinwatch/confluence/internal/domain"
)

// BotHeuristicInputs carries the derived facts bot flagging needs, computed
// once per wallet by the stats roller so this package stays a pure function
// of its inputs.
type BotHeuristicInputs struct {
	TradesPerDayAvg   float64
	FastRoundTripFrac float64 // fraction of trades part of a same-token buy/sell < 60s apart
	AllSingleBlockRT  bool    // every observed position is a single round-trip within one block
}

const (
	botTradesPerDayThreshold = 100
	botFastRoundTripWindow   = 60 * time.Second
	botFastRoundTripFrac     = 0.30
)

// IsBot applies spec.md §4.5's bot heuristics: flagged if any of (a) > 100
// trades/day average, (b) a same-token buy/sell pair < 60s apart occurs in
// > 30% of trades, or (c) every observed position is a single round-trip
// within one block.
func IsBot(in BotHeuristicInputs) bool {
	return in.TradesPerDayAvg > botTradesPerDayThreshold ||
		in.FastRoundTripFrac > botFastRoundTripFrac ||
		in.AllSingleBlockRT
}

// DeriveBotHeuristicInputs computes BotHeuristicInputs from a wallet's full
// trade history across tokens (not just one token's trades, unlike the FIFO
// functions above) over the window used for the 30-day stats roll.
func DeriveBotHeuristicInputs(trades []domain.Trade, windowDays float64) BotHeuristicInputs {
	if len(trades) == 0 || windowDays <= 0 {
		return BotHeuristicInputs{}
	}

	sorted := sortedByTimeThenHash(trades)

	tradesPerDay := float64(len(sorted)) / windowDays

	byToken := make(map[string][]domain.Trade, len(sorted))
	for _, tr := range sorted {
		byToken[tr.Token] = append(byToken[tr.Token], tr)
	}

	fastRoundTrips := 0
	allSingleBlockRT := true
	anyPosition := false

	for _, tokenTrades := range byToken {
		anyPosition = true
		singleRoundTrip := len(tokenTrades) == 2 &&
			tokenTrades[0].Side == domain.SideBuy && tokenTrades[1].Side == domain.SideSell
		if singleRoundTrip {
			// Same-block trades land at (near-)identical timestamps; treat
			// anything within one second as "same block" absent real block
			// height data on the Trade type.
			if tokenTrades[1].Timestamp.Sub(tokenTrades[0].Timestamp) > time.Second {
				allSingleBlockRT = false
			}
		} else {
			allSingleBlockRT = false
		}

		inFastPair := make([]bool, len(tokenTrades))
		for i := 0; i < len(tokenTrades); i++ {
			for j := i + 1; j < len(tokenTrades); j++ {
				a, b := tokenTrades[i], tokenTrades[j]
				if a.Side == b.Side {
					continue
				}
				if b.Timestamp.Sub(a.Timestamp) < botFastRoundTripWindow {
					inFastPair[i], inFastPair[j] = true, true
				}
			}
		}
		for _, fast := range inFastPair {
			if fast {
				fastRoundTrips++
			}
		}
	}

	if !anyPosition {
		allSingleBlockRT = false
	}

	return BotHeuristicInputs{
		TradesPerDayAvg:   tradesPerDay,
		FastRoundTripFrac: float64(fastRoundTrips) / float64(len(sorted)),
		AllSingleBlockRT:  allSingleBlockRT,
	}
}
