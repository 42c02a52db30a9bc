package feed

import (
	"sort"

	"options_venue/models"
)

// Aggregate buckets a tick window into fixed-width OHLC candles. A
// candle's open is the first bucketed tick's open, its close the last
// tick's close, high/low the bucket extremes. The most recent bucket
// is live: its close tracks the latest tick and its high/low are
// widened to include the latest tick's range. Output is ordered by
// bucket time and truncated to the most recent `limit` candles; the
// input is never mutated.
func Aggregate(ticks []models.Tick, timeframeSeconds int, limit int) []models.Candle {
	if len(ticks) == 0 || timeframeSeconds <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = 400
	}

	timeframeMs := int64(timeframeSeconds) * 1000
	lastTick := ticks[len(ticks)-1]

	// Bound the look-back so deep timeframes do not scan stale ticks
	// beyond what the display window could ever show.
	startTime := lastTick.Time - int64(float64(int64(limit)*timeframeMs)*1.5)

	buckets := make(map[int64][]models.Tick)
	for _, t := range ticks {
		if t.Time < startTime {
			continue
		}
		bucketTime := t.Time / timeframeMs * timeframeMs
		buckets[bucketTime] = append(buckets[bucketTime], t)
	}

	candles := make([]models.Candle, 0, len(buckets))
	for bucketTime, points := range buckets {
		c := models.Candle{
			Time:  bucketTime,
			Open:  points[0].Open,
			High:  points[0].High,
			Low:   points[0].Low,
			Close: points[len(points)-1].Close,
		}
		for _, p := range points[1:] {
			if p.High > c.High {
				c.High = p.High
			}
			if p.Low < c.Low {
				c.Low = p.Low
			}
		}
		candles = append(candles, c)
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })

	// Live candle: keep it tracking the single latest tick.
	if n := len(candles); n > 0 {
		live := &candles[n-1]
		if lastTick.High > live.High {
			live.High = lastTick.High
		}
		if lastTick.Low < live.Low {
			live.Low = lastTick.Low
		}
		live.Close = lastTick.Close
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles
}
