package calculator

import (
	talib "github.com/markcheno/go-talib"

	"Delorian/internal/model"
)

// EMA computes the exponential moving average of in over period bars.
//
// Leading undefined points are skipped and the average is seeded with the
// simple mean of the first period defined inputs. An undefined input after
// the start leaves that point and everything after it undefined.
func EMA(in model.Series, period int) model.Series {
	return rolling(in, period, talib.Ema)
}

// SMA computes the simple moving average of in over period bars, with the
// same undefined-value rules as EMA.
func SMA(in model.Series, period int) model.Series {
	return rolling(in, period, talib.Sma)
}

func rolling(in model.Series, period int, fn func([]float64, int) []float64) model.Series {
	out := make(model.Series, len(in))
	if period <= 0 {
		return out
	}
	start := in.FirstDefined()
	if start < 0 {
		return out
	}
	end := start
	for end < len(in) && in[end].OK {
		end++
	}
	if end-start < period {
		return out
	}

	raw := make([]float64, end-start)
	for i := range raw {
		raw[i] = in[start+i].V
	}
	res := fn(raw, period)
	for i := period - 1; i < len(res); i++ {
		out[start+i] = model.Defined(res[i])
	}
	return out
}
