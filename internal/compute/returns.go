package compute

import (
	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/utils"
)

// DailyReturns sets Return1D on date-ordered bars as the percent change of close
// against the previous stored trading day. The first bar, and any bar whose
// predecessor closed at zero, gets no return.
func DailyReturns(prices []models.PriceDaily) []models.PriceDaily {
	out := make([]models.PriceDaily, len(prices))
	copy(out, prices)

	for i := range out {
		out[i].Return1D = nil
		if i == 0 {
			continue
		}
		prev := out[i-1].Close
		if prev == 0 {
			continue
		}
		ret := utils.Round((out[i].Close-prev)/prev*100, 6)
		out[i].Return1D = &ret
	}
	return out
}
