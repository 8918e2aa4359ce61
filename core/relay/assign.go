// Package relay decides which driver keeps driving when two loads merge.
package relay

import (
	"sort"

	"github.com/kilianp07/haulshare/core/model"
)

// Assignment is the outcome of Assign.
type Assignment struct {
	LongHaul       model.Driver
	ShortHaul      model.Driver
	WinningTruckID string
}

// Assign makes the driver with the greater or equal workload the long-haul
// driver. Ties go to d1. The long-haul driver keeps their own truck.
func Assign(d1, d2 model.Driver) Assignment {
	if d1.Workload() >= d2.Workload() {
		return Assignment{LongHaul: d1, ShortHaul: d2, WinningTruckID: d1.TruckID}
	}
	return Assignment{LongHaul: d2, ShortHaul: d1, WinningTruckID: d2.TruckID}
}

// Rank orders drivers by descending workload. Equal workloads keep their
// input order.
func Rank(drivers ...model.Driver) []model.Driver {
	out := append([]model.Driver(nil), drivers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Workload() > out[j].Workload()
	})
	return out
}
