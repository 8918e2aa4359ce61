package allocation

import "github.com/kilianp07/haulshare/core/model"

// Bin is the load planned for one truck.
type Bin struct {
	Truck      model.Truck
	Deliveries []model.Delivery
	Weight     float64
	Volume     float64
}

// Utilization is the weight load as a percentage of the truck's limit, or
// 0 without a limit.
func (b Bin) Utilization() float64 {
	if b.Truck.MaxWeight == nil || *b.Truck.MaxWeight == 0 {
		return 0
	}
	return b.Weight / *b.Truck.MaxWeight * 100
}

// Plan packs deliveries into trucks in a single greedy pass. Each truck
// takes deliveries from the head of the queue until the first one that
// does not fit, then the next truck continues from that delivery. Trucks
// left empty are omitted. The second return value holds the deliveries
// that were not placed.
func Plan(trucks []model.Truck, queue []model.Delivery) ([]Bin, []model.Delivery) {
	var bins []Bin
	next := 0
	for _, tr := range trucks {
		if next >= len(queue) {
			break
		}
		b := Bin{Truck: tr}
		for next < len(queue) {
			d := queue[next]
			if !tr.Fits(b.Weight, b.Volume, d.Weight, d.Volume) {
				break
			}
			b.Deliveries = append(b.Deliveries, d)
			b.Weight += d.Weight
			b.Volume += d.Volume
			next++
		}
		if len(b.Deliveries) > 0 {
			bins = append(bins, b)
		}
	}
	return bins, queue[next:]
}
