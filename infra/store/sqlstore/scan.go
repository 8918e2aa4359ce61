package sqlstore

import (
	"database/sql"
	"math"
	"time"
)

type scanner interface {
	Scan(dest ...any) error
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// box is a lat/lng bounding box enclosing a circle, used to narrow
// geographic queries before the exact distance check.
type box struct {
	minLat, maxLat, minLng, maxLng float64
	wrapsLng                       bool
}

const kmPerDegree = 111.195

func boundingBox(lat, lng, radiusKm float64) box {
	dLat := radiusKm / kmPerDegree * 1.01
	b := box{minLat: lat - dLat, maxLat: lat + dLat}
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 0.01 {
		b.wrapsLng = true
		return b
	}
	dLng := radiusKm / (kmPerDegree * cos) * 1.01
	b.minLng, b.maxLng = lng-dLng, lng+dLng
	b.wrapsLng = b.minLng < -180 || b.maxLng > 180
	return b
}

// where returns the filter clause and its arguments for the given columns.
func (b box) where(latCol, lngCol string) (string, []any) {
	clause := latCol + " BETWEEN ? AND ?"
	args := []any{b.minLat, b.maxLat}
	if !b.wrapsLng {
		clause += " AND " + lngCol + " BETWEEN ? AND ?"
		args = append(args, b.minLng, b.maxLng)
	}
	return clause, args
}
