package simulator

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/HerbHall/havenwatch/pkg/models"
)

// DefaultAbnormalChance is the per-resident, per-category probability of an
// abnormal tick.
const DefaultAbnormalChance = 0.05

// Normal bands and walk steps.
const (
	heartRateMin  = 60
	heartRateMax  = 100
	heartRateStep = 5

	systolicMin  = 110
	systolicMax  = 140
	diastolicMin = 70
	diastolicMax = 90

	oxygenMin  = 94
	oxygenMax  = 99
	oxygenStep = 1

	temperatureMin  = 18.0
	temperatureMax  = 25.0
	temperatureStep = 0.5

	humidityMin  = 40
	humidityMax  = 60
	humidityStep = 3

	airQualityMin  = 70
	airQualityMax  = 95
	airQualityStep = 5

	gasLevelMin  = 0
	gasLevelMax  = 20
	gasLevelStep = 2
)

// Generator produces plausible readings from the previous reading of a
// resident. It is pure given its random source and is not safe for
// concurrent use.
type Generator struct {
	rng            *rand.Rand
	abnormalChance float64
}

// NewGenerator creates a Generator. A nil rng uses a randomly seeded
// source; a negative chance uses DefaultAbnormalChance.
func NewGenerator(rng *rand.Rand, abnormalChance float64) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if abnormalChance < 0 {
		abnormalChance = DefaultAbnormalChance
	}
	return &Generator{rng: rng, abnormalChance: abnormalChance}
}

// Health returns the next health reading for a resident. prev may be nil.
func (g *Generator) Health(residentID int64, prev *models.HealthReading, at time.Time) models.HealthReading {
	return g.health(residentID, prev, at, g.coin(g.abnormalChance))
}

// Environment returns the next environment reading for a resident. prev may
// be nil.
func (g *Generator) Environment(residentID int64, prev *models.EnvironmentReading, at time.Time) models.EnvironmentReading {
	return g.environment(residentID, prev, at, g.coin(g.abnormalChance))
}

func (g *Generator) health(residentID int64, prev *models.HealthReading, at time.Time, abnormal bool) models.HealthReading {
	r := models.HealthReading{ResidentID: residentID, Timestamp: at}

	heartRate, oxygen := midpoint(heartRateMin, heartRateMax), midpoint(oxygenMin, oxygenMax)
	if prev != nil {
		heartRate, oxygen = prev.HeartRate, prev.BloodOxygen
	}

	switch {
	case abnormal && g.coin(0.5):
		r.HeartRate = heartRateMax + g.between(5, 30)
	case abnormal:
		r.HeartRate = heartRateMin - g.between(6, 20)
	default:
		r.HeartRate = g.walk(heartRate, heartRateStep, heartRateMin, heartRateMax)
	}

	sys := g.between(systolicMin, systolicMax)
	dia := g.between(diastolicMin, diastolicMax)
	if abnormal && g.coin(0.5) {
		sys += g.between(20, 50)
		dia += g.between(10, 30)
	}
	r.BloodPressure = models.FormatBloodPressure(sys, dia)

	r.BloodOxygen = g.walk(oxygen, oxygenStep, oxygenMin, oxygenMax)
	if abnormal && g.coin(0.5) {
		r.BloodOxygen = oxygenMin - g.between(3, 10)
	}
	return r
}

func (g *Generator) environment(residentID int64, prev *models.EnvironmentReading, at time.Time, abnormal bool) models.EnvironmentReading {
	r := models.EnvironmentReading{ResidentID: residentID, Timestamp: at}

	temp := (temperatureMin + temperatureMax) / 2
	humidity := midpoint(humidityMin, humidityMax)
	air := midpoint(airQualityMin, airQualityMax)
	gas := midpoint(gasLevelMin, gasLevelMax)
	if prev != nil {
		temp, humidity, air, gas = prev.RoomTemperature, prev.Humidity, prev.AirQuality, prev.GasLevel
	}

	// Abnormal margins start one rounding step past the alert thresholds
	// so the rounded value still breaches them.
	switch {
	case abnormal && g.coin(0.5):
		temp = temperatureMax + g.uniform(5.1, 10)
	case abnormal:
		temp = temperatureMin - g.uniform(3.1, 8)
	default:
		temp += g.uniform(-temperatureStep, temperatureStep)
		temp = math.Max(temperatureMin, math.Min(temperatureMax, temp))
	}
	r.RoomTemperature = math.Round(temp*10) / 10

	r.Humidity = g.walk(humidity, humidityStep, humidityMin, humidityMax)
	if abnormal && g.coin(0.5) {
		if g.coin(0.5) {
			r.Humidity = humidityMax + g.between(10, 30)
		} else {
			r.Humidity = humidityMin - g.between(10, 20)
		}
	}

	r.AirQuality = g.walk(air, airQualityStep, airQualityMin, airQualityMax)
	if abnormal && g.coin(0.5) {
		r.AirQuality = airQualityMin - g.between(20, 50)
	}

	r.GasLevel = g.walk(gas, gasLevelStep, gasLevelMin, gasLevelMax)
	if abnormal && g.coin(0.5) {
		r.GasLevel = gasLevelMax + g.between(30, 70)
	}
	return r
}

// walk moves base by up to step in either direction, clamped to [lo, hi].
func (g *Generator) walk(base, step, lo, hi int) int {
	return clamp(base+g.between(-step, step), lo, hi)
}

func midpoint(lo, hi int) int {
	return (lo + hi) / 2
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

// uniform returns a uniform float in [lo, hi).
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) coin(p float64) bool {
	return g.rng.Float64() < p
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
