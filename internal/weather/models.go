package weather

import (
	"time"

	"github.com/i474232898/env-timeseries/internal/series"
)

// SourceOpenMeteo tags every point this service fetches and stores.
const SourceOpenMeteo = "OPEN_METEO"

// Dataset names one logical series kept per location.
type Dataset string

const (
	DatasetWeather    Dataset = "weather"
	DatasetAirQuality Dataset = "air_quality"
)

// Fields returns the measurements tracked for the dataset.
func (d Dataset) Fields() []series.Field {
	if d == DatasetAirQuality {
		return series.AirQualityFields
	}
	return series.WeatherFields
}

// Location represents a place for which we track measurements.
type Location struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Admin     string  `json:"admin,omitempty" db:"admin"`
	Country   string  `json:"country" db:"country"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.ID
}

// Current is the latest reading for a location.
type Current struct {
	Location Location
	Point    series.Point
	Source   string
}

// History is a reconciled, bucketed weather series.
type History struct {
	Location Location
	Interval string
	Points   series.Series
	Source   string
}

// LiveWindow is a continuous hourly series plus its rounded per-field averages.
type LiveWindow struct {
	Averages series.Point
	Series   series.Series
}

// DailySeries holds a multi-day forecast as parallel arrays.
type DailySeries struct {
	Dates                    []string   `json:"dates"`
	TempMax                  []*float64 `json:"tmax"`
	PrecipitationProbability []*int     `json:"pop"`
}

// City is a fixed point included in snapshots.
type City struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// CitySnapshot is one city's forecast summary for a snapshot range.
type CitySnapshot struct {
	City
	TempMax                  *float64 `json:"tmax"`
	PrecipitationProbability *int     `json:"pop"`
}

// Snapshot summarizes the forecast for every configured city.
type Snapshot struct {
	Range       string         `json:"range"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Cities      []CitySnapshot `json:"cities"`
}

// DefaultCities is the city list used by snapshots unless configured otherwise.
var DefaultCities = []City{
	{"waw", "Warsaw", 52.2297, 21.0122},
	{"krk", "Kraków", 50.0647, 19.9450},
	{"ldz", "Łódź", 51.7592, 19.4550},
	{"wro", "Wrocław", 51.1079, 17.0385},
	{"poz", "Poznań", 52.4064, 16.9252},
	{"gda", "Gdańsk", 54.3520, 18.6466},
	{"szc", "Szczecin", 53.4285, 14.5528},
	{"lub", "Lublin", 51.2465, 22.5684},
	{"bia", "Białystok", 53.1325, 23.1688},
	{"rze", "Rzeszów", 50.0412, 21.9991},
	{"opl", "Opole", 50.6751, 17.9213},
	{"ols", "Olsztyn", 53.7784, 20.4801},
	{"tor", "Toruń", 53.0138, 18.5984},
	{"zgo", "Zielona Góra", 51.9356, 15.5062},
	{"kos", "Koszalin", 54.1940, 16.1720},
	{"kie", "Kielce", 50.8661, 20.6286},
}
