package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q := locationQuery{LocationID: c.Query("locationId")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		cur, err := service.FetchCurrent(c.UserContext(), q.LocationID)
		if err != nil {
			return toHTTPError(err, "failed to fetch current weather")
		}
		return c.JSON(fiber.Map{
			"location": cur.Location,
			"source":   cur.Source,
			"current":  series.View{Point: cur.Point, Fields: weather.DatasetWeather.Fields()},
		})
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req windowQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		h, err := service.FetchHistory(c.UserContext(), req.LocationID, req.From, req.To, c.Query("interval"))
		if err != nil {
			return toHTTPError(err, "failed to fetch weather history")
		}
		return c.JSON(fiber.Map{
			"location": h.Location,
			"from":     req.From.UTC(),
			"to":       req.To.UTC(),
			"interval": h.Interval,
			"source":   h.Source,
			"points":   h.Points.Views(weather.DatasetWeather.Fields()),
		})
	})

	v1.Post("/air-quality/live/:locationId/last24h", func(c *fiber.Ctx) error {
		from, to := service.LastDay()
		w, err := service.FetchLiveWindow(c.UserContext(), c.Params("locationId"), from, to)
		if err != nil {
			return toHTTPError(err, "failed to fetch air quality")
		}
		return c.JSON(liveResponse(c.Params("locationId"), w))
	})

	v1.Get("/air-quality/live", func(c *fiber.Ctx) error {
		var req windowQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		w, err := service.FetchLiveWindow(c.UserContext(), req.LocationID, req.From, req.To)
		if err != nil {
			return toHTTPError(err, "failed to fetch air quality")
		}
		return c.JSON(liveResponse(req.LocationID, w))
	})

	v1.Get("/air-quality/history/:locationId/last24h", func(c *fiber.Ctx) error {
		from, to := service.LastDay()
		w, err := service.StoredWindow(c.UserContext(), c.Params("locationId"), from, to)
		if err != nil {
			return toHTTPError(err, "failed to read air quality history")
		}
		return c.JSON(liveResponse(c.Params("locationId"), w))
	})

	v1.Get("/forecast/daily", func(c *fiber.Ctx) error {
		var q dailyQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		daily, err := service.DailyForecast(c.UserContext(), q.Lat, q.Lon, q.Days)
		if err != nil {
			return toHTTPError(err, "failed to fetch forecast")
		}
		return c.JSON(daily)
	})

	v1.Get("/forecast/snapshot", func(c *fiber.Ctx) error {
		snap, err := service.CitySnapshot(c.UserContext(), c.Query("range"))
		if err != nil {
			return toHTTPError(err, "failed to build forecast snapshot")
		}
		return c.JSON(snap)
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		q := searchQuery{Query: c.Query("query"), Count: c.QueryInt("count", 10)}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		locs, err := service.SearchLocations(c.UserContext(), q.Query, q.Count)
		if err != nil {
			return toHTTPError(err, "failed to search locations")
		}
		return c.JSON(locs)
	})
}

func liveResponse(locationID string, w weather.LiveWindow) fiber.Map {
	fields := weather.DatasetAirQuality.Fields()
	return fiber.Map{
		"locationId": locationID,
		"averages":   series.View{Point: w.Averages, Fields: fields},
		"series":     w.Series.Views(fields),
	}
}

// toHTTPError maps domain errors to status codes. Unexpected errors keep a
// generic message.
func toHTTPError(err error, fallback string) error {
	var (
		perr *series.ParseError
		prov *weather.ProviderError
	)
	switch {
	case errors.Is(err, weather.ErrInvalidWindow):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.As(err, &perr), errors.As(err, &prov):
		return fiber.NewError(fiber.StatusBadGateway, fallback+": "+err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	LocationID string `validate:"required"`
}

// windowQuery holds query parameters for windowed endpoints.
type windowQuery struct {
	LocationID string    `validate:"required"`
	From       time.Time `validate:"required"`
	To         time.Time `validate:"required,gtfield=From"`
}

func (w *windowQuery) bind(c *fiber.Ctx) error {
	w.LocationID = c.Query("locationId")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}
	w.From = from
	w.To = to

	return validate.Struct(w)
}

type dailyQuery struct {
	Lat  float64 `validate:"gte=-90,lte=90"`
	Lon  float64 `validate:"gte=-180,lte=180"`
	Days int
}

func (d *dailyQuery) bind(c *fiber.Ctx) error {
	if c.Query("lat") == "" || c.Query("lon") == "" {
		return errors.New("lat and lon query parameters are required")
	}
	var err error
	if d.Lat, err = strconv.ParseFloat(c.Query("lat"), 64); err != nil {
		return errors.New("invalid lat")
	}
	if d.Lon, err = strconv.ParseFloat(c.Query("lon"), 64); err != nil {
		return errors.New("invalid lon")
	}
	d.Days = c.QueryInt("days", 7)
	return validate.Struct(d)
}

type searchQuery struct {
	Query string `validate:"required"`
	Count int    `validate:"gte=1,lte=100"`
}

// parseTime tries RFC3339, Open-Meteo local timestamps and Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := series.ParseTimestamp(s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
