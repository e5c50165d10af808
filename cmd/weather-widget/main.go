package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather-widget/config"
	"weather-widget/internal/api"
	"weather-widget/internal/mqtt"
	"weather-widget/internal/storage"
	"weather-widget/internal/telemetry"
	"weather-widget/internal/weather"
	"weather-widget/internal/widget"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configFile string
	verbose    bool
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		if msg := exitMessage(err); msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "weather-widget",
		Short:         "Weather lookup widget",
		Long:          "Look up a city or your position and show the current conditions and a day-by-day forecast",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(locateCmd())
	return rootCmd
}

// exitMessage is what main prints for a failed command. Lookup failures carry
// a weather kind and were already shown by the widget's renderers.
func exitMessage(err error) string {
	if weather.KindOf(err) != "" {
		return ""
	}
	return err.Error()
}

// app is everything a command needs, built from configuration.
type app struct {
	cfg      *config.Config
	widget   *widget.Widget
	db       *storage.Database
	shutdown func(context.Context) error
}

func newApp(withStorage bool) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := telemetry.Setup(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ZipkinURL:   cfg.Telemetry.ZipkinURL,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		log.Printf("Warning: tracing disabled: %v", err)
	}

	provider, err := weather.NewProvider(weather.ProviderConfig{
		Provider:       cfg.Weather.Provider,
		APIKey:         cfg.Weather.APIKey,
		BaseURL:        cfg.Weather.BaseURL,
		GeoURL:         cfg.Weather.GeocodingURL,
		Language:       cfg.Weather.Language,
		RateLimitRPS:   cfg.Weather.RateLimit.RPS,
		RateLimitBurst: cfg.Weather.RateLimit.Burst,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Using weather provider %s", provider.Name())

	defaultUnit, err := weather.ParseUnit(cfg.Weather.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid weather.units: %w", err)
	}

	a := &app{cfg: cfg, shutdown: shutdown}

	var prefs widget.PreferenceStore
	if withStorage && cfg.Database.Enabled {
		db, err := storage.NewDatabase(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		log.Printf("Database opened at %s", cfg.Database.Path)
		a.db = db
		prefs = db
	}

	a.widget = widget.New(widget.Config{
		Resolver: weather.NewResolver(weather.ResolverConfig{
			Geocoder:        provider,
			ReverseGeocoder: provider,
			StrictNameMatch: cfg.Weather.StrictNameMatch,
		}),
		Forecasts:          provider,
		Store:              widget.NewStore(),
		Units:              widget.NewUnits(defaultUnit, prefs),
		GeolocationTimeout: cfg.Geolocation.Timeout,
	})
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			log.Printf("Tracer shutdown: %v", err)
		}
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the widget server",
		Long:  "Serve the browser widget and its API, and mirror results to MQTT when enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      a.cfg.MQTT.Broker,
				ClientID:    a.cfg.MQTT.ClientID,
				Username:    a.cfg.MQTT.Username,
				Password:    a.cfg.MQTT.Password,
				TopicPrefix: a.cfg.MQTT.TopicPrefix,
				Enabled:     a.cfg.MQTT.Enabled,
			})
			if err != nil {
				log.Printf("Warning: MQTT connection failed: %v", err)
			} else if a.cfg.MQTT.Enabled {
				log.Printf("MQTT connected to %s", a.cfg.MQTT.Broker)
				a.widget.AddRenderer(publisher)
				defer publisher.Close()
			}

			if !a.cfg.API.Enabled {
				return fmt.Errorf("api is disabled; nothing to serve")
			}

			serverCfg := api.ServerConfig{
				Port:   a.cfg.API.Port,
				Widget: a.widget,
			}
			if a.db != nil {
				serverCfg.Preferences = a.db
			}
			server := api.NewServer(serverCfg)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Start()
			}()

			log.Println("Weather widget started. Press Ctrl+C to stop.")

			select {
			case <-sigChan:
			case err := <-errChan:
				return fmt.Errorf("API server error: %w", err)
			}

			log.Println("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Stop(ctx)
		},
	}
}

func lookupCmd() *cobra.Command {
	var unitFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup <city>",
		Short: "Show the forecast for a city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet()
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := applyUnitFlag(a.widget, unitFlag); err != nil {
				return err
			}
			addOutput(a.widget, asJSON)

			city := args[0]
			for _, extra := range args[1:] {
				city += " " + extra
			}
			_, err = a.widget.Search(cmd.Context(), city)
			return err
		},
	}
	cmd.Flags().StringVarP(&unitFlag, "unit", "u", "", "temperature unit (c or f)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the forecast as JSON")
	return cmd
}

func locateCmd() *cobra.Command {
	var unitFlag string
	var asJSON bool
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show the forecast for your position",
		Long:  "Use --lat/--lon, or the geolocation position from the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet()
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := applyUnitFlag(a.widget, unitFlag); err != nil {
				return err
			}
			addOutput(a.widget, asJSON)

			position := widget.StaticPosition{
				Latitude:  a.cfg.Geolocation.Latitude,
				Longitude: a.cfg.Geolocation.Longitude,
				Known:     a.cfg.Geolocation.HasPosition(),
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				position = widget.StaticPosition{Latitude: lat, Longitude: lon, Known: true}
			}

			_, err = a.widget.UseLocation(cmd.Context(), position)
			return err
		},
	}
	cmd.Flags().StringVarP(&unitFlag, "unit", "u", "", "temperature unit (c or f)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the forecast as JSON")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

func applyUnitFlag(w *widget.Widget, value string) error {
	if value == "" {
		return nil
	}
	unit, err := weather.ParseUnit(value)
	if err != nil {
		return fmt.Errorf("invalid --unit: %s", weather.Message(err))
	}
	_, _, err = w.SetUnit(unit)
	return err
}

func addOutput(w *widget.Widget, asJSON bool) {
	if asJSON {
		w.AddRenderer(jsonRenderer{})
		return
	}
	w.AddRenderer(widget.TextRenderer{Out: os.Stdout})
}

type jsonRenderer struct{}

func (jsonRenderer) Render(view widget.View) {
	output, _ := json.MarshalIndent(view, "", "  ")
	fmt.Println(string(output))
}

func (jsonRenderer) RenderError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", weather.Message(err))
}

// quiet silences logging for one-shot commands unless --verbose is set.
func quiet() {
	if !verbose {
		log.SetOutput(io.Discard)
	}
}
