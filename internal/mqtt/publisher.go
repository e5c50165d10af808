package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode"

	"weather-widget/internal/weather"
	"weather-widget/internal/widget"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher mirrors every rendered forecast to an MQTT broker. It is a
// widget.Renderer.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool

	mu       sync.Mutex
	lastUnit string
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Println("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

type message struct {
	Topic    string
	Payload  interface{}
	Retained bool
}

// messagesFor lays out the topics for one view: a value per current
// condition and the whole view as retained JSON.
func messagesFor(prefix string, view widget.View) ([]message, error) {
	full, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forecast: %w", err)
	}

	msgs := []message{
		{Topic: prefix + "/place", Payload: view.Place.Name, Retained: true},
		{Topic: prefix + "/unit", Payload: view.Unit, Retained: true},
	}

	if c := view.Current; c != nil {
		values := []struct {
			name  string
			value interface{}
		}{
			{"temperature", fmt.Sprintf("%.2f", c.Temperature)},
			{"feels_like", fmt.Sprintf("%.2f", c.FeelsLike)},
			{"humidity", c.HumidityPercent},
			{"wind_speed", fmt.Sprintf("%.2f", c.WindSpeedMS)},
			{"pressure", fmt.Sprintf("%.0f", c.PressureHPa)},
			{"condition", c.Condition},
			{"summary", c.Summary},
		}
		for _, v := range values {
			msgs = append(msgs, message{
				Topic:   fmt.Sprintf("%s/current/%s", prefix, v.name),
				Payload: fmt.Sprintf("%v", v.value),
			})
		}
	}

	msgs = append(msgs, message{Topic: prefix + "/forecast", Payload: full, Retained: true})
	return msgs, nil
}

// Render publishes view. Failures are logged; rendering never fails the
// lookup that produced the view.
func (p *Publisher) Render(view widget.View) {
	if !p.enabled {
		return
	}

	p.mu.Lock()
	unitChanged := p.lastUnit != view.Unit
	p.lastUnit = view.Unit
	p.mu.Unlock()

	if unitChanged {
		unit, _ := weather.ParseUnit(view.Unit)
		if err := p.PublishHomeAssistantDiscovery(unit); err != nil {
			log.Printf("MQTT discovery failed: %v", err)
		}
	}

	msgs, err := messagesFor(p.topicPrefix, view)
	if err != nil {
		log.Printf("MQTT render failed: %v", err)
		return
	}

	for _, m := range msgs {
		token := p.client.Publish(m.Topic, 0, m.Retained, m.Payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish to %s: %v", m.Topic, token.Error())
		}
	}
}

func (p *Publisher) RenderError(err error) {
	if !p.enabled {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"kind":    string(weather.KindOf(err)),
		"message": weather.Message(err),
	})
	token := p.client.Publish(p.topicPrefix+"/error", 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("Failed to publish error: %v", token.Error())
	}
}

type discoverySensor struct {
	Name        string
	ID          string
	Unit        string
	DeviceClass string
	StateTopic  string
}

func discoverySensors(unit weather.Unit) []discoverySensor {
	return []discoverySensor{
		{"Temperature", "temperature", unit.Symbol(), "temperature", "current/temperature"},
		{"Feels Like", "feels_like", unit.Symbol(), "temperature", "current/feels_like"},
		{"Humidity", "humidity", "%", "humidity", "current/humidity"},
		{"Wind Speed", "wind_speed", "m/s", "wind_speed", "current/wind_speed"},
		{"Pressure", "pressure", "hPa", "pressure", "current/pressure"},
		{"Conditions", "summary", "", "", "current/summary"},
	}
}

// PublishHomeAssistantDiscovery announces the current-condition sensors.
// Render calls it again whenever the unit changes.
func (p *Publisher) PublishHomeAssistantDiscovery(unit weather.Unit) error {
	if !p.enabled {
		return nil
	}

	node := slug(p.topicPrefix)
	for _, sensor := range discoverySensors(unit) {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/%s/%s/config", node, sensor.ID)

		config := map[string]interface{}{
			"name":        fmt.Sprintf("Weather %s", sensor.Name),
			"unique_id":   fmt.Sprintf("%s_%s", node, sensor.ID),
			"state_topic": fmt.Sprintf("%s/%s", p.topicPrefix, sensor.StateTopic),
			"device": map[string]interface{}{
				"identifiers":  []string{node},
				"name":         "Weather Widget",
				"manufacturer": "weather-widget",
			},
		}
		if sensor.Unit != "" {
			config["unit_of_measurement"] = sensor.Unit
		}
		if sensor.DeviceClass != "" {
			config["device_class"] = sensor.DeviceClass
		}

		payload, _ := json.Marshal(config)
		token := p.client.Publish(discoveryTopic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("failed to publish discovery for %s: %w", sensor.ID, token.Error())
		}
	}

	return nil
}

func slug(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}

var _ widget.Renderer = (*Publisher)(nil)
