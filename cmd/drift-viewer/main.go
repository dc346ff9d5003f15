// Drift viewer: shows where a fixed az/el pointing looks on the sky as
// the Earth turns underneath it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/soniakeys/unit"

	"github.com/unklstewy/skyconv/internal/db"
	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/config"
	"github.com/unklstewy/skyconv/pkg/coordinates"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	siteName   = flag.String("site", "", "Observer site from the site registry")
	latFlag    = flag.String("lat", "", "Observer latitude in degrees (overrides config)")
	lonFlag    = flag.String("lon", "", "Observer longitude in degrees, east positive (overrides config)")
	azFlag     = flag.String("az", "180", "Initial azimuth in degrees")
	elFlag     = flag.String("el", "45", "Initial elevation in degrees")
)

// steps are the nudge sizes in degrees cycled with +/-.
var steps = []float64{0.1, 1, 5, 15}

// maxTrail is the number of samples kept for the drift trail.
const maxTrail = 240

type model struct {
	observer coordinates.Observer
	site     string
	clock    func() time.Time
	interval time.Duration

	az, el     float64 // degrees
	step       int     // index into steps
	refraction bool
	ofDate     bool
	equinox    float64

	sample coordinates.DriftSample
	trail  []coordinates.DriftSample
}

type tickMsg time.Time

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		moved := true
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.el = clampElevation(m.el + steps[m.step])
		case "down", "j":
			m.el = clampElevation(m.el - steps[m.step])
		case "left", "h":
			m.az = coordinates.NormalizeAzimuth(m.az - steps[m.step])
		case "right", "l":
			m.az = coordinates.NormalizeAzimuth(m.az + steps[m.step])
		case "+", "=":
			if m.step < len(steps)-1 {
				m.step++
			}
			moved = false
		case "-":
			if m.step > 0 {
				m.step--
			}
			moved = false
		case "r":
			m.refraction = !m.refraction
		case "e":
			m.ofDate = !m.ofDate
		case "c":
		default:
			return m, nil
		}
		if moved {
			// A new pointing starts a new trail
			m.trail = nil
			m = m.refresh(m.clock())
		}
		return m, nil

	case tickMsg:
		m = m.refresh(m.clock())
		return m, m.tick()
	}

	return m, nil
}

// refresh samples the pointing at t and appends it to the trail.
func (m model) refresh(t time.Time) model {
	m.sample = m.observer.Drift(unit.AngleFromDeg(m.az), unit.AngleFromDeg(m.el), t, m.options()...)
	m.trail = append(m.trail, m.sample)
	if len(m.trail) > maxTrail {
		m.trail = m.trail[len(m.trail)-maxTrail:]
	}
	return m
}

func (m model) options() []coordinates.Option {
	var opts []coordinates.Option
	if !m.refraction {
		opts = append(opts, coordinates.WithoutRefraction())
	}
	if m.ofDate {
		opts = append(opts, coordinates.WithEquinoxOfDate())
	} else {
		opts = append(opts, coordinates.WithEquinox(m.equinox))
	}
	return opts
}

func clampElevation(el float64) float64 {
	return max(-90, min(90, el))
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	s.WriteString(titleStyle.Render("SKYCONV DRIFT VIEWER"))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderChart(), "  ", m.renderInfo()))
	s.WriteString("\n\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	s.WriteString(helpStyle.Render("←/→ az  ↑/↓ el  +/- step  r refraction  e equinox  c clear trail  q quit"))
	return s.String()
}

func (m model) renderInfo() string {
	var info strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	row := func(label, value string) {
		info.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", label)))
		info.WriteString(valueStyle.Render(value))
		info.WriteString("\n")
	}

	info.WriteString(headerStyle.Render("Observer:"))
	info.WriteString("\n")
	if m.site != "" {
		row("Site", m.site)
	}
	row("Lat", angle.Format(unit.AngleFromDeg(m.observer.Location.Latitude)))
	row("Lon", angle.Format(unit.AngleFromDeg(m.observer.Location.Longitude)))
	info.WriteString("\n")

	info.WriteString(headerStyle.Render("Pointing:"))
	info.WriteString("\n")
	row("Az", fmt.Sprintf("%.2f°", m.az))
	row("El", fmt.Sprintf("%.2f°", m.el))
	row("Step", fmt.Sprintf("%g°", steps[m.step]))
	info.WriteString("\n")

	info.WriteString(headerStyle.Render("Sky:"))
	info.WriteString("\n")
	row("UTC", m.sample.Time.Format("2006-01-02 15:04:05"))
	if m.observer.Timezone != "" {
		row("Local", m.observer.LocalTime(m.sample.Time).Format("15:04:05 MST"))
	}
	row("LST", angle.FormatHours(unit.RAFromHour(m.sample.LST)))
	row("RA", angle.FormatHours(m.sample.RA))
	row("Dec", angle.Format(m.sample.Dec))

	frame := fmt.Sprintf("J%.1f", m.equinox)
	if m.ofDate {
		frame = "of date"
	}
	refr := "on"
	if !m.refraction {
		refr = "off"
	}
	row("Equinox", frame)
	row("Refract", refr)

	return info.String()
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	observer, site, err := loadObserver(cfg)
	if err != nil {
		log.Fatalf("Failed to load observer: %v", err)
	}

	az, err := angle.Parse(*azFlag)
	if err != nil {
		log.Fatalf("Invalid azimuth: %v", err)
	}
	el, err := angle.Parse(*elFlag)
	if err != nil {
		log.Fatalf("Invalid elevation: %v", err)
	}

	interval := cfg.Conversion.DriftInterval()
	if interval < config.MinDriftInterval {
		interval = time.Second
	}

	m := model{
		observer:   observer,
		site:       site,
		clock:      time.Now,
		interval:   interval,
		az:         coordinates.NormalizeAzimuth(az.Deg()),
		el:         clampElevation(el.Deg()),
		step:       1,
		refraction: cfg.Conversion.Refraction,
		ofDate:     cfg.Conversion.Equinox == 0,
		equinox:    cfg.Conversion.Equinox,
	}
	if m.equinox == 0 {
		m.equinox = coordinates.J2000
	}
	m = m.refresh(m.clock())

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadObserver returns the observer from --site, --lat/--lon or the config.
func loadObserver(cfg *config.Config) (coordinates.Observer, string, error) {
	if *siteName != "" {
		if !cfg.Database.Enabled {
			return coordinates.Observer{}, "", fmt.Errorf("--site needs the site registry (database.enabled)")
		}
		database, err := db.Connect(cfg.Database)
		if err != nil {
			return coordinates.Observer{}, "", err
		}
		defer database.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		site, err := db.NewSiteRepository(database).GetByName(ctx, *siteName)
		if err != nil {
			return coordinates.Observer{}, "", err
		}
		return site.Observer(), site.Name, nil
	}

	observer := cfg.Observer.Observer()
	if *latFlag != "" {
		lat, err := angle.Parse(*latFlag)
		if err != nil {
			return coordinates.Observer{}, "", fmt.Errorf("invalid latitude: %w", err)
		}
		observer.Location.Latitude = lat.Deg()
	}
	if *lonFlag != "" {
		lon, err := angle.Parse(*lonFlag)
		if err != nil {
			return coordinates.Observer{}, "", fmt.Errorf("invalid longitude: %w", err)
		}
		observer.Location.Longitude = lon.Deg()
	}
	return observer, "", nil
}
