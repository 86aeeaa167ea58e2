package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/wxcache/weather-service/internal/weather"
)

// Warmer periodically requests weather for configured cities so their
// cached readings stay within the freshness window.
type Warmer struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	cities    []string
	interval  time.Duration
}

// New creates a new Warmer.
func New(cities []string, interval time.Duration, service *weather.Service) *Warmer {
	s := gocron.NewScheduler(time.UTC)
	return &Warmer{
		scheduler: s,
		service:   service,
		cities:    cities,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (w *Warmer) Start() error {
	if len(w.cities) == 0 {
		log.Println("warmer: no cities configured; nothing to schedule")
		return nil
	}

	minutes := int(w.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := w.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("warmer: running cache warm job")

		var wg sync.WaitGroup
		for _, city := range w.cities {
			city := city
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if _, err := w.service.GetWeather(ctx, city); err != nil {
					log.Printf("warmer: warm failed for %s: %v", city, err)
				}
			}()
		}
		wg.Wait()
		log.Println("warmer: completed cache warm job")
	})
	if err != nil {
		return err
	}

	w.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (w *Warmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}
