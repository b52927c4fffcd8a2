// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/serve_sense/internal/config"
	"github.com/relabs-tech/serve_sense/internal/decision"
)

// displayData holds the latest status for the OLED.
type displayData struct {
	mu sync.RWMutex

	recording  bool
	haveState  bool
	label      string
	bestPct    float64
	haveResult bool
}

// RunDisplay drives the SSD1306 status screen: recording state and the
// last classification result.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	stateToken := client.Subscribe(cfg.TopicState, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if len(msg.Payload()) != 1 {
			return
		}
		data.mu.Lock()
		data.recording = msg.Payload()[0] == 1
		data.haveState = true
		data.mu.Unlock()
	})
	stateToken.Wait()
	if stateToken.Error() != nil {
		return stateToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicState)

	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		label, percents, err := decision.ParseMessage(string(msg.Payload()))
		if err != nil {
			log.Printf("display: %v", err)
			return
		}
		best := percents[0]
		for _, p := range percents[1:] {
			if p > best {
				best = p
			}
		}
		data.mu.Lock()
		data.label = label
		data.bestPct = best
		data.haveResult = true
		data.mu.Unlock()
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicResult)

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		snapshot := displayData{
			recording:  data.recording,
			haveState:  data.haveState,
			label:      data.label,
			bestPct:    data.bestPct,
			haveResult: data.haveResult,
		}
		data.mu.RUnlock()

		if err := updateStatusDisplay(dev, &snapshot); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func blankCanvas() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}
	return img
}

func textDrawer(img *image1bit.VerticalLSB) *font.Drawer {
	return &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func updateStatusDisplay(dev *ssd1306.Dev, data *displayData) error {
	img := blankCanvas()
	drawer := textDrawer(img)

	if !data.haveState {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("ServeSense"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	drawer.Dot = fixed.P(0, 13)
	if data.recording {
		drawer.DrawBytes([]byte("REC *"))
	} else {
		drawer.DrawBytes([]byte("IDLE"))
	}

	if data.haveResult {
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(data.label))
		drawer.Dot = fixed.P(0, 52)
		drawer.DrawBytes([]byte(fmt.Sprintf("%.1f%%", data.bestPct)))
	} else {
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("No result yet"))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := blankCanvas()
	drawer := textDrawer(img)

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("ServeSense"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Ready to serve"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
